package app

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/data-power-io/partsquote/internal/catalog"
	"github.com/data-power-io/partsquote/internal/diagram"
	"github.com/data-power-io/partsquote/internal/quote"
	"github.com/data-power-io/partsquote/internal/session"
	"github.com/data-power-io/partsquote/libs/metrics"
)

// ErrNoStackedMarker is returned when a menu is requested for a coordinate
// that does not hold several parts.
var ErrNoStackedMarker = errors.New("no stacked parts at coordinate")

// OpenSession starts a quote session.
func (c *Coordinator) OpenSession() *session.Session {
	return c.sessions.Open()
}

// CloseSession ends a quote session.
func (c *Coordinator) CloseSession(id string) {
	c.sessions.Close(id)
}

// withSession runs fn with the session locked.
func (c *Coordinator) withSession(id string, fn func(s *session.Session) error) error {
	s, err := c.sessions.Get(id)
	if err != nil {
		return err
	}
	s.Lock()
	defer s.Unlock()
	return fn(s)
}

// Markers renders the markers of a model, flagged with the session's
// selection. An empty session id renders nothing as selected.
func (c *Coordinator) Markers(sessionID, brand, model string) ([]diagram.Marker, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key, err := c.requireModel(brand, model)
	if err != nil {
		return nil, err
	}
	parts := c.registry.Parts(key)

	if sessionID == "" {
		return c.renderer.Render(key, parts, nil), nil
	}
	var markers []diagram.Marker
	err = c.withSession(sessionID, func(s *session.Session) error {
		markers = c.renderer.Render(key, parts, s.Selection.IsSelected)
		return nil
	})
	return markers, err
}

// ClickResult is the outcome of a click on the diagram.
type ClickResult struct {
	Position catalog.Position `json:"position"`
	Text     string           `json:"text"`
	Slot     int              `json:"slot"`
	Slots    []string         `json:"slots"`
}

// Click records a click at fractions (fx, fy) of the diagram and writes the
// resulting position into the session's add-part form.
func (c *Coordinator) Click(sessionID string, fx, fy float64) (ClickResult, error) {
	var res ClickResult
	err := c.withSession(sessionID, func(s *session.Session) error {
		pos := s.Clicks.Click(fx, fy)
		res = ClickResult{
			Position: pos,
			Text:     pos.String(),
			Slot:     s.Form.Fill(pos.String()),
			Slots:    slices.Clone(s.Form.Slots),
		}
		return nil
	})
	return res, err
}

// Form returns the session's position slots.
func (c *Coordinator) Form(sessionID string) ([]string, error) {
	var slots []string
	err := c.withSession(sessionID, func(s *session.Session) error {
		slots = slices.Clone(s.Form.Slots)
		return nil
	})
	return slots, err
}

// SetFormSlot overwrites slot i of the session's form. An empty value with
// remove set drops the slot instead.
func (c *Coordinator) SetFormSlot(sessionID string, i int, value string, remove bool) ([]string, error) {
	var slots []string
	err := c.withSession(sessionID, func(s *session.Session) error {
		if remove {
			s.Form.RemoveSlot(i)
		} else if err := s.Form.Set(i, value); err != nil {
			return err
		}
		slots = slices.Clone(s.Form.Slots)
		return nil
	})
	return slots, err
}

// SubmitForm registers a part at the positions collected in the session's
// form. The form and click history are cleared once every position was
// stored.
func (c *Coordinator) SubmitForm(ctx context.Context, sessionID, brand, model, name string, price int64, confirm bool) (catalog.AddPartResult, error) {
	var positions []string
	if err := c.withSession(sessionID, func(s *session.Session) error {
		positions = s.Form.Values()
		return nil
	}); err != nil {
		return catalog.AddPartResult{}, err
	}

	res, err := c.AddPart(ctx, brand, model, catalog.AddPartRequest{
		Name:      name,
		Price:     price,
		Positions: positions,
		Confirm:   confirm,
	})
	if err != nil || len(res.Rejected) > 0 {
		return res, err
	}

	err = c.withSession(sessionID, func(s *session.Session) error {
		s.Form.Clear()
		s.Clicks.Reset()
		return nil
	})
	return res, err
}

// Toggle selects or deselects part i of a model. It reports whether the
// part is selected afterwards.
func (c *Coordinator) Toggle(sessionID, brand, model string, i int) (bool, error) {
	c.mu.RLock()
	key, err := c.requireModel(brand, model)
	var part catalog.Part
	if err == nil {
		part, err = c.registry.Part(key, i)
	}
	c.mu.RUnlock()
	if err != nil {
		return false, err
	}

	var selected bool
	err = c.withSession(sessionID, func(s *session.Session) error {
		selected = s.Selection.Toggle(key, part)
		return nil
	})
	return selected, err
}

// OpenMenu opens the selection menu of the stacked marker at baseKey.
func (c *Coordinator) OpenMenu(sessionID, brand, model, baseKey string, click diagram.Point, menu, viewport diagram.Size) (*diagram.Menu, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key, err := c.requireModel(brand, model)
	if err != nil {
		return nil, err
	}
	parts := c.registry.Parts(key)

	var opened *diagram.Menu
	err = c.withSession(sessionID, func(s *session.Session) error {
		for _, m := range c.renderer.Render(key, parts, s.Selection.IsSelected) {
			if m.BaseKey == baseKey && m.Aggregate() {
				opened = diagram.OpenMenu(m, click, menu, viewport)
				s.Menu = opened
				s.MenuKey = key
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrNoStackedMarker, baseKey)
	})
	return opened, err
}

// ChooseMenuItem toggles the part of item i of the session's open menu and
// closes the menu.
func (c *Coordinator) ChooseMenuItem(sessionID string, i int) (bool, error) {
	var selected bool
	err := c.withSession(sessionID, func(s *session.Session) error {
		if s.Menu == nil {
			return diagram.ErrMenuClosed
		}
		part, err := s.Menu.Choose(i)
		if err != nil {
			return err
		}
		selected = s.Selection.Toggle(s.MenuKey, part)
		s.Menu = nil
		return nil
	})
	return selected, err
}

// DismissMenu closes the session's menu without choosing.
func (c *Coordinator) DismissMenu(sessionID string) error {
	return c.withSession(sessionID, func(s *session.Session) error {
		if s.Menu != nil {
			s.Menu.ClickOutside()
			s.Menu = nil
		}
		return nil
	})
}

// SelectionView is a session's selection priced at the current labor rate.
type SelectionView struct {
	Parts     []quote.SelectedPart `json:"parts"`
	LaborRate int64                `json:"laborRate"`
	Totals    quote.Totals         `json:"totals"`
}

// Selection returns the session's selection and its totals.
func (c *Coordinator) Selection(sessionID string) (SelectionView, error) {
	rate := c.laborRate()

	var view SelectionView
	err := c.withSession(sessionID, func(s *session.Session) error {
		view = SelectionView{
			Parts:     slices.Clone(s.Selection.Parts),
			LaborRate: rate,
			Totals:    quote.ComputeTotals(s.Selection.Parts, rate, c.vatRate),
		}
		return nil
	})
	return view, err
}

func (c *Coordinator) laborRate() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.record.LaborRate
}

// UpdateSelection applies fn to the session's selection and returns the
// repriced result.
func (c *Coordinator) UpdateSelection(sessionID string, fn func(*quote.Selection) error) (SelectionView, error) {
	if err := c.withSession(sessionID, func(s *session.Session) error {
		return fn(s.Selection)
	}); err != nil {
		return SelectionView{}, err
	}
	return c.Selection(sessionID)
}

// Quote prices the session's selection with the saved shop and customer
// details.
func (c *Coordinator) Quote(sessionID, format string) (*quote.Quote, error) {
	c.mu.RLock()
	shop, customer, rate := c.record.ShopInfo, c.record.CustomerInfo, c.record.LaborRate
	c.mu.RUnlock()

	var q *quote.Quote
	err := c.withSession(sessionID, func(s *session.Session) error {
		var err error
		q, err = quote.Build(shop, customer, s.Selection.Parts, rate, c.vatRate, c.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordQuote(format)
	return q, nil
}
