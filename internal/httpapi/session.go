package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/data-power-io/partsquote/internal/app"
	"github.com/data-power-io/partsquote/internal/diagram"
	"github.com/data-power-io/partsquote/internal/quote"
)

type sessionResponse struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *Handler) handleOpenSession(w http.ResponseWriter, _ *http.Request) {
	s := h.coord.OpenSession()
	writeJSON(w, http.StatusCreated, sessionResponse{ID: s.ID, ExpiresAt: s.ExpiresAt})
}

func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	h.coord.CloseSession(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// handleClick takes x and y as fractions of the rendered diagram size.
func (h *Handler) handleClick(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.coord.Click(r.PathValue("id"), req.X, req.Y)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request) {
	slots, err := h.coord.Form(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"slots": slots})
}

func (h *Handler) handleSetFormSlot(w http.ResponseWriter, r *http.Request) {
	slot, err := pathIndex(r, "slot")
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req struct {
		Value  string `json:"value"`
		Remove bool   `json:"remove"`
	}
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	slots, err := h.coord.SetFormSlot(r.PathValue("id"), slot, req.Value, req.Remove)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"slots": slots})
}

func (h *Handler) handleSubmitForm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Brand   string `json:"brand"`
		Model   string `json:"model"`
		Name    string `json:"name"`
		Price   int64  `json:"price"`
		Confirm bool   `json:"confirm"`
	}
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.coord.SubmitForm(r.Context(), r.PathValue("id"), req.Brand, req.Model, req.Name, req.Price, req.Confirm)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, addPartStatus(res), newAddPartResponse(res))
}

type partRef struct {
	Brand string `json:"brand"`
	Model string `json:"model"`
	Index int    `json:"index"`
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req partRef
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	selected, err := h.coord.Toggle(r.PathValue("id"), req.Brand, req.Model, req.Index)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSelection(w, r, selected)
}

func (h *Handler) handleOpenMenu(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Brand    string        `json:"brand"`
		Model    string        `json:"model"`
		BaseKey  string        `json:"baseKey"`
		Click    diagram.Point `json:"click"`
		Menu     diagram.Size  `json:"menu"`
		Viewport diagram.Size  `json:"viewport"`
	}
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	menu, err := h.coord.OpenMenu(r.PathValue("id"), req.Brand, req.Model, req.BaseKey, req.Click, req.Menu, req.Viewport)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, menu)
}

func (h *Handler) handleChooseMenuItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	selected, err := h.coord.ChooseMenuItem(r.PathValue("id"), req.Index)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSelection(w, r, selected)
}

func (h *Handler) handleDismissMenu(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.DismissMenu(r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type toggleResponse struct {
	Selected  bool              `json:"selected"`
	Selection app.SelectionView `json:"selection"`
}

func (h *Handler) writeSelection(w http.ResponseWriter, r *http.Request, selected bool) {
	view, err := h.coord.Selection(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{Selected: selected, Selection: view})
}

func (h *Handler) handleSelection(w http.ResponseWriter, r *http.Request) {
	view, err := h.coord.Selection(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleResetSelection(w http.ResponseWriter, r *http.Request) {
	view, err := h.coord.UpdateSelection(r.PathValue("id"), func(s *quote.Selection) error {
		s.Reset()
		return nil
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleSetLabor takes either an option ("included", "custom" or a number of
// hours) or explicit hours.
func (h *Handler) handleSetLabor(w http.ResponseWriter, r *http.Request) {
	i, err := pathIndex(r, "index")
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req struct {
		Option string   `json:"option"`
		Hours  *float64 `json:"hours"`
	}
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Option == "" && req.Hours == nil {
		h.writeError(w, fmt.Errorf("%w: option or hours is required", errBadRequest))
		return
	}

	view, err := h.coord.UpdateSelection(r.PathValue("id"), func(s *quote.Selection) error {
		if req.Option != "" {
			if err := s.SetLaborOption(i, req.Option); err != nil {
				return err
			}
		}
		if req.Hours != nil {
			return s.SetLaborHours(i, *req.Hours)
		}
		return nil
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleRemoveSelected(w http.ResponseWriter, r *http.Request) {
	i, err := pathIndex(r, "index")
	if err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.coord.UpdateSelection(r.PathValue("id"), func(s *quote.Selection) error {
		return s.Remove(i)
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleQuote renders the session's quote. The "format" query parameter is
// html (default), xlsx or json.
func (h *Handler) handleQuote(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "html"
	}
	if format != "html" && format != "xlsx" && format != "json" {
		h.writeError(w, fmt.Errorf("%w: unknown format %q", errBadRequest, format))
		return
	}

	q, err := h.coord.Quote(r.PathValue("id"), format)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	switch format {
	case "json":
		writeJSON(w, http.StatusOK, q)
		return
	case "xlsx":
		if err := q.WriteXLSX(&buf); err != nil {
			h.writeError(w, err)
			return
		}
		filename := fmt.Sprintf("견적서_%s.xlsx", q.Date.Format("20060102"))
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	default:
		if err := q.WriteHTML(&buf); err != nil {
			h.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
