// Package quote aggregates selected parts into priced quotes.
package quote

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/data-power-io/partsquote/internal/catalog"
)

// Labor options of a selected part besides a preset number of hours.
const (
	LaborIncluded = "included"
	LaborCustom   = "custom"
)

// DefaultLaborHours is the labor time a newly selected part starts with.
const DefaultLaborHours = 1.0

// LaborPresets are the hour values offered without custom input.
var LaborPresets = []float64{0.5, 1, 1.5, 2, 2.5, 3}

var (
	ErrInvalidLaborOption = errors.New("invalid labor option")
	ErrInvalidLaborHours  = errors.New("labor hours must not be negative")
)

// SelectedPart is a part picked for a quote, tagged with its catalog key.
// Its identity within a Selection is (Name, Key).
type SelectedPart struct {
	catalog.Part
	Key        string  `json:"key"`
	LaborHours float64 `json:"laborHours"`
	IsIncluded bool    `json:"isIncluded"`
}

// LaborOption reports the labor choice shown for the part: LaborIncluded, a
// preset such as "1.5", or LaborCustom.
func (p SelectedPart) LaborOption() string {
	if p.IsIncluded {
		return LaborIncluded
	}
	if slices.Contains(LaborPresets, p.LaborHours) {
		return strconv.FormatFloat(p.LaborHours, 'f', -1, 64)
	}
	return LaborCustom
}

// Selection is the ordered list of parts picked for one quote. It is not
// safe for concurrent use.
type Selection struct {
	Parts []SelectedPart `json:"parts"`
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{Parts: []SelectedPart{}}
}

func (s *Selection) indexOf(key, name string) int {
	return slices.IndexFunc(s.Parts, func(p SelectedPart) bool {
		return p.Name == name && p.Key == key
	})
}

// IsSelected reports whether a part with the same name from catalog key is
// selected. Its signature matches diagram.SelectedFunc.
func (s *Selection) IsSelected(key string, part catalog.Part) bool {
	return s.indexOf(key, part.Name) >= 0
}

// Toggle adds part when it is not selected yet and removes it otherwise. It
// returns whether the part is selected afterwards.
func (s *Selection) Toggle(key string, part catalog.Part) bool {
	if i := s.indexOf(key, part.Name); i >= 0 {
		s.Parts = slices.Delete(s.Parts, i, i+1)
		return false
	}
	s.Parts = append(s.Parts, SelectedPart{
		Part:       part,
		Key:        key,
		LaborHours: DefaultLaborHours,
		IsIncluded: true,
	})
	return true
}

func (s *Selection) line(i int) (*SelectedPart, error) {
	if i < 0 || i >= len(s.Parts) {
		return nil, fmt.Errorf("%w: selected part %d", catalog.ErrIndexOutOfRange, i)
	}
	return &s.Parts[i], nil
}

// Remove drops line i.
func (s *Selection) Remove(i int) error {
	if _, err := s.line(i); err != nil {
		return err
	}
	s.Parts = slices.Delete(s.Parts, i, i+1)
	return nil
}

// SetLaborOption applies a labor choice to line i. LaborIncluded resets the
// hours to the default, LaborCustom keeps the current hours and anything
// else must be a number of hours.
func (s *Selection) SetLaborOption(i int, option string) error {
	p, err := s.line(i)
	if err != nil {
		return err
	}

	switch option {
	case LaborIncluded:
		p.IsIncluded = true
		p.LaborHours = DefaultLaborHours
	case LaborCustom:
		p.IsIncluded = false
	default:
		hours, err := strconv.ParseFloat(option, 64)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidLaborOption, option)
		}
		if !validHours(hours) {
			return fmt.Errorf("%w: %v", ErrInvalidLaborHours, hours)
		}
		p.IsIncluded = false
		p.LaborHours = hours
	}
	return nil
}

// SetLaborHours sets the labor time of line i without changing whether
// labor is included.
func (s *Selection) SetLaborHours(i int, hours float64) error {
	p, err := s.line(i)
	if err != nil {
		return err
	}
	if !validHours(hours) {
		return fmt.Errorf("%w: %v", ErrInvalidLaborHours, hours)
	}
	p.LaborHours = hours
	return nil
}

// validHours rejects negative hours and the NaN and infinite values
// strconv.ParseFloat accepts.
func validHours(h float64) bool {
	return h >= 0 && !math.IsNaN(h) && !math.IsInf(h, 0)
}

// Reset clears the selection.
func (s *Selection) Reset() {
	s.Parts = []SelectedPart{}
}

// Len returns the number of selected parts.
func (s *Selection) Len() int {
	return len(s.Parts)
}
