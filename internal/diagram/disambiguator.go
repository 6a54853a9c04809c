package diagram

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/data-power-io/partsquote/internal/catalog"
)

// DefaultRepeatWindow is how long a click stays eligible for a repeat.
const DefaultRepeatWindow = 3 * time.Second

// Disambiguator turns clicks on a diagram into positions. Clicking the same
// point again within the repeat window yields the next sub-position there:
// the first repeat gets "a", the second "b", and so on.
type Disambiguator struct {
	window time.Duration
	now    func() time.Time

	last     string
	repeats  int
	deadline time.Time
}

// DisambiguatorOption configures a Disambiguator.
type DisambiguatorOption func(*Disambiguator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) DisambiguatorOption {
	return func(d *Disambiguator) { d.now = now }
}

// WithRepeatWindow overrides DefaultRepeatWindow.
func WithRepeatWindow(w time.Duration) DisambiguatorOption {
	return func(d *Disambiguator) { d.window = w }
}

// NewDisambiguator returns a disambiguator with no click history.
func NewDisambiguator(opts ...DisambiguatorOption) *Disambiguator {
	d := &Disambiguator{window: DefaultRepeatWindow, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Percent converts a click at fraction f of the image extent to a whole
// percentage in [0, 100].
func Percent(f float64) int {
	p := int(math.Round(f * 100))
	return min(max(p, 0), catalog.MaxCoordinate)
}

// Click records a click at fractions (fx, fy) of the image size and returns
// the position it designates.
func (d *Disambiguator) Click(fx, fy float64) catalog.Position {
	pos := catalog.Position{X: Percent(fx), Y: Percent(fy)}
	now := d.now()
	base := pos.BaseKey()

	if base == d.last && now.Before(d.deadline) {
		d.repeats++
		pos.Sub = catalog.SubToken(d.repeats)
	} else {
		d.last = base
		d.repeats = 0
	}
	d.deadline = now.Add(d.window)
	return pos
}

// Reset forgets the click history.
func (d *Disambiguator) Reset() {
	d.last = ""
	d.repeats = 0
	d.deadline = time.Time{}
}

// PositionForm holds the position inputs of an add-part form.
type PositionForm struct {
	Slots []string `json:"slots"`
}

// NewPositionForm returns a form with one empty slot.
func NewPositionForm() *PositionForm {
	return &PositionForm{Slots: []string{""}}
}

// Fill writes value into the first empty slot, appending a slot when every
// slot is taken, and returns the slot index.
func (f *PositionForm) Fill(value string) int {
	for i, s := range f.Slots {
		if strings.TrimSpace(s) == "" {
			f.Slots[i] = value
			return i
		}
	}
	f.Slots = append(f.Slots, value)
	return len(f.Slots) - 1
}

// Set overwrites slot i. An index one past the last slot appends a slot.
func (f *PositionForm) Set(i int, value string) error {
	if i < 0 || i > len(f.Slots) {
		return fmt.Errorf("%w: form slot %d of %d", catalog.ErrIndexOutOfRange, i, len(f.Slots))
	}
	if i == len(f.Slots) {
		f.Slots = append(f.Slots, value)
		return nil
	}
	f.Slots[i] = value
	return nil
}

// RemoveSlot drops slot i, keeping at least one slot.
func (f *PositionForm) RemoveSlot(i int) {
	if i < 0 || i >= len(f.Slots) {
		return
	}
	f.Slots = append(f.Slots[:i], f.Slots[i+1:]...)
	if len(f.Slots) == 0 {
		f.Slots = []string{""}
	}
}

// Clear empties the form back to one slot.
func (f *PositionForm) Clear() {
	f.Slots = []string{""}
}

// Values returns the non-blank slots.
func (f *PositionForm) Values() []string {
	var out []string
	for _, s := range f.Slots {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
