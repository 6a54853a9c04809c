// Package diagram projects a part catalog onto marker overlays for a diagram
// image and turns repeated clicks on the image into sub-positions.
package diagram

import (
	"fmt"
	"strings"

	"github.com/data-power-io/partsquote/internal/catalog"
	"github.com/data-power-io/partsquote/internal/money"
)

// Marker styles.
const (
	StyleSingle = "single"
	// StyleGroup is drawn with the alternate fill and border.
	StyleGroup = "group"
)

// Colors of aggregate markers.
const (
	GroupFill   = "#ff6b6b"
	GroupBorder = "#e03131"
)

// Member is one part drawn by a marker.
type Member struct {
	Index    int          `json:"index"`
	Part     catalog.Part `json:"part"`
	Selected bool         `json:"selected"`
}

// Label is the text of a member line in a selection menu.
func (m Member) Label() string {
	label := m.Part.Name
	if m.Part.Position.HasSub() {
		label += " (sub: " + m.Part.Position.Sub + ")"
	}
	if m.Selected {
		label = "✓ " + label
	}
	return label
}

// Marker is one clickable overlay, positioned in percent of the image size.
type Marker struct {
	BaseKey  string   `json:"baseKey"`
	Left     int      `json:"left"`
	Top      int      `json:"top"`
	Label    string   `json:"label"`
	Tooltip  string   `json:"tooltip"`
	Style    string   `json:"style"`
	Fill     string   `json:"fill,omitempty"`
	Border   string   `json:"border,omitempty"`
	Selected bool     `json:"selected"`
	Members  []Member `json:"members"`
}

// Aggregate reports whether the marker stands for several stacked parts.
// Clicking it opens a menu instead of selecting a part.
func (m Marker) Aggregate() bool {
	return len(m.Members) > 1
}

// SelectedFunc reports whether a part of a catalog is currently selected.
type SelectedFunc func(key string, part catalog.Part) bool

// Renderer builds marker overlays.
type Renderer struct {
	money *money.Formatter
}

// NewRenderer returns a renderer formatting prices with f. A nil f uses the
// default Korean formatter.
func NewRenderer(f *money.Formatter) *Renderer {
	if f == nil {
		f = money.NewFormatter("ko", money.DefaultSuffix)
	}
	return &Renderer{money: f}
}

// Render groups parts by base key and returns one marker per group, in order
// of first appearance.
func (r *Renderer) Render(key string, parts []catalog.Part, selected SelectedFunc) []Marker {
	if selected == nil {
		selected = func(string, catalog.Part) bool { return false }
	}

	var order []string
	groups := make(map[string][]Member)
	for i, p := range parts {
		base := p.Position.BaseKey()
		if _, ok := groups[base]; !ok {
			order = append(order, base)
		}
		groups[base] = append(groups[base], Member{
			Index:    i,
			Part:     p,
			Selected: selected(key, p),
		})
	}

	markers := make([]Marker, 0, len(order))
	for _, base := range order {
		members := groups[base]
		if len(members) == 1 {
			markers = append(markers, r.single(base, members[0]))
		} else {
			markers = append(markers, r.group(base, members))
		}
	}
	return markers
}

func (r *Renderer) single(base string, m Member) Marker {
	p := m.Part
	return Marker{
		BaseKey:  base,
		Left:     p.Position.X,
		Top:      p.Position.Y,
		Label:    fmt.Sprint(p.Number),
		Tooltip:  fmt.Sprintf("%s - %s (위치: %s)", p.Name, r.money.Format(p.Price), p.Position.String()),
		Style:    StyleSingle,
		Selected: m.Selected,
		Members:  []Member{m},
	}
}

func (r *Renderer) group(base string, members []Member) Marker {
	x, y := members[0].Part.Position.X, members[0].Part.Position.Y

	lines := make([]string, len(members))
	anySelected := false
	for i, m := range members {
		sub := ""
		if m.Part.Position.HasSub() {
			sub = "-" + m.Part.Position.Sub
		}
		lines[i] = fmt.Sprintf("%s%s (%s)", m.Part.Name, sub, r.money.Format(m.Part.Price))
		anySelected = anySelected || m.Selected
	}

	return Marker{
		BaseKey:  base,
		Left:     x,
		Top:      y,
		Label:    fmt.Sprint(len(members)),
		Tooltip:  fmt.Sprintf("위치 (%d, %d)의 부품들:\n%s\n\n클릭하여 부품 선택", x, y, strings.Join(lines, "\n")),
		Style:    StyleGroup,
		Fill:     GroupFill,
		Border:   GroupBorder,
		Selected: anySelected,
		Members:  members,
	}
}
