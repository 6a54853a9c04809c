package diagram

import (
	"errors"
	"fmt"

	"github.com/data-power-io/partsquote/internal/catalog"
)

// Menu layout, in screen pixels.
const (
	MenuOffset = 10
	MenuMargin = 10
)

// ErrMenuClosed is returned when choosing from a menu that was dismissed.
var ErrMenuClosed = errors.New("menu is closed")

// Point is a screen coordinate in pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size is a screen extent in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// MenuItem is one choosable line of a Menu.
type MenuItem struct {
	Label    string `json:"label"`
	Price    int64  `json:"price"`
	Index    int    `json:"index"`
	Selected bool   `json:"selected"`
}

// Menu lists the parts stacked at one coordinate so one of them can be picked.
type Menu struct {
	Title string     `json:"title"`
	Items []MenuItem `json:"items"`
	At    Point      `json:"at"`
	Open  bool       `json:"open"`

	members []Member
}

// OpenMenu builds the selection menu for an aggregate marker. The menu opens
// MenuOffset pixels below and right of click, flips to the other side of the
// click on an axis where it would overflow viewport, and stays MenuMargin
// pixels away from every viewport edge.
func OpenMenu(m Marker, click Point, menu Size, viewport Size) *Menu {
	items := make([]MenuItem, len(m.Members))
	for i, member := range m.Members {
		items[i] = MenuItem{
			Label:    member.Label(),
			Price:    member.Part.Price,
			Index:    member.Index,
			Selected: member.Selected,
		}
	}

	return &Menu{
		Title: fmt.Sprintf("위치 (%d, %d) 부품 선택", m.Left, m.Top),
		Items: items,
		At: Point{
			X: place(click.X, menu.Width, viewport.Width),
			Y: place(click.Y, menu.Height, viewport.Height),
		},
		Open:    true,
		members: m.Members,
	}
}

func place(click, extent, limit int) int {
	pos := click + MenuOffset
	if pos+extent > limit {
		pos = click - extent - MenuOffset
	}
	if hi := limit - extent - MenuMargin; pos > hi {
		pos = hi
	}
	return max(pos, MenuMargin)
}

// Choose returns the part of item i for toggling and closes the menu.
func (m *Menu) Choose(i int) (catalog.Part, error) {
	if !m.Open {
		return catalog.Part{}, ErrMenuClosed
	}
	if i < 0 || i >= len(m.members) {
		return catalog.Part{}, fmt.Errorf("%w: menu item %d", catalog.ErrIndexOutOfRange, i)
	}
	m.Open = false
	return m.members[i].Part, nil
}

// ClickOutside closes the menu without choosing.
func (m *Menu) ClickOutside() {
	m.Open = false
}
