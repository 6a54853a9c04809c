package catalog

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// PositionPattern is the accepted literal form of a diagram position.
const PositionPattern = `^(\d+)\s*,\s*(\d+)(?:\s*-\s*(\w+))?$`

// MaxCoordinate is the upper bound of x and y; both are percentages of the
// image width and height.
const MaxCoordinate = 100

var positionRe = regexp.MustCompile(PositionPattern)

// Position is a point on a parts diagram. Sub distinguishes several parts
// stacked on the same (X, Y).
type Position struct {
	X   int    `json:"x"`
	Y   int    `json:"y"`
	Sub string `json:"sub,omitempty"`
}

// ParsePosition parses "x, y" or "x, y-sub".
func ParsePosition(s string) (Position, error) {
	m := positionRe.FindStringSubmatch(s)
	if m == nil {
		return Position{}, fmt.Errorf("%w: %q must look like \"x, y\" or \"x, y-sub\" (e.g. \"30, 50\" or \"30, 50-a\")",
			ErrInvalidPosition, s)
	}

	x, err := strconv.Atoi(m[1])
	if err != nil {
		return Position{}, fmt.Errorf("%w: %q: %v", ErrInvalidPosition, s, err)
	}
	y, err := strconv.Atoi(m[2])
	if err != nil {
		return Position{}, fmt.Errorf("%w: %q: %v", ErrInvalidPosition, s, err)
	}
	if x > MaxCoordinate || y > MaxCoordinate {
		return Position{}, fmt.Errorf("%w: %q is outside the 0-%d range", ErrInvalidPosition, s, MaxCoordinate)
	}

	return Position{X: x, Y: y, Sub: m[3]}, nil
}

// BaseKey groups every part drawn at the same point, regardless of Sub.
func (p Position) BaseKey() string {
	return fmt.Sprintf("%d,%d", p.X, p.Y)
}

// FullKey is unique per stored part within one catalog.
func (p Position) FullKey() string {
	if p.Sub == "" {
		return p.BaseKey()
	}
	return p.BaseKey() + "-" + p.Sub
}

// HasSub reports whether the position carries a sub-position token.
func (p Position) HasSub() bool {
	return p.Sub != ""
}

// String renders the literal form accepted by ParsePosition.
func (p Position) String() string {
	if p.Sub == "" {
		return fmt.Sprintf("%d, %d", p.X, p.Y)
	}
	return fmt.Sprintf("%d, %d-%s", p.X, p.Y, p.Sub)
}

// UnmarshalJSON accepts both the object form and the bare "x, y" string
// that older documents stored.
func (p *Position) UnmarshalJSON(data []byte) error {
	var literal string
	if err := json.Unmarshal(data, &literal); err == nil {
		parsed, err := ParsePosition(literal)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	}

	type plain struct {
		X   int     `json:"x"`
		Y   int     `json:"y"`
		Sub *string `json:"sub"`
	}
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("failed to decode position: %w", err)
	}
	if v.X < 0 || v.X > MaxCoordinate || v.Y < 0 || v.Y > MaxCoordinate {
		return fmt.Errorf("%w: (%d, %d) is outside the 0-%d range", ErrInvalidPosition, v.X, v.Y, MaxCoordinate)
	}
	p.X, p.Y, p.Sub = v.X, v.Y, ""
	if v.Sub != nil {
		p.Sub = *v.Sub
	}
	return nil
}

// SubToken returns the n-th sub-position token, 1-based: a, b, ..., z, aa, ab, ...
func SubToken(n int) string {
	if n < 1 {
		return ""
	}
	var buf []byte
	for n > 0 {
		n--
		buf = append([]byte{byte('a' + n%26)}, buf...)
		n /= 26
	}
	return string(buf)
}
