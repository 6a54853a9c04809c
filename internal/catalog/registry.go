package catalog

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Registry applies part, brand, model and image operations to a Catalog.
// It is not safe for concurrent use; the owner serializes calls.
type Registry struct {
	catalog *Catalog
	logger  *zap.Logger
}

// NewRegistry wraps c. A nil logger disables logging.
func NewRegistry(c *Catalog, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	c.Normalize()
	return &Registry{catalog: c, logger: logger}
}

// Catalog returns the catalog being mutated.
func (r *Registry) Catalog() *Catalog {
	return r.catalog
}

// AddPartRequest describes one add-part submission.
type AddPartRequest struct {
	Name      string   `json:"name"`
	Price     int64    `json:"price"`
	Positions []string `json:"positions"`
	// Confirm accepts positions whose bare coordinate is already occupied.
	// The new part then gets the next free sub-position at that point.
	Confirm bool `json:"confirm"`
}

// PositionError reports why one submitted position was not stored.
type PositionError struct {
	Input string
	// Existing names the parts already at the coordinate, for collisions.
	Existing []string
	Err      error
}

func (e *PositionError) Error() string {
	if len(e.Existing) > 0 {
		return fmt.Sprintf("%s: %v (occupied by %s)", e.Input, e.Err, strings.Join(e.Existing, ", "))
	}
	return fmt.Sprintf("%s: %v", e.Input, e.Err)
}

func (e *PositionError) Unwrap() error {
	return e.Err
}

// AddPartResult lists the positions stored and the ones rejected.
type AddPartResult struct {
	Number   int              `json:"number"`
	Added    []Position       `json:"added"`
	Rejected []*PositionError `json:"-"`
}

// NeedsConfirmation reports whether any position was held back only because
// its bare coordinate is occupied.
func (r AddPartResult) NeedsConfirmation() bool {
	for _, rej := range r.Rejected {
		if errors.Is(rej.Err, ErrBaseCollision) {
			return true
		}
	}
	return false
}

// AddPart registers req.Name at every valid position in req.Positions.
// Positions are handled independently: a rejected one does not stop the rest.
func (r *Registry) AddPart(key string, req AddPartRequest) (AddPartResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return AddPartResult{}, fmt.Errorf("%w: name is required", ErrInvalidPart)
	}
	if req.Price < 0 {
		return AddPartResult{}, fmt.Errorf("%w: price must not be negative", ErrInvalidPart)
	}

	var inputs []string
	for _, p := range req.Positions {
		if p = strings.TrimSpace(p); p != "" {
			inputs = append(inputs, p)
		}
	}
	if len(inputs) == 0 {
		return AddPartResult{}, fmt.Errorf("%w: at least one position is required", ErrInvalidPart)
	}

	parts := r.catalog.Parts[key]
	result := AddPartResult{Number: r.numberFor(parts, name)}

	for _, input := range inputs {
		pos, err := ParsePosition(input)
		if err != nil {
			result.Rejected = append(result.Rejected, &PositionError{Input: input, Err: err})
			continue
		}

		if !pos.HasSub() {
			if occupants := partsAtBase(parts, pos); len(occupants) > 0 {
				if !req.Confirm {
					result.Rejected = append(result.Rejected, &PositionError{
						Input:    input,
						Existing: occupants,
						Err:      ErrBaseCollision,
					})
					continue
				}
				pos.Sub = nextFreeSub(parts, pos)
			}
		}

		if dup := findFullKey(parts, pos); dup != nil {
			result.Rejected = append(result.Rejected, &PositionError{
				Input:    input,
				Existing: []string{dup.Name},
				Err:      ErrDuplicateSubPosition,
			})
			continue
		}

		parts = append(parts, Part{
			Name:     name,
			Price:    req.Price,
			Position: pos,
			Number:   result.Number,
		})
		result.Added = append(result.Added, pos)
	}

	if len(result.Added) > 0 {
		r.catalog.Parts[key] = parts
	}

	r.logger.Info("Part registered",
		zap.String("catalog", key),
		zap.String("name", name),
		zap.Int("number", result.Number),
		zap.Int("added", len(result.Added)),
		zap.Int("rejected", len(result.Rejected)))

	return result, nil
}

func (r *Registry) numberFor(parts []Part, name string) int {
	maxNumber := 0
	for _, p := range parts {
		if p.Name == name {
			return p.Number
		}
		if p.Number > maxNumber {
			maxNumber = p.Number
		}
	}
	return maxNumber + 1
}

func partsAtBase(parts []Part, pos Position) []string {
	var names []string
	for _, p := range parts {
		if p.Position.X == pos.X && p.Position.Y == pos.Y {
			names = append(names, p.Name)
		}
	}
	return names
}

func findFullKey(parts []Part, pos Position) *Part {
	key := pos.FullKey()
	for i := range parts {
		if parts[i].Position.FullKey() == key {
			return &parts[i]
		}
	}
	return nil
}

func nextFreeSub(parts []Part, pos Position) string {
	for n := 1; ; n++ {
		candidate := Position{X: pos.X, Y: pos.Y, Sub: SubToken(n)}
		if findFullKey(parts, candidate) == nil {
			return candidate.Sub
		}
	}
}

// Parts returns the ordered parts of key.
func (r *Registry) Parts(key string) []Part {
	return r.catalog.Parts[key]
}

// Part returns the part at index i of key.
func (r *Registry) Part(key string, i int) (Part, error) {
	parts := r.catalog.Parts[key]
	if i < 0 || i >= len(parts) {
		return Part{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return parts[i], nil
}

func (r *Registry) checkIndices(key string, indices []int) ([]Part, error) {
	parts, ok := r.catalog.Parts[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCatalog, key)
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("%w: no indices given", ErrIndexOutOfRange)
	}
	for _, i := range indices {
		if i < 0 || i >= len(parts) {
			return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
		}
	}
	return parts, nil
}

// RemoveParts deletes the parts at indices. Indices refer to the list before
// any removal.
func (r *Registry) RemoveParts(key string, indices []int) error {
	parts, err := r.checkIndices(key, indices)
	if err != nil {
		return err
	}

	ordered := slices.Clone(indices)
	sort.Sort(sort.Reverse(sort.IntSlice(ordered)))
	ordered = slices.Compact(ordered)

	for _, i := range ordered {
		parts = slices.Delete(parts, i, i+1)
	}
	r.catalog.Parts[key] = parts

	pruned := r.catalog.prune(key)
	r.logger.Info("Parts removed",
		zap.String("catalog", key),
		zap.Ints("indices", ordered),
		zap.Bool("catalog_pruned", pruned))
	return nil
}

// RenamePartGroup sets name and price on every part at indices, keeping
// each part's position and number.
func (r *Registry) RenamePartGroup(key string, indices []int, newName string, newPrice int64) error {
	parts, err := r.checkIndices(key, indices)
	if err != nil {
		return err
	}

	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPart)
	}
	if newPrice < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidPart)
	}

	first := parts[indices[0]]
	for _, i := range indices[1:] {
		if parts[i].Name != first.Name || parts[i].Number != first.Number {
			return fmt.Errorf("%w: index %d is not in group %q #%d", ErrInvalidPart, i, first.Name, first.Number)
		}
	}

	// Another group already using newName would end up with two numbers.
	for i, p := range parts {
		if p.Name == newName && !slices.Contains(indices, i) {
			return fmt.Errorf("%w: %q is already used by part #%d", ErrInvalidPart, newName, p.Number)
		}
	}

	for _, i := range indices {
		parts[i].Name = newName
		parts[i].Price = newPrice
	}

	r.logger.Info("Part group renamed",
		zap.String("catalog", key),
		zap.String("name", newName),
		zap.Int64("price", newPrice),
		zap.Int("members", len(indices)))
	return nil
}

// EditPart replaces the name, price and position of the part at index i.
// The part keeps its number unless the new name belongs to another group,
// in which case it joins that group's number.
func (r *Registry) EditPart(key string, i int, name string, price int64, position string) (Part, error) {
	parts, err := r.checkIndices(key, []int{i})
	if err != nil {
		return Part{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return Part{}, fmt.Errorf("%w: name is required", ErrInvalidPart)
	}
	if price < 0 {
		return Part{}, fmt.Errorf("%w: price must not be negative", ErrInvalidPart)
	}
	pos, err := ParsePosition(position)
	if err != nil {
		return Part{}, err
	}
	for j, p := range parts {
		if j != i && p.Position.FullKey() == pos.FullKey() {
			return Part{}, fmt.Errorf("%w: %s is already used by %q", ErrDuplicateSubPosition, pos, p.Name)
		}
	}

	number := parts[i].Number
	for j, p := range parts {
		if j != i && p.Name == name {
			number = p.Number
			break
		}
	}

	parts[i] = Part{Name: name, Price: price, Position: pos, Number: number}
	r.logger.Info("Part edited",
		zap.String("catalog", key),
		zap.Int("index", i),
		zap.String("name", name),
		zap.String("position", pos.String()))
	return parts[i], nil
}

// PartGroup is every part sharing one name and number.
type PartGroup struct {
	Name      string     `json:"name"`
	Number    int        `json:"number"`
	Price     int64      `json:"price"`
	Positions []Position `json:"positions"`
	Indices   []int      `json:"indices"`
}

// PositionsText renders the group's positions as "(x, y), (x, y-sub)".
func (g PartGroup) PositionsText() string {
	texts := make([]string, len(g.Positions))
	for i, p := range g.Positions {
		texts[i] = "(" + p.String() + ")"
	}
	return strings.Join(texts, ", ")
}

// GroupByName groups the parts of key by name and number, in first-seen order.
func (r *Registry) GroupByName(key string) []PartGroup {
	var groups []PartGroup
	index := make(map[string]int)

	for i, p := range r.catalog.Parts[key] {
		groupKey := fmt.Sprintf("%s-%d", p.Name, p.Number)
		g, ok := index[groupKey]
		if !ok {
			g = len(groups)
			index[groupKey] = g
			groups = append(groups, PartGroup{Name: p.Name, Number: p.Number, Price: p.Price})
		}
		groups[g].Positions = append(groups[g].Positions, p.Position)
		groups[g].Indices = append(groups[g].Indices, i)
	}
	return groups
}
