package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testKey = "혼다-CBR600RR"

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(New(), zap.NewNop())
	require.NoError(t, r.AddBrand("혼다"))
	_, _, err := r.AddModel("혼다", "CBR600RR")
	require.NoError(t, err)
	return r
}

func TestAddPart_SubPositionScenario(t *testing.T) {
	r := newTestRegistry(t)

	res, err := r.AddPart(testKey, AddPartRequest{Name: "브레이크패드", Price: 80000, Positions: []string{"30, 50"}})
	require.NoError(t, err)
	require.Empty(t, res.Rejected)
	assert.Equal(t, 1, res.Number)

	res, err = r.AddPart(testKey, AddPartRequest{Name: "타이어", Price: 150000, Positions: []string{"30, 50-a"}})
	require.NoError(t, err)
	require.Empty(t, res.Rejected)
	assert.Equal(t, 2, res.Number)

	parts := r.Parts(testKey)
	require.Len(t, parts, 2)
	assert.Equal(t, Position{X: 30, Y: 50}, parts[0].Position)
	assert.Equal(t, "30,50", parts[0].Position.FullKey())
	assert.Equal(t, "30,50-a", parts[1].Position.FullKey())

	res, err = r.AddPart(testKey, AddPartRequest{Name: "체인", Price: 120000, Positions: []string{"30, 50-a"}})
	require.NoError(t, err)
	assert.Empty(t, res.Added)
	require.Len(t, res.Rejected, 1)
	assert.ErrorIs(t, res.Rejected[0], ErrDuplicateSubPosition)
	assert.Equal(t, []string{"타이어"}, res.Rejected[0].Existing)
	assert.Len(t, r.Parts(testKey), 2)
}

func TestAddPart_NumberReuse(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.AddPart(testKey, AddPartRequest{Name: "엔진오일", Price: 35000, Positions: []string{"15, 60"}})
	require.NoError(t, err)
	_, err = r.AddPart(testKey, AddPartRequest{Name: "에어필터", Price: 45000, Positions: []string{"55, 35"}})
	require.NoError(t, err)

	res, err := r.AddPart(testKey, AddPartRequest{Name: "엔진오일", Price: 35000, Positions: []string{"20, 20", "25, 25"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Number)
	assert.Len(t, res.Added, 2)

	res, err = r.AddPart(testKey, AddPartRequest{Name: "체인", Price: 120000, Positions: []string{"85, 70"}})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Number)
}

func TestAddPart_MixedBatch(t *testing.T) {
	r := newTestRegistry(t)

	res, err := r.AddPart(testKey, AddPartRequest{
		Name:      "타이어",
		Price:     150000,
		Positions: []string{"75, 50", "left wheel", "", "25, 95", "75, 50"},
	})
	require.NoError(t, err)

	assert.Equal(t, []Position{{X: 75, Y: 50}, {X: 25, Y: 95}}, res.Added)
	require.Len(t, res.Rejected, 2)
	assert.ErrorIs(t, res.Rejected[0], ErrInvalidPosition)
	assert.Equal(t, "left wheel", res.Rejected[0].Input)
	// The repeated bare coordinate collides with the one added earlier in the batch.
	assert.ErrorIs(t, res.Rejected[1], ErrBaseCollision)
	assert.True(t, res.NeedsConfirmation())
}

func TestAddPart_ConfirmedCollisionGetsSub(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.AddPart(testKey, AddPartRequest{Name: "브레이크패드", Price: 80000, Positions: []string{"30, 50"}})
	require.NoError(t, err)
	_, err = r.AddPart(testKey, AddPartRequest{Name: "브레이크액", Price: 20000, Positions: []string{"30, 50-a"}})
	require.NoError(t, err)

	res, err := r.AddPart(testKey, AddPartRequest{Name: "캘리퍼", Price: 90000, Positions: []string{"30, 50"}})
	require.NoError(t, err)
	assert.Empty(t, res.Added)
	assert.True(t, res.NeedsConfirmation())
	assert.Equal(t, []string{"브레이크패드", "브레이크액"}, res.Rejected[0].Existing)

	res, err = r.AddPart(testKey, AddPartRequest{Name: "캘리퍼", Price: 90000, Positions: []string{"30, 50"}, Confirm: true})
	require.NoError(t, err)
	require.Len(t, res.Added, 1)
	assert.Equal(t, Position{X: 30, Y: 50, Sub: "b"}, res.Added[0])

	seen := make(map[string]bool)
	for _, p := range r.Parts(testKey) {
		key := p.Position.FullKey()
		assert.False(t, seen[key], "duplicate full key %s", key)
		seen[key] = true
	}
}

func TestAddPart_Validation(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.AddPart(testKey, AddPartRequest{Name: " ", Price: 1, Positions: []string{"1,1"}})
	assert.ErrorIs(t, err, ErrInvalidPart)

	_, err = r.AddPart(testKey, AddPartRequest{Name: "x", Price: -1, Positions: []string{"1,1"}})
	assert.ErrorIs(t, err, ErrInvalidPart)

	_, err = r.AddPart(testKey, AddPartRequest{Name: "x", Price: 1, Positions: []string{"  "}})
	assert.ErrorIs(t, err, ErrInvalidPart)
}

func TestRemoveParts(t *testing.T) {
	r := newTestRegistry(t)
	for _, name := range []string{"a", "b", "c", "d"} {
		_, err := r.AddPart(testKey, AddPartRequest{Name: name, Price: 100, Positions: []string{"1, 1-" + name}})
		require.NoError(t, err)
	}

	require.NoError(t, r.RemoveParts(testKey, []int{1, 3, 1}))

	names := []string{}
	for _, p := range r.Parts(testKey) {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"a", "c"}, names)

	assert.ErrorIs(t, r.RemoveParts(testKey, []int{5}), ErrIndexOutOfRange)
	assert.ErrorIs(t, r.RemoveParts("nope", []int{0}), ErrUnknownCatalog)
	assert.Len(t, r.Parts(testKey), 2)

	require.NoError(t, r.RemoveParts(testKey, []int{0, 1}))
	_, exists := r.Catalog().Parts[testKey]
	assert.False(t, exists, "catalog entry without parts or images is deleted")
}

func TestRenamePartGroup(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.AddPart(testKey, AddPartRequest{Name: "엔진오일", Price: 35000, Positions: []string{"15, 60", "20, 20-a"}})
	require.NoError(t, err)
	_, err = r.AddPart(testKey, AddPartRequest{Name: "체인", Price: 120000, Positions: []string{"85, 70"}})
	require.NoError(t, err)

	before := append([]Part(nil), r.Parts(testKey)...)
	groups := r.GroupByName(testKey)
	require.Len(t, groups, 2)

	require.NoError(t, r.RenamePartGroup(testKey, groups[0].Indices, "합성엔진오일", 42000))

	after := r.Parts(testKey)
	for _, i := range groups[0].Indices {
		assert.Equal(t, "합성엔진오일", after[i].Name)
		assert.Equal(t, int64(42000), after[i].Price)
		assert.Equal(t, before[i].Position, after[i].Position)
		assert.Equal(t, before[i].Number, after[i].Number)
	}
	assert.Equal(t, before[2], after[2])

	err = r.RenamePartGroup(testKey, groups[0].Indices, "체인", 1)
	assert.ErrorIs(t, err, ErrInvalidPart)

	t.Run("indices from two groups", func(t *testing.T) {
		mixed := []int{groups[0].Indices[0], groups[1].Indices[0]}
		err := r.RenamePartGroup(testKey, mixed, "스프로킷", 5)
		assert.ErrorIs(t, err, ErrInvalidPart)
		assert.Equal(t, "합성엔진오일", r.Parts(testKey)[mixed[0]].Name)
		assert.Equal(t, "체인", r.Parts(testKey)[mixed[1]].Name)
	})
}

func TestEditPart(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.AddPart(testKey, AddPartRequest{Name: "엔진오일", Price: 35000, Positions: []string{"15, 60", "20, 20"}})
	require.NoError(t, err)
	_, err = r.AddPart(testKey, AddPartRequest{Name: "체인", Price: 120000, Positions: []string{"85, 70"}})
	require.NoError(t, err)

	p, err := r.EditPart(testKey, 1, "오일필터", 12000, "40, 45-b")
	require.NoError(t, err)
	assert.Equal(t, Part{Name: "오일필터", Price: 12000, Position: Position{X: 40, Y: 45, Sub: "b"}, Number: 1}, p)
	assert.Equal(t, p, r.Parts(testKey)[1])
	assert.Equal(t, "엔진오일", r.Parts(testKey)[0].Name)

	p, err = r.EditPart(testKey, 1, "체인", 120000, "40, 45-b")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Number, "a name already in use takes that group's number")

	tests := []struct {
		name     string
		index    int
		partName string
		price    int64
		position string
		want     error
	}{
		{"taken full key", 1, "체인", 1, "85, 70", ErrDuplicateSubPosition},
		{"bad position", 1, "체인", 1, "85-70", ErrInvalidPosition},
		{"out of range coordinate", 1, "체인", 1, "101, 5", ErrInvalidPosition},
		{"empty name", 1, " ", 1, "40, 45", ErrInvalidPart},
		{"negative price", 1, "체인", -1, "40, 45", ErrInvalidPart},
		{"index", 7, "체인", 1, "40, 45", ErrIndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.EditPart(testKey, tt.index, tt.partName, tt.price, tt.position)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = r.EditPart(testKey, 0, "엔진오일", 35000, "15, 60")
	require.NoError(t, err, "a part may keep its own position")
}

func TestGroupByName(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.AddPart(testKey, AddPartRequest{Name: "타이어", Price: 150000, Positions: []string{"75, 50"}})
	require.NoError(t, err)
	_, err = r.AddPart(testKey, AddPartRequest{Name: "체인", Price: 120000, Positions: []string{"85, 70"}})
	require.NoError(t, err)
	_, err = r.AddPart(testKey, AddPartRequest{Name: "타이어", Price: 150000, Positions: []string{"25, 95-a"}})
	require.NoError(t, err)

	groups := r.GroupByName(testKey)
	require.Len(t, groups, 2)

	assert.Equal(t, "타이어", groups[0].Name)
	assert.Equal(t, 1, groups[0].Number)
	assert.Equal(t, []int{0, 2}, groups[0].Indices)
	assert.Equal(t, "(75, 50), (25, 95-a)", groups[0].PositionsText())
	assert.Equal(t, []int{1}, groups[1].Indices)
}

func TestBrandsModelsImages(t *testing.T) {
	r := NewRegistry(New(), nil)

	require.NoError(t, r.AddBrand("야마하"))
	assert.ErrorIs(t, r.AddBrand("야마하"), ErrDuplicateBrand)

	_, _, err := r.AddModel("스즈키", "SV650")
	assert.ErrorIs(t, err, ErrUnknownBrand)

	key, created, err := r.AddModel("야마하", "YZF-R6")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "야마하-YZF-R6", key)

	_, created, err = r.AddModel("야마하", "YZF-R6")
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, 1, r.AddImage(key, "img-1"))
	assert.Equal(t, 2, r.AddImage(key, "img-2"))

	ref, err := r.RemoveImage(key, 0)
	require.NoError(t, err)
	assert.Equal(t, "img-1", ref)
	assert.Equal(t, ImageList{"img-2"}, r.Images(key))

	_, err = r.RemoveImage(key, 3)
	assert.ErrorIs(t, err, ErrImageOutOfRange)

	_, err = r.AddPart(key, AddPartRequest{Name: "엔진오일", Price: 40000, Positions: []string{"35, 25"}})
	require.NoError(t, err)

	_, err = r.RemoveImage(key, 0)
	require.NoError(t, err)
	assert.Len(t, r.Parts(key), 1, "parts survive while the catalog still has them")

	stats := r.Catalog().Stats()
	assert.Equal(t, Stats{Brands: 1, Models: 1, Diagrams: 0, PartCatalogs: 1, Parts: 1}, stats)
}
