package diagram

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/data-power-io/partsquote/internal/catalog"
)

const testKey = "혼다-CBR600RR"

func testParts() []catalog.Part {
	return []catalog.Part{
		{Name: "브레이크패드", Price: 80000, Position: catalog.Position{X: 30, Y: 50}, Number: 1},
		{Name: "엔진오일", Price: 35000, Position: catalog.Position{X: 15, Y: 60}, Number: 2},
		{Name: "타이어", Price: 150000, Position: catalog.Position{X: 30, Y: 50, Sub: "a"}, Number: 3},
	}
}

func TestRender_GroupsByBaseKey(t *testing.T) {
	r := NewRenderer(nil)
	selected := func(key string, p catalog.Part) bool {
		return key == testKey && p.Name == "타이어"
	}

	markers := r.Render(testKey, testParts(), selected)
	require.Len(t, markers, 2)

	group := markers[0]
	assert.Equal(t, "30,50", group.BaseKey)
	assert.True(t, group.Aggregate())
	assert.Equal(t, "2", group.Label)
	assert.Equal(t, StyleGroup, group.Style)
	assert.Equal(t, GroupFill, group.Fill)
	assert.Equal(t, "위치 (30, 50)의 부품들:\n브레이크패드 (80,000원)\n타이어-a (150,000원)\n\n클릭하여 부품 선택", group.Tooltip)
	assert.True(t, group.Selected)
	assert.Equal(t, []int{0, 2}, []int{group.Members[0].Index, group.Members[1].Index})

	single := markers[1]
	assert.False(t, single.Aggregate())
	assert.Equal(t, "2", single.Label)
	assert.Equal(t, 15, single.Left)
	assert.Equal(t, 60, single.Top)
	assert.Equal(t, "엔진오일 - 35,000원 (위치: 15, 60)", single.Tooltip)
	assert.False(t, single.Selected)
}

func TestRender_SingleWithSub(t *testing.T) {
	r := NewRenderer(nil)
	parts := []catalog.Part{
		{Name: "타이어", Price: 150000, Position: catalog.Position{X: 30, Y: 50, Sub: "a"}, Number: 2},
	}

	markers := r.Render(testKey, parts, nil)
	require.Len(t, markers, 1)
	assert.Equal(t, "타이어 - 150,000원 (위치: 30, 50-a)", markers[0].Tooltip)
	assert.Equal(t, StyleSingle, markers[0].Style)
}

func TestRender_Empty(t *testing.T) {
	assert.Empty(t, NewRenderer(nil).Render(testKey, nil, nil))
}

func TestMemberLabel(t *testing.T) {
	m := Member{Part: catalog.Part{Name: "타이어", Position: catalog.Position{X: 1, Y: 1, Sub: "b"}}, Selected: true}
	assert.Equal(t, "✓ 타이어 (sub: b)", m.Label())
}

func TestIndex(t *testing.T) {
	c := catalog.New()
	c.Brands = []string{"혼다"}
	c.Models["혼다"] = []string{"CBR600RR", "CB500X", "PCX"}
	c.Images["혼다-CBR600RR"] = catalog.ImageList{"img-1", "img-2"}
	c.Images["혼다-PCX"] = catalog.ImageList{"img-3"}
	c.Parts["혼다-CBR600RR"] = testParts()

	want := []Tile{
		{Brand: "혼다", Model: "CBR600RR", Key: "혼다-CBR600RR", ImageIndex: 0, Image: "img-1", Label: "CBR600RR (1/2)", PartCount: 3},
		{Brand: "혼다", Model: "CBR600RR", Key: "혼다-CBR600RR", ImageIndex: 1, Image: "img-2", Label: "CBR600RR (2/2)", PartCount: 3},
		{Brand: "혼다", Model: "PCX", Key: "혼다-PCX", ImageIndex: 0, Image: "img-3", Label: "PCX", PartCount: 0},
	}
	if diff := cmp.Diff(want, Index(c, "혼다")); diff != "" {
		t.Errorf("Index mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, Index(c, "야마하"))
}
