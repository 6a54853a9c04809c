package diagram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/data-power-io/partsquote/internal/catalog"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestPercent(t *testing.T) {
	assert.Equal(t, 30, Percent(0.3))
	assert.Equal(t, 50, Percent(0.499))
	assert.Equal(t, 0, Percent(-0.2))
	assert.Equal(t, 100, Percent(1.3))
}

func TestClick_RepeatsYieldSubPositions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	d := NewDisambiguator(WithClock(clock.Now))

	assert.Equal(t, catalog.Position{X: 30, Y: 50}, d.Click(0.3, 0.5))

	clock.Advance(time.Second)
	assert.Equal(t, catalog.Position{X: 30, Y: 50, Sub: "a"}, d.Click(0.3, 0.5))

	clock.Advance(2 * time.Second)
	assert.Equal(t, catalog.Position{X: 30, Y: 50, Sub: "b"}, d.Click(0.301, 0.499))

	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, catalog.Position{X: 30, Y: 50, Sub: "c"}, d.Click(0.3, 0.5))
}

func TestClick_WindowExpires(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	d := NewDisambiguator(WithClock(clock.Now))

	d.Click(0.3, 0.5)
	clock.Advance(DefaultRepeatWindow)
	assert.Equal(t, catalog.Position{X: 30, Y: 50}, d.Click(0.3, 0.5), "click at the deadline starts over")

	clock.Advance(time.Second)
	assert.Equal(t, catalog.Position{X: 30, Y: 50, Sub: "a"}, d.Click(0.3, 0.5))
}

func TestClick_OtherPointResets(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	d := NewDisambiguator(WithClock(clock.Now), WithRepeatWindow(time.Minute))

	d.Click(0.3, 0.5)
	d.Click(0.3, 0.5)
	assert.Equal(t, catalog.Position{X: 70, Y: 20}, d.Click(0.7, 0.2))
	assert.Equal(t, catalog.Position{X: 30, Y: 50}, d.Click(0.3, 0.5))

	d.Reset()
	assert.Equal(t, catalog.Position{X: 30, Y: 50}, d.Click(0.3, 0.5))
}

func TestClick_TokensPastZ(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	d := NewDisambiguator(WithClock(clock.Now))

	var last catalog.Position
	for i := 0; i <= 28; i++ {
		last = d.Click(0.1, 0.1)
	}
	assert.Equal(t, "ab", last.Sub)

	_, err := catalog.ParsePosition(last.String())
	assert.NoError(t, err)
}

func TestPositionForm(t *testing.T) {
	f := NewPositionForm()

	assert.Equal(t, 0, f.Fill("30, 50"))
	assert.Equal(t, 1, f.Fill("30, 50-a"))

	require.NoError(t, f.Set(2, ""))
	require.NoError(t, f.Set(3, "10, 10"))
	assert.Equal(t, []string{"30, 50", "30, 50-a", "", "10, 10"}, f.Slots)
	assert.Equal(t, 2, f.Fill("20, 20"), "first empty slot is reused")

	assert.ErrorIs(t, f.Set(5, "1, 1"), catalog.ErrIndexOutOfRange)
	assert.ErrorIs(t, f.Set(1000000000, "1, 1"), catalog.ErrIndexOutOfRange)
	assert.ErrorIs(t, f.Set(-1, "1, 1"), catalog.ErrIndexOutOfRange)
	assert.Len(t, f.Slots, 4)

	f.RemoveSlot(1)
	assert.Equal(t, []string{"30, 50", "20, 20", "10, 10"}, f.Values())

	f.Clear()
	assert.Equal(t, []string{""}, f.Slots)
	assert.Empty(t, f.Values())

	f.RemoveSlot(0)
	assert.Equal(t, []string{""}, f.Slots)
}
