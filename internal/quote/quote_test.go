package quote

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/data-power-io/partsquote/internal/catalog"
)

const testKey = "혼다-CBR600RR"

func part(name string, price int64) catalog.Part {
	return catalog.Part{Name: name, Price: price, Position: catalog.Position{X: 10, Y: 10}, Number: 1}
}

func TestSelectionToggle(t *testing.T) {
	s := NewSelection()

	assert.True(t, s.Toggle(testKey, part("엔진오일", 35000)))
	require.Equal(t, 1, s.Len())
	assert.Equal(t, DefaultLaborHours, s.Parts[0].LaborHours)
	assert.True(t, s.Parts[0].IsIncluded)
	assert.Equal(t, testKey, s.Parts[0].Key)

	// Same name from another catalog is a different selection.
	assert.True(t, s.Toggle("야마하-R6", part("엔진오일", 40000)))
	assert.Equal(t, 2, s.Len())

	// Identity is by name, so another position of the same part deselects it.
	other := part("엔진오일", 35000)
	other.Position = catalog.Position{X: 20, Y: 20}
	assert.True(t, s.IsSelected(testKey, other))
	assert.False(t, s.Toggle(testKey, other))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "야마하-R6", s.Parts[0].Key)

	s.Reset()
	assert.Equal(t, 0, s.Len())
}

func TestSelectionLaborOptions(t *testing.T) {
	s := NewSelection()
	s.Toggle(testKey, part("브레이크패드", 80000))

	require.NoError(t, s.SetLaborOption(0, "2.5"))
	assert.False(t, s.Parts[0].IsIncluded)
	assert.Equal(t, 2.5, s.Parts[0].LaborHours)
	assert.Equal(t, "2.5", s.Parts[0].LaborOption())

	require.NoError(t, s.SetLaborOption(0, LaborCustom))
	assert.Equal(t, 2.5, s.Parts[0].LaborHours, "custom keeps the current hours")
	require.NoError(t, s.SetLaborHours(0, 1.25))
	assert.Equal(t, LaborCustom, s.Parts[0].LaborOption())

	require.NoError(t, s.SetLaborOption(0, LaborIncluded))
	assert.True(t, s.Parts[0].IsIncluded)
	assert.Equal(t, DefaultLaborHours, s.Parts[0].LaborHours)
	assert.Equal(t, LaborIncluded, s.Parts[0].LaborOption())

	assert.ErrorIs(t, s.SetLaborOption(0, "lots"), ErrInvalidLaborOption)
	assert.ErrorIs(t, s.SetLaborOption(0, "-1"), ErrInvalidLaborHours)
	assert.ErrorIs(t, s.SetLaborHours(0, -0.5), ErrInvalidLaborHours)
	for _, option := range []string{"NaN", "Inf", "-Inf", "+Inf"} {
		assert.ErrorIs(t, s.SetLaborOption(0, option), ErrInvalidLaborHours, option)
	}
	assert.ErrorIs(t, s.SetLaborHours(0, math.NaN()), ErrInvalidLaborHours)
	assert.ErrorIs(t, s.SetLaborHours(0, math.Inf(1)), ErrInvalidLaborHours)
	assert.Equal(t, DefaultLaborHours, s.Parts[0].LaborHours)
	assert.NotPanics(t, func() { ComputeTotals(s.Parts, DefaultLaborRate, DefaultVATRate) })
	assert.ErrorIs(t, s.SetLaborOption(3, "1"), catalog.ErrIndexOutOfRange)
	assert.ErrorIs(t, s.Remove(3), catalog.ErrIndexOutOfRange)

	require.NoError(t, s.Remove(0))
	assert.Equal(t, 0, s.Len())
}

func scenarioParts() []SelectedPart {
	return []SelectedPart{
		{Part: part("엔진오일", 35000), Key: testKey, LaborHours: 1, IsIncluded: true},
		{Part: part("브레이크패드", 80000), Key: testKey, LaborHours: 2, IsIncluded: false},
	}
}

func TestComputeTotals(t *testing.T) {
	got := ComputeTotals(scenarioParts(), DefaultLaborRate, decimal.Zero)
	assert.Equal(t, Totals{PartsTotal: 115000, LaborTotal: 110000, Subtotal: 225000, GrandTotal: 225000}, got)

	got = ComputeTotals(scenarioParts(), DefaultLaborRate, DefaultVATRate)
	assert.Equal(t, int64(22500), got.VAT)
	assert.Equal(t, int64(247500), got.GrandTotal)

	assert.Equal(t, Totals{}, ComputeTotals(nil, DefaultLaborRate, DefaultVATRate))
}

func TestComputeTotals_Rounding(t *testing.T) {
	parts := []SelectedPart{{Part: part("체인", 1), LaborHours: 0.5, IsIncluded: false}}

	got := ComputeTotals(parts, 33333, DefaultVATRate)
	assert.Equal(t, int64(16667), got.LaborTotal, "16666.5 rounds half up")
	assert.Equal(t, int64(16668), got.Subtotal)
	assert.Equal(t, int64(1667), got.VAT)
}

func TestComputeTotals_Linear(t *testing.T) {
	a := scenarioParts()
	b := []SelectedPart{
		{Part: part("타이어", 150000), LaborHours: 1.5, IsIncluded: false},
		{Part: part("체인", 120000), LaborHours: 3, IsIncluded: true},
	}

	ta := ComputeTotals(a, DefaultLaborRate, decimal.Zero)
	tb := ComputeTotals(b, DefaultLaborRate, decimal.Zero)
	tab := ComputeTotals(append(append([]SelectedPart{}, a...), b...), DefaultLaborRate, decimal.Zero)

	assert.Equal(t, ta.PartsTotal+tb.PartsTotal, tab.PartsTotal)
	assert.Equal(t, ta.LaborTotal+tb.LaborTotal, tab.LaborTotal)
	assert.Equal(t, ta.Subtotal+tb.Subtotal, tab.Subtotal)
}

func TestComputeTotals_RateChangeKeepsHours(t *testing.T) {
	parts := scenarioParts()
	before := ComputeTotals(parts, 55000, decimal.Zero)
	after := ComputeTotals(parts, 60000, decimal.Zero)

	assert.Equal(t, int64(110000), before.LaborTotal)
	assert.Equal(t, int64(120000), after.LaborTotal)
	assert.Equal(t, 2.0, parts[1].LaborHours)
}

var testShop = ShopInfo{Name: "스피드모터스", Phone: "02-123-4567", Account: "123-456", Bank: "국민", AccountHolder: "홍길동"}

var testCustomer = CustomerInfo{VehicleNumber: "서울 가 1234", Model: "CBR600RR", Mileage: "12000"}

func TestBuild_Validation(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	_, err := Build(ShopInfo{}, CustomerInfo{}, nil, DefaultLaborRate, DefaultVATRate, now)
	require.ErrorIs(t, err, ErrIncompleteQuote)
	assert.Contains(t, err.Error(), "shop name, vehicle number, selected parts")

	_, err = Build(testShop, testCustomer, nil, DefaultLaborRate, DefaultVATRate, now)
	assert.ErrorIs(t, err, ErrIncompleteQuote)

	q, err := Build(testShop, testCustomer, scenarioParts(), DefaultLaborRate, DefaultVATRate, now)
	require.NoError(t, err)
	_, err = uuid.Parse(q.ID)
	assert.NoError(t, err)
	assert.Equal(t, "10%", q.VATPercent())
	assert.Equal(t, "2024. 5. 1.", q.DateText())
	require.Len(t, q.Lines, 2)
	assert.Equal(t, Line{Name: "브레이크패드", Price: 80000, LaborHours: 2, LaborCost: 110000, Total: 190000}, q.Lines[1])
}

func TestQuoteHTML(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	shop := testShop
	shop.Name = "<b>스피드</b>"
	q, err := Build(shop, testCustomer, scenarioParts(), DefaultLaborRate, DefaultVATRate, now)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, q.WriteHTML(&buf))
	html := buf.String()

	assert.Contains(t, html, "&lt;b&gt;스피드&lt;/b&gt;")
	assert.Contains(t, html, "<td>엔진오일</td><td>35,000원</td><td>포함</td><td>0원</td><td>35,000원</td>")
	assert.Contains(t, html, "<td>브레이크패드</td><td>80,000원</td><td>2시간</td><td>110,000원</td><td>190,000원</td>")
	assert.Contains(t, html, "부가세 (10%)")
	assert.Contains(t, html, "<strong>247,500원</strong>")
	assert.Equal(t, 2, strings.Count(html, "2024. 5. 1."))
}

func TestQuoteXLSX(t *testing.T) {
	q, err := Build(testShop, testCustomer, scenarioParts(), DefaultLaborRate, DefaultVATRate, time.Now())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, q.WriteXLSX(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	cell := func(axis string) string {
		v, err := f.GetCellValue(quoteSheet, axis)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "스피드모터스", cell("B2"))
	assert.Equal(t, "서울 가 1234", cell("B3"))
	assert.Equal(t, "부품명", cell("A5"))
	assert.Equal(t, "엔진오일", cell("A6"))
	assert.Equal(t, "브레이크패드", cell("A7"))
	assert.Equal(t, "2시간", cell("C7"))
	assert.Equal(t, "총 금액", cell("A13"))

	raw, err := f.GetCellValue(quoteSheet, "E13", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "247500", raw)
}
