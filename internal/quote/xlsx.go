package quote

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const quoteSheet = "견적서"

var xlsxHeaders = []string{"부품명", "부품단가", "작업시간", "공임비", "합계"}

// XLSX lays the quote out as a spreadsheet: shop and vehicle details, one
// row per line, then the totals.
func (q *Quote) XLSX() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", quoteSheet); err != nil {
		return nil, fmt.Errorf("failed to name quote sheet: %w", err)
	}

	boldStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	if err != nil {
		return nil, fmt.Errorf("failed to create amount style: %w", err)
	}

	set := func(cell string, v any) {
		if err == nil {
			err = f.SetCellValue(quoteSheet, cell, v)
		}
	}

	set("A1", "부품 견적서")
	set("D1", "견적일")
	set("E1", q.DateText())
	set("A2", "업체명")
	set("B2", q.Shop.Name)
	set("C2", "연락처")
	set("D2", q.Shop.Phone)
	set("A3", "차량번호")
	set("B3", q.Customer.VehicleNumber)
	set("C3", "모델명")
	set("D3", q.Customer.Model)

	const headerRow = 5
	for i, h := range xlsxHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		set(fmt.Sprintf("%s%d", col, headerRow), h)
	}

	row := headerRow
	for _, l := range q.Lines {
		row++
		set(fmt.Sprintf("A%d", row), l.Name)
		set(fmt.Sprintf("B%d", row), l.Price)
		set(fmt.Sprintf("C%d", row), LaborText(l))
		set(fmt.Sprintf("D%d", row), l.LaborCost)
		set(fmt.Sprintf("E%d", row), l.Total)
	}

	summary := []struct {
		label  string
		amount int64
	}{
		{"부품비 합계", q.Totals.PartsTotal},
		{"공임비 합계", q.Totals.LaborTotal},
		{"소계", q.Totals.Subtotal},
		{"부가세 (" + q.VATPercent() + ")", q.Totals.VAT},
		{"총 금액", q.Totals.GrandTotal},
	}
	firstSummary := row + 2
	for i, s := range summary {
		r := firstSummary + i
		set(fmt.Sprintf("A%d", r), s.label)
		set(fmt.Sprintf("E%d", r), s.amount)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write quote cells: %w", err)
	}

	lastRow := firstSummary + len(summary) - 1
	if err := f.SetCellStyle(quoteSheet, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("E%d", headerRow), boldStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetCellStyle(quoteSheet, fmt.Sprintf("B%d", headerRow+1), fmt.Sprintf("E%d", lastRow), moneyStyle); err != nil {
		return nil, fmt.Errorf("failed to style amounts: %w", err)
	}

	for i, w := range []float64{28, 14, 12, 14, 16} {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(quoteSheet, col, col, w); err != nil {
			return nil, fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}
	return f, nil
}

// WriteXLSX writes the quote spreadsheet to w.
func (q *Quote) WriteXLSX(w io.Writer) error {
	f, err := q.XLSX()
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write quote %s: %w", q.ID, err)
	}
	return nil
}
