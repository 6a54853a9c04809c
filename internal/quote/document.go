package quote

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/data-power-io/partsquote/internal/money"
)

// ErrIncompleteQuote is returned when required quote information is missing.
var ErrIncompleteQuote = errors.New("incomplete quote")

// ShopInfo identifies the shop issuing quotes.
type ShopInfo struct {
	Name           string `json:"name" yaml:"name"`
	BusinessNumber string `json:"businessNumber" yaml:"business_number"`
	Owner          string `json:"owner" yaml:"owner"`
	Phone          string `json:"phone" yaml:"phone"`
	Address        string `json:"address" yaml:"address"`
	Account        string `json:"account" yaml:"account"`
	Bank           string `json:"bank" yaml:"bank"`
	AccountHolder  string `json:"accountHolder" yaml:"account_holder"`
}

// CustomerInfo describes the vehicle being quoted.
type CustomerInfo struct {
	VehicleNumber string `json:"vehicleNumber"`
	Manufacturer  string `json:"manufacturer"`
	Model         string `json:"model"`
	Mileage       string `json:"mileage"`
	Year          string `json:"year"`
	Color         string `json:"color"`
	CheckinDate   string `json:"checkinDate"`
	CheckoutDate  string `json:"checkoutDate"`
	Memo          string `json:"memo"`
}

// Line is one priced row of a quote.
type Line struct {
	Name       string  `json:"name"`
	Price      int64   `json:"price"`
	Included   bool    `json:"included"`
	LaborHours float64 `json:"laborHours"`
	LaborCost  int64   `json:"laborCost"`
	Total      int64   `json:"total"`
}

// Quote is a priced, printable quote.
type Quote struct {
	ID        string       `json:"id"`
	Date      time.Time    `json:"date"`
	Shop      ShopInfo     `json:"shop"`
	Customer  CustomerInfo `json:"customer"`
	Lines     []Line       `json:"lines"`
	LaborRate int64        `json:"laborRate"`
	VATRate   string       `json:"vatRate"`
	Totals    Totals       `json:"totals"`
}

// Build validates the inputs and prices every selected part.
func Build(shop ShopInfo, customer CustomerInfo, parts []SelectedPart, laborRate int64, vatRate decimal.Decimal, now time.Time) (*Quote, error) {
	var missing []string
	if strings.TrimSpace(shop.Name) == "" {
		missing = append(missing, "shop name")
	}
	if strings.TrimSpace(customer.VehicleNumber) == "" {
		missing = append(missing, "vehicle number")
	}
	if len(parts) == 0 {
		missing = append(missing, "selected parts")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrIncompleteQuote, strings.Join(missing, ", "))
	}

	lines := make([]Line, len(parts))
	for i, p := range parts {
		labor := LaborCost(p, laborRate)
		lines[i] = Line{
			Name:       p.Name,
			Price:      p.Price,
			Included:   p.IsIncluded,
			LaborHours: p.LaborHours,
			LaborCost:  labor,
			Total:      p.Price + labor,
		}
	}

	return &Quote{
		ID:        uuid.NewString(),
		Date:      now,
		Shop:      shop,
		Customer:  customer,
		Lines:     lines,
		LaborRate: laborRate,
		VATRate:   vatRate.String(),
		Totals:    ComputeTotals(parts, laborRate, vatRate),
	}, nil
}

// VATPercent renders the VAT rate as "10%".
func (q *Quote) VATPercent() string {
	rate, err := decimal.NewFromString(q.VATRate)
	if err != nil {
		return q.VATRate
	}
	return rate.Shift(2).String() + "%"
}

// DateText renders the quote date the way printed quotes show it.
func (q *Quote) DateText() string {
	return q.Date.Format("2006. 1. 2.")
}

// LaborText renders the labor column of a line.
func LaborText(l Line) string {
	if l.Included {
		return "포함"
	}
	return defaultFormatter.Hours(l.LaborHours) + "시간"
}

var defaultFormatter = money.NewFormatter("ko", money.DefaultSuffix)

var quoteTemplate = template.Must(template.New("quote").Funcs(template.FuncMap{
	"won":   defaultFormatter.Format,
	"labor": LaborText,
}).Parse(quoteHTML))

// WriteHTML renders the quote as a printable HTML fragment.
func (q *Quote) WriteHTML(w io.Writer) error {
	if err := quoteTemplate.Execute(w, q); err != nil {
		return fmt.Errorf("failed to render quote %s: %w", q.ID, err)
	}
	return nil
}

const quoteHTML = `<div class="quote" data-quote-id="{{.ID}}">
<div class="quote-header">
  <h2>부품 견적서</h2>
  <p>견적일: {{.DateText}}</p>
</div>
<div class="quote-info">
  <div class="quote-section">
    <h4>공급자 정보</h4>
    <p><strong>업체명:</strong> {{.Shop.Name}}</p>
    <p><strong>사업자등록번호:</strong> {{.Shop.BusinessNumber}}</p>
    <p><strong>대표자:</strong> {{.Shop.Owner}}</p>
    <p><strong>연락처:</strong> {{.Shop.Phone}}</p>
    <p><strong>주소:</strong> {{.Shop.Address}}</p>
    <p><strong>계좌정보:</strong> {{.Shop.Account}}</p>
    <p><strong>은행:</strong> {{.Shop.Bank}}</p>
    <p><strong>예금주:</strong> {{.Shop.AccountHolder}}</p>
  </div>
  <div class="quote-section">
    <h4>차량정보</h4>
    <p><strong>차량번호:</strong> {{.Customer.VehicleNumber}}</p>
    <p><strong>제조사:</strong> {{.Customer.Manufacturer}}</p>
    <p><strong>모델명:</strong> {{.Customer.Model}}</p>
    <p><strong>주행거리:</strong> {{.Customer.Mileage}}</p>
    <p><strong>연식:</strong> {{.Customer.Year}}</p>
    <p><strong>색상:</strong> {{.Customer.Color}}</p>
    <p><strong>입고일:</strong> {{.Customer.CheckinDate}}</p>
    <p><strong>출고일:</strong> {{.Customer.CheckoutDate}}</p>
    <p><strong>메모:</strong> {{.Customer.Memo}}</p>
  </div>
</div>
<table class="quote-table">
  <thead>
    <tr><th>부품명</th><th>부품단가</th><th>작업시간</th><th>공임비</th><th>합계</th></tr>
  </thead>
  <tbody>
{{- range .Lines}}
    <tr><td>{{.Name}}</td><td>{{won .Price}}</td><td>{{labor .}}</td><td>{{won .LaborCost}}</td><td>{{won .Total}}</td></tr>
{{- end}}
  </tbody>
  <tfoot>
    <tr><td colspan="2"><strong>부품비 합계</strong></td><td colspan="3"><strong>{{won .Totals.PartsTotal}}</strong></td></tr>
    <tr><td colspan="2"><strong>공임비 합계</strong></td><td colspan="3"><strong>{{won .Totals.LaborTotal}}</strong></td></tr>
    <tr><td colspan="2"><strong>소계</strong></td><td colspan="3"><strong>{{won .Totals.Subtotal}}</strong></td></tr>
    <tr><td colspan="2"><strong>부가세 ({{.VATPercent}})</strong></td><td colspan="3"><strong>{{won .Totals.VAT}}</strong></td></tr>
    <tr class="grand-total"><td colspan="2"><strong>총 금액</strong></td><td colspan="3"><strong>{{won .Totals.GrandTotal}}</strong></td></tr>
  </tfoot>
</table>
<p class="quote-footer">본 견적서는 {{.DateText}}에 작성되었으며, 부품 가격은 변동될 수 있습니다.</p>
</div>
`
