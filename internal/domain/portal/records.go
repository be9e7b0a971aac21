// Package portal holds the customer-facing records shown by the portal and
// the list schemas, classifiers and data boundaries built around them.
package portal

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Inquiry is a customer request for a quotation.
type Inquiry struct {
	ID       string          `json:"id"`
	Date     string          `json:"date"`
	Product  string          `json:"product"`
	Quantity int             `json:"quantity"`
	Status   string          `json:"status"`
	Value    decimal.Decimal `json:"value"`
}

// SaleOrder is a confirmed customer order.
type SaleOrder struct {
	ID       string          `json:"id"`
	Date     string          `json:"date"`
	Product  string          `json:"product"`
	Quantity int             `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
	Status   string          `json:"status"`
}

// Delivery is a shipment against a sale order.
type Delivery struct {
	ID             string `json:"id"`
	OrderNumber    string `json:"order_number"`
	Date           string `json:"date"`
	Product        string `json:"product"`
	Quantity       int    `json:"quantity"`
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number"`
}

// LineItem is a single billed line of an invoice.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// NewLineItem creates a line item with Total computed from quantity and unit price.
func NewLineItem(description string, quantity int, unitPrice decimal.Decimal) LineItem {
	return LineItem{
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Total:       unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// Invoice is a bill issued to the customer.
type Invoice struct {
	ID      string          `json:"id"`
	Number  string          `json:"number"`
	Date    string          `json:"date"`
	DueDate string          `json:"due_date"`
	Amount  decimal.Decimal `json:"amount"`
	Status  string          `json:"status"`
	Items   []LineItem      `json:"items"`
}

// ItemsTotal sums the line item totals.
func (i Invoice) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range i.Items {
		sum = sum.Add(item.Total)
	}
	return sum
}

// PaymentCategory buckets payments by whether they are late.
type PaymentCategory string

// Payment categories
const (
	PaymentOnTime  PaymentCategory = "on-time"
	PaymentOverdue PaymentCategory = "overdue"
)

// Payment status labels derived from DaysOverdue.
const (
	PaymentStatusOnTime  = "On Time"
	PaymentStatusOverdue = "Overdue"
)

// Payment is an amount due against an invoice. DaysOverdue is the only
// source of truth for lateness; the displayed status is derived from it.
type Payment struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       string          `json:"due_date"`
	DaysOverdue   int             `json:"days_overdue"`
}

// Category returns on-time when nothing is overdue, overdue otherwise.
func (p Payment) Category() PaymentCategory {
	if p.DaysOverdue > 0 {
		return PaymentOverdue
	}
	return PaymentOnTime
}

// Status returns the display status for the payment.
func (p Payment) Status() string {
	if p.Category() == PaymentOverdue {
		return PaymentStatusOverdue
	}
	return PaymentStatusOnTime
}

// Aging returns the severity band of the payment's lateness.
func (p Payment) Aging() AgingBand {
	return ClassifyAging(p.DaysOverdue)
}

// MemoType distinguishes credit and debit memos.
type MemoType string

// Memo types
const (
	MemoCredit MemoType = "Credit"
	MemoDebit  MemoType = "Debit"
)

// ParseMemoType parses a memo type, ignoring case.
func ParseMemoType(s string) (MemoType, bool) {
	switch {
	case strings.EqualFold(s, string(MemoCredit)):
		return MemoCredit, true
	case strings.EqualFold(s, string(MemoDebit)):
		return MemoDebit, true
	}
	return "", false
}

// Memo is a credit or debit adjustment to the customer's account.
type Memo struct {
	ID     string          `json:"id"`
	Type   MemoType        `json:"type"`
	Number string          `json:"number"`
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
	Status string          `json:"status"`
}

// MonthlySales is the sales total of one month.
type MonthlySales struct {
	Month string          `json:"month"`
	Sales decimal.Decimal `json:"sales"`
}

// ProductSales is the sales total of one product.
type ProductSales struct {
	Product string          `json:"product"`
	Sales   decimal.Decimal `json:"sales"`
}

// RevenuePoint is the revenue of one period, keyed by an ISO year-month.
type RevenuePoint struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
}

// SalesAnalytics backs the analytics sheet.
type SalesAnalytics struct {
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	MonthlySales    []MonthlySales  `json:"monthly_sales"`
	ProductSales    []ProductSales  `json:"product_sales"`
	RevenueOverTime []RevenuePoint  `json:"revenue_over_time"`
}

// MaxMonthlySales returns the highest monthly total, or zero when empty.
func (a SalesAnalytics) MaxMonthlySales() decimal.Decimal {
	m := decimal.Zero
	for _, s := range a.MonthlySales {
		if s.Sales.GreaterThan(m) {
			m = s.Sales
		}
	}
	return m
}

// MaxRevenue returns the highest revenue over time, or zero when empty.
func (a SalesAnalytics) MaxRevenue() decimal.Decimal {
	m := decimal.Zero
	for _, r := range a.RevenueOverTime {
		if r.Revenue.GreaterThan(m) {
			m = r.Revenue
		}
	}
	return m
}

// ProductShares returns each product's share of total product sales as a
// percentage rounded to two places.
func (a SalesAnalytics) ProductShares() map[string]decimal.Decimal {
	total := decimal.Zero
	for _, p := range a.ProductSales {
		total = total.Add(p.Sales)
	}
	shares := make(map[string]decimal.Decimal, len(a.ProductSales))
	for _, p := range a.ProductSales {
		if total.IsZero() {
			shares[p.Product] = decimal.Zero
			continue
		}
		shares[p.Product] = p.Sales.Div(total).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return shares
}

// BadgeClass returns the badge style for the memo type.
func (t MemoType) BadgeClass() string {
	if t == MemoCredit {
		return StatusSuccess.BadgeClass()
	}
	return StatusDanger.BadgeClass()
}
