package portal

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/erp/portal/internal/domain/portal"
	"github.com/erp/portal/internal/domain/shared"
	"github.com/erp/portal/internal/domain/table"
)

// ListView is the visible page of a list together with its inputs.
type ListView struct {
	Items         []any             `json:"items"`
	Page          int               `json:"page"`
	PageSize      int               `json:"page_size"`
	TotalPages    int               `json:"total_pages"`
	FilteredCount int               `json:"filtered_count"`
	TotalCount    int               `json:"total_count"`
	SearchTerm    string            `json:"search_term"`
	Sort          table.SortSpec    `json:"sort"`
	SortFields    []table.Field     `json:"sort_fields"`
	Filters       map[string]string `json:"filters"`
	PageSizes     []int             `json:"page_sizes"`
}

// TabStatus is the load state of a tab.
type TabStatus struct {
	Tab       portal.Tab `json:"tab"`
	Loading   bool       `json:"loading"`
	Loaded    bool       `json:"loaded"`
	LastError string     `json:"last_error,omitempty"`
}

// TabView is the load state of a list tab plus its visible page.
type TabView struct {
	TabStatus
	ListView
}

// AnalyticsView is the analytics tab with the chart scaling helpers.
type AnalyticsView struct {
	TabStatus
	Data            portal.SalesAnalytics      `json:"data"`
	MaxMonthlySales decimal.Decimal            `json:"max_monthly_sales"`
	MaxRevenue      decimal.Decimal            `json:"max_revenue"`
	ProductShares   map[string]decimal.Decimal `json:"product_shares"`
}

// StatusView decorates a record with the badge of its status.
type StatusView struct {
	Category   portal.StatusCategory `json:"status_category"`
	BadgeClass string                `json:"badge_class"`
}

func statusView(status string) StatusView {
	c := portal.ClassifyStatus(status)
	return StatusView{Category: c, BadgeClass: c.BadgeClass()}
}

// InquiryView is an inquiry row.
type InquiryView struct {
	portal.Inquiry
	StatusView
}

// SaleOrderView is a sale order row.
type SaleOrderView struct {
	portal.SaleOrder
	StatusView
}

// DeliveryView is a delivery row.
type DeliveryView struct {
	portal.Delivery
	StatusView
}

// InvoiceView is an invoice card.
type InvoiceView struct {
	portal.Invoice
	StatusView
	Filename string `json:"filename"`
}

// PaymentView is a payment row with its derived lateness.
type PaymentView struct {
	portal.Payment
	Status     string                 `json:"status"`
	Category   portal.PaymentCategory `json:"category"`
	Aging      portal.AgingBand       `json:"aging"`
	AgingClass string                 `json:"aging_class"`
}

// MemoView is a memo row.
type MemoView struct {
	portal.Memo
	TypeBadgeClass string `json:"type_badge_class"`
	StatusView
}

func presentInquiry(r portal.Inquiry) any { return InquiryView{r, statusView(r.Status)} }

func presentSaleOrder(r portal.SaleOrder) any { return SaleOrderView{r, statusView(r.Status)} }

func presentDelivery(r portal.Delivery) any { return DeliveryView{r, statusView(r.Status)} }

func presentInvoice(r portal.Invoice) any {
	return InvoiceView{Invoice: r, StatusView: statusView(r.Status), Filename: portal.InvoiceFilename(r)}
}

func presentPayment(r portal.Payment) any {
	aging := r.Aging()
	return PaymentView{
		Payment:    r,
		Status:     r.Status(),
		Category:   r.Category(),
		Aging:      aging,
		AgingClass: aging.CSSClass(),
	}
}

func presentMemo(r portal.Memo) any {
	return MemoView{Memo: r, TypeBadgeClass: r.Type.BadgeClass(), StatusView: statusView(r.Status)}
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

var inquiryColumns = []column[portal.Inquiry]{
	{"ID", func(r portal.Inquiry) string { return r.ID }},
	{"Date", func(r portal.Inquiry) string { return r.Date }},
	{"Product", func(r portal.Inquiry) string { return r.Product }},
	{"Quantity", func(r portal.Inquiry) string { return strconv.Itoa(r.Quantity) }},
	{"Value", func(r portal.Inquiry) string { return money(r.Value) }},
	{"Status", func(r portal.Inquiry) string { return r.Status }},
}

var saleOrderColumns = []column[portal.SaleOrder]{
	{"ID", func(r portal.SaleOrder) string { return r.ID }},
	{"Date", func(r portal.SaleOrder) string { return r.Date }},
	{"Product", func(r portal.SaleOrder) string { return r.Product }},
	{"Quantity", func(r portal.SaleOrder) string { return strconv.Itoa(r.Quantity) }},
	{"Amount", func(r portal.SaleOrder) string { return money(r.Amount) }},
	{"Status", func(r portal.SaleOrder) string { return r.Status }},
}

var deliveryColumns = []column[portal.Delivery]{
	{"ID", func(r portal.Delivery) string { return r.ID }},
	{"Order Number", func(r portal.Delivery) string { return r.OrderNumber }},
	{"Date", func(r portal.Delivery) string { return r.Date }},
	{"Product", func(r portal.Delivery) string { return r.Product }},
	{"Quantity", func(r portal.Delivery) string { return strconv.Itoa(r.Quantity) }},
	{"Status", func(r portal.Delivery) string { return r.Status }},
	{"Tracking Number", func(r portal.Delivery) string { return r.TrackingNumber }},
}

var invoiceColumns = []column[portal.Invoice]{
	{"ID", func(r portal.Invoice) string { return r.ID }},
	{"Number", func(r portal.Invoice) string { return r.Number }},
	{"Date", func(r portal.Invoice) string { return r.Date }},
	{"Due Date", func(r portal.Invoice) string { return r.DueDate }},
	{"Amount", func(r portal.Invoice) string { return money(r.Amount) }},
	{"Status", func(r portal.Invoice) string { return r.Status }},
	{"Items", func(r portal.Invoice) string { return strconv.Itoa(len(r.Items)) }},
}

var paymentColumns = []column[portal.Payment]{
	{"ID", func(r portal.Payment) string { return r.ID }},
	{"Invoice Number", func(r portal.Payment) string { return r.InvoiceNumber }},
	{"Amount", func(r portal.Payment) string { return money(r.Amount) }},
	{"Due Date", func(r portal.Payment) string { return r.DueDate }},
	{"Days Overdue", func(r portal.Payment) string { return strconv.Itoa(r.DaysOverdue) }},
	{"Status", func(r portal.Payment) string { return r.Status() }},
}

var memoColumns = []column[portal.Memo]{
	{"ID", func(r portal.Memo) string { return r.ID }},
	{"Type", func(r portal.Memo) string { return string(r.Type) }},
	{"Number", func(r portal.Memo) string { return r.Number }},
	{"Date", func(r portal.Memo) string { return r.Date }},
	{"Amount", func(r portal.Memo) string { return money(r.Amount) }},
	{"Reason", func(r portal.Memo) string { return r.Reason }},
	{"Status", func(r portal.Memo) string { return r.Status }},
}

func paymentFilters() map[string]filterParser[portal.Payment] {
	return map[string]filterParser[portal.Payment]{
		portal.FilterPaymentCategory: func(value string) (table.Predicate[portal.Payment], error) {
			c, ok := portal.ParsePaymentCategory(value)
			if !ok {
				return nil, shared.NewDomainError(shared.ErrInvalidInput.Code,
					"category must be one of all, on-time, overdue")
			}
			return portal.PaymentCategoryFilter(c), nil
		},
	}
}

func memoFilters() map[string]filterParser[portal.Memo] {
	return map[string]filterParser[portal.Memo]{
		portal.FilterMemoType: func(value string) (table.Predicate[portal.Memo], error) {
			t, ok := portal.ParseMemoType(value)
			if !ok {
				return nil, shared.NewDomainError(shared.ErrInvalidInput.Code,
					"type must be one of all, Credit, Debit")
			}
			return portal.MemoTypeFilter(t), nil
		},
	}
}
