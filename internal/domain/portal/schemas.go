package portal

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/erp/portal/internal/domain/table"
)

// Sortable fields of the portal lists.
const (
	FieldID             table.Field = "id"
	FieldDate           table.Field = "date"
	FieldProduct        table.Field = "product"
	FieldQuantity       table.Field = "quantity"
	FieldValue          table.Field = "value"
	FieldAmount         table.Field = "amount"
	FieldStatus         table.Field = "status"
	FieldOrderNumber    table.Field = "orderNumber"
	FieldTrackingNumber table.Field = "trackingNumber"
	FieldInvoiceNumber  table.Field = "invoiceNumber"
	FieldDueDate        table.Field = "dueDate"
	FieldDaysOverdue    table.Field = "daysOverdue"
	FieldNumber         table.Field = "number"
	FieldType           table.Field = "type"
)

// Names of the domain filters composed with search.
const (
	FilterPaymentCategory = "category"
	FilterMemoType        = "type"
)

// InvoicePageSizes are the page sizes of the invoice grid.
var InvoicePageSizes = []int{6, 12, 24}

// InquirySchema lists inquiries.
var InquirySchema = table.Schema[Inquiry]{
	Name: "inquiries",
	SearchFields: []func(Inquiry) string{
		func(r Inquiry) string { return r.ID },
		func(r Inquiry) string { return r.Product },
		func(r Inquiry) string { return r.Status },
	},
	SortFields: map[table.Field]table.Comparator[Inquiry]{
		FieldID:       table.ByString(func(r Inquiry) string { return r.ID }),
		FieldDate:     table.ByString(func(r Inquiry) string { return r.Date }),
		FieldProduct:  table.ByString(func(r Inquiry) string { return r.Product }),
		FieldQuantity: table.ByNumber(func(r Inquiry) int { return r.Quantity }),
		FieldValue:    table.ByDecimal(func(r Inquiry) decimal.Decimal { return r.Value }),
		FieldStatus:   table.ByString(func(r Inquiry) string { return r.Status }),
	},
	DefaultPageSize: 10,
}

// SaleOrderSchema lists sale orders.
var SaleOrderSchema = table.Schema[SaleOrder]{
	Name: "orders",
	SearchFields: []func(SaleOrder) string{
		func(r SaleOrder) string { return r.ID },
		func(r SaleOrder) string { return r.Product },
		func(r SaleOrder) string { return r.Status },
	},
	SortFields: map[table.Field]table.Comparator[SaleOrder]{
		FieldID:       table.ByString(func(r SaleOrder) string { return r.ID }),
		FieldDate:     table.ByString(func(r SaleOrder) string { return r.Date }),
		FieldProduct:  table.ByString(func(r SaleOrder) string { return r.Product }),
		FieldQuantity: table.ByNumber(func(r SaleOrder) int { return r.Quantity }),
		FieldAmount:   table.ByDecimal(func(r SaleOrder) decimal.Decimal { return r.Amount }),
		FieldStatus:   table.ByString(func(r SaleOrder) string { return r.Status }),
	},
	DefaultPageSize: 10,
}

// DeliverySchema lists deliveries.
var DeliverySchema = table.Schema[Delivery]{
	Name: "deliveries",
	SearchFields: []func(Delivery) string{
		func(r Delivery) string { return r.ID },
		func(r Delivery) string { return r.OrderNumber },
		func(r Delivery) string { return r.Product },
		func(r Delivery) string { return r.TrackingNumber },
		func(r Delivery) string { return r.Status },
	},
	SortFields: map[table.Field]table.Comparator[Delivery]{
		FieldID:             table.ByString(func(r Delivery) string { return r.ID }),
		FieldOrderNumber:    table.ByString(func(r Delivery) string { return r.OrderNumber }),
		FieldDate:           table.ByString(func(r Delivery) string { return r.Date }),
		FieldProduct:        table.ByString(func(r Delivery) string { return r.Product }),
		FieldQuantity:       table.ByNumber(func(r Delivery) int { return r.Quantity }),
		FieldTrackingNumber: table.ByString(func(r Delivery) string { return r.TrackingNumber }),
		FieldStatus:         table.ByString(func(r Delivery) string { return r.Status }),
	},
	DefaultPageSize: 10,
}

// InvoiceSchema pages the invoice grid. Invoices are shown in issue order
// and have no sort fields.
var InvoiceSchema = table.Schema[Invoice]{
	Name: "invoices",
	SearchFields: []func(Invoice) string{
		func(r Invoice) string { return r.ID },
		func(r Invoice) string { return r.Number },
		func(r Invoice) string { return r.Status },
	},
	PageSizes:       InvoicePageSizes,
	DefaultPageSize: 6,
}

// PaymentSchema lists payments.
var PaymentSchema = table.Schema[Payment]{
	Name: "payments",
	SearchFields: []func(Payment) string{
		func(r Payment) string { return r.InvoiceNumber },
	},
	SortFields: map[table.Field]table.Comparator[Payment]{
		FieldInvoiceNumber: table.ByString(func(r Payment) string { return r.InvoiceNumber }),
		FieldAmount:        table.ByDecimal(func(r Payment) decimal.Decimal { return r.Amount }),
		FieldDueDate:       table.ByString(func(r Payment) string { return r.DueDate }),
		FieldDaysOverdue:   table.ByNumber(func(r Payment) int { return r.DaysOverdue }),
	},
	DefaultPageSize: 10,
}

// MemoSchema lists credit and debit memos.
var MemoSchema = table.Schema[Memo]{
	Name: "memos",
	SearchFields: []func(Memo) string{
		func(r Memo) string { return r.Number },
		func(r Memo) string { return r.Reason },
	},
	SortFields: map[table.Field]table.Comparator[Memo]{
		FieldNumber: table.ByString(func(r Memo) string { return r.Number }),
		FieldDate:   table.ByString(func(r Memo) string { return r.Date }),
		FieldAmount: table.ByDecimal(func(r Memo) decimal.Decimal { return r.Amount }),
		FieldType:   table.ByString(func(r Memo) string { return string(r.Type) }),
	},
	DefaultPageSize: 10,
}

// PaymentCategoryFilter keeps payments of the given category.
func PaymentCategoryFilter(category PaymentCategory) table.Predicate[Payment] {
	return func(p Payment) bool {
		return p.Category() == category
	}
}

// ParsePaymentCategory parses "on-time" or "overdue", ignoring case.
func ParsePaymentCategory(s string) (PaymentCategory, bool) {
	switch {
	case strings.EqualFold(s, string(PaymentOnTime)):
		return PaymentOnTime, true
	case strings.EqualFold(s, string(PaymentOverdue)):
		return PaymentOverdue, true
	}
	return "", false
}

// MemoTypeFilter keeps memos of the given type.
func MemoTypeFilter(t MemoType) table.Predicate[Memo] {
	return func(m Memo) bool {
		return m.Type == t
	}
}
