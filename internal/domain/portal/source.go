package portal

import (
	"context"
	"fmt"
)

// DataSource delivers the full, unfiltered record set of each portal list.
// Every call may block to simulate or perform network I/O.
type DataSource interface {
	FetchInquiries(ctx context.Context) ([]Inquiry, error)
	FetchSaleOrders(ctx context.Context) ([]SaleOrder, error)
	FetchDeliveries(ctx context.Context) ([]Delivery, error)
	FetchInvoices(ctx context.Context) ([]Invoice, error)
	FetchPayments(ctx context.Context) ([]Payment, error)
	FetchMemos(ctx context.Context) ([]Memo, error)
	FetchSalesAnalytics(ctx context.Context) (SalesAnalytics, error)
}

// Document is an exported binary payload.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ContentTypePDF is the MIME type of invoice documents.
const ContentTypePDF = "application/pdf"

// InvoiceFilename returns the suggested download name of an invoice document.
func InvoiceFilename(inv Invoice) string {
	return fmt.Sprintf("invoice-%s.pdf", inv.Number)
}

// DocumentExporter renders an invoice into a downloadable document.
type DocumentExporter interface {
	ExportInvoicePDF(ctx context.Context, inv Invoice) (Document, error)
}

// Tab identifies a portal view.
type Tab string

// Portal tabs
const (
	TabInquiries  Tab = "inquiries"
	TabOrders     Tab = "orders"
	TabDeliveries Tab = "deliveries"
	TabInvoices   Tab = "invoices"
	TabPayments   Tab = "payments"
	TabMemos      Tab = "memos"
	TabAnalytics  Tab = "analytics"
)

// AllTabs lists every tab in display order.
var AllTabs = []Tab{TabInquiries, TabOrders, TabDeliveries, TabInvoices, TabPayments, TabMemos, TabAnalytics}

// ParseTab validates a tab name.
func ParseTab(s string) (Tab, bool) {
	for _, t := range AllTabs {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// IsList reports whether the tab is backed by a list controller.
func (t Tab) IsList() bool {
	return t != TabAnalytics && t != ""
}

// SheetFormat is a tabular export format.
type SheetFormat string

// Supported sheet formats
const (
	FormatCSV  SheetFormat = "csv"
	FormatXLSX SheetFormat = "xlsx"
)

// ParseSheetFormat validates a format name; empty means csv.
func ParseSheetFormat(s string) (SheetFormat, bool) {
	switch SheetFormat(s) {
	case "", FormatCSV:
		return FormatCSV, true
	case FormatXLSX:
		return FormatXLSX, true
	}
	return "", false
}

// Sheet is a rendered table: a header row plus string cells.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// SheetExporter encodes a sheet into a downloadable document.
type SheetExporter interface {
	ExportSheet(ctx context.Context, format SheetFormat, sheet Sheet) (Document, error)
}
