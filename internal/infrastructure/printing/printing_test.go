package printing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/erp/portal/internal/domain/portal"
	"github.com/erp/portal/internal/infrastructure/storage"
)

func sampleInvoice() portal.Invoice {
	inv := portal.Invoice{
		ID:      "INV003",
		Number:  "2024-0003",
		Date:    "2024-03-04",
		DueDate: "2024-04-04",
		Status:  "Pending",
		Items: []portal.LineItem{
			portal.NewLineItem("Item 1", 2, decimal.NewFromInt(150)),
			portal.NewLineItem("Item <2>", 1, decimal.RequireFromString("49.5")),
		},
	}
	inv.Amount = inv.ItemsTotal()
	return inv
}

type mockExporter struct {
	mock.Mock
}

func (m *mockExporter) ExportInvoicePDF(ctx context.Context, inv portal.Invoice) (portal.Document, error) {
	args := m.Called(ctx, inv)
	return args.Get(0).(portal.Document), args.Error(1)
}

func TestStaticExporter(t *testing.T) {
	doc, err := NewStaticExporter(0).ExportInvoicePDF(context.Background(), sampleInvoice())
	require.NoError(t, err)

	assert.Equal(t, "invoice-2024-0003.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, "Mock PDF content for invoice INV003", string(doc.Body))
}

func TestStaticExporter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStaticExporter(time.Hour).ExportInvoicePDF(ctx, sampleInvoice())

	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeRenderTimeout, re.Code)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderInvoiceHTML(t *testing.T) {
	html, err := RenderInvoiceHTML(sampleInvoice())
	require.NoError(t, err)

	assert.Contains(t, html, "Invoice 2024-0003")
	assert.Contains(t, html, "$300.00")
	assert.Contains(t, html, "$349.50")
	assert.Contains(t, html, "Item &lt;2&gt;")
}

func TestArchivingExporter(t *testing.T) {
	ctx := context.Background()
	inv := sampleInvoice()
	store := storage.NewMemoryStore()
	next := new(mockExporter)
	next.On("ExportInvoicePDF", mock.Anything, inv).
		Return(portal.Document{Filename: "invoice-2024-0003.pdf", ContentType: "application/pdf", Body: []byte("rendered")}, nil).
		Once()

	a := NewArchivingExporter(next, store, nil)

	first, err := a.ExportInvoicePDF(ctx, inv)
	require.NoError(t, err)
	second, err := a.ExportInvoicePDF(ctx, inv)
	require.NoError(t, err)

	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, "invoice-2024-0003.pdf", second.Filename)
	assert.Equal(t, 1, store.Len())
	next.AssertExpectations(t)
}

// amountExporter writes the invoice amount into the document body.
type amountExporter struct{ calls int }

func (e *amountExporter) ExportInvoicePDF(_ context.Context, inv portal.Invoice) (portal.Document, error) {
	e.calls++
	return portal.Document{
		Filename:    portal.InvoiceFilename(inv),
		ContentType: portal.ContentTypePDF,
		Body:        []byte("amount=" + inv.Amount.String()),
	}, nil
}

func TestArchivingExporter_SameNumberDifferentContent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	next := &amountExporter{}
	a := NewArchivingExporter(next, store, nil)

	first := portal.Invoice{ID: "INV001", Number: "2024-0001", Amount: decimal.NewFromInt(100)}
	second := first
	second.Amount = decimal.NewFromInt(999)

	doc1, err := a.ExportInvoicePDF(ctx, first)
	require.NoError(t, err)
	doc2, err := a.ExportInvoicePDF(ctx, second)
	require.NoError(t, err)
	again, err := a.ExportInvoicePDF(ctx, first)
	require.NoError(t, err)

	assert.Equal(t, "amount=100", string(doc1.Body))
	assert.Equal(t, "amount=999", string(doc2.Body))
	assert.Equal(t, "amount=100", string(again.Body))
	assert.Equal(t, "invoice-2024-0001.pdf", doc2.Filename)
	assert.Equal(t, "invoice-2024-0001.pdf", again.Filename)
	assert.Equal(t, 2, next.calls)
	assert.Equal(t, 2, store.Len())
}

func TestArchivingExporter_PropagatesRenderFailure(t *testing.T) {
	inv := sampleInvoice()
	next := new(mockExporter)
	next.On("ExportInvoicePDF", mock.Anything, inv).
		Return(portal.Document{}, NewRenderError(ErrCodeRenderFailed, "boom", errors.New("chrome crashed")))

	store := storage.NewMemoryStore()
	_, err := NewArchivingExporter(next, store, nil).ExportInvoicePDF(context.Background(), inv)

	assert.ErrorContains(t, err, "chrome crashed")
	assert.Zero(t, store.Len())
}
