package printing

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/portal/internal/domain/portal"
)

// StaticExporter fabricates a placeholder PDF payload after a fixed delay.
type StaticExporter struct {
	latency time.Duration
}

var _ portal.DocumentExporter = (*StaticExporter)(nil)

// NewStaticExporter creates a StaticExporter.
func NewStaticExporter(latency time.Duration) *StaticExporter {
	return &StaticExporter{latency: latency}
}

// ExportInvoicePDF implements portal.DocumentExporter
func (e *StaticExporter) ExportInvoicePDF(ctx context.Context, inv portal.Invoice) (portal.Document, error) {
	if e.latency > 0 {
		timer := time.NewTimer(e.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return portal.Document{}, NewRenderError(ErrCodeRenderTimeout, "export cancelled", ctx.Err())
		case <-timer.C:
		}
	}
	return portal.Document{
		Filename:    portal.InvoiceFilename(inv),
		ContentType: portal.ContentTypePDF,
		Body:        []byte(fmt.Sprintf("Mock PDF content for invoice %s", inv.ID)),
	}, nil
}
