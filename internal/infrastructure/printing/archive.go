package printing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/portal/internal/domain/portal"
	"github.com/erp/portal/internal/infrastructure/storage"
)

// ArchivingExporter serves invoice documents from an object store and
// renders and stores them on a miss.
type ArchivingExporter struct {
	next   portal.DocumentExporter
	store  storage.ObjectStore
	logger *zap.Logger
}

var _ portal.DocumentExporter = (*ArchivingExporter)(nil)

// NewArchivingExporter wraps next with the store.
func NewArchivingExporter(next portal.DocumentExporter, store storage.ObjectStore, logger *zap.Logger) *ArchivingExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchivingExporter{next: next, store: store, logger: logger}
}

// archiveKey addresses an invoice by number and content digest, so invoices
// sharing a number but differing in any field are stored apart.
func archiveKey(inv portal.Invoice) (string, error) {
	raw, err := json.Marshal(inv)
	if err != nil {
		return "", fmt.Errorf("marshal invoice %s: %w", inv.ID, err)
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("invoices/%s-%s.pdf", inv.Number, hex.EncodeToString(sum[:])), nil
}

// ExportInvoicePDF implements portal.DocumentExporter
func (a *ArchivingExporter) ExportInvoicePDF(ctx context.Context, inv portal.Invoice) (portal.Document, error) {
	key, err := archiveKey(inv)
	if err != nil {
		a.logger.Warn("archive key unavailable, rendering", zap.String("invoice", inv.ID), zap.Error(err))
		return a.next.ExportInvoicePDF(ctx, inv)
	}

	body, err := a.store.Get(ctx, key)
	switch {
	case err == nil:
		return portal.Document{Filename: portal.InvoiceFilename(inv), ContentType: portal.ContentTypePDF, Body: body}, nil
	case !errors.Is(err, storage.ErrObjectNotFound):
		a.logger.Warn("archive lookup failed, rendering", zap.String("key", key), zap.Error(err))
	}

	doc, err := a.next.ExportInvoicePDF(ctx, inv)
	if err != nil {
		return portal.Document{}, err
	}
	if err := a.store.Put(ctx, key, doc.Body, doc.ContentType); err != nil {
		a.logger.Warn("failed to archive invoice", zap.String("key", key), zap.Error(err))
	}
	return doc, nil
}
