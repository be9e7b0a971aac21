package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/erp/portal/internal/domain/portal"
)

func sampleSheet() portal.Sheet {
	return portal.Sheet{
		Name:    "Invoices",
		Headers: []string{"ID", "Number", "Amount"},
		Rows: [][]string{
			{"INV001", "2024-0001", "1200.50"},
			{"INV002", "2024-0002", "99.00"},
		},
	}
}

func TestSheetWriter_CSV(t *testing.T) {
	doc, err := NewSheetWriter().ExportSheet(context.Background(), portal.FormatCSV, sampleSheet())
	require.NoError(t, err)

	assert.Equal(t, "invoices.csv", doc.Filename)
	assert.Equal(t, ContentTypeCSV, doc.ContentType)

	records, err := csv.NewReader(bytes.NewReader(doc.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"ID", "Number", "Amount"}, records[0])
	assert.Equal(t, "INV002", records[2][0])
}

func TestSheetWriter_XLSX(t *testing.T) {
	doc, err := NewSheetWriter().ExportSheet(context.Background(), portal.FormatXLSX, sampleSheet())
	require.NoError(t, err)

	assert.Equal(t, "invoices.xlsx", doc.Filename)
	assert.Equal(t, ContentTypeXLSX, doc.ContentType)

	f, err := excelize.OpenReader(bytes.NewReader(doc.Body))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Invoices"}, f.GetSheetList())
	rows, err := f.GetRows("Invoices")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Number", rows[0][1])
	assert.Equal(t, "1200.50", rows[1][2])
}

func TestSheetWriter_EmptySheet(t *testing.T) {
	doc, err := NewSheetWriter().ExportSheet(context.Background(), portal.FormatXLSX, portal.Sheet{Headers: []string{"ID"}})
	require.NoError(t, err)
	assert.Equal(t, "export.xlsx", doc.Filename)
	assert.NotEmpty(t, doc.Body)
}

func TestSheetWriter_Errors(t *testing.T) {
	t.Run("unsupported format", func(t *testing.T) {
		_, err := NewSheetWriter().ExportSheet(context.Background(), "pdf", sampleSheet())
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewSheetWriter().ExportSheet(ctx, portal.FormatCSV, sampleSheet())
		assert.ErrorIs(t, err, context.Canceled)
	})
}
