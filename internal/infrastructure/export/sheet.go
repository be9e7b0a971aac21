// Package export encodes portal tables as CSV or Excel documents.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/erp/portal/internal/domain/portal"
)

// Content types of the sheet formats
const (
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

const defaultColumnWidth = 18

// SheetWriter implements portal.SheetExporter.
type SheetWriter struct{}

var _ portal.SheetExporter = SheetWriter{}

// NewSheetWriter returns a SheetWriter
func NewSheetWriter() SheetWriter {
	return SheetWriter{}
}

// ExportSheet encodes sheet in the requested format.
func (SheetWriter) ExportSheet(ctx context.Context, format portal.SheetFormat, sheet portal.Sheet) (portal.Document, error) {
	if err := ctx.Err(); err != nil {
		return portal.Document{}, err
	}
	switch format {
	case portal.FormatCSV:
		body, err := EncodeCSV(sheet)
		if err != nil {
			return portal.Document{}, err
		}
		return portal.Document{Filename: filename(sheet, "csv"), ContentType: ContentTypeCSV, Body: body}, nil
	case portal.FormatXLSX:
		body, err := EncodeXLSX(sheet)
		if err != nil {
			return portal.Document{}, err
		}
		return portal.Document{Filename: filename(sheet, "xlsx"), ContentType: ContentTypeXLSX, Body: body}, nil
	default:
		return portal.Document{}, fmt.Errorf("unsupported sheet format %q", format)
	}
}

func filename(sheet portal.Sheet, ext string) string {
	name := strings.ToLower(strings.ReplaceAll(sheet.Name, " ", "-"))
	if name == "" {
		name = "export"
	}
	return name + "." + ext
}

// EncodeCSV writes the header row followed by every data row.
func EncodeCSV(sheet portal.Sheet) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(sheet.Headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	if err := w.WriteAll(sheet.Rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeXLSX writes sheet into a single-sheet workbook with a bold header row.
func EncodeXLSX(sheet portal.Sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	name := sheet.Name
	if name == "" {
		name = "Sheet1"
	}
	index, err := f.NewSheet(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if name != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return nil, fmt.Errorf("failed to remove default sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeRow(f, name, 1, sheet.Headers); err != nil {
		return nil, err
	}
	if len(sheet.Headers) > 0 {
		last, err := excelize.CoordinatesToCellName(len(sheet.Headers), 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to style header: %w", err)
		}
		lastCol, err := excelize.ColumnNumberToName(len(sheet.Headers))
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(name, "A", lastCol, defaultColumnWidth); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}
	for i, row := range sheet.Rows {
		if err := writeRow(f, name, i+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	if len(values) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}
