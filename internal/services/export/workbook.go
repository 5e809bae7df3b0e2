// Package export writes pipeline results to a multi-sheet xlsx workbook.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/xuri/excelize/v2"

	"github.com/ternarybob/kindwatch/internal/models"
)

// Sheet names, in workbook order.
const (
	SheetRawTable   = "raw_table"
	SheetNormalized = "normalized_long"
	SheetWide       = "wide_summary"
)

var longHeaders = []string{
	"corp_name", "stock_code", "rcp_no", "report_date", "metric", "scope",
	"value_current", "value_prev", "qoq_change_pct", "qoq_turnaround",
	"value_yoy", "yoy_change_pct", "yoy_turnaround", "unit_value", "unit_pct",
	"mapping_confidence",
}

var wideHeaders = []string{
	"corp_name", "stock_code", "metric", "scope",
	"value_current", "value_prev", "value_yoy", "qoq_change_pct", "yoy_change_pct",
}

// RawSheet pairs a filer name with its extracted table for the raw sheet.
type RawSheet struct {
	CorpName string
	Table    *models.RawTable
}

// Writer saves workbooks into the output directory.
type Writer struct {
	dir    string
	logger arbor.ILogger
}

// NewWriter creates a workbook writer for the given directory.
func NewWriter(dir string, logger arbor.ILogger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

// WriteWorkbook writes the three result sheets and returns the file path.
// The raw sheet carries only the first filer's table, kept for verification
// of the extraction; the long and wide sheets aggregate all filers.
func (w *Writer) WriteWorkbook(date string, raw []RawSheet, long []models.NormalizedRecord, wide []models.WideRow) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("prelim_earnings_%s.xlsx", date))

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetRawTable); err != nil {
		return "", fmt.Errorf("failed to name raw sheet: %w", err)
	}
	if len(raw) > 0 {
		writeRawSheet(f, raw[0])
	}

	if _, err := f.NewSheet(SheetNormalized); err != nil {
		return "", fmt.Errorf("failed to create long sheet: %w", err)
	}
	writeLongSheet(f, long)

	if _, err := f.NewSheet(SheetWide); err != nil {
		return "", fmt.Errorf("failed to create wide sheet: %w", err)
	}
	writeWideSheet(f, wide)

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	w.logger.Info().
		Str("path", path).
		Int("long_rows", len(long)).
		Int("wide_rows", len(wide)).
		Msg("Saved earnings workbook")

	return path, nil
}

func writeRawSheet(f *excelize.File, sheet RawSheet) {
	if sheet.Table == nil {
		return
	}
	for r, row := range sheet.Table.Rows {
		for c, cell := range row {
			setCell(f, SheetRawTable, c+1, r+1, cell)
		}
	}
}

func writeLongSheet(f *excelize.File, long []models.NormalizedRecord) {
	for c, h := range longHeaders {
		setCell(f, SheetNormalized, c+1, 1, h)
	}
	for r, rec := range long {
		row := r + 2
		values := []interface{}{
			rec.CorpName, rec.StockCode, rec.AccessionID, rec.ReportDate, rec.Metric, rec.Scope,
			floatCell(rec.ValueCurrent), floatCell(rec.ValuePrev), floatCell(rec.QoQChangePct), rec.QoQTurnaround,
			floatCell(rec.ValueYoY), floatCell(rec.YoYChangePct), rec.YoYTurnaround, rec.UnitValue, rec.UnitPct,
			rec.MappingConfidence,
		}
		for c, v := range values {
			setCell(f, SheetNormalized, c+1, row, v)
		}
	}
}

func writeWideSheet(f *excelize.File, wide []models.WideRow) {
	for c, h := range wideHeaders {
		setCell(f, SheetWide, c+1, 1, h)
	}
	for r, rec := range wide {
		row := r + 2
		values := []interface{}{
			rec.CorpName, rec.StockCode, rec.Metric, rec.Scope,
			floatCell(rec.ValueCurrent), floatCell(rec.ValuePrev), floatCell(rec.ValueYoY),
			floatCell(rec.QoQChangePct), floatCell(rec.YoYChangePct),
		}
		for c, v := range values {
			setCell(f, SheetWide, c+1, row, v)
		}
	}
}

// floatCell unwraps nullable numerics; nil becomes an empty cell.
func floatCell(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func setCell(f *excelize.File, sheet string, col, row int, v interface{}) {
	if v == nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return
	}
	// SetCellValue only fails for invalid coordinates, checked above.
	_ = f.SetCellValue(sheet, cell, v)
}
