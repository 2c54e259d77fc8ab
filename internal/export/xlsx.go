package export

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// XLSXWriter implements SheetWriter by saving an .xlsx workbook to disk.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter creates a writer that overwrites path on every Write.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

// Write saves a workbook with one worksheet per Sheet, in order.
func (w *XLSXWriter) Write(_ context.Context, data []Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	for _, sheet := range data {
		if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", sheet.Name, err)
		}
		for r, row := range sheet.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return fmt.Errorf("addressing row %d: %w", r+1, err)
			}
			if err := f.SetSheetRow(sheet.Name, cell, &row); err != nil {
				return fmt.Errorf("writing %s row %d: %w", sheet.Name, r+1, err)
			}
		}
		if len(sheet.Rows) > 0 {
			last, err := excelize.CoordinatesToCellName(len(sheet.Rows[0]), 1)
			if err != nil {
				return fmt.Errorf("addressing header: %w", err)
			}
			if err := f.SetCellStyle(sheet.Name, "A1", last, bold); err != nil {
				return fmt.Errorf("styling %s header: %w", sheet.Name, err)
			}
		}
	}

	if len(data) > 0 {
		if !lo.ContainsBy(data, func(s Sheet) bool { return s.Name == defaultSheet }) {
			if err := f.DeleteSheet(defaultSheet); err != nil {
				return fmt.Errorf("removing default sheet: %w", err)
			}
		}
		if idx, err := f.GetSheetIndex(data[0].Name); err == nil && idx >= 0 {
			f.SetActiveSheet(idx)
		}
	}

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", w.path, err)
	}
	return nil
}
