package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/bergdata/advisor-harvester/internal/profile"
)

const sheetName = "Sheet1"

// XLSX writes records as an Excel workbook with a fixed header row.
type XLSX struct{}

// Export implements Exporter.
func (XLSX) Export(records []profile.Record, path string) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // in-memory workbook

	headers := toAnySlice(profile.Headers())
	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("compute cell name: %w", err)
		}
		row := toAnySlice(rec.Row())
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
