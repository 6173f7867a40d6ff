package export

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/bergdata/advisor-harvester/internal/profile"
)

// CSV writes records as comma-separated values with a header row.
type CSV struct{}

// Export implements Exporter.
func (CSV) Export(records []profile.Record, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer file.Close() //nolint:errcheck // flushed and closed explicitly below

	writer := csv.NewWriter(file)
	if err := writer.Write(profile.Headers()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		if err := writer.Write(rec.Row()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	return nil
}
