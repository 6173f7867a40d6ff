// Package export writes the final record collection to a tabular file.
package export

import (
	"path/filepath"
	"strings"

	"github.com/bergdata/advisor-harvester/internal/profile"
)

// Exporter persists records to a file at path.
type Exporter interface {
	Export(records []profile.Record, path string) error
}

// ForPath picks an exporter from the output file extension. Anything that
// is not .csv gets the spreadsheet form.
func ForPath(path string) Exporter {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return CSV{}
	}
	return XLSX{}
}
