// Package csv serializes an analysis record as a one-row CSV download.
package csv

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/JakeFAU/webanalyst/internal/analysis"
)

// ContentType is the MIME type of the exported artifact.
const ContentType = "text/csv; charset=utf-8"

// Header is the fixed column order of the export.
var Header = []string{
	"Website URL",
	"Analysis Prompt",
	"Analysis Result",
	"Analysis Date",
	"Analysis Time",
}

const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04:05"
	filenameLayout = "20060102_150405"
)

// Row returns the data row for rec in Header order.
func Row(rec analysis.Record) []string {
	return []string{
		rec.URL,
		rec.Prompt,
		rec.Analysis,
		rec.Timestamp.Format(dateLayout),
		rec.Timestamp.Format(timeLayout),
	}
}

// Encode writes the header row and exactly one data row.
func Encode(rec analysis.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	if err := w.Write(Row(rec)); err != nil {
		return nil, fmt.Errorf("write csv row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename returns web_analysis_<YYYYMMDD>_<HHMMSS>.csv for t.
func Filename(t time.Time) string {
	return fmt.Sprintf("web_analysis_%s.csv", t.Format(filenameLayout))
}
