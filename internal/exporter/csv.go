package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/nikbrunner/bmlens/internal/categorize"
)

var csvHeader = []string{"Category", "Title", "URL", "DateAdded"}

// ExportCSV writes one row per assignment. DateAdded is RFC 3339 or empty
// when unknown.
func ExportCSV(w io.Writer, assignments []categorize.Assignment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, a := range assignments {
		if err := cw.Write(row(a)); err != nil {
			return fmt.Errorf("write csv row %s: %w", a.Bookmark.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func row(a categorize.Assignment) []string {
	return []string{a.Category, a.Bookmark.Title, a.Bookmark.URL, formatDate(a.Bookmark.DateAdded)}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
