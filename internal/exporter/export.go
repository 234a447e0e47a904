// Package exporter writes bookmarks to Netscape HTML, JSON, CSV and XLSX.
package exporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nikbrunner/bmlens/internal/categorize"
	"github.com/nikbrunner/bmlens/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatHTML Format = "html"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Formats lists the supported formats.
var Formats = []Format{FormatHTML, FormatJSON, FormatCSV, FormatXLSX}

// ParseFormat parses a format name, case-insensitive.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

// FileName returns bookmarks-export-YYYY-MM-DD.<ext> for day.
func (f Format) FileName(day time.Time) string {
	return fmt.Sprintf("bookmarks-export-%s.%s", day.Format("2006-01-02"), f)
}

// DefaultExportPath returns the default export file path.
// Format: ~/Downloads/bookmarks-export-YYYY-MM-DD.<ext>
func DefaultExportPath(f Format) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Downloads", f.FileName(time.Now())), nil
}

// Library is what an export is built from. Assignments are required for CSV
// and XLSX; Vocabulary orders XLSX sheets.
type Library struct {
	Store       *model.Store
	Bookmarks   []model.Bookmark
	Assignments []categorize.Assignment
	Vocabulary  []string
	Now         time.Time
}

// Write exports lib to w in format f. HTML keeps the folder tree when a Store
// is given and falls back to a flat list otherwise.
func Write(w io.Writer, f Format, lib Library) error {
	if lib.Now.IsZero() {
		lib.Now = time.Now()
	}
	switch f {
	case FormatHTML:
		if lib.Store != nil {
			return writeHTML(w, ExportHTML(lib.Store))
		}
		return writeHTML(w, ExportHTMLList(lib.Bookmarks))
	case FormatJSON:
		return ExportJSON(w, lib.Bookmarks, lib.Now)
	case FormatCSV:
		return ExportCSV(w, lib.Assignments)
	case FormatXLSX:
		return ExportXLSX(w, categorize.Group(lib.Assignments, lib.Vocabulary))
	}
	return fmt.Errorf("unknown export format %q", f)
}
