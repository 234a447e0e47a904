package exporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nikbrunner/bmlens/internal/categorize"
)

const maxSheetName = 31

// ExportXLSX writes a workbook with one sheet per category group, using the
// CSV columns.
func ExportXLSX(w io.Writer, groups []categorize.CategoryGroup) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()

	const defaultSheet = "Sheet1"
	header := make([]any, len(csvHeader))
	for i, h := range csvHeader {
		header[i] = h
	}

	used := make(map[string]bool)
	first := ""
	for _, g := range groups {
		name := sheetName(g.Category, used)
		if first == "" {
			first = name
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("rename sheet %s: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}

		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return fmt.Errorf("write header %s: %w", name, err)
		}
		for i, b := range g.Bookmarks {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			values := []any{g.Category, b.Title, b.URL, formatDate(b.DateAdded)}
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				return fmt.Errorf("write row %s/%d: %w", name, i, err)
			}
		}
		if err := f.SetColWidth(name, "B", "C", 50); err != nil {
			return fmt.Errorf("set column width %s: %w", name, err)
		}
	}

	if first == "" {
		if err := f.SetSheetRow(defaultSheet, "A1", &header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// sheetName makes a category usable as a unique sheet name.
func sheetName(category string, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(category))
	name = strings.Trim(name, "'")
	if name == "" {
		name = categorize.Uncategorized
	}
	name = truncateRunes(name, maxSheetName)

	base := name
	for i := 2; used[strings.ToLower(name)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		name = truncateRunes(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
