package exporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nikbrunner/bmlens/internal/categorize"
	"github.com/nikbrunner/bmlens/internal/model"
)

var added = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func assignments() []categorize.Assignment {
	return []categorize.Assignment{
		{Bookmark: model.Bookmark{ID: "1", Title: "Go, the language", URL: "https://go.dev", DateAdded: added}, Category: "Development"},
		{Bookmark: model.Bookmark{ID: "2", Title: "HN", URL: "https://news.ycombinator.com"}, Category: "News"},
		{Bookmark: model.Bookmark{ID: "3", Title: "GitHub", URL: "https://github.com"}, Category: "Development"},
	}
}

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"html", "HTML", ".csv", " json ", "xlsx"} {
		_, err := ParseFormat(in)
		assert.NoError(t, err, in)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "bookmarks-export-2024-01-02.csv", FormatCSV.FileName(added))
	p, err := DefaultExportPath(FormatXLSX)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p, ".xlsx"))
	assert.Contains(t, p, "Downloads")
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, ExportJSON(&buf, []model.Bookmark{{ID: "1", Title: "A", URL: "https://a.com"}}, now))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, JSONVersion, doc["version"])
	assert.Equal(t, "2024-05-06T07:08:09Z", doc["timestamp"])
	bookmarks, ok := doc["bookmarks"].([]any)
	require.True(t, ok)
	require.Len(t, bookmarks, 1)
	assert.NotContains(t, bookmarks[0], "dateAdded")

	buf.Reset()
	require.NoError(t, ExportJSON(&buf, nil, now))
	assert.Contains(t, buf.String(), `"bookmarks": []`)
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, assignments()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Category", "Title", "URL", "DateAdded"},
		{"Development", "Go, the language", "https://go.dev", "2024-01-02T03:04:05Z"},
		{"News", "HN", "https://news.ycombinator.com", ""},
		{"Development", "GitHub", "https://github.com", ""},
	}, records)
}

func TestExportXLSX(t *testing.T) {
	var buf bytes.Buffer
	groups := categorize.Group(assignments(), categorize.DefaultVocabulary)
	require.NoError(t, ExportXLSX(&buf, groups))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Development", "News"}, f.GetSheetList())
	rows, err := f.GetRows("Development")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Category", "Title", "URL", "DateAdded"}, rows[0])
	assert.Equal(t, []string{"Development", "Go, the language", "https://go.dev", "2024-01-02T03:04:05Z"}, rows[1])
	assert.Equal(t, "GitHub", rows[2][1])
}

func TestExportXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportXLSX(&buf, nil))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "Dev_Ops", sheetName("Dev/Ops", used))
	assert.Equal(t, "Dev_Ops (2)", sheetName("Dev:Ops", used))
	assert.Equal(t, categorize.Uncategorized, sheetName("  ", used))
	long := sheetName(strings.Repeat("x", 40), used)
	assert.Len(t, []rune(long), maxSheetName)
	long2 := sheetName(strings.Repeat("x", 40), used)
	assert.Len(t, []rune(long2), maxSheetName)
	assert.True(t, strings.HasSuffix(long2, " (2)"))
}

func TestWrite(t *testing.T) {
	store := model.NewStore()
	store.AddBookmark(model.Bookmark{ID: "1", Title: "A", URL: "https://a.com"})

	tests := []struct {
		format Format
		lib    Library
		want   string
	}{
		{FormatHTML, Library{Store: store}, `<DT><A HREF="https://a.com">A</A>`},
		{FormatHTML, Library{Bookmarks: store.Bookmarks}, "Bookmarks bar"},
		{FormatJSON, Library{Bookmarks: store.Bookmarks}, `"version": "1.0"`},
		{FormatCSV, Library{Assignments: assignments()}, "Category,Title,URL,DateAdded"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, tt.format, tt.lib))
			assert.Contains(t, buf.String(), tt.want)
		})
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, Library{Assignments: assignments(), Vocabulary: categorize.DefaultVocabulary}))
	assert.NotZero(t, buf.Len())

	assert.Error(t, Write(&buf, Format("pdf"), Library{}))
}
