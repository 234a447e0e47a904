package importer_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikbrunner/bmlens/internal/importer"
)

const chromeFile = `{
   "checksum": "abc",
   "roots": {
      "bookmark_bar": {
         "children": [ {
            "date_added": "13253718660000000",
            "id": "5",
            "name": "Go",
            "type": "url",
            "url": "https://go.dev/"
         }, {
            "children": [ {
               "date_added": "0",
               "id": "7",
               "name": "Rust",
               "type": "url",
               "url": "https://rust-lang.org/"
            } ],
            "date_added": "13253718660000000",
            "id": "6",
            "name": "Langs",
            "type": "folder"
         } ],
         "id": "1",
         "name": "Bookmarks bar",
         "type": "folder"
      },
      "other": { "children": [], "id": "2", "name": "Other bookmarks", "type": "folder" },
      "synced": { "children": [ {
            "id": "9", "name": "Phone", "type": "url", "url": "https://m.example.com/"
         } ], "id": "3", "name": "Mobile bookmarks", "type": "folder" }
   },
   "version": 1
}`

func TestParseChromeBookmarks(t *testing.T) {
	folders, bookmarks, err := importer.ParseChromeBookmarks(strings.NewReader(chromeFile))
	require.NoError(t, err)

	require.Len(t, folders, 3)
	assert.Equal(t, "Bookmarks bar", folders[0].Title)
	assert.Nil(t, folders[0].ParentID)
	assert.Equal(t, "Langs", folders[1].Title)
	require.NotNil(t, folders[1].ParentID)
	assert.Equal(t, folders[0].ID, *folders[1].ParentID)
	assert.Equal(t, "Mobile bookmarks", folders[2].Title)

	require.Len(t, bookmarks, 3)
	assert.Equal(t, "Go", bookmarks[0].Title)
	assert.Equal(t, folders[0].ID, *bookmarks[0].ParentID)
	assert.Equal(t, time.Date(2020, 12, 29, 12, 31, 0, 0, time.UTC), bookmarks[0].DateAdded)
	assert.Equal(t, folders[1].ID, *bookmarks[1].ParentID)
	assert.True(t, bookmarks[1].DateAdded.IsZero())
	assert.Equal(t, folders[2].ID, *bookmarks[2].ParentID)
}

func TestParseChromeBookmarks_Invalid(t *testing.T) {
	_, _, err := importer.ParseChromeBookmarks(strings.NewReader(`{"version": 1}`))
	assert.Error(t, err)
	_, _, err = importer.ParseChromeBookmarks(strings.NewReader(`{`))
	assert.Error(t, err)
}

func TestChromeTime(t *testing.T) {
	assert.True(t, importer.ChromeTime("").IsZero())
	assert.True(t, importer.ChromeTime("0").IsZero())
	assert.True(t, importer.ChromeTime("x").IsZero())
	assert.Equal(t, time.Unix(0, 0).UTC(), importer.ChromeTime("11644473600000000"))
	assert.Equal(t, time.Unix(1, 500_000).UTC(), importer.ChromeTime("11644473601000500"))
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		in   string
		want importer.Format
	}{
		{"<!DOCTYPE NETSCAPE-Bookmark-file-1>", importer.FormatHTML},
		{"\xef\xbb\xbf  \n<DL>", importer.FormatHTML},
		{chromeFile, importer.FormatChrome},
		{`{"foo": 1}`, importer.FormatUnknown},
		{"", importer.FormatUnknown},
		{"hello", importer.FormatUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, importer.DetectFormat([]byte(tt.in)), tt.in)
	}
}

func TestParse(t *testing.T) {
	format, folders, bookmarks, err := importer.Parse(strings.NewReader(chromeFile))
	require.NoError(t, err)
	assert.Equal(t, importer.FormatChrome, format)
	assert.Len(t, folders, 3)
	assert.Len(t, bookmarks, 3)

	format, _, bookmarks, err = importer.Parse(strings.NewReader(`<DL><p><DT><A HREF="https://a.com">A</A></DL>`))
	require.NoError(t, err)
	assert.Equal(t, importer.FormatHTML, format)
	assert.Len(t, bookmarks, 1)

	_, _, _, err = importer.Parse(strings.NewReader("plain text"))
	assert.Error(t, err)
}
