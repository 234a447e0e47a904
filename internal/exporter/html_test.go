package exporter

import (
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/golden"

	"github.com/nikbrunner/bmlens/internal/model"
)

func TestExportHTML_EmptyStore(t *testing.T) {
	store := model.NewStore()

	html := ExportHTML(store)

	// Should have basic structure even when empty
	if !strings.Contains(html, "<!DOCTYPE NETSCAPE-Bookmark-file-1>") {
		t.Error("expected DOCTYPE declaration")
	}
	if !strings.Contains(html, "<TITLE>Bookmarks</TITLE>") {
		t.Error("expected TITLE element")
	}
	if !strings.Contains(html, "<H1>Bookmarks</H1>") {
		t.Error("expected H1 element")
	}
}

func TestExportHTML_SingleBookmark(t *testing.T) {
	store := model.NewStore()
	store.AddBookmark(model.Bookmark{
		ID:        "b1",
		Title:     "GitHub",
		URL:       "https://github.com",
		DateAdded: time.Unix(1700000000, 0),
	})

	html := ExportHTML(store)

	if !strings.Contains(html, `<A HREF="https://github.com"`) {
		t.Error("expected bookmark URL")
	}
	if !strings.Contains(html, "GitHub</A>") {
		t.Error("expected bookmark title")
	}
	if !strings.Contains(html, `ADD_DATE="1700000000"`) {
		t.Error("expected ADD_DATE timestamp")
	}
}

func TestExportHTML_UnknownDate(t *testing.T) {
	store := model.NewStore()
	store.AddBookmark(model.Bookmark{ID: "b1", Title: "GitHub", URL: "https://github.com"})

	html := ExportHTML(store)

	if strings.Contains(html, "ADD_DATE") {
		t.Error("ADD_DATE should be omitted for unknown dates")
	}
	if !strings.Contains(html, `<DT><A HREF="https://github.com">GitHub</A>`) {
		t.Error("expected bare bookmark line")
	}
}

func TestExportHTML_BookmarkInFolder(t *testing.T) {
	store := model.NewStore()

	folderID := "f1"
	store.AddFolder(model.Folder{ID: folderID, Title: "Development"})
	store.AddBookmark(model.Bookmark{
		ID:        "b1",
		Title:     "GitHub",
		URL:       "https://github.com",
		ParentID:  &folderID,
		DateAdded: time.Unix(1700000000, 0),
	})

	html := ExportHTML(store)

	// Folder should come before its bookmark
	folderIdx := strings.Index(html, "Development</H3>")
	bookmarkIdx := strings.Index(html, "GitHub</A>")

	if folderIdx == -1 {
		t.Fatal("folder not found in output")
	}
	if bookmarkIdx == -1 {
		t.Fatal("bookmark not found in output")
	}
	if folderIdx > bookmarkIdx {
		t.Error("expected folder to come before its bookmark")
	}
}

func TestExportHTML_NestedFolders(t *testing.T) {
	store := model.NewStore()

	parentID := "f1"
	childID := "f2"
	store.AddFolder(model.Folder{ID: parentID, Title: "Development"})
	store.AddFolder(model.Folder{ID: childID, Title: "React", ParentID: &parentID})
	store.AddBookmark(model.Bookmark{
		ID:       "b1",
		Title:    "TanStack Router",
		URL:      "https://tanstack.com/router",
		ParentID: &childID,
	})

	html := ExportHTML(store)

	devIdx := strings.Index(html, "Development</H3>")
	reactIdx := strings.Index(html, "React</H3>")
	tanstackIdx := strings.Index(html, "TanStack Router</A>")

	if devIdx == -1 || reactIdx == -1 || tanstackIdx == -1 {
		t.Fatal("missing elements in output")
	}
	if devIdx >= reactIdx || reactIdx >= tanstackIdx {
		t.Error("expected proper nesting order: Development > React > TanStack Router")
	}
	if !strings.Contains(html, "            <DT><A HREF=\"https://tanstack.com/router\">") {
		t.Error("expected bookmark indented three levels")
	}
}

func TestExportHTML_EscapesSpecialCharacters(t *testing.T) {
	store := model.NewStore()
	store.AddBookmark(model.Bookmark{
		ID:    "b1",
		Title: "Test <script>alert('xss')</script>",
		URL:   "https://example.com?foo=bar&baz=qux",
	})

	html := ExportHTML(store)

	if strings.Contains(html, "<script>") {
		t.Error("script tag should be escaped")
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Error("expected escaped script tag")
	}
	if strings.Contains(html, "foo=bar&baz") {
		t.Error("ampersand should be escaped in URL")
	}
	if !strings.Contains(html, "foo=bar&amp;baz") {
		t.Error("expected escaped ampersand in URL")
	}
}

func TestExportHTMLList_SingleBookmark(t *testing.T) {
	html := ExportHTMLList([]model.Bookmark{{Title: "A", URL: "https://a.com"}})

	const want = `<DT><A HREF="https://a.com">A</A>`
	count := 0
	for _, line := range strings.Split(html, "\n") {
		if strings.TrimSpace(line) == want {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one %q line, got %d", want, count)
	}

	barIdx := strings.Index(html, `<DT><H3 PERSONAL_TOOLBAR_FOLDER="true">Bookmarks bar</H3>`)
	if barIdx == -1 || barIdx > strings.Index(html, want) {
		t.Error("expected bookmark nested under the bookmarks bar header")
	}
}

func TestExportHTMLList_Golden(t *testing.T) {
	html := ExportHTMLList([]model.Bookmark{
		{Title: "A", URL: "https://a.com"},
		{Title: "B <b>", URL: "https://b.com/?x=1&y=2", DateAdded: time.Unix(1700000000, 0), Tags: []string{"go", "web"}},
	})
	golden.Assert(t, html, "list.golden")
}
