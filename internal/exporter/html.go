package exporter

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/nikbrunner/bmlens/internal/model"
)

// BookmarksBarTitle is the folder header flat exports are nested under.
const BookmarksBarTitle = "Bookmarks bar"

// ExportHTML exports the store to Netscape bookmark HTML format, keeping the
// folder tree.
func ExportHTML(store *model.Store) string {
	var b strings.Builder
	writeHeader(&b)
	writeNodes(&b, store.Tree().Children, 1)
	b.WriteString("</DL><p>\n")
	return b.String()
}

// ExportHTMLList exports a flat bookmark list to Netscape bookmark HTML
// format, nested under a single bookmarks bar folder.
func ExportHTMLList(bookmarks []model.Bookmark) string {
	var b strings.Builder
	writeHeader(&b)
	prefix := strings.Repeat("    ", 1)
	fmt.Fprintf(&b, "%s<DT><H3 PERSONAL_TOOLBAR_FOLDER=\"true\">%s</H3>\n", prefix, BookmarksBarTitle)
	fmt.Fprintf(&b, "%s<DL><p>\n", prefix)
	for _, bm := range bookmarks {
		writeBookmark(&b, bm, 2)
	}
	fmt.Fprintf(&b, "%s</DL><p>\n", prefix)
	b.WriteString("</DL><p>\n")
	return b.String()
}

func writeHTML(w io.Writer, doc string) error {
	if _, err := io.WriteString(w, doc); err != nil {
		return fmt.Errorf("write html: %w", err)
	}
	return nil
}

func writeHeader(b *strings.Builder) {
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")
}

// writeNodes recursively writes folders and bookmarks.
func writeNodes(b *strings.Builder, nodes []model.Node, indent int) {
	prefix := strings.Repeat("    ", indent)
	for _, n := range nodes {
		switch n := n.(type) {
		case *model.FolderNode:
			fmt.Fprintf(b, "%s<DT><H3>%s</H3>\n", prefix, html.EscapeString(n.Title))
			fmt.Fprintf(b, "%s<DL><p>\n", prefix)
			writeNodes(b, n.Children, indent+1)
			fmt.Fprintf(b, "%s</DL><p>\n", prefix)
		case *model.BookmarkNode:
			writeBookmark(b, n.Bookmark, indent)
		}
	}
}

// writeBookmark omits ADD_DATE and TAGS when unknown or empty.
func writeBookmark(b *strings.Builder, bm model.Bookmark, indent int) {
	prefix := strings.Repeat("    ", indent)
	fmt.Fprintf(b, "%s<DT><A HREF=\"%s\"", prefix, html.EscapeString(bm.URL))
	if !bm.DateAdded.IsZero() {
		fmt.Fprintf(b, " ADD_DATE=\"%d\"", bm.DateAdded.Unix())
	}
	if len(bm.Tags) > 0 {
		fmt.Fprintf(b, " TAGS=\"%s\"", html.EscapeString(strings.Join(bm.Tags, ",")))
	}
	fmt.Fprintf(b, ">%s</A>\n", html.EscapeString(bm.Title))
}
