// Package extract flattens a bookmark tree into a list of bookmarks.
package extract

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/nikbrunner/bmlens/internal/model"
)

// UntitledBookmark is the title used when neither title nor host is usable.
const UntitledBookmark = "untitled bookmark"

// Bookmarks walks roots depth-first in pre-order and returns every bookmark
// with its title repaired. Roots are not mutated.
func Bookmarks(roots []model.Node) []model.Bookmark {
	var result []model.Bookmark
	model.Walk(roots, func(n model.Node) bool {
		if bn, ok := n.(*model.BookmarkNode); ok {
			b := bn.Bookmark
			b.Title = RepairTitle(b.Title, b.URL)
			result = append(result, b)
		}
		return true
	})
	return result
}

// RepairTitle replaces an empty or purely numeric title with the URL host
// without a leading "www.".
func RepairTitle(title, rawURL string) string {
	trimmed := strings.TrimSpace(title)
	if trimmed != "" && !isNumeric(trimmed) {
		return title
	}
	if host := Hostname(rawURL); host != "" {
		return host
	}
	return UntitledBookmark
}

// Hostname returns the lowercased host of rawURL without a leading "www.",
// or an empty string when the URL has no host.
func Hostname(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// CountFolders counts folder nodes below roots, excluding the synthetic root.
func CountFolders(roots []model.Node) int {
	count := 0
	model.Walk(roots, func(n model.Node) bool {
		if f, ok := n.(*model.FolderNode); ok && !f.IsRoot() {
			count++
		}
		return true
	})
	return count
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
