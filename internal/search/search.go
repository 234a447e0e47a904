package search

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/nikbrunner/bmlens/internal/model"
)

// SearchResult represents a fuzzy search match.
type SearchResult struct {
	Bookmark       *model.Bookmark `json:"bookmark"`
	MatchedIndexes []int           `json:"matchedIndexes,omitempty"`
	Score          int             `json:"score"`
}

// bookmarkTitles implements fuzzy.Source for bookmark slice.
type bookmarkTitles []*model.Bookmark

func (bt bookmarkTitles) String(i int) string {
	return bt[i].Title
}

func (bt bookmarkTitles) Len() int {
	return len(bt)
}

// FuzzySearchBookmarks searches all bookmarks by title using fuzzy matching.
// Returns results sorted by match score (best first).
func FuzzySearchBookmarks(store *model.Store, query string) []SearchResult {
	if query == "" {
		return nil
	}

	bookmarks := make(bookmarkTitles, len(store.Bookmarks))
	for i := range store.Bookmarks {
		bookmarks[i] = &store.Bookmarks[i]
	}

	matches := fuzzy.FindFrom(query, bookmarks)

	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		results[i] = SearchResult{
			Bookmark:       bookmarks[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}

	return results
}

// FilterByTags keeps bookmarks carrying every tag, compared case-insensitively.
// Blank tags are ignored; no tags keeps everything.
func FilterByTags(bookmarks []model.Bookmark, tags []string) []model.Bookmark {
	tags = cleanTags(tags)
	if len(tags) == 0 {
		return bookmarks
	}
	var result []model.Bookmark
	for _, b := range bookmarks {
		if hasAll(b, tags) {
			result = append(result, b)
		}
	}
	return result
}

// Search combines the fuzzy title search with a tag filter. With an empty
// query every bookmark matching the tags is returned in store order.
func Search(store *model.Store, query string, tags []string) []SearchResult {
	tags = cleanTags(tags)
	query = strings.TrimSpace(query)

	if query == "" {
		if len(tags) == 0 {
			return nil
		}
		var results []SearchResult
		for i := range store.Bookmarks {
			if hasAll(store.Bookmarks[i], tags) {
				results = append(results, SearchResult{Bookmark: &store.Bookmarks[i]})
			}
		}
		return results
	}

	results := FuzzySearchBookmarks(store, query)
	if len(tags) == 0 {
		return results
	}
	filtered := results[:0]
	for _, r := range results {
		if hasAll(*r.Bookmark, tags) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func hasAll(b model.Bookmark, tags []string) bool {
	for _, t := range tags {
		if !b.HasTag(t) {
			return false
		}
	}
	return true
}

func cleanTags(tags []string) []string {
	var res []string
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			res = append(res, t)
		}
	}
	return res
}
