// Package stats aggregates counts, domain frequencies, a title word cloud and
// an activity heatmap over a bookmark list.
package stats

import (
	"cmp"
	"slices"
	"time"

	"github.com/nikbrunner/bmlens/internal/extract"
	"github.com/nikbrunner/bmlens/internal/model"
)

// RecentWindow is how far back a bookmark counts as recently added.
const RecentWindow = 7 * 24 * time.Hour

// DefaultTopDomains is the number of domains Compute reports.
const DefaultTopDomains = 10

// Stats summarizes a library.
type Stats struct {
	Total         int           `json:"total"`
	UniqueDomains int           `json:"uniqueDomains"`
	RecentAdded   int           `json:"recentAdded"`
	Folders       int           `json:"folders"`
	TopDomains    []DomainCount `json:"topDomains"`
}

// DomainCount is the number of bookmarks pointing at one host.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// Compute summarizes bookmarks. folders is the folder count from a tree walk.
func Compute(bookmarks []model.Bookmark, folders int, now time.Time) Stats {
	return Stats{
		Total:         len(bookmarks),
		UniqueDomains: len(domainCounts(bookmarks)),
		RecentAdded:   RecentAdded(bookmarks, now),
		Folders:       folders,
		TopDomains:    TopDomains(bookmarks, DefaultTopDomains),
	}
}

// ForTree extracts the bookmarks under root and summarizes them.
func ForTree(root *model.FolderNode, now time.Time) Stats {
	roots := []model.Node{root}
	return Compute(extract.Bookmarks(roots), extract.CountFolders(roots), now)
}

// RecentAdded counts bookmarks added within RecentWindow before now. Unknown
// and future dates are not counted.
func RecentAdded(bookmarks []model.Bookmark, now time.Time) int {
	cutoff := now.Add(-RecentWindow)
	n := 0
	for _, b := range bookmarks {
		if b.DateAdded.IsZero() || b.DateAdded.After(now) {
			continue
		}
		if !b.DateAdded.Before(cutoff) {
			n++
		}
	}
	return n
}

// TopDomains returns the n most frequent hosts, ties by name. n <= 0 returns
// all of them.
func TopDomains(bookmarks []model.Bookmark, n int) []DomainCount {
	counts := domainCounts(bookmarks)
	out := make([]DomainCount, 0, len(counts))
	for d, c := range counts {
		out = append(out, DomainCount{Domain: d, Count: c})
	}
	slices.SortFunc(out, func(a, b DomainCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Domain, b.Domain)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func domainCounts(bookmarks []model.Bookmark) map[string]int {
	counts := make(map[string]int)
	for _, b := range bookmarks {
		if host := extract.Hostname(b.URL); host != "" {
			counts[host]++
		}
	}
	return counts
}

// Heatmap counts bookmarks by weekday (Sunday first) and hour of DateAdded in
// loc. Bookmarks with unknown dates are skipped.
func Heatmap(bookmarks []model.Bookmark, loc *time.Location) [7][24]int {
	if loc == nil {
		loc = time.Local
	}
	var grid [7][24]int
	for _, b := range bookmarks {
		if b.DateAdded.IsZero() {
			continue
		}
		t := b.DateAdded.In(loc)
		grid[t.Weekday()][t.Hour()]++
	}
	return grid
}
