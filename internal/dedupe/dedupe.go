// Package dedupe finds redundant bookmarks by normalized URL and title.
package dedupe

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nikbrunner/bmlens/internal/model"
)

// minTitleLen is the rune length a normalized title must exceed to be grouped.
const minTitleLen = 3

// Kind tells how a group was formed.
type Kind string

const (
	KindURL   Kind = "url"
	KindTitle Kind = "title"
)

// Group is a set of bookmarks sharing a normalized key. Always 2+ bookmarks.
type Group struct {
	Key       string           `json:"key"`
	Kind      Kind             `json:"kind"`
	Bookmarks []model.Bookmark `json:"bookmarks"`
}

// FindDuplicates groups bookmarks by normalized URL, then groups the rest by
// normalized title. URL groups come first, each list in first-seen order.
// A bookmark appears in at most one group.
func FindDuplicates(bookmarks []model.Bookmark) []Group {
	urlGroups := groupBy(bookmarks, func(b model.Bookmark) string {
		return NormalizeURL(b.URL)
	})

	grouped := make(map[int]bool)
	var result []Group
	for _, g := range urlGroups {
		if len(g.idx) < 2 {
			continue
		}
		result = append(result, g.toGroup(KindURL, bookmarks))
		for _, i := range g.idx {
			grouped[i] = true
		}
	}

	titleGroups := groupBy(bookmarks, func(b model.Bookmark) string {
		return NormalizeTitle(b.Title)
	})
	for _, g := range titleGroups {
		if utf8.RuneCountInString(g.key) <= minTitleLen {
			continue
		}
		var idx []int
		for _, i := range g.idx {
			if !grouped[i] {
				idx = append(idx, i)
			}
		}
		if len(idx) < 2 {
			continue
		}
		result = append(result, keyed{key: g.key, idx: idx}.toGroup(KindTitle, bookmarks))
	}

	return result
}

type keyed struct {
	key string
	idx []int
}

func (k keyed) toGroup(kind Kind, bookmarks []model.Bookmark) Group {
	g := Group{Key: k.key, Kind: kind, Bookmarks: make([]model.Bookmark, len(k.idx))}
	for i, idx := range k.idx {
		g.Bookmarks[i] = bookmarks[idx]
	}
	return g
}

// groupBy buckets bookmark indexes by key, preserving first-seen key order.
func groupBy(bookmarks []model.Bookmark, keyFn func(model.Bookmark) string) []keyed {
	pos := make(map[string]int)
	var groups []keyed
	for i, b := range bookmarks {
		key := keyFn(b)
		if key == "" {
			continue
		}
		p, ok := pos[key]
		if !ok {
			p = len(groups)
			pos[key] = p
			groups = append(groups, keyed{key: key})
		}
		groups[p].idx = append(groups[p].idx, i)
	}
	return groups
}

// KeepPolicy decides which bookmark of a group survives cleanup.
type KeepPolicy string

const (
	KeepNewest KeepPolicy = "newest"
	KeepOldest KeepPolicy = "oldest"
)

// ParseKeepPolicy converts a config value into a KeepPolicy.
func ParseKeepPolicy(s string) (KeepPolicy, error) {
	switch KeepPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case KeepNewest, "":
		return KeepNewest, nil
	case KeepOldest:
		return KeepOldest, nil
	default:
		return "", fmt.Errorf("unknown keep policy %q", s)
	}
}

// Keep returns the index of the bookmark to retain. Ties keep the first seen.
// A known DateAdded always wins over an unknown one.
func (p KeepPolicy) Keep(group []model.Bookmark) int {
	best := 0
	for i := 1; i < len(group); i++ {
		a, b := group[i].DateAdded, group[best].DateAdded
		if p == KeepOldest {
			if !a.IsZero() && (b.IsZero() || a.Before(b)) {
				best = i
			}
			continue
		}
		if a.After(b) {
			best = i
		}
	}
	return best
}

// PlanRemoval lists every bookmark of the groups except the one each group keeps.
func PlanRemoval(groups []Group, policy KeepPolicy) []model.Bookmark {
	var doomed []model.Bookmark
	for _, g := range groups {
		keep := policy.Keep(g.Bookmarks)
		for i, b := range g.Bookmarks {
			if i != keep {
				doomed = append(doomed, b)
			}
		}
	}
	return doomed
}
