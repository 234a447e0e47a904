package categorize

import (
	"cmp"
	"context"
	"log"
	"maps"
	"slices"
	"strings"

	"github.com/nikbrunner/bmlens/internal/model"
)

// Delegate categorizes bookmarks remotely, typically with a language model.
// The result maps category to bookmark references, each an ID or a URL.
type Delegate interface {
	Categorize(ctx context.Context, bookmarks []model.Bookmark, vocabulary []string) (map[string][]string, error)
}

// CategorizeWith asks d to categorize bookmarks. Bookmarks the delegate did not
// mention are assigned by the rule tables. When the delegate fails every
// bookmark lands in Uncategorized.
func (c *Categorizer) CategorizeWith(ctx context.Context, d Delegate, bookmarks []model.Bookmark) []Assignment {
	if len(bookmarks) == 0 {
		return nil
	}
	result, err := d.Categorize(ctx, bookmarks, c.vocabulary)
	if err != nil {
		log.Printf("[WARN] delegated categorization failed, falling back to %s: %v", Uncategorized, err)
		out := make([]Assignment, len(bookmarks))
		for i, b := range bookmarks {
			out[i] = Assignment{Bookmark: b, Category: Uncategorized, Confidence: baseConfidence, Source: SourceFallback}
		}
		return out
	}

	byRef := make(map[string]int, len(bookmarks)*2)
	for i, b := range bookmarks {
		byRef[b.ID] = i
		if _, dup := byRef[b.URL]; !dup {
			byRef[b.URL] = i
		}
	}

	assigned := make(map[int]string, len(bookmarks))
	for _, key := range categoryOrder(result, c.vocabulary) {
		refs := result[key]
		category := strings.TrimSpace(key)
		if category == "" {
			continue
		}
		for _, ref := range refs {
			i, ok := byRef[strings.TrimSpace(ref)]
			if !ok {
				log.Printf("[DEBUG] delegate returned unknown bookmark reference %q", ref)
				continue
			}
			if _, taken := assigned[i]; !taken {
				assigned[i] = category
			}
		}
	}

	out := make([]Assignment, len(bookmarks))
	for i, b := range bookmarks {
		if cat, ok := assigned[i]; ok {
			out[i] = Assignment{Bookmark: b, Category: cat, Confidence: baseConfidence, Source: SourceAI}
			continue
		}
		out[i] = c.Categorize(b)
	}
	return out
}

// categoryOrder lists the keys of result in vocabulary order, unknown
// categories last in name order. A bookmark listed under several categories
// goes to the first one.
func categoryOrder(result map[string][]string, vocabulary []string) []string {
	rank := make(map[string]int, len(vocabulary))
	for i, v := range vocabulary {
		if _, seen := rank[v]; !seen {
			rank[v] = i
		}
	}
	rankOf := func(key string) int {
		if r, ok := rank[strings.TrimSpace(key)]; ok {
			return r
		}
		return len(vocabulary)
	}

	keys := slices.Collect(maps.Keys(result))
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(rankOf(a), rankOf(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return keys
}
