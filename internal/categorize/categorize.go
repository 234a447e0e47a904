// Package categorize assigns bookmarks to categories using domain and title
// keyword rule tables.
package categorize

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/nikbrunner/bmlens/internal/model"
)

const (
	baseConfidence    = 0.5
	curatedBonus      = 0.3
	keywordBonus      = 0.1
	maxConfidence     = 0.95
	confidenceEpsilon = 1e-9
)

// FallbackPolicy decides the category of bookmarks no rule matched.
type FallbackPolicy string

const (
	FallbackUncategorized FallbackPolicy = "uncategorized"
	FallbackRandom        FallbackPolicy = "random"
)

// ParseFallbackPolicy parses a policy name; empty means uncategorized.
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch FallbackPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FallbackUncategorized:
		return FallbackUncategorized, nil
	case FallbackRandom:
		return FallbackRandom, nil
	}
	return "", fmt.Errorf("unknown fallback policy %q", s)
}

// Source records which stage produced an assignment.
type Source string

const (
	SourceDomain   Source = "domain"
	SourceKeyword  Source = "keyword"
	SourceFallback Source = "fallback"
	SourceAI       Source = "ai"
)

// Assignment is the category chosen for one bookmark.
type Assignment struct {
	Bookmark   model.Bookmark `json:"bookmark"`
	Category   string         `json:"category"`
	Confidence float64        `json:"confidence"`
	Source     Source         `json:"source"`
}

// Options configure a Categorizer. Zero values select the defaults.
type Options struct {
	Rules      *Rules
	Vocabulary []string
	Fallback   FallbackPolicy
	// Rand is used by FallbackRandom. Required for that policy.
	Rand *rand.Rand
}

// Categorizer applies rule tables in order. It is not safe for concurrent use
// with FallbackRandom since the random source is shared.
type Categorizer struct {
	rules      Rules
	vocabulary []string
	fallback   FallbackPolicy
	rng        *rand.Rand
}

// New creates a Categorizer.
func New(opts Options) (*Categorizer, error) {
	c := &Categorizer{
		rules:      DefaultRules(),
		vocabulary: DefaultVocabulary,
		fallback:   opts.Fallback,
		rng:        opts.Rand,
	}
	if opts.Rules != nil {
		c.rules = *opts.Rules
	}
	if len(opts.Vocabulary) > 0 {
		c.vocabulary = opts.Vocabulary
	}
	if c.fallback == "" {
		c.fallback = FallbackUncategorized
	}
	if c.fallback == FallbackRandom && c.rng == nil {
		return nil, fmt.Errorf("random fallback needs a random source")
	}
	return c, nil
}

// Vocabulary returns the category labels in display order.
func (c *Categorizer) Vocabulary() []string {
	return slices.Clone(c.vocabulary)
}

// Categorize assigns one bookmark. First match wins: domain rules, then title
// keywords, then the fallback policy.
func (c *Categorizer) Categorize(b model.Bookmark) Assignment {
	lowerURL := strings.ToLower(strings.TrimSpace(b.URL))
	lowerTitle := strings.ToLower(b.Title)

	for _, rule := range c.rules.Domains {
		if rule.Pattern.MatchString(lowerURL) {
			conf := baseConfidence
			if rule.Curated {
				conf += curatedBonus
			}
			conf += keywordBonus * float64(c.keywordHits(rule.Category, lowerTitle))
			return Assignment{Bookmark: b, Category: rule.Category, Confidence: capConfidence(conf), Source: SourceDomain}
		}
	}

	for _, rule := range c.rules.Keywords {
		if hits := countHits(rule.Keywords, lowerTitle); hits > 0 {
			conf := baseConfidence + keywordBonus*float64(c.keywordHits(rule.Category, lowerTitle))
			return Assignment{Bookmark: b, Category: rule.Category, Confidence: capConfidence(conf), Source: SourceKeyword}
		}
	}

	return Assignment{Bookmark: b, Category: c.fallbackCategory(), Confidence: baseConfidence, Source: SourceFallback}
}

// CategorizeAll assigns every bookmark, preserving input order.
func (c *Categorizer) CategorizeAll(bookmarks []model.Bookmark) []Assignment {
	out := make([]Assignment, len(bookmarks))
	for i, b := range bookmarks {
		out[i] = c.Categorize(b)
	}
	return out
}

func (c *Categorizer) fallbackCategory() string {
	if c.fallback == FallbackRandom && len(c.vocabulary) > 0 {
		return c.vocabulary[c.rng.IntN(len(c.vocabulary))]
	}
	return Uncategorized
}

// keywordHits counts the keywords of every keyword rule for category found in
// title.
func (c *Categorizer) keywordHits(category, title string) int {
	n := 0
	for _, rule := range c.rules.Keywords {
		if rule.Category == category {
			n += countHits(rule.Keywords, title)
		}
	}
	return n
}

func countHits(keywords []string, title string) int {
	n := 0
	for _, kw := range keywords {
		if kw != "" && strings.Contains(title, kw) {
			n++
		}
	}
	return n
}

func capConfidence(v float64) float64 {
	if v > maxConfidence-confidenceEpsilon {
		return maxConfidence
	}
	return v
}

// CategoryGroup is the bookmarks assigned to one category.
type CategoryGroup struct {
	Category  string           `json:"category"`
	Bookmarks []model.Bookmark `json:"bookmarks"`
}

// Group buckets assignments by category. Groups follow vocabulary order;
// categories outside the vocabulary come after, sorted by name.
func Group(assignments []Assignment, vocabulary []string) []CategoryGroup {
	buckets := make(map[string][]model.Bookmark)
	for _, a := range assignments {
		buckets[a.Category] = append(buckets[a.Category], a.Bookmark)
	}

	var out []CategoryGroup
	seen := make(map[string]bool, len(vocabulary))
	for _, cat := range vocabulary {
		seen[cat] = true
		if bs, ok := buckets[cat]; ok {
			out = append(out, CategoryGroup{Category: cat, Bookmarks: bs})
		}
	}

	var extra []string
	for cat := range buckets {
		if !seen[cat] {
			extra = append(extra, cat)
		}
	}
	slices.Sort(extra)
	for _, cat := range extra {
		out = append(out, CategoryGroup{Category: cat, Bookmarks: buckets[cat]})
	}
	return out
}

// Lookup maps bookmark ID to assigned category.
func Lookup(assignments []Assignment) map[string]string {
	m := make(map[string]string, len(assignments))
	for _, a := range assignments {
		m[a.Bookmark.ID] = a.Category
	}
	return m
}
