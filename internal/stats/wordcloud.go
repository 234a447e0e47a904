package stats

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/nikbrunner/bmlens/internal/model"
)

// DefaultWordCloudSize is the number of words a cloud holds.
const DefaultWordCloudSize = 30

// WordCount is one word cloud entry.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "of": true, "to": true,
	"in": true, "on": true, "at": true, "is": true, "by": true, "an": true,
	"or": true, "from": true, "your": true, "you": true, "how": true, "www": true,
	"com": true, "http": true, "https": true,
}

// WordCloud counts title words and returns the n most frequent, ties by word.
func WordCloud(bookmarks []model.Bookmark, n int) []WordCount {
	counts := make(map[string]int)
	for _, b := range bookmarks {
		for _, w := range Tokenize(b.Title) {
			counts[w]++
		}
	}

	out := make([]WordCount, 0, len(counts))
	for w, c := range counts {
		out = append(out, WordCount{Word: w, Count: c})
	}
	slices.SortFunc(out, func(a, b WordCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Word, b.Word)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Tokenize splits s into runs of CJK characters and runs of Latin letters.
// Latin runs are lowercased. Runs of one character and stop words are dropped.
func Tokenize(s string) []string {
	var tokens []string
	var run []rune
	runKind := 0

	flush := func() {
		if len(run) > 1 {
			w := string(run)
			if runKind == latin {
				w = strings.ToLower(w)
			}
			if !stopWords[w] {
				tokens = append(tokens, w)
			}
		}
		run = run[:0]
		runKind = 0
	}

	for _, r := range s {
		kind := classify(r)
		if kind != runKind {
			flush()
		}
		if kind != 0 {
			run = append(run, r)
			runKind = kind
		}
	}
	flush()
	return tokens
}

const (
	latin = iota + 1
	cjk
)

func classify(r rune) int {
	switch {
	case unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul):
		return cjk
	case unicode.In(r, unicode.Latin):
		return latin
	}
	return 0
}
