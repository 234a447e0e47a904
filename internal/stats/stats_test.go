package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikbrunner/bmlens/internal/model"
)

var now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func bm(title, url string, added time.Time) model.Bookmark {
	return model.Bookmark{ID: title + url, Title: title, URL: url, DateAdded: added}
}

func TestCompute(t *testing.T) {
	bookmarks := []model.Bookmark{
		bm("Go", "https://go.dev", now.Add(-time.Hour)),
		bm("Go blog", "https://www.go.dev/blog", now.Add(-6*24*time.Hour)),
		bm("Rust", "https://rust-lang.org", now.Add(-8*24*time.Hour)),
		bm("broken", "not a url", time.Time{}),
		bm("future", "https://example.com", now.Add(time.Hour)),
	}

	s := Compute(bookmarks, 4, now)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 3, s.UniqueDomains)
	assert.Equal(t, 2, s.RecentAdded)
	assert.Equal(t, 4, s.Folders)
	require.NotEmpty(t, s.TopDomains)
	assert.Equal(t, DomainCount{Domain: "go.dev", Count: 2}, s.TopDomains[0])
	assert.LessOrEqual(t, s.UniqueDomains, s.Total)
}

func TestRecentAddedWindow(t *testing.T) {
	tests := []struct {
		name  string
		added time.Time
		want  int
	}{
		{"now", now, 1},
		{"exactly seven days", now.Add(-RecentWindow), 1},
		{"just outside", now.Add(-RecentWindow - time.Millisecond), 0},
		{"unknown", time.Time{}, 0},
		{"future", now.Add(time.Millisecond), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecentAdded([]model.Bookmark{bm("x", "https://x.com", tt.added)}, now))
		})
	}
}

func TestUniqueDomainsBound(t *testing.T) {
	inputs := [][]model.Bookmark{
		nil,
		{bm("", "", time.Time{})},
		{bm("a", "https://a.com", now), bm("b", "https://b.com", now), bm("c", "mailto:x@y.z", now)},
		{bm("a", "https://a.com", now), bm("a", "https://www.a.com", now)},
	}
	for _, in := range inputs {
		s := Compute(in, 0, now)
		assert.LessOrEqual(t, s.UniqueDomains, s.Total)
	}
}

func TestTopDomains(t *testing.T) {
	bookmarks := []model.Bookmark{
		bm("", "https://b.com", now), bm("", "https://a.com", now),
		bm("", "https://c.com/1", now), bm("", "https://c.com/2", now),
	}
	got := TopDomains(bookmarks, 2)
	assert.Equal(t, []DomainCount{{"c.com", 2}, {"a.com", 1}}, got)
	assert.Len(t, TopDomains(bookmarks, 0), 3)
}

func TestForTree(t *testing.T) {
	store := model.NewStore()
	f := model.NewFolder(model.NewFolderParams{Title: "Dev"})
	store.AddFolder(f)
	store.AddFolder(model.NewFolder(model.NewFolderParams{Title: "Sub", ParentID: &f.ID}))
	store.AddBookmark(model.NewBookmark(model.NewBookmarkParams{Title: "Go", URL: "https://go.dev", ParentID: &f.ID}))

	s := ForTree(store.Tree(), now)
	assert.Equal(t, 1, s.Total)
	assert.Equal(t, 2, s.Folders)
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"The Go Programming Language", []string{"go", "programming", "language"}},
		{"a b c", nil},
		{"Go语言圣经 - 中文版", []string{"go", "语言圣经", "中文版"}},
		{"C++ and C#", nil},
		{"React.js v18", []string{"react", "js"}},
		{"東京の天気", []string{"東京の天気"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestWordCloud(t *testing.T) {
	bookmarks := []model.Bookmark{
		bm("Go tutorial", "", now),
		bm("Go blog", "", now),
		bm("Rust tutorial", "", now),
		bm("Zig", "", now),
	}
	got := WordCloud(bookmarks, 3)
	assert.Equal(t, []WordCount{{"go", 2}, {"tutorial", 2}, {"blog", 1}}, got)
	assert.Len(t, WordCloud(bookmarks, DefaultWordCloudSize), 5)
}

func TestHeatmap(t *testing.T) {
	// 2024-03-15 is a Friday
	bookmarks := []model.Bookmark{
		bm("a", "", now),
		bm("b", "", now.Add(30*time.Minute)),
		bm("c", "", now.Add(-24*time.Hour)),
		bm("d", "", time.Time{}),
	}
	grid := Heatmap(bookmarks, time.UTC)
	assert.Equal(t, 2, grid[time.Friday][12])
	assert.Equal(t, 1, grid[time.Thursday][12])

	total := 0
	for _, row := range grid {
		for _, c := range row {
			total += c
		}
	}
	assert.Equal(t, 3, total)
}
