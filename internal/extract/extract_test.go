package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikbrunner/bmlens/internal/model"
)

func TestRepairTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		url   string
		want  string
	}{
		{"keeps normal title", "Go Docs", "https://go.dev", "Go Docs"},
		{"empty title uses host", "", "https://www.example.com/page", "example.com"},
		{"numeric title uses host", "12345", "https://news.ycombinator.com/item?id=1", "news.ycombinator.com"},
		{"whitespace title uses host", "   ", "https://go.dev", "go.dev"},
		{"broken url", "", "://broken", UntitledBookmark},
		{"url without host", "", "not a url", UntitledBookmark},
		{"mixed digits and letters kept", "2024 recap", "https://a.com", "2024 recap"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RepairTitle(tt.title, tt.url))
		})
	}
}

func TestBookmarks_PreOrderAndRepair(t *testing.T) {
	parent := "f1"
	roots := []model.Node{
		&model.FolderNode{
			Folder: model.Folder{ID: "f1", Title: "Dev"},
			Children: []model.Node{
				&model.BookmarkNode{Bookmark: model.Bookmark{ID: "b1", Title: "", URL: "https://www.github.com", ParentID: &parent}},
				&model.FolderNode{Folder: model.Folder{ID: "f2", Title: "Empty"}},
			},
		},
		&model.BookmarkNode{Bookmark: model.Bookmark{ID: "b2", Title: "Go", URL: "https://go.dev"}},
	}

	got := Bookmarks(roots)
	require.Len(t, got, 2)
	assert.Equal(t, "b1", got[0].ID)
	assert.Equal(t, "github.com", got[0].Title)
	assert.Equal(t, "f1", *got[0].ParentID)
	assert.Equal(t, "b2", got[1].ID)

	// source tree is untouched
	src := roots[0].(*model.FolderNode).Children[0].(*model.BookmarkNode)
	assert.Empty(t, src.Title)
}

func TestCountFolders(t *testing.T) {
	store := &model.Store{
		Folders: []model.Folder{{ID: "a", Title: "A"}, {ID: "b", Title: "B"}},
	}
	root := store.Tree()
	assert.Equal(t, 2, CountFolders([]model.Node{root}))
	assert.Equal(t, 2, CountFolders(root.Children))
}

func TestHostname(t *testing.T) {
	assert.Equal(t, "example.com", Hostname("https://WWW.Example.com:8080/x"))
	assert.Empty(t, Hostname("mailto:someone"))
}
