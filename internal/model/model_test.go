package model_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nikbrunner/bmlens/internal/model"
)

func stringPtr(s string) *string { return &s }

func testStore() *model.Store {
	return &model.Store{
		Folders: []model.Folder{
			{ID: "f1", Title: "Development", ParentID: nil},
			{ID: "f2", Title: "React", ParentID: stringPtr("f1")},
			{ID: "f3", Title: "Design", ParentID: nil},
			{ID: "f4", Title: "Hooks", ParentID: stringPtr("f2")},
		},
		Bookmarks: []model.Bookmark{
			{ID: "b1", Title: "Hacker News", URL: "https://news.ycombinator.com"},
			{ID: "b2", Title: "React Docs", URL: "https://react.dev", ParentID: stringPtr("f2")},
			{ID: "b3", Title: "useEffect", URL: "https://react.dev/reference/react/useEffect", ParentID: stringPtr("f4")},
		},
	}
}

func TestBookmark_DateAddedOmittedWhenUnknown(t *testing.T) {
	data, err := json.Marshal(model.Bookmark{ID: "b1", Title: "A", URL: "https://a.com"})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if strings.Contains(string(data), "dateAdded") {
		t.Errorf("expected no dateAdded for zero time, got %s", data)
	}

	data, err = json.Marshal(model.Bookmark{ID: "b1", DateAdded: time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if !strings.Contains(string(data), `"dateAdded":"2025-01-15T10:30:00Z"`) {
		t.Errorf("expected dateAdded, got %s", data)
	}
}

func TestBookmark_HasTag(t *testing.T) {
	b := model.Bookmark{Tags: []string{"Go", "docs"}}
	if !b.HasTag("go") {
		t.Error("expected case-insensitive tag match")
	}
	if b.HasTag("rust") {
		t.Error("unexpected tag match")
	}
}

func TestStore_GetFoldersInFolder(t *testing.T) {
	store := testStore()

	if got := len(store.GetFoldersInFolder(nil)); got != 2 {
		t.Errorf("expected 2 top level folders, got %d", got)
	}
	if got := len(store.GetFoldersInFolder(stringPtr("f1"))); got != 1 {
		t.Errorf("expected 1 folder in f1, got %d", got)
	}
	if got := len(store.GetFoldersInFolder(stringPtr("f3"))); got != 0 {
		t.Errorf("expected 0 folders in f3, got %d", got)
	}
}

func TestStore_Tree(t *testing.T) {
	root := testStore().Tree()

	if !root.IsRoot() {
		t.Fatal("expected synthetic root")
	}
	// Development, Design, then the top level bookmark
	if len(root.Children) != 3 {
		t.Fatalf("expected 3 root children, got %d", len(root.Children))
	}
	if _, ok := root.Children[2].(*model.BookmarkNode); !ok {
		t.Errorf("expected bookmarks after folders, got %T", root.Children[2])
	}

	dev, ok := root.Children[0].(*model.FolderNode)
	if !ok || dev.Title != "Development" {
		t.Fatalf("expected Development folder first, got %#v", root.Children[0])
	}
	react := dev.Children[0].(*model.FolderNode)
	if len(react.Children) != 2 {
		t.Errorf("expected Hooks folder and React Docs in React, got %d children", len(react.Children))
	}
}

func TestWalk_PreOrder(t *testing.T) {
	var ids []string
	model.Walk(testStore().Tree().Children, func(n model.Node) bool {
		ids = append(ids, n.NodeID())
		return true
	})

	want := "f1,f2,f4,b3,b2,f3,b1"
	if got := strings.Join(ids, ","); got != want {
		t.Errorf("walk order = %s, want %s", got, want)
	}
}

func TestStore_FolderPath(t *testing.T) {
	store := testStore()
	if got := store.FolderPath("f4"); got != "Development/React/Hooks" {
		t.Errorf("unexpected path %q", got)
	}
	if got := store.FolderPath("missing"); got != "" {
		t.Errorf("expected empty path for missing folder, got %q", got)
	}
}

func TestStore_Search(t *testing.T) {
	store := testStore()

	if got := store.Search("REACT"); len(got) != 2 {
		t.Errorf("expected 2 results, got %d", len(got))
	}
	if got := store.Search("ycombinator"); len(got) != 1 {
		t.Errorf("expected URL match, got %d", len(got))
	}
	if got := store.Search("  "); got != nil {
		t.Errorf("expected nil for blank query, got %v", got)
	}
}

func TestStore_Recent(t *testing.T) {
	now := time.Now()
	store := &model.Store{Bookmarks: []model.Bookmark{
		{ID: "old", DateAdded: now.Add(-48 * time.Hour)},
		{ID: "new", DateAdded: now},
		{ID: "mid", DateAdded: now.Add(-time.Hour)},
	}}

	got := store.Recent(2)
	if len(got) != 2 || got[0].ID != "new" || got[1].ID != "mid" {
		t.Errorf("unexpected recent order: %+v", got)
	}
	if len(store.Recent(10)) != 3 {
		t.Error("expected all bookmarks when n exceeds length")
	}
	if store.Recent(0) != nil {
		t.Error("expected nil for n=0")
	}
}

func TestStore_CreateAndUpdate(t *testing.T) {
	store := model.NewStore()

	folder, err := store.CreateFolder(model.NewFolderParams{Title: "Go"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := store.CreateBookmark(model.NewBookmarkParams{Title: "Go", URL: "https://go.dev", ParentID: &folder.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.ID == "" || b.DateAdded.IsZero() {
		t.Error("expected generated ID and DateAdded")
	}

	if _, err := store.CreateBookmark(model.NewBookmarkParams{URL: "https://x.com", ParentID: stringPtr("nope")}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing parent, got %v", err)
	}

	if err := store.UpdateBookmark(b.ID, "The Go Language", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := store.GetBookmarkByID(b.ID)
	if got.Title != "The Go Language" || got.URL != "https://go.dev" {
		t.Errorf("unexpected bookmark after update: %+v", got)
	}
}

func TestStore_Move(t *testing.T) {
	store := testStore()

	if err := store.Move("b1", stringPtr("f3")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p := store.GetBookmarkByID("b1").ParentID; p == nil || *p != "f3" {
		t.Errorf("expected b1 in f3, got %v", p)
	}

	if err := store.Move("f1", stringPtr("f4")); !errors.Is(err, model.ErrCycle) {
		t.Errorf("expected ErrCycle moving folder below itself, got %v", err)
	}
	if err := store.Move("f2", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.GetFolderByID("f2").ParentID != nil {
		t.Error("expected f2 at top level")
	}
}

func TestStore_RemoveFolder(t *testing.T) {
	store := testStore()

	if err := store.RemoveFolder("f1"); !errors.Is(err, model.ErrFolderNotEmpty) {
		t.Errorf("expected ErrFolderNotEmpty, got %v", err)
	}
	if err := store.RemoveFolder("f3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.GetFolderByID("f3") != nil {
		t.Error("expected f3 to be removed")
	}
	if err := store.RemoveFolder("f3"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_RemoveTree(t *testing.T) {
	store := testStore()

	if err := store.RemoveTree("f1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.Folders) != 1 || store.Folders[0].ID != "f3" {
		t.Errorf("expected only f3 left, got %+v", store.Folders)
	}
	if len(store.Bookmarks) != 1 || store.Bookmarks[0].ID != "b1" {
		t.Errorf("expected only b1 left, got %+v", store.Bookmarks)
	}
}

func TestStore_RemoveBookmark(t *testing.T) {
	store := testStore()

	if err := store.RemoveBookmark("b2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.GetBookmarkByID("b2") != nil {
		t.Error("expected b2 to be removed")
	}
	if err := store.RemoveBookmark("b2"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// === Import Merge Tests ===

func TestStore_ImportMerge_SkipsDuplicateURLs(t *testing.T) {
	store := &model.Store{
		Bookmarks: []model.Bookmark{
			{ID: "existing", Title: "Existing", URL: "https://example.com"},
		},
	}

	added, skipped := store.ImportMerge(nil, []model.Bookmark{
		{ID: "new1", Title: "Duplicate", URL: "https://example.com"},
		{ID: "new2", Title: "New Site", URL: "https://newsite.com"},
	})

	if added != 1 || skipped != 1 {
		t.Errorf("expected 1 added and 1 skipped, got %d/%d", added, skipped)
	}
	if len(store.Bookmarks) != 2 {
		t.Errorf("expected 2 bookmarks, got %d", len(store.Bookmarks))
	}
}

func TestStore_ImportMerge_ReusesFolderByTitle(t *testing.T) {
	store := &model.Store{
		Folders: []model.Folder{{ID: "existing-folder", Title: "Development"}},
	}

	store.ImportMerge(
		[]model.Folder{
			{ID: "imported-folder", Title: "Development"},
			{ID: "imported-child", Title: "Go", ParentID: stringPtr("imported-folder")},
		},
		[]model.Bookmark{
			{ID: "b1", Title: "Go", URL: "https://go.dev", ParentID: stringPtr("imported-child")},
		},
	)

	if len(store.Folders) != 2 {
		t.Fatalf("expected 2 folders (1 reused, 1 new), got %d", len(store.Folders))
	}
	child := store.GetFolderByID("imported-child")
	if child == nil || child.ParentID == nil || *child.ParentID != "existing-folder" {
		t.Errorf("expected new child under existing folder, got %+v", child)
	}
	if p := store.Bookmarks[0].ParentID; p == nil || *p != "imported-child" {
		t.Errorf("expected bookmark in imported-child, got %v", p)
	}
}
