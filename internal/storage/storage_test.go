package storage_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nikbrunner/bmlens/internal/model"
	"github.com/nikbrunner/bmlens/internal/storage"
)

func sampleStore() *model.Store {
	folderID := "f1"
	childID := "f2"
	return &model.Store{
		Folders: []model.Folder{
			{ID: folderID, Title: "Development"},
			{ID: childID, Title: "Go", ParentID: &folderID},
		},
		Bookmarks: []model.Bookmark{
			{
				ID:        "b1",
				Title:     "Test",
				URL:       "https://example.com",
				ParentID:  &childID,
				Tags:      []string{"test", "example"},
				DateAdded: time.Date(2024, 1, 2, 3, 4, 5, 6000, time.UTC),
			},
			{ID: "b2", Title: "No date", URL: "https://no-date.example", Tags: []string{}},
		},
	}
}

// backends returns a fresh backend of each kind.
func backends(t *testing.T) map[string]storage.Backend {
	t.Helper()
	dir := t.TempDir()
	sqlite, err := storage.NewSQLiteStorage(filepath.Join(dir, "sqlite", "bookmarks.db"))
	if err != nil {
		t.Fatalf("failed to create sqlite storage: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]storage.Backend{
		"json":   storage.NewJSONStorage(filepath.Join(dir, "json", "bookmarks.json")),
		"sqlite": sqlite,
	}
}

func TestBackend_SaveAndLoad(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := sampleStore()
			if err := s.Save(store); err != nil {
				t.Fatalf("failed to save: %v", err)
			}

			loaded, err := s.Load()
			if err != nil {
				t.Fatalf("failed to load: %v", err)
			}

			if len(loaded.Folders) != 2 {
				t.Fatalf("expected 2 folders, got %d", len(loaded.Folders))
			}
			if len(loaded.Bookmarks) != 2 {
				t.Fatalf("expected 2 bookmarks, got %d", len(loaded.Bookmarks))
			}

			f := loaded.Folders[1]
			if f.Title != "Go" || f.ParentID == nil || *f.ParentID != "f1" {
				t.Errorf("unexpected folder %+v", f)
			}
			if loaded.Folders[0].ParentID != nil {
				t.Error("expected top level folder to keep nil ParentID")
			}

			b := loaded.Bookmarks[0]
			if b.Title != "Test" || b.URL != "https://example.com" {
				t.Errorf("unexpected bookmark %+v", b)
			}
			if b.ParentID == nil || *b.ParentID != "f2" {
				t.Errorf("expected ParentID f2, got %v", b.ParentID)
			}
			if len(b.Tags) != 2 || b.Tags[0] != "test" || b.Tags[1] != "example" {
				t.Errorf("expected tags [test example], got %v", b.Tags)
			}
			if !b.DateAdded.Equal(store.Bookmarks[0].DateAdded) {
				t.Errorf("expected DateAdded %v, got %v", store.Bookmarks[0].DateAdded, b.DateAdded)
			}

			nd := loaded.Bookmarks[1]
			if !nd.DateAdded.IsZero() {
				t.Errorf("expected unknown DateAdded to stay zero, got %v", nd.DateAdded)
			}
			if nd.ParentID != nil {
				t.Error("expected nil ParentID")
			}
			if nd.Tags == nil {
				t.Error("expected non-nil tags")
			}
		})
	}
}

func TestBackend_LoadEmpty(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store, err := s.Load()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if store.Folders == nil || store.Bookmarks == nil {
				t.Error("expected non-nil slices")
			}
			if len(store.Folders) != 0 || len(store.Bookmarks) != 0 {
				t.Error("expected empty store")
			}
		})
	}
}

func TestBackend_PreservesOrder(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := model.NewStore()
			for _, title := range []string{"Zeta", "Alpha", "Mu"} {
				store.AddFolder(model.Folder{ID: title, Title: title})
				store.AddBookmark(model.Bookmark{ID: "b" + title, Title: title, URL: "https://" + title})
			}
			store.RemoveBookmark("bAlpha")
			store.AddBookmark(model.Bookmark{ID: "bAlpha", Title: "Alpha", URL: "https://Alpha"})

			if err := s.Save(store); err != nil {
				t.Fatalf("failed to save: %v", err)
			}
			loaded, err := s.Load()
			if err != nil {
				t.Fatalf("failed to load: %v", err)
			}

			for i, want := range []string{"Zeta", "Alpha", "Mu"} {
				if loaded.Folders[i].Title != want {
					t.Errorf("folder %d: expected %s, got %s", i, want, loaded.Folders[i].Title)
				}
			}
			for i, want := range []string{"Zeta", "Mu", "Alpha"} {
				if loaded.Bookmarks[i].Title != want {
					t.Errorf("bookmark %d: expected %s, got %s", i, want, loaded.Bookmarks[i].Title)
				}
			}
		})
	}
}

func TestBackend_SaveReplaces(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Save(sampleStore()); err != nil {
				t.Fatalf("failed to save: %v", err)
			}
			store := sampleStore()
			store.RemoveTree("f1")
			if err := s.Save(store); err != nil {
				t.Fatalf("failed to save: %v", err)
			}
			loaded, err := s.Load()
			if err != nil {
				t.Fatalf("failed to load: %v", err)
			}
			if len(loaded.Folders) != 0 || len(loaded.Bookmarks) != 1 {
				t.Errorf("expected only b2 left, got %d folders %d bookmarks", len(loaded.Folders), len(loaded.Bookmarks))
			}
		})
	}
}

func TestBackend_KV(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get("note:b1"); !errors.Is(err, storage.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			if err := s.Put("note:b1", json.RawMessage(`"read later"`)); err != nil {
				t.Fatalf("put: %v", err)
			}
			if err := s.Put("note:b2", json.RawMessage(`"second"`)); err != nil {
				t.Fatalf("put: %v", err)
			}
			if err := s.Put("note_x", json.RawMessage(`1`)); err != nil {
				t.Fatalf("put: %v", err)
			}
			if err := s.Put("note:b1", json.RawMessage(`"updated"`)); err != nil {
				t.Fatalf("put: %v", err)
			}
			if err := s.Put("bad", json.RawMessage(`{`)); err == nil {
				t.Error("expected error for invalid json")
			}

			var note string
			if err := storage.GetJSON(s, "note:b1", &note); err != nil {
				t.Fatalf("get: %v", err)
			}
			if note != "updated" {
				t.Errorf("expected updated note, got %q", note)
			}

			keys, err := s.Keys("note:")
			if err != nil {
				t.Fatalf("keys: %v", err)
			}
			if len(keys) != 2 || keys[0] != "note:b1" || keys[1] != "note:b2" {
				t.Errorf("expected [note:b1 note:b2], got %v", keys)
			}

			if err := s.Delete("note:b1"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if err := s.Delete("missing"); err != nil {
				t.Fatalf("delete missing: %v", err)
			}
			if _, err := s.Get("note:b1"); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("expected ErrNotFound after delete, got %v", err)
			}

			type settings struct {
				Provider string `json:"provider"`
			}
			if err := storage.PutJSON(s, "settings:ai", settings{Provider: "gemini"}); err != nil {
				t.Fatalf("put json: %v", err)
			}
			var got settings
			if err := storage.GetJSON(s, "settings:ai", &got); err != nil || got.Provider != "gemini" {
				t.Errorf("expected gemini provider, got %+v (%v)", got, err)
			}
		})
	}
}

func TestJSONStorage_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "dir", "bookmarks.json")

	s := storage.NewJSONStorage(path)
	if err := s.Save(model.NewStore()); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("expected file to be created")
	}
}

func TestJSONStorage_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := storage.NewJSONStorage(path).Load(); err == nil {
		t.Error("expected error for corrupt file")
	}
}

func TestOpenStorage(t *testing.T) {
	dir := t.TempDir()

	s, err := storage.OpenStorage(dir, storage.KindAuto)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if filepath.Base(s.Path()) != "bookmarks.json" {
		t.Errorf("expected json fallback, got %s", s.Path())
	}

	sq, err := storage.OpenStorage(dir, storage.KindSQLite)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	_ = sq.Close()

	s, err = storage.OpenStorage(dir, storage.KindAuto)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if filepath.Base(s.Path()) != "bookmarks.db" {
		t.Errorf("expected sqlite once the db exists, got %s", s.Path())
	}

	if _, err := storage.OpenStorage(dir, "redis"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
