// Package storage persists the bookmark library and a small key-value store
// for notes, settings and view state.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nikbrunner/bmlens/internal/model"
)

// ErrNotFound is returned by KV.Get for missing keys.
var ErrNotFound = errors.New("key not found")

// Storage defines the interface for persisting bookmarks.
type Storage interface {
	Load() (*model.Store, error)
	Save(store *model.Store) error
}

// KV stores opaque JSON values by key.
type KV interface {
	Get(key string) (json.RawMessage, error)
	Put(key string, value json.RawMessage) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}

// Backend is a library storage with its key-value store.
type Backend interface {
	Storage
	KV
	Path() string
	Close() error
}

// Kind selects a storage backend.
type Kind string

const (
	KindAuto   Kind = "auto"
	KindJSON   Kind = "json"
	KindSQLite Kind = "sqlite"
)

const (
	jsonFileName   = "bookmarks.json"
	kvFileName     = "kv.json"
	sqliteFileName = "bookmarks.db"
)

// JSONStorage implements Backend using a JSON file for the library and a
// second JSON file for the key-value store.
type JSONStorage struct {
	path   string
	kvPath string
	mu     sync.Mutex
}

// NewJSONStorage creates a new JSONStorage with the given file path. The
// key-value file lives next to it.
func NewJSONStorage(path string) *JSONStorage {
	return &JSONStorage{path: path, kvPath: filepath.Join(filepath.Dir(path), kvFileName)}
}

// Path returns the storage file path.
func (s *JSONStorage) Path() string {
	return s.path
}

// Close is a no-op.
func (s *JSONStorage) Close() error { return nil }

// Load reads the store from the JSON file.
// Returns an empty store if the file doesn't exist.
func (s *JSONStorage) Load() (*model.Store, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.NewStore(), nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var store model.Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}

	// Ensure slices are not nil
	if store.Folders == nil {
		store.Folders = []model.Folder{}
	}
	if store.Bookmarks == nil {
		store.Bookmarks = []model.Bookmark{}
	}
	return &store, nil
}

// Save writes the store to the JSON file.
// Creates the directory if it doesn't exist.
func (s *JSONStorage) Save(store *model.Store) error {
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

// writeFileAtomic writes through a temp file and rename so readers never see a
// partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// DefaultDir returns the default data directory: ~/.config/bmlens
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "bmlens"), nil
}

// OpenStorage opens the storage backend in dir. KindAuto prefers SQLite if the
// database file exists, otherwise falls back to JSON.
func OpenStorage(dir string, kind Kind) (Backend, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	sqlitePath := filepath.Join(dir, sqliteFileName)

	switch kind {
	case KindSQLite:
		return NewSQLiteStorage(sqlitePath)
	case KindJSON:
		return NewJSONStorage(filepath.Join(dir, jsonFileName)), nil
	case KindAuto, "":
		if _, err := os.Stat(sqlitePath); err == nil {
			return NewSQLiteStorage(sqlitePath)
		}
		return NewJSONStorage(filepath.Join(dir, jsonFileName)), nil
	}
	return nil, fmt.Errorf("unknown storage kind %q", kind)
}
