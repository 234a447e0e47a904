package library

import (
	"errors"
	"fmt"
	"slices"

	"github.com/nikbrunner/bmlens/internal/storage"
)

// View names a screen of the user interface.
type View string

const (
	ViewTree         View = "tree"
	ViewStats        View = "stats"
	ViewWordCloud    View = "wordcloud"
	ViewDuplicates   View = "duplicates"
	ViewEmptyFolders View = "empty-folders"
	ViewInvalid      View = "invalid"
	ViewCategories   View = "categories"
	ViewSearch       View = "search"
)

// Views lists every known view.
var Views = []View{ViewTree, ViewStats, ViewWordCloud, ViewDuplicates, ViewEmptyFolders, ViewInvalid, ViewCategories, ViewSearch}

// StateKey is the key-value store key of the application state.
const StateKey = "state:app"

const notePrefix = "note:"

// AppState is the persisted user interface state.
type AppState struct {
	ActiveView      View     `json:"activeView"`
	SelectedTags    []string `json:"selectedTags"`
	ExpandedFolders []string `json:"expandedFolders"`
}

// DefaultState is the state of a fresh installation.
func DefaultState() AppState {
	return AppState{ActiveView: ViewTree, SelectedTags: []string{}, ExpandedFolders: []string{}}
}

// Validate checks the active view and normalizes nil lists.
func (s *AppState) Validate() error {
	if s.ActiveView == "" {
		s.ActiveView = ViewTree
	}
	if !slices.Contains(Views, s.ActiveView) {
		return fmt.Errorf("unknown view %q", s.ActiveView)
	}
	if s.SelectedTags == nil {
		s.SelectedTags = []string{}
	}
	if s.ExpandedFolders == nil {
		s.ExpandedFolders = []string{}
	}
	return nil
}

// State returns the stored application state or the default one.
func (l *Library) State() (AppState, error) {
	st := DefaultState()
	err := storage.GetJSON(l.backend, StateKey, &st)
	if errors.Is(err, storage.ErrNotFound) {
		return DefaultState(), nil
	}
	if err != nil {
		return DefaultState(), fmt.Errorf("read state: %w", err)
	}
	if err := st.Validate(); err != nil {
		return DefaultState(), nil //nolint:nilerr // stale state is replaced
	}
	return st, nil
}

// SetState validates and stores the application state.
func (l *Library) SetState(st AppState) (AppState, error) {
	if err := st.Validate(); err != nil {
		return st, err
	}
	if err := storage.PutJSON(l.backend, StateKey, st); err != nil {
		return st, fmt.Errorf("store state: %w", err)
	}
	return st, nil
}

// Note returns the note of a bookmark, "" when none is stored.
func (l *Library) Note(id string) (string, error) {
	var note string
	err := storage.GetJSON(l.backend, notePrefix+id, &note)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read note %s: %w", id, err)
	}
	return note, nil
}

// SetNote stores the note of a bookmark. An empty note deletes it.
func (l *Library) SetNote(id, note string) error {
	if note == "" {
		if err := l.backend.Delete(notePrefix + id); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("delete note %s: %w", id, err)
		}
		return nil
	}
	if err := storage.PutJSON(l.backend, notePrefix+id, note); err != nil {
		return fmt.Errorf("store note %s: %w", id, err)
	}
	return nil
}

// Notes returns all stored notes by bookmark ID.
func (l *Library) Notes() (map[string]string, error) {
	keys, err := l.backend.Keys(notePrefix)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	notes := make(map[string]string, len(keys))
	for _, k := range keys {
		var note string
		if err := storage.GetJSON(l.backend, k, &note); err != nil {
			return nil, fmt.Errorf("read %s: %w", k, err)
		}
		notes[k[len(notePrefix):]] = note
	}
	return notes, nil
}
