package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrFolderNotEmpty = errors.New("folder is not empty")
	ErrCycle          = errors.New("folder cannot be moved into itself")
)

// Store holds all bookmarks and folders.
type Store struct {
	Folders   []Folder   `json:"folders"`
	Bookmarks []Bookmark `json:"bookmarks"`
}

// NewStore creates an empty Store with initialized slices.
func NewStore() *Store {
	return &Store{
		Folders:   []Folder{},
		Bookmarks: []Bookmark{},
	}
}

// GetFoldersInFolder returns folders with the given parent ID.
// Pass nil for top level folders.
func (s *Store) GetFoldersInFolder(parentID *string) []Folder {
	var result []Folder
	for _, f := range s.Folders {
		if ptrEqual(f.ParentID, parentID) {
			result = append(result, f)
		}
	}
	return result
}

// GetBookmarksInFolder returns bookmarks in the given folder.
// Pass nil for top level bookmarks.
func (s *Store) GetBookmarksInFolder(folderID *string) []Bookmark {
	var result []Bookmark
	for _, b := range s.Bookmarks {
		if ptrEqual(b.ParentID, folderID) {
			result = append(result, b)
		}
	}
	return result
}

// GetFolderByID finds a folder by ID, returns nil if not found.
func (s *Store) GetFolderByID(id string) *Folder {
	for i := range s.Folders {
		if s.Folders[i].ID == id {
			return &s.Folders[i]
		}
	}
	return nil
}

// GetBookmarkByID finds a bookmark by ID, returns nil if not found.
func (s *Store) GetBookmarkByID(id string) *Bookmark {
	for i := range s.Bookmarks {
		if s.Bookmarks[i].ID == id {
			return &s.Bookmarks[i]
		}
	}
	return nil
}

// Tree builds the folder tree under a synthetic root.
// Children are ordered folders first, then bookmarks, each in store order.
func (s *Store) Tree() *FolderNode {
	root := &FolderNode{Folder: Folder{ID: RootID}}
	s.fillChildren(root, nil)
	return root
}

func (s *Store) fillChildren(parent *FolderNode, parentID *string) {
	for _, f := range s.GetFoldersInFolder(parentID) {
		child := &FolderNode{Folder: f}
		id := f.ID
		s.fillChildren(child, &id)
		parent.Children = append(parent.Children, child)
	}
	for _, b := range s.GetBookmarksInFolder(parentID) {
		parent.Children = append(parent.Children, &BookmarkNode{Bookmark: b})
	}
}

// FolderPath returns the slash-joined titles from the top level to the folder.
func (s *Store) FolderPath(id string) string {
	var parts []string
	seen := map[string]bool{}
	for f := s.GetFolderByID(id); f != nil && !seen[f.ID]; {
		seen[f.ID] = true
		parts = append([]string{f.Title}, parts...)
		if f.ParentID == nil {
			break
		}
		f = s.GetFolderByID(*f.ParentID)
	}
	return strings.Join(parts, "/")
}

// Search returns bookmarks whose title or URL contains query, case-insensitive.
func (s *Store) Search(query string) []Bookmark {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var result []Bookmark
	for _, b := range s.Bookmarks {
		if strings.Contains(strings.ToLower(b.Title), q) || strings.Contains(strings.ToLower(b.URL), q) {
			result = append(result, b)
		}
	}
	return result
}

// Recent returns up to n bookmarks with the most recent DateAdded first.
func (s *Store) Recent(n int) []Bookmark {
	if n <= 0 {
		return nil
	}
	sorted := make([]Bookmark, len(s.Bookmarks))
	copy(sorted, s.Bookmarks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DateAdded.After(sorted[j].DateAdded)
	})
	return sorted[:min(n, len(sorted))]
}

// AddBookmark appends a bookmark as is.
func (s *Store) AddBookmark(b Bookmark) {
	s.Bookmarks = append(s.Bookmarks, b)
}

// AddFolder appends a folder as is.
func (s *Store) AddFolder(f Folder) {
	s.Folders = append(s.Folders, f)
}

// CreateBookmark adds a new bookmark and returns it.
func (s *Store) CreateBookmark(params NewBookmarkParams) (Bookmark, error) {
	if params.ParentID != nil && s.GetFolderByID(*params.ParentID) == nil {
		return Bookmark{}, fmt.Errorf("parent folder %s: %w", *params.ParentID, ErrNotFound)
	}
	b := NewBookmark(params)
	s.AddBookmark(b)
	return b, nil
}

// CreateFolder adds a new folder and returns it.
func (s *Store) CreateFolder(params NewFolderParams) (Folder, error) {
	if params.ParentID != nil && s.GetFolderByID(*params.ParentID) == nil {
		return Folder{}, fmt.Errorf("parent folder %s: %w", *params.ParentID, ErrNotFound)
	}
	f := NewFolder(params)
	s.AddFolder(f)
	return f, nil
}

// UpdateBookmark changes title and URL of a bookmark. Empty values are kept.
func (s *Store) UpdateBookmark(id, title, url string) error {
	b := s.GetBookmarkByID(id)
	if b == nil {
		return fmt.Errorf("bookmark %s: %w", id, ErrNotFound)
	}
	if title != "" {
		b.Title = title
	}
	if url != "" {
		b.URL = url
	}
	return nil
}

// Move sets a new parent for a bookmark or folder. Pass nil for top level.
func (s *Store) Move(id string, parentID *string) error {
	if parentID != nil && s.GetFolderByID(*parentID) == nil {
		return fmt.Errorf("parent folder %s: %w", *parentID, ErrNotFound)
	}
	if b := s.GetBookmarkByID(id); b != nil {
		b.ParentID = copyPtr(parentID)
		return nil
	}
	f := s.GetFolderByID(id)
	if f == nil {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	if parentID != nil && (id == *parentID || s.isDescendant(*parentID, id)) {
		return ErrCycle
	}
	f.ParentID = copyPtr(parentID)
	return nil
}

// RemoveBookmark deletes a single bookmark.
func (s *Store) RemoveBookmark(id string) error {
	for i := range s.Bookmarks {
		if s.Bookmarks[i].ID == id {
			s.Bookmarks = append(s.Bookmarks[:i], s.Bookmarks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("bookmark %s: %w", id, ErrNotFound)
}

// RemoveFolder deletes an empty folder.
func (s *Store) RemoveFolder(id string) error {
	if s.GetFolderByID(id) == nil {
		return fmt.Errorf("folder %s: %w", id, ErrNotFound)
	}
	if len(s.GetFoldersInFolder(&id)) > 0 || len(s.GetBookmarksInFolder(&id)) > 0 {
		return fmt.Errorf("folder %s: %w", id, ErrFolderNotEmpty)
	}
	s.Folders = removeFolders(s.Folders, map[string]bool{id: true})
	return nil
}

// RemoveTree deletes a folder with all its descendants.
func (s *Store) RemoveTree(id string) error {
	if s.GetFolderByID(id) == nil {
		return fmt.Errorf("folder %s: %w", id, ErrNotFound)
	}
	doomed := map[string]bool{id: true}
	for changed := true; changed; {
		changed = false
		for _, f := range s.Folders {
			if f.ParentID != nil && doomed[*f.ParentID] && !doomed[f.ID] {
				doomed[f.ID] = true
				changed = true
			}
		}
	}

	kept := s.Bookmarks[:0]
	for _, b := range s.Bookmarks {
		if b.ParentID == nil || !doomed[*b.ParentID] {
			kept = append(kept, b)
		}
	}
	s.Bookmarks = kept
	s.Folders = removeFolders(s.Folders, doomed)
	return nil
}

// HasBookmarkURL checks if a bookmark with the given URL exists.
func (s *Store) HasBookmarkURL(url string) bool {
	for _, b := range s.Bookmarks {
		if b.URL == url {
			return true
		}
	}
	return false
}

// ImportMerge merges imported folders and bookmarks into the store.
// Folders with the same title under the same parent are reused, bookmarks with
// a URL already present are skipped.
func (s *Store) ImportMerge(folders []Folder, bookmarks []Bookmark) (added, skipped int) {
	idMap := make(map[string]string, len(folders))

	// imported folders are ordered parent-first
	for _, f := range folders {
		var parentID *string
		if f.ParentID != nil {
			mapped := idMap[*f.ParentID]
			if mapped == "" {
				mapped = *f.ParentID
			}
			parentID = &mapped
		}

		if existing := s.findFolder(f.Title, parentID); existing != nil {
			idMap[f.ID] = existing.ID
			continue
		}

		f.ParentID = parentID
		idMap[f.ID] = f.ID
		s.AddFolder(f)
	}

	for _, b := range bookmarks {
		if s.HasBookmarkURL(b.URL) {
			skipped++
			continue
		}
		if b.ParentID != nil {
			if mapped, ok := idMap[*b.ParentID]; ok {
				b.ParentID = &mapped
			}
		}
		s.AddBookmark(b)
		added++
	}

	return added, skipped
}

func (s *Store) findFolder(title string, parentID *string) *Folder {
	for i := range s.Folders {
		if s.Folders[i].Title == title && ptrEqual(s.Folders[i].ParentID, parentID) {
			return &s.Folders[i]
		}
	}
	return nil
}

// isDescendant reports whether folder id lies below ancestor.
func (s *Store) isDescendant(id, ancestor string) bool {
	seen := map[string]bool{}
	for f := s.GetFolderByID(id); f != nil && f.ParentID != nil && !seen[f.ID]; f = s.GetFolderByID(*f.ParentID) {
		seen[f.ID] = true
		if *f.ParentID == ancestor {
			return true
		}
	}
	return false
}

func removeFolders(folders []Folder, ids map[string]bool) []Folder {
	kept := folders[:0]
	for _, f := range folders {
		if !ids[f.ID] {
			kept = append(kept, f)
		}
	}
	return kept
}

func copyPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ptrEqual compares two string pointers for equality.
func ptrEqual(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
