package model

import (
	"strings"
	"time"
)

// Bookmark represents a saved URL with metadata.
type Bookmark struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	ParentID  *string   `json:"parentId"` // nil = top level
	Tags      []string  `json:"tags,omitempty"`
	DateAdded time.Time `json:"dateAdded,omitzero"` // zero = unknown
}

// NewBookmarkParams holds parameters for creating a new Bookmark.
type NewBookmarkParams struct {
	Title    string
	URL      string
	ParentID *string
	Tags     []string
}

// NewBookmark creates a Bookmark with generated UUID and the current time.
func NewBookmark(params NewBookmarkParams) Bookmark {
	tags := params.Tags
	if tags == nil {
		tags = []string{}
	}

	return Bookmark{
		ID:        GenerateUUID(),
		Title:     params.Title,
		URL:       params.URL,
		ParentID:  params.ParentID,
		Tags:      tags,
		DateAdded: time.Now(),
	}
}

// HasTag reports whether the bookmark carries the tag (case-insensitive).
func (b Bookmark) HasTag(tag string) bool {
	for _, t := range b.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
