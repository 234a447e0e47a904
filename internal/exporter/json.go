package exporter

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/nikbrunner/bmlens/internal/model"
)

// JSONVersion is the version field of JSON exports.
const JSONVersion = "1.0"

// Document is the JSON export envelope.
type Document struct {
	Version   string           `json:"version"`
	Timestamp time.Time        `json:"timestamp"`
	Bookmarks []model.Bookmark `json:"bookmarks"`
}

// ExportJSON writes bookmarks as an indented JSON document.
func ExportJSON(w io.Writer, bookmarks []model.Bookmark, now time.Time) error {
	if bookmarks == nil {
		bookmarks = []model.Bookmark{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Document{Version: JSONVersion, Timestamp: now.UTC(), Bookmarks: bookmarks}); err != nil {
		return fmt.Errorf("encode json export: %w", err)
	}
	return nil
}
