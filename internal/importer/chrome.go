package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nikbrunner/bmlens/internal/model"
)

// seconds between 1601-01-01 and 1970-01-01, the Chrome timestamp epoch offset
const chromeEpochOffset = 11644473600

type chromeFile struct {
	Roots map[string]json.RawMessage `json:"roots"`
}

type chromeNode struct {
	Name      string       `json:"name"`
	Type      string       `json:"type"`
	URL       string       `json:"url"`
	DateAdded string       `json:"date_added"`
	Children  []chromeNode `json:"children"`
}

// chrome root keys in the order the browser shows them
var chromeRoots = []string{"bookmark_bar", "other", "synced"}

// ParseChromeBookmarks parses a Chrome/Chromium "Bookmarks" JSON file. Each
// root (bookmark bar, other, mobile) becomes a top-level folder.
func ParseChromeBookmarks(r io.Reader) ([]model.Folder, []model.Bookmark, error) {
	var file chromeFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, nil, fmt.Errorf("parse chrome bookmarks: %w", err)
	}
	if file.Roots == nil {
		return nil, nil, fmt.Errorf("parse chrome bookmarks: no roots")
	}

	var folders []model.Folder
	var bookmarks []model.Bookmark

	var walk func(n chromeNode, parentID *string)
	walk = func(n chromeNode, parentID *string) {
		switch n.Type {
		case "url":
			if n.URL == "" {
				return
			}
			bookmarks = append(bookmarks, model.Bookmark{
				ID:        model.GenerateUUID(),
				Title:     strings.TrimSpace(n.Name),
				URL:       n.URL,
				ParentID:  parentID,
				Tags:      []string{},
				DateAdded: ChromeTime(n.DateAdded),
			})
		case "folder":
			folder := model.NewFolder(model.NewFolderParams{Title: strings.TrimSpace(n.Name), ParentID: parentID})
			folders = append(folders, folder)
			for _, c := range n.Children {
				walk(c, &folder.ID)
			}
		}
	}

	for _, key := range chromeRoots {
		raw, ok := file.Roots[key]
		if !ok {
			continue
		}
		var root chromeNode
		if err := json.Unmarshal(raw, &root); err != nil {
			return nil, nil, fmt.Errorf("parse chrome root %s: %w", key, err)
		}
		if len(root.Children) == 0 {
			continue
		}
		root.Type = "folder"
		walk(root, nil)
	}
	return folders, bookmarks, nil
}

// ChromeTime converts a Chrome timestamp, microseconds since 1601-01-01 UTC,
// to a time. Zero and malformed values are unknown.
func ChromeTime(s string) time.Time {
	us, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || us <= 0 {
		return time.Time{}
	}
	sec := us/1_000_000 - chromeEpochOffset
	nsec := (us % 1_000_000) * 1000
	return time.Unix(sec, nsec).UTC()
}
