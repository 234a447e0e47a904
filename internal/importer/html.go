package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/nikbrunner/bmlens/internal/model"
)

// ParseHTMLBookmarks parses Netscape bookmark HTML and returns folders + bookmarks.
// Missing ADD_DATE leaves DateAdded unknown; TAGS become bookmark tags.
func ParseHTMLBookmarks(r io.Reader) ([]model.Folder, []model.Bookmark, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parse bookmark html: %w", err)
	}

	var folders []model.Folder
	var bookmarks []model.Bookmark

	// stack of folder IDs, empty = top level
	var folderStack []string
	// folder waiting to be pushed on the next DL
	pendingFolder := ""

	parent := func() *string {
		if len(folderStack) == 0 {
			return nil
		}
		id := folderStack[len(folderStack)-1]
		return &id
	}

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h3":
				title := getTextContent(n)
				if title == "" {
					return
				}
				folder := model.NewFolder(model.NewFolderParams{Title: title, ParentID: parent()})
				folders = append(folders, folder)
				pendingFolder = folder.ID
				return

			case "a":
				href := getAttr(n, "href")
				if href == "" {
					return
				}
				bookmarks = append(bookmarks, model.Bookmark{
					ID:        model.GenerateUUID(),
					Title:     getTextContent(n),
					URL:       href,
					ParentID:  parent(),
					Tags:      parseTags(getAttr(n, "tags")),
					DateAdded: parseUnix(getAttr(n, "add_date")),
				})
				return

			case "dl":
				pushed := false
				if pendingFolder != "" {
					folderStack = append(folderStack, pendingFolder)
					pendingFolder = ""
					pushed = true
				}
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					parse(c)
				}
				if pushed {
					folderStack = folderStack[:len(folderStack)-1]
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)
	return folders, bookmarks, nil
}

// parseUnix parses an ADD_DATE value in seconds since the epoch. Zero, empty
// and malformed values are unknown.
func parseUnix(s string) time.Time {
	ts, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || ts <= 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}

func parseTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}
