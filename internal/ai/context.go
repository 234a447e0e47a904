package ai

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nikbrunner/bmlens/internal/model"
)

const (
	maxSampleTitles = 3
	maxFolderLines  = 200
)

// BuildContext generates a compressed representation of the library's folder
// structure with a few sample titles per folder and the existing tags. It is
// appended to prompts so suggested categories follow the user's own layout.
func BuildContext(store *model.Store) string {
	var sb strings.Builder
	lines := 0

	sb.WriteString("Existing folders (with sample bookmarks):\n")
	buildFolderTree(&sb, store, nil, "", &lines)

	if tags := GetAllUniqueTags(store); len(tags) > 0 {
		sb.WriteString("\nExisting tags: ")
		sb.WriteString(strings.Join(tags, ", "))
		sb.WriteString("\n")
	}
	return sb.String()
}

func buildFolderTree(sb *strings.Builder, store *model.Store, parentID *string, path string, lines *int) {
	for _, folder := range store.GetFoldersInFolder(parentID) {
		if *lines >= maxFolderLines {
			return
		}
		currentPath := path + "/" + folder.Title
		sb.WriteString(currentPath)
		sb.WriteString("\n")
		*lines++

		bookmarks := store.GetBookmarksInFolder(&folder.ID)
		if n := min(len(bookmarks), maxSampleTitles); n > 0 {
			titles := make([]string, n)
			for i := range n {
				titles[i] = fmt.Sprintf("%q", bookmarks[i].Title)
			}
			sb.WriteString("  - ")
			sb.WriteString(strings.Join(titles, ", "))
			sb.WriteString("\n")
		}

		buildFolderTree(sb, store, &folder.ID, currentPath, lines)
	}
}

// GetAllUniqueTags returns all unique tags of the library, sorted.
func GetAllUniqueTags(store *model.Store) []string {
	set := make(map[string]bool)
	for _, b := range store.Bookmarks {
		for _, tag := range b.Tags {
			set[tag] = true
		}
	}
	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

const systemPrompt = `You sort browser bookmarks into categories.
Use only the categories you are given. Every bookmark goes into exactly one category.
Refer to bookmarks by their id.`

func buildCategorizePrompt(bookmarks []model.Bookmark, vocabulary []string, library string) string {
	var sb strings.Builder

	sb.WriteString("Categories: ")
	sb.WriteString(strings.Join(vocabulary, ", "))
	sb.WriteString("\n\n")

	if library != "" {
		sb.WriteString(library)
		sb.WriteString("\n")
	}

	sb.WriteString("Bookmarks:\n")
	for _, b := range bookmarks {
		fmt.Fprintf(&sb, "- id: %s | title: %s | url: %s\n", b.ID, b.Title, b.URL)
	}

	sb.WriteString(`
Respond with a JSON object mapping each category name to the list of bookmark ids in it, for example:
{"Development": ["id1", "id2"], "News": ["id3"]}
Omit empty categories.`)
	return sb.String()
}
