// Package emptyfolder finds folders that hold no bookmarks at any depth.
package emptyfolder

import (
	"sort"
	"strings"

	"github.com/nikbrunner/bmlens/internal/model"
)

// EmptyFolder describes a folder with no bookmarks below it.
type EmptyFolder struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	ParentID *string `json:"parentId"`
	Path     string  `json:"path"`
	Depth    int     `json:"depth"`
}

// Find reports every empty folder below roots, deepest first. A synthetic
// root passed in roots is walked but never reported.
func Find(roots []model.Node) []EmptyFolder {
	var result []EmptyFolder
	for _, n := range roots {
		if f, ok := n.(*model.FolderNode); ok {
			if f.IsRoot() {
				collect(f.Children, nil, &result)
				continue
			}
			collect([]model.Node{f}, nil, &result)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Depth > result[j].Depth
	})
	return result
}

// collect walks post-order and reports whether all nodes are empty folders.
func collect(nodes []model.Node, path []string, out *[]EmptyFolder) bool {
	allEmpty := true
	for _, n := range nodes {
		switch n := n.(type) {
		case *model.BookmarkNode:
			allEmpty = false
		case *model.FolderNode:
			p := append(path[:len(path):len(path)], n.Title)
			if collect(n.Children, p, out) {
				*out = append(*out, EmptyFolder{
					ID:       n.ID,
					Title:    n.Title,
					ParentID: n.ParentID,
					Path:     strings.Join(p, "/"),
					Depth:    len(p),
				})
			} else {
				allEmpty = false
			}
		}
	}
	return allEmpty
}

// Prune drops folders whose ancestor is also in the list, leaving the
// folders that remove every empty subtree with one RemoveTree call each.
func Prune(folders []EmptyFolder) []EmptyFolder {
	ids := make(map[string]bool, len(folders))
	for _, f := range folders {
		ids[f.ID] = true
	}
	var result []EmptyFolder
	for _, f := range folders {
		if f.ParentID != nil && ids[*f.ParentID] {
			continue
		}
		result = append(result, f)
	}
	return result
}
