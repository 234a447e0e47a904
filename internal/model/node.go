package model

// RootID is the ID of the synthetic tree root returned by Store.Tree.
const RootID = "0"

// Node is an element of the bookmark tree: either *FolderNode or *BookmarkNode.
type Node interface {
	NodeID() string
	NodeTitle() string
	node()
}

// FolderNode is a folder with its ordered children.
type FolderNode struct {
	Folder
	Children []Node
}

// BookmarkNode is a leaf of the tree.
type BookmarkNode struct {
	Bookmark
}

func (f *FolderNode) NodeID() string    { return f.ID }
func (f *FolderNode) NodeTitle() string { return f.Title }
func (*FolderNode) node()               {}

func (b *BookmarkNode) NodeID() string    { return b.ID }
func (b *BookmarkNode) NodeTitle() string { return b.Title }
func (*BookmarkNode) node()               {}

// IsRoot reports whether the folder is the synthetic tree root.
func (f *FolderNode) IsRoot() bool {
	return f.ID == RootID && f.ParentID == nil
}

// Walk visits nodes depth-first in pre-order. Returning false from fn skips
// the children of a folder.
func Walk(nodes []Node, fn func(n Node) bool) {
	for _, n := range nodes {
		descend := fn(n)
		if f, ok := n.(*FolderNode); ok && descend {
			Walk(f.Children, fn)
		}
	}
}
