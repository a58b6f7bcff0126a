package wiki

import (
	"sort"
	"strings"

	"github.com/bucketwiki/bucketwiki/internal/index"
)

// TreeNode is a derived navigation node; it is never persisted. Folder
// nodes exist only because some page path passes through them.
type TreeNode struct {
	Path     string      `json:"path"`
	Title    string      `json:"title"`
	IsFolder bool        `json:"isFolder"`
	Children []*TreeNode `json:"children,omitempty"`
}

// BuildTree groups the flat page index into a folder/page tree. Shared
// folder prefixes are de-duplicated across entries. Ordering at every
// level is folders before pages, then case-insensitive alphabetical by
// title.
func BuildTree(entries []index.PageEntry) []*TreeNode {
	root := &TreeNode{IsFolder: true}
	folders := map[string]*TreeNode{"": root}

	for _, e := range entries {
		parent := root
		segs := strings.Split(e.Path, "/")
		for i := 0; i < len(segs)-1; i++ {
			prefix := strings.Join(segs[:i+1], "/")
			node, ok := folders[prefix]
			if !ok {
				node = &TreeNode{Path: prefix, Title: segs[i], IsFolder: true}
				folders[prefix] = node
				parent.Children = append(parent.Children, node)
			}
			parent = node
		}
		title := e.Title
		if title == "" {
			title = titleForPath(e.Path)
		}
		parent.Children = append(parent.Children, &TreeNode{Path: e.Path, Title: title})
	}

	sortTree(root)
	return root.Children
}

func sortTree(n *TreeNode) {
	sort.SliceStable(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		if a.IsFolder != b.IsFolder {
			return a.IsFolder
		}
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	})
	for _, c := range n.Children {
		if c.IsFolder {
			sortTree(c)
		}
	}
}
