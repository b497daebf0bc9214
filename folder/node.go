package folder

import (
	"github.com/bradenaw/juniper/xslices"
	"github.com/emersion/go-imap/utf7"
	"github.com/lotusmail/lotus/imap"
)

// Node is one folder of the tree.
type Node struct {
	// Name is the final segment of the path. It may itself contain the delimiter.
	Name string

	// Path is the full folder name as reported by the server.
	Path string

	Attributes imap.AttrSet

	// Children never holds two nodes with the same Name.
	Children []*Node
}

func newNode(name, path string, attrs ...string) *Node {
	return &Node{
		Name:       name,
		Path:       path,
		Attributes: imap.NewAttrSet(attrs...),
	}
}

// Child returns the direct child with the given local name.
func (n *Node) Child(name string) (*Node, bool) {
	idx := xslices.IndexFunc(n.Children, func(child *Node) bool {
		return child.Name == name
	})
	if idx < 0 {
		return nil, false
	}

	return n.Children[idx], true
}

// DisplayName decodes the modified UTF-7 local name servers use for non-ASCII folders.
// The raw name is returned if it is not valid modified UTF-7.
func (n *Node) DisplayName() string {
	name, err := utf7.Encoding.NewDecoder().String(n.Name)
	if err != nil {
		return n.Name
	}

	return name
}

// Selectable reports whether messages can be fetched from this folder.
func (n *Node) Selectable() bool {
	return !n.Attributes.Contains(imap.AttrNoSelect)
}

func (n *Node) addChild(name, path string, attrs []string) *Node {
	if child, ok := n.Child(name); ok {
		child.Attributes.Merge(attrs...)
		return child
	}

	child := newNode(name, path, attrs...)

	n.Children = append(n.Children, child)

	return child
}

func (n *Node) clone() *Node {
	return &Node{
		Name:       n.Name,
		Path:       n.Path,
		Attributes: n.Attributes.Clone(),
		Children: xslices.Map(n.Children, func(child *Node) *Node {
			return child.clone()
		}),
	}
}

func (n *Node) walk(depth int, fn func(*Node, int) bool) bool {
	if !fn(n, depth) {
		return false
	}

	for _, child := range n.Children {
		if !child.walk(depth+1, fn) {
			return false
		}
	}

	return true
}

// Root is one of the six fixed top-level folders.
// Its identity is its Role; the server only tells us which of its folders plays that role.
type Root struct {
	Node

	Role imap.Role
}

// Walk visits the root and all its descendants depth first.
// The callback receives the depth of each node (the root is at depth 0) and stops the walk by returning false.
func (r *Root) Walk(fn func(node *Node, depth int) bool) {
	r.Node.walk(0, fn)
}

func (r *Root) clone() *Root {
	return &Root{
		Node: *r.Node.clone(),
		Role: r.Role,
	}
}
