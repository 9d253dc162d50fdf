package types

import "strings"

// Declaration type tags.
const (
	SelectorPrefix = "selector:"
	PatternPrefix  = "re:"
	DisplayPrefix  = "display:"

	SelectorRadio    = SelectorPrefix + "RADIO"
	SelectorCheckbox = SelectorPrefix + "CHECKBOX"
	SelectorDropdown = SelectorPrefix + "DROPDOWN"
)

// RootTitle is the title of the synthetic node that gathers several roots.
const RootTitle = "ROOT"

// Cell is one parsed declaration cell. Empty strings mean absent.
type Cell struct {
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	Type  string `json:"type,omitempty" yaml:"type,omitempty"`
	Hint  string `json:"hint,omitempty" yaml:"hint,omitempty"`
}

// Empty reports whether the cell declares nothing.
func (c Cell) Empty() bool {
	return c.Title == ""
}

// Node is a field or group in a declaration tree.
type Node struct {
	ID       string  `json:"id,omitempty" yaml:"id,omitempty"`
	Title    string  `json:"title" yaml:"title"`
	Type     string  `json:"type,omitempty" yaml:"type,omitempty"`
	Hint     string  `json:"hint,omitempty" yaml:"hint,omitempty"`
	Children []*Node `json:"children" yaml:"children,omitempty"`

	// Synthetic marks the ROOT node the tree builder adds over several
	// top-level nodes. A declared node titled ROOT is not synthetic.
	Synthetic bool `json:"synthetic,omitempty" yaml:"synthetic,omitempty"`
}

// NewSyntheticRoot returns the ROOT node gathering children.
func NewSyntheticRoot(children []*Node) *Node {
	return &Node{Title: RootTitle, Children: children, Synthetic: true}
}

// IsSyntheticRoot reports whether n is the ROOT node added by the tree
// builder rather than a declared node.
func (n *Node) IsSyntheticRoot() bool {
	return n.Synthetic
}

// IsSelector reports whether the node type is any selector:* tag.
func (n *Node) IsSelector() bool {
	return strings.HasPrefix(n.Type, SelectorPrefix)
}

// IsPattern reports whether the node is a free-text re: field.
func (n *Node) IsPattern() bool {
	return strings.HasPrefix(n.Type, PatternPrefix)
}

// IsLabel reports whether the node renders as a heading only.
func (n *Node) IsLabel() bool {
	return n.Type == "" || strings.HasPrefix(n.Type, DisplayPrefix)
}

// Pattern returns the regular expression of a re: node.
func (n *Node) Pattern() string {
	return strings.TrimPrefix(n.Type, PatternPrefix)
}

// SelectorGroup returns the shared selector type when n has at least two
// children, all of them selectors of one kind. Otherwise ok is false.
func (n *Node) SelectorGroup() (kind string, ok bool) {
	if len(n.Children) < 2 {
		return "", false
	}
	kind = n.Children[0].Type
	for _, c := range n.Children {
		if !c.IsSelector() || c.Type != kind {
			return "", false
		}
	}
	return kind, true
}

// Walk visits n and its descendants depth first, passing each node's
// ancestor chain (excluding the node itself).
func (n *Node) Walk(fn func(node *Node, ancestors []*Node)) {
	var visit func(node *Node, ancestors []*Node)
	visit = func(node *Node, ancestors []*Node) {
		fn(node, ancestors)
		next := append(ancestors[:len(ancestors):len(ancestors)], node)
		for _, c := range node.Children {
			visit(c, next)
		}
	}
	visit(n, nil)
}

// idSeparator joins escaped titles into a node id.
const idSeparator = "_"

// NodeID identifies a node by the titles on its path from the top level.
type NodeID []string

// EscapeTitle doubles every separator occurrence in a title.
func EscapeTitle(title string) string {
	return strings.ReplaceAll(title, idSeparator, idSeparator+idSeparator)
}

// String joins the escaped titles, e.g. "A1_B1_C2".
func (id NodeID) String() string {
	parts := make([]string, len(id))
	for i, t := range id {
		parts[i] = EscapeTitle(t)
	}
	return strings.Join(parts, idSeparator)
}
