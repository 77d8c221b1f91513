// Package model defines the group/project hierarchy that mirrors a GitLab
// group tree, plus the pipeline status vocabulary used throughout the app.
package model

// Kind discriminates the node variants stored in the tree.
type Kind string

const (
	KindGroup       Kind = "group"
	KindProject     Kind = "project"
	KindPlaceholder Kind = "placeholder"
)

// FetchState tracks how current a group's children are. The string values
// match the flags the cache file has always used, so old caches stay
// readable.
type FetchState string

const (
	FetchUnfetched    FetchState = "unfetched"
	FetchFetched      FetchState = "fetched"
	FetchNeedsRefresh FetchState = "refresh"
)

// PlaceholderText is the label shown for a not-yet-fetched group's dummy
// child. Placeholders are never persisted.
const PlaceholderText = "Loading..."

// Node is a tagged variant: a group, a project, or a placeholder. Fields
// beyond the common ones are only meaningful for the matching Kind.
//
// A node is exclusively owned by its parent (or by the tree root). IDs are
// opaque strings; an all-digit ID must round-trip unchanged.
type Node struct {
	Kind     Kind
	ID       string
	Name     string
	WebURL   string
	Expanded bool

	// Group fields.
	Fetch      FetchState
	ParentName string // enclosing group's display name, as the cache records it

	// Project fields.
	Status     PipelineStatus
	Ref        string
	PipelineID string

	Children []*Node
	parent   *Node
}

// NewGroup returns an unfetched group node with no children. Callers that
// want the group to be expandable should attach a placeholder via
// Tree.InsertPlaceholder.
func NewGroup(id, name, webURL string) *Node {
	return &Node{
		Kind:   KindGroup,
		ID:     id,
		Name:   name,
		WebURL: webURL,
		Fetch:  FetchUnfetched,
	}
}

// NewProject returns a project node carrying its latest pipeline fields.
func NewProject(id, name, webURL string, status PipelineStatus, ref, pipelineID string) *Node {
	return &Node{
		Kind:       KindProject,
		ID:         id,
		Name:       name,
		WebURL:     webURL,
		Status:     status,
		Ref:        ref,
		PipelineID: pipelineID,
	}
}

// NewPlaceholder returns the synthetic "expand to load" child.
func NewPlaceholder() *Node {
	return &Node{Kind: KindPlaceholder, Name: PlaceholderText}
}

// IsGroup reports whether the node is a group.
func (n *Node) IsGroup() bool { return n.Kind == KindGroup }

// IsProject reports whether the node is a project.
func (n *Node) IsProject() bool { return n.Kind == KindProject }

// IsPlaceholder reports whether the node is a placeholder.
func (n *Node) IsPlaceholder() bool { return n.Kind == KindPlaceholder }

// Parent returns the owning node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// HasPlaceholder reports whether the node's only child is a placeholder.
func (n *Node) HasPlaceholder() bool {
	return len(n.Children) == 1 && n.Children[0].IsPlaceholder()
}

// RealChildren returns the children excluding placeholders.
func (n *Node) RealChildren() []*Node {
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if !c.IsPlaceholder() {
			out = append(out, c)
		}
	}
	return out
}
