package model

// Tree is the ownership tree of group and project nodes. It is not safe for
// concurrent use; the sync engine serializes all mutations behind one lock.
type Tree struct {
	Roots []*Node
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{}
}

// Reset drops every node.
func (t *Tree) Reset() {
	t.Roots = nil
}

// AddRoot appends a root node.
func (t *Tree) AddRoot(n *Node) {
	n.parent = nil
	t.Roots = append(t.Roots, n)
}

// InsertPlaceholder gives group a single "expand to load" child, replacing
// whatever children it had.
func (t *Tree) InsertPlaceholder(group *Node) {
	ph := NewPlaceholder()
	ph.parent = group
	group.Children = []*Node{ph}
}

// ReplaceChildren atomically swaps all children of group (placeholder
// included) for newNodes, in the given order, and marks the group fetched.
func (t *Tree) ReplaceChildren(group *Node, newNodes []*Node) {
	for _, c := range group.Children {
		c.parent = nil
	}
	for _, c := range newNodes {
		c.parent = group
	}
	group.Children = newNodes
	group.Fetch = FetchFetched
}

// AttachChildren links kids under parent without changing the parent's fetch
// flag. The persistence codec uses this to rebuild a restored tree;
// everything else goes through ReplaceChildren.
func (t *Tree) AttachChildren(parent *Node, kids []*Node) {
	for _, c := range kids {
		c.parent = parent
	}
	parent.Children = kids
}

// MarkNeedsRefresh flags a group as stale without touching its children. The
// next expand re-syncs it.
func (t *Tree) MarkNeedsRefresh(group *Node) {
	group.Fetch = FetchNeedsRefresh
}

// AncestorGroupID walks ownership upward and returns the nearest enclosing
// group's ID, or "" when the node is a root.
func (t *Tree) AncestorGroupID(n *Node) string {
	for p := n.parent; p != nil; p = p.parent {
		if p.IsGroup() {
			return p.ID
		}
	}
	return ""
}

// Walk visits every node depth-first, pre-order. The visitor may mutate the
// current node's children; siblings and ancestors must not be touched
// mid-walk. Returning false stops the traversal.
func (t *Tree) Walk(visit func(*Node) bool) {
	for _, r := range t.Roots {
		if !walkNode(r, visit) {
			return
		}
	}
}

func walkNode(n *Node, visit func(*Node) bool) bool {
	if !visit(n) {
		return false
	}
	// Snapshot before descending so the visitor may replace n.Children.
	kids := make([]*Node, len(n.Children))
	copy(kids, n.Children)
	for _, c := range kids {
		if !walkNode(c, visit) {
			return false
		}
	}
	return true
}

// Contains reports whether n is still attached to the tree. The sync engine
// uses this to drop results of fetches whose node was pruned mid-flight.
func (t *Tree) Contains(n *Node) bool {
	found := false
	t.Walk(func(m *Node) bool {
		if m == n {
			found = true
			return false
		}
		return true
	})
	return found
}
