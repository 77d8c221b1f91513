package engine

import "github.com/Dicklesworthstone/pipeline_viewer/pkg/model"

// Row is one visible line of the tree, flattened for rendering. The Node
// pointer is an opaque handle for engine calls (Expand, RefreshProject...);
// callers must not dereference or mutate it.
type Row struct {
	Node  *model.Node
	Depth int

	Kind       model.Kind
	ID         string
	Name       string
	WebURL     string
	Expanded   bool
	Fetch      model.FetchState
	Status     model.PipelineStatus
	Ref        string
	PipelineID string
}

// VisibleRows flattens the tree in display order: every root, descending only
// into expanded groups.
func (e *Engine) VisibleRows() []Row {
	e.mu.Lock()
	defer e.mu.Unlock()

	var rows []Row
	var walk func(n *model.Node, depth int)
	walk = func(n *model.Node, depth int) {
		rows = append(rows, Row{
			Node:       n,
			Depth:      depth,
			Kind:       n.Kind,
			ID:         n.ID,
			Name:       n.Name,
			WebURL:     n.WebURL,
			Expanded:   n.Expanded,
			Fetch:      n.Fetch,
			Status:     n.Status,
			Ref:        n.Ref,
			PipelineID: n.PipelineID,
		})
		if n.IsGroup() && n.Expanded {
			for _, c := range n.Children {
				walk(c, depth+1)
			}
		}
	}
	for _, r := range e.tree.Roots {
		walk(r, 0)
	}
	return rows
}
