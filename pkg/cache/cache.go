// Package cache serializes the hierarchy tree to the cache.json snapshot
// format and restores it, tolerating corrupt subtrees.
//
// The on-disk layout is an ordered list of root entries:
//
//	{ "text": ..., "values": [id, type, status_or_flag, web_url,
//	  ref_context, pipeline_id?, display_name?], "is_open": ...,
//	  "children": [...] }
//
// The positional values array is kept for compatibility with caches written
// by earlier versions of the app; in memory every slot has a named field on
// model.Node.
package cache

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Dicklesworthstone/pipeline_viewer/pkg/debug"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/model"
)

// ErrCorrupt marks a snapshot that could not be parsed at all. Individual
// bad entries are skipped with a warning instead.
var ErrCorrupt = errors.New("cache: corrupt snapshot")

// Entry is one serialized node.
type Entry struct {
	Text     string   `json:"text"`
	Values   []string `json:"values"`
	IsOpen   bool     `json:"is_open"`
	Children []Entry  `json:"children"`
}

const (
	groupPrefix   = "Group: "
	projectPrefix = " Project: "
)

// Snapshot serializes the tree. Placeholders are never written.
func Snapshot(tree *model.Tree) ([]byte, error) {
	entries := make([]Entry, 0, len(tree.Roots))
	for _, r := range tree.Roots {
		if e, ok := encodeNode(r); ok {
			entries = append(entries, e)
		}
	}
	return json.MarshalIndent(entries, "", "  ")
}

func encodeNode(n *model.Node) (Entry, bool) {
	if n.IsPlaceholder() {
		return Entry{}, false
	}

	var e Entry
	switch n.Kind {
	case model.KindGroup:
		e.Text = groupPrefix + n.Name
		e.Values = []string{n.ID, string(model.KindGroup), string(n.Fetch), n.WebURL, n.ParentName}
	case model.KindProject:
		e.Text = fmt.Sprintf("%s%s (%s)", projectPrefix, n.Name, n.Status)
		e.Values = []string{n.ID, string(model.KindProject), string(n.Status), n.WebURL, n.Ref, n.PipelineID, n.Name}
	default:
		return Entry{}, false
	}
	e.IsOpen = n.Expanded
	e.Children = make([]Entry, 0, len(n.Children))
	for _, c := range n.Children {
		if ce, ok := encodeNode(c); ok {
			e.Children = append(e.Children, ce)
		}
	}
	return e, true
}

// Restore parses a snapshot back into a tree. A structurally broken entry
// (missing values, unknown node type) is skipped together with its subtree
// and reported in the warnings slice; siblings still load. Only a snapshot
// that fails to parse outright returns ErrCorrupt, so callers can tell
// "corrupt" apart from "empty tree".
func Restore(data []byte) (*model.Tree, []string, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	tree := model.NewTree()
	var warnings []string
	for _, e := range entries {
		n, ok := decodeSubtree(tree, e, &warnings)
		if !ok {
			continue
		}
		tree.AddRoot(n)
	}
	return tree, warnings, nil
}

func decodeSubtree(tree *model.Tree, e Entry, warnings *[]string) (*model.Node, bool) {
	n, ok := decodeEntry(e, warnings)
	if !ok {
		return nil, false
	}

	kids := make([]*model.Node, 0, len(e.Children))
	for _, ce := range e.Children {
		if c, ok := decodeSubtree(tree, ce, warnings); ok {
			kids = append(kids, c)
		}
	}
	if len(kids) > 0 {
		tree.AttachChildren(n, kids)
	} else if n.IsGroup() {
		// A group restored without children must be re-fetched on the next
		// expand, whatever flag the snapshot carried.
		tree.InsertPlaceholder(n)
		n.Fetch = model.FetchUnfetched
	}
	return n, true
}

func splitValues(values []string) (id, kind, status string) {
	if len(values) > 0 {
		id = values[0]
	}
	if len(values) > 1 {
		kind = values[1]
	}
	if len(values) > 2 {
		status = values[2]
	}
	return
}

func decodeEntry(e Entry, warnings *[]string) (*model.Node, bool) {
	id, kind, status := splitValues(e.Values)
	if id == "" || kind == "" {
		warn(warnings, "skipping node %q: missing values", e.Text)
		return nil, false
	}

	switch kind {
	case string(model.KindGroup):
		name := strings.TrimPrefix(e.Text, groupPrefix)
		g := model.NewGroup(id, name, valueAt(e.Values, 3))
		g.ParentName = valueAt(e.Values, 4)
		g.Fetch = fetchStateOf(status)
		g.Expanded = e.IsOpen
		return g, true
	case string(model.KindProject):
		name := valueAt(e.Values, 6)
		if name == "" {
			name = projectNameFromText(e.Text)
		}
		p := model.NewProject(id, name, valueAt(e.Values, 3),
			model.PipelineStatus(status), valueAt(e.Values, 4), valueAt(e.Values, 5))
		p.Expanded = e.IsOpen
		return p, true
	default:
		warn(warnings, "skipping node %q: unknown type %q", e.Text, kind)
		return nil, false
	}
}

func valueAt(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

func fetchStateOf(flag string) model.FetchState {
	switch model.FetchState(flag) {
	case model.FetchFetched, model.FetchNeedsRefresh, model.FetchUnfetched:
		return model.FetchState(flag)
	default:
		return model.FetchUnfetched
	}
}

// projectNameFromText recovers the display name from the rendered label of
// caches that predate the dedicated display_name slot.
func projectNameFromText(text string) string {
	name := strings.TrimPrefix(text, projectPrefix)
	if i := strings.LastIndex(name, " ("); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

func warn(warnings *[]string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	debug.Log("cache: %s", msg)
	*warnings = append(*warnings, msg)
}
