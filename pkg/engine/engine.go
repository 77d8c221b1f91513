// Package engine is the synchronization core: it owns the group/project tree,
// talks to the GitLab gateway, and announces every mutation on the event bus.
// All tree access is serialized behind one mutex; network calls happen outside
// it, and results for nodes pruned mid-flight are discarded.
package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/pipeline_viewer/pkg/debug"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/event"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/gitlab"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/model"
)

// ErrNoGroup is returned by Bootstrap when no group is configured.
var ErrNoGroup = errors.New("engine: no group configured")

// maxPipelineFetches bounds concurrent latest-pipeline requests per group.
const maxPipelineFetches = 8

// Options is the slice of configuration the engine acts on.
type Options struct {
	// GroupName is the root group to mirror, by name or numeric ID.
	GroupName string
	// Ignored is the set of group IDs that are never inserted.
	Ignored map[string]bool
	// Branches maps a group ID to the ordered branch list consulted for its
	// projects' pipelines. Groups without an entry use the overall latest
	// pipeline regardless of ref.
	Branches map[string][]string
}

func (o Options) branchesFor(groupID string) []string {
	if o.Branches == nil {
		return nil
	}
	return o.Branches[groupID]
}

// Engine mirrors a GitLab group tree and keeps it current.
type Engine struct {
	gw  gitlab.Gateway
	bus *event.Bus

	mu          sync.Mutex
	tree        *model.Tree
	opts        Options
	lastRefresh time.Time
}

// New returns an engine with an empty tree. The bus may be nil, in which case
// no events are published.
func New(gw gitlab.Gateway, bus *event.Bus, opts Options) *Engine {
	return &Engine{gw: gw, bus: bus, tree: model.NewTree(), opts: opts}
}

// AdoptTree replaces the engine's tree wholesale. Used at startup to install a
// restored snapshot.
func (e *Engine) AdoptTree(t *model.Tree) {
	e.mu.Lock()
	e.tree = t
	e.mu.Unlock()
	e.publishTreeChanged()
}

// WithTree runs fn with the tree under the engine lock. fn must not call back
// into the engine and must not retain the tree.
func (e *Engine) WithTree(fn func(*model.Tree)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.tree)
}

// UpdateOptions swaps the engine's configuration. Takes effect on the next
// fetch; it does not retroactively prune already-inserted groups.
func (e *Engine) UpdateOptions(opts Options) {
	e.mu.Lock()
	e.opts = opts
	e.mu.Unlock()
}

// LastRefresh reports when RefreshAll last ran, zero if never.
func (e *Engine) LastRefresh() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRefresh
}

// Bootstrap resolves the configured group, installs it as the sole root, and
// fetches its children.
func (e *Engine) Bootstrap(ctx context.Context) error {
	e.mu.Lock()
	name := e.opts.GroupName
	e.mu.Unlock()
	if name == "" {
		return ErrNoGroup
	}

	id, err := e.gw.ResolveGroup(ctx, name)
	if err != nil {
		return err
	}

	e.mu.Lock()
	root := model.NewGroup(id, name, "")
	root.Expanded = true
	e.tree.Reset()
	e.tree.AddRoot(root)
	e.tree.InsertPlaceholder(root)
	e.mu.Unlock()
	e.publishTreeChanged()

	return e.refreshGroup(ctx, root)
}

// Reset drops the whole tree and bootstraps from scratch.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	e.tree.Reset()
	e.mu.Unlock()
	e.publishTreeChanged()
	return e.Bootstrap(ctx)
}

// Expand opens a group. An unfetched or stale group gets a fresh membership
// fetch; a current one just opens.
func (e *Engine) Expand(ctx context.Context, n *model.Node) error {
	e.mu.Lock()
	if n == nil || !n.IsGroup() || !e.tree.Contains(n) {
		e.mu.Unlock()
		return nil
	}
	n.Expanded = true
	state := n.Fetch
	e.mu.Unlock()
	e.publishTreeChanged()

	switch state {
	case model.FetchUnfetched, model.FetchNeedsRefresh:
		return e.refreshGroup(ctx, n)
	}
	return nil
}

// Collapse closes a group. Children stay in memory.
func (e *Engine) Collapse(n *model.Node) {
	e.mu.Lock()
	if n == nil || !n.IsGroup() || !e.tree.Contains(n) {
		e.mu.Unlock()
		return
	}
	n.Expanded = false
	e.mu.Unlock()
	e.publishTreeChanged()
}

// Toggle expands a collapsed group and collapses an open one.
func (e *Engine) Toggle(ctx context.Context, n *model.Node) error {
	e.mu.Lock()
	expanded := n != nil && n.Expanded
	e.mu.Unlock()
	if expanded {
		e.Collapse(n)
		return nil
	}
	return e.Expand(ctx, n)
}

// FetchChildren syncs a group's membership and pipeline statuses, replacing
// its children. Open subgroups are re-synced along the way.
func (e *Engine) FetchChildren(ctx context.Context, group *model.Node) error {
	return e.refreshGroup(ctx, group)
}

// RefreshRecursive re-queries the latest pipeline of every project already in
// the tree under group, descending into every subgroup, open or not.
// Membership is left alone: projects are neither added nor removed here (that
// takes a fresh FetchChildren), and a project whose pipeline vanished stays
// with no status. Per-project lookup failures are logged and the walk
// continues.
func (e *Engine) RefreshRecursive(ctx context.Context, group *model.Node) error {
	type target struct {
		node      *model.Node
		projectID string
		branches  []string
	}

	e.mu.Lock()
	if group == nil || !group.IsGroup() || !e.tree.Contains(group) {
		e.mu.Unlock()
		return nil
	}
	var targets []target
	var collect func(n *model.Node)
	collect = func(n *model.Node) {
		branches := e.opts.branchesFor(n.ID)
		for _, c := range n.Children {
			switch {
			case c.IsProject():
				targets = append(targets, target{node: c, projectID: c.ID, branches: branches})
			case c.IsGroup():
				collect(c)
			}
		}
	}
	collect(group)
	e.mu.Unlock()

	pipelines := make([]*gitlab.Pipeline, len(targets))
	failed := make([]bool, len(targets))
	var pg errgroup.Group
	pg.SetLimit(maxPipelineFetches)
	for i, tg := range targets {
		pg.Go(func() error {
			p, err := e.latestPipeline(ctx, tg.projectID, tg.branches)
			if err != nil {
				debug.Log("engine: pipeline refresh for project %s failed: %v", tg.projectID, err)
				failed[i] = true
				return nil
			}
			pipelines[i] = p
			return nil
		})
	}
	pg.Wait()

	var changes []event.StatusChange
	e.mu.Lock()
	for i, tg := range targets {
		if failed[i] || !e.tree.Contains(tg.node) {
			continue
		}
		changes = append(changes, applyPipeline(tg.node, pipelines[i])...)
	}
	e.mu.Unlock()

	e.publishStatusChanges(changes)
	e.publishTreeChanged()
	return nil
}

// RefreshAll status-refreshes every open root recursively and marks closed
// fetched roots stale. The refresh timestamp advances even when a root fails.
func (e *Engine) RefreshAll(ctx context.Context) error {
	e.mu.Lock()
	roots := make([]*model.Node, len(e.tree.Roots))
	copy(roots, e.tree.Roots)
	e.lastRefresh = time.Now()
	e.mu.Unlock()

	var firstErr error
	for _, r := range roots {
		if !r.IsGroup() {
			continue
		}
		e.mu.Lock()
		expanded := r.Expanded
		if !expanded && r.Fetch == model.FetchFetched {
			e.tree.MarkNeedsRefresh(r)
		}
		e.mu.Unlock()
		if expanded {
			if err := e.RefreshRecursive(ctx, r); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	e.publishTreeChanged()
	return firstErr
}

// RefreshProject re-queries a single project's latest pipeline. A project
// whose pipeline has disappeared stays in the tree with no status.
func (e *Engine) RefreshProject(ctx context.Context, n *model.Node) error {
	e.mu.Lock()
	if n == nil || !n.IsProject() || !e.tree.Contains(n) {
		e.mu.Unlock()
		return nil
	}
	projectID := n.ID
	branches := e.opts.branchesFor(e.tree.AncestorGroupID(n))
	e.mu.Unlock()

	p, err := e.latestPipeline(ctx, projectID, branches)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if !e.tree.Contains(n) {
		e.mu.Unlock()
		return nil
	}
	change := applyPipeline(n, p)
	e.mu.Unlock()

	e.publishStatusChanges(change)
	e.publishTreeChanged()
	return nil
}

// RetryPipeline retries the project's recorded pipeline and applies the
// resulting status. Failures propagate; the tree is untouched on error.
func (e *Engine) RetryPipeline(ctx context.Context, n *model.Node) error {
	return e.runPipelineAction(ctx, n, func(ctx context.Context, projectID string) (*gitlab.Pipeline, error) {
		e.mu.Lock()
		pipelineID := n.PipelineID
		e.mu.Unlock()
		return e.gw.RetryPipeline(ctx, projectID, pipelineID)
	})
}

// CreatePipeline starts a fresh pipeline on ref for the project and applies
// the resulting status.
func (e *Engine) CreatePipeline(ctx context.Context, n *model.Node, ref string) (err error) {
	return e.runPipelineAction(ctx, n, func(ctx context.Context, projectID string) (*gitlab.Pipeline, error) {
		return e.gw.CreatePipeline(ctx, projectID, ref)
	})
}

func (e *Engine) runPipelineAction(ctx context.Context, n *model.Node, act func(context.Context, string) (*gitlab.Pipeline, error)) error {
	e.mu.Lock()
	if n == nil || !n.IsProject() || !e.tree.Contains(n) {
		e.mu.Unlock()
		return nil
	}
	projectID := n.ID
	e.mu.Unlock()

	p, err := act(ctx, projectID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if !e.tree.Contains(n) {
		e.mu.Unlock()
		return nil
	}
	change := applyPipeline(n, p)
	e.mu.Unlock()

	e.publishStatusChanges(change)
	e.publishTreeChanged()
	return nil
}

// applyPipeline writes a pipeline result onto a project node and returns the
// status change to announce, if any. Caller holds the engine lock.
func applyPipeline(n *model.Node, p *gitlab.Pipeline) []event.StatusChange {
	old := n.Status
	if p == nil {
		n.Status = model.StatusNone
		n.PipelineID = ""
	} else {
		n.Status = model.PipelineStatus(p.Status)
		n.Ref = p.Ref
		n.PipelineID = p.ID
	}
	if n.Status == old {
		return nil
	}
	return []event.StatusChange{{
		ProjectID:   n.ID,
		ProjectName: n.Name,
		OldStatus:   string(old),
		NewStatus:   string(n.Status),
	}}
}

// fetchResult is one group's freshly fetched membership.
type fetchResult struct {
	subs      []gitlab.Subgroup
	projects  []gitlab.Project
	pipelines []*gitlab.Pipeline // parallel to projects; nil means no pipeline
	errs      []error            // parallel to projects; per-pipeline failures
}

// refreshGroup re-syncs one group: fetch membership off-lock, merge under the
// lock, then descend into subgroups that are still open.
func (e *Engine) refreshGroup(ctx context.Context, group *model.Node) error {
	e.mu.Lock()
	if group == nil || !group.IsGroup() || !e.tree.Contains(group) {
		e.mu.Unlock()
		return nil
	}
	groupID := group.ID
	branches := e.opts.branchesFor(groupID)
	e.mu.Unlock()

	start := time.Now()
	fr, err := e.fetchRemote(ctx, groupID, branches)
	if err != nil {
		debug.Log("engine: fetch of group %s failed: %v", groupID, err)
		return err
	}
	debug.LogTiming("engine: fetch group "+groupID, time.Since(start))

	e.mu.Lock()
	if !e.tree.Contains(group) {
		e.mu.Unlock()
		debug.Log("engine: group %s pruned mid-fetch, result discarded", groupID)
		return nil
	}
	kids, changes, openKids := e.mergeChildren(group, fr)
	e.tree.ReplaceChildren(group, kids)
	e.mu.Unlock()

	e.publishStatusChanges(changes)
	e.publishTreeChanged()

	var firstErr error
	for _, kid := range openKids {
		if err := e.refreshGroup(ctx, kid); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// fetchRemote pulls a group's subgroups, projects and latest pipelines.
// Subgroup and project listings run concurrently; a failure in either aborts
// the fetch. Pipeline lookups are capped at maxPipelineFetches in flight and
// fail individually, so one flaky project cannot sink the whole group.
func (e *Engine) fetchRemote(ctx context.Context, groupID string, branches []string) (*fetchResult, error) {
	fr := &fetchResult{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fr.subs, err = e.gw.ListSubgroups(gctx, groupID)
		return err
	})
	g.Go(func() error {
		var err error
		fr.projects, err = e.gw.ListProjects(gctx, groupID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fr.pipelines = make([]*gitlab.Pipeline, len(fr.projects))
	fr.errs = make([]error, len(fr.projects))
	var pg errgroup.Group
	pg.SetLimit(maxPipelineFetches)
	for i, p := range fr.projects {
		pg.Go(func() error {
			fr.pipelines[i], fr.errs[i] = e.latestPipeline(ctx, p.ID, branches)
			if fr.errs[i] != nil {
				debug.Log("engine: pipeline lookup for project %s failed: %v", p.ID, fr.errs[i])
			}
			return nil
		})
	}
	pg.Wait()
	return fr, nil
}

func (e *Engine) latestPipeline(ctx context.Context, projectID string, branches []string) (*gitlab.Pipeline, error) {
	if len(branches) > 0 {
		return e.gw.LatestPipelineAcrossBranches(ctx, projectID, branches)
	}
	return e.gw.LatestPipeline(ctx, projectID, "")
}

// mergeChildren builds the group's new child list from a fetch result.
// Existing subgroup nodes are kept (with their subtrees); open ones are
// returned for recursive refresh, closed fetched ones are marked stale.
// Projects without a pipeline are dropped; one whose lookup failed keeps its
// previous node; the rest are sorted by status priority, after the subgroups.
// Caller holds the engine lock.
func (e *Engine) mergeChildren(group *model.Node, fr *fetchResult) (kids []*model.Node, changes []event.StatusChange, openKids []*model.Node) {
	oldGroups := make(map[string]*model.Node)
	oldProjects := make(map[string]*model.Node)
	for _, c := range group.Children {
		switch {
		case c.IsGroup():
			oldGroups[c.ID] = c
		case c.IsProject():
			oldProjects[c.ID] = c
		}
	}

	for _, sub := range fr.subs {
		if e.opts.Ignored[sub.ID] {
			debug.Log("engine: skipping ignored group %s (%s)", sub.ID, sub.Name)
			continue
		}
		if old, ok := oldGroups[sub.ID]; ok {
			old.Name = sub.Name
			old.WebURL = sub.WebURL
			if old.Expanded {
				openKids = append(openKids, old)
			} else if old.Fetch == model.FetchFetched {
				e.tree.MarkNeedsRefresh(old)
			}
			kids = append(kids, old)
			continue
		}
		g := model.NewGroup(sub.ID, sub.Name, sub.WebURL)
		g.ParentName = group.Name
		e.tree.InsertPlaceholder(g)
		kids = append(kids, g)
	}

	var projects []*model.Node
	for i, p := range fr.projects {
		if fr.errs[i] != nil {
			// Transient lookup failure: keep what we knew, if anything.
			if old, ok := oldProjects[p.ID]; ok {
				projects = append(projects, old)
			}
			continue
		}
		pl := fr.pipelines[i]
		if pl == nil || model.PipelineStatus(pl.Status).None() {
			continue
		}
		node := model.NewProject(p.ID, p.Name, p.WebURL, model.PipelineStatus(pl.Status), pl.Ref, pl.ID)
		if old, ok := oldProjects[p.ID]; ok && old.Status != node.Status {
			changes = append(changes, event.StatusChange{
				ProjectID:   p.ID,
				ProjectName: p.Name,
				OldStatus:   string(old.Status),
				NewStatus:   string(node.Status),
			})
		}
		projects = append(projects, node)
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].Status.Priority() < projects[j].Status.Priority()
	})

	return append(kids, projects...), changes, openKids
}

func (e *Engine) publishTreeChanged() {
	if e.bus != nil {
		e.bus.Publish(event.TreeChanged, nil)
	}
}

func (e *Engine) publishStatusChanges(changes []event.StatusChange) {
	if e.bus == nil {
		return
	}
	for _, c := range changes {
		debug.Log("engine: %s: %s -> %s", c.ProjectName, c.OldStatus, c.NewStatus)
		e.bus.Publish(event.PipelineStatusChanged, c)
	}
}
