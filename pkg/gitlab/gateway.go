// Package gitlab is the typed gateway to the GitLab REST API: group
// resolution, subgroup/project listing, and pipeline queries and actions.
// Everything speaks opaque string IDs; numbers never round-trip through ints
// outside this package.
package gitlab

import "context"

// Subgroup describes one subgroup of a listed group.
type Subgroup struct {
	ID       string
	Name     string
	FullName string
	Path     string
	WebURL   string
}

// Project describes one project of a listed group.
type Project struct {
	ID     string
	Name   string
	WebURL string
}

// Pipeline describes a project's latest (or just-created) pipeline.
type Pipeline struct {
	ID     string
	Status string
	Ref    string
	WebURL string
}

// Gateway is the remote capability the sync engine calls. The concrete
// Client implements it; engine tests substitute a fake.
type Gateway interface {
	// ResolveGroup turns a group name into its ID. Digit-only input is
	// returned unchanged without any remote call. Otherwise the group search
	// endpoint is consulted and the first result whose name or path equals
	// nameOrID case-insensitively wins; no exact match is ErrNotFound.
	ResolveGroup(ctx context.Context, nameOrID string) (string, error)

	// ListSubgroups returns the direct subgroups of a group, all pages.
	ListSubgroups(ctx context.Context, groupID string) ([]Subgroup, error)

	// ListProjects returns the direct (non-recursive) projects of a group,
	// all pages.
	ListProjects(ctx context.Context, groupID string) ([]Project, error)

	// LatestPipeline fetches the most recent pipeline, restricted to ref
	// when ref is non-empty. A project with no pipeline yields (nil, nil),
	// not an error; the 403/404 GitLab serves for private or pipeline-less
	// projects counts as no pipeline.
	LatestPipeline(ctx context.Context, projectID, ref string) (*Pipeline, error)

	// LatestPipelineAcrossBranches tries each branch in order and returns
	// the first real pipeline; branches after the first hit are not
	// queried. (nil, nil) when every branch comes up empty.
	LatestPipelineAcrossBranches(ctx context.Context, projectID string, branches []string) (*Pipeline, error)

	// RetryPipeline retries a pipeline. Failures always propagate.
	RetryPipeline(ctx context.Context, projectID, pipelineID string) (*Pipeline, error)

	// CreatePipeline starts a new pipeline on ref. Failures always
	// propagate.
	CreatePipeline(ctx context.Context, projectID, ref string) (*Pipeline, error)
}
