package gitlab

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/Dicklesworthstone/pipeline_viewer/pkg/debug"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/paginate"
)

// Client implements Gateway over the official client-go bindings. The token
// is bound at construction; changing tokens means building a new Client.
type Client struct {
	gl *gl.Client
}

var _ Gateway = (*Client)(nil)

// NewClient builds a gateway against baseURL (with or without the /api/v4
// suffix) authenticated by a private token.
func NewClient(baseURL, token string) (*Client, error) {
	c, err := gl.NewClient(token, gl.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return &Client{gl: c}, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ResolveGroup implements Gateway.
func (c *Client) ResolveGroup(ctx context.Context, nameOrID string) (string, error) {
	if isDigits(nameOrID) {
		debug.Log("gitlab: group %q is numeric, using directly", nameOrID)
		return nameOrID, nil
	}

	opts := &gl.ListGroupsOptions{Search: gl.Ptr(nameOrID)}
	groups, resp, err := c.gl.Groups.ListGroups(opts, gl.WithContext(ctx))
	if err != nil {
		return "", classify(resp, err)
	}
	for _, g := range groups {
		if strings.EqualFold(g.Name, nameOrID) || strings.EqualFold(g.Path, nameOrID) {
			return strconv.Itoa(g.ID), nil
		}
	}
	// Substring hits that are not exact matches are discarded, never used as
	// a fallback.
	return "", fmt.Errorf("%w: group %q", ErrNotFound, nameOrID)
}

// ListSubgroups implements Gateway.
func (c *Client) ListSubgroups(ctx context.Context, groupID string) ([]Subgroup, error) {
	return paginate.All(func(page, perPage int) ([]Subgroup, int, error) {
		opts := &gl.ListSubGroupsOptions{
			ListOptions: gl.ListOptions{Page: page, PerPage: perPage},
		}
		groups, resp, err := c.gl.Groups.ListSubGroups(groupID, opts, gl.WithContext(ctx))
		if err != nil {
			return nil, 0, classify(resp, err)
		}
		out := make([]Subgroup, 0, len(groups))
		for _, g := range groups {
			out = append(out, Subgroup{
				ID:       strconv.Itoa(g.ID),
				Name:     g.Name,
				FullName: g.FullName,
				Path:     g.Path,
				WebURL:   g.WebURL,
			})
		}
		return out, resp.NextPage, nil
	})
}

// ListProjects implements Gateway. Listing is non-recursive; descending into
// subgroups is the sync engine's job.
func (c *Client) ListProjects(ctx context.Context, groupID string) ([]Project, error) {
	return paginate.All(func(page, perPage int) ([]Project, int, error) {
		opts := &gl.ListGroupProjectsOptions{
			ListOptions: gl.ListOptions{Page: page, PerPage: perPage},
		}
		projects, resp, err := c.gl.Groups.ListGroupProjects(groupID, opts, gl.WithContext(ctx))
		if err != nil {
			return nil, 0, classify(resp, err)
		}
		out := make([]Project, 0, len(projects))
		for _, p := range projects {
			out = append(out, Project{
				ID:     strconv.Itoa(p.ID),
				Name:   p.Name,
				WebURL: p.WebURL,
			})
		}
		return out, resp.NextPage, nil
	})
}

// LatestPipeline implements Gateway.
func (c *Client) LatestPipeline(ctx context.Context, projectID, ref string) (*Pipeline, error) {
	opts := &gl.GetLatestPipelineOptions{}
	if ref != "" {
		opts.Ref = gl.Ptr(ref)
	}
	p, resp, err := c.gl.Pipelines.GetLatestPipeline(projectID, opts, gl.WithContext(ctx))
	if err != nil {
		// A private, archived or pipeline-less project is expected and
		// common; 403/404 here mean "no pipeline", not a failure.
		if code := statusOf(resp); code == 403 || code == 404 {
			return nil, nil
		}
		return nil, classify(resp, err)
	}
	if p == nil {
		return nil, nil
	}
	return convertPipeline(p), nil
}

// LatestPipelineAcrossBranches implements Gateway.
func (c *Client) LatestPipelineAcrossBranches(ctx context.Context, projectID string, branches []string) (*Pipeline, error) {
	for _, branch := range branches {
		p, err := c.LatestPipeline(ctx, projectID, branch)
		if err != nil {
			return nil, err
		}
		if p != nil && p.ID != "" {
			debug.Log("gitlab: project %s: branch %s has pipeline %s (%s)", projectID, branch, p.ID, p.Status)
			return p, nil
		}
	}
	return nil, nil
}

// RetryPipeline implements Gateway.
func (c *Client) RetryPipeline(ctx context.Context, projectID, pipelineID string) (*Pipeline, error) {
	id, err := strconv.Atoi(pipelineID)
	if err != nil {
		return nil, fmt.Errorf("%w: pipeline id %q", ErrNotFound, pipelineID)
	}
	p, resp, err := c.gl.Pipelines.RetryPipelineBuild(projectID, id, gl.WithContext(ctx))
	if err != nil {
		return nil, classify(resp, err)
	}
	return convertPipeline(p), nil
}

// CreatePipeline implements Gateway.
func (c *Client) CreatePipeline(ctx context.Context, projectID, ref string) (*Pipeline, error) {
	p, resp, err := c.gl.Pipelines.CreatePipeline(projectID, &gl.CreatePipelineOptions{Ref: gl.Ptr(ref)}, gl.WithContext(ctx))
	if err != nil {
		return nil, classify(resp, err)
	}
	return convertPipeline(p), nil
}

func convertPipeline(p *gl.Pipeline) *Pipeline {
	return &Pipeline{
		ID:     strconv.Itoa(p.ID),
		Status: p.Status,
		Ref:    p.Ref,
		WebURL: p.WebURL,
	}
}
