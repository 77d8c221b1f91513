package gitlab_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/Dicklesworthstone/pipeline_viewer/pkg/gitlab"
)

// newStub starts a GitLab API stub and a client pointed at it.
func newStub(t *testing.T, handler http.Handler) *gitlab.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := gitlab.NewClient(srv.URL, "test-token")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestResolveGroupNumericBypassesSearch(t *testing.T) {
	var calls atomic.Int32
	c := newStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[]`))
	}))

	id, err := c.ResolveGroup(context.Background(), "4241428")
	if err != nil {
		t.Fatalf("ResolveGroup: %v", err)
	}
	if id != "4241428" {
		t.Errorf("id = %q", id)
	}
	if calls.Load() != 0 {
		t.Errorf("numeric id still issued %d requests", calls.Load())
	}
}

func TestResolveGroupExactMatchOnly(t *testing.T) {
	c := newStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v4/groups" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("search"); got != "Platform" {
			t.Errorf("search = %q", got)
		}
		fmt.Fprint(w, `[
			{"id": 1, "name": "platform-tools", "path": "platform-tools"},
			{"id": 2, "name": "Platform", "path": "platform"},
			{"id": 3, "name": "platform", "path": "platform2"}
		]`)
	}))

	id, err := c.ResolveGroup(context.Background(), "Platform")
	if err != nil {
		t.Fatalf("ResolveGroup: %v", err)
	}
	// First case-insensitive exact match wins; the substring-only hit is
	// skipped.
	if id != "2" {
		t.Errorf("id = %q, want 2", id)
	}
}

func TestResolveGroupNoExactMatch(t *testing.T) {
	c := newStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id": 1, "name": "platform-tools", "path": "platform-tools"}]`)
	}))

	_, err := c.ResolveGroup(context.Background(), "platform")
	if !errors.Is(err, gitlab.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestResolveGroupAuthError(t *testing.T) {
	c := newStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message": "401 Unauthorized"}`)
	}))

	_, err := c.ResolveGroup(context.Background(), "platform")
	if !errors.Is(err, gitlab.ErrAuth) {
		t.Errorf("err = %v, want ErrAuth", err)
	}
}

func TestListSubgroupsPaginates(t *testing.T) {
	c := newStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v4/groups/7/subgroups" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("per_page"); got != "100" {
			t.Errorf("per_page = %q", got)
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		switch page {
		case 1:
			w.Header().Set("X-Next-Page", "2")
			fmt.Fprint(w, `[{"id": 11, "name": "a", "full_name": "root / a", "path": "a", "web_url": "https://x/a"}]`)
		case 2:
			fmt.Fprint(w, `[{"id": 12, "name": "b", "full_name": "root / b", "path": "b", "web_url": "https://x/b"}]`)
		default:
			fmt.Fprint(w, `[]`)
		}
	}))

	subs, err := c.ListSubgroups(context.Background(), "7")
	if err != nil {
		t.Fatalf("ListSubgroups: %v", err)
	}
	if len(subs) != 2 || subs[0].ID != "11" || subs[1].ID != "12" {
		t.Errorf("subs = %+v", subs)
	}
	if subs[0].FullName != "root / a" {
		t.Errorf("full name = %q", subs[0].FullName)
	}
}

func TestListProjects(t *testing.T) {
	c := newStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v4/groups/7/projects" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("page") != "1" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[{"id": 100, "name": "api", "web_url": "https://x/api"}]`)
	}))

	projects, err := c.ListProjects(context.Background(), "7")
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 1 || projects[0].ID != "100" || projects[0].Name != "api" {
		t.Errorf("projects = %+v", projects)
	}
}

func TestLatestPipeline(t *testing.T) {
	c := newStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v4/projects/100/pipelines/latest" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("ref"); got != "main" {
			t.Errorf("ref = %q", got)
		}
		fmt.Fprint(w, `{"id": 42, "status": "success", "ref": "main", "web_url": "https://x/api/-/pipelines/42"}`)
	}))

	p, err := c.LatestPipeline(context.Background(), "100", "main")
	if err != nil {
		t.Fatalf("LatestPipeline: %v", err)
	}
	if p == nil || p.ID != "42" || p.Status != "success" || p.Ref != "main" {
		t.Errorf("pipeline = %+v", p)
	}
}

func TestLatestPipelineAbsenceIsNotAnError(t *testing.T) {
	for _, code := range []int{http.StatusForbidden, http.StatusNotFound} {
		t.Run(strconv.Itoa(code), func(t *testing.T) {
			c := newStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
				fmt.Fprint(w, `{"message": "no pipelines"}`)
			}))

			p, err := c.LatestPipeline(context.Background(), "100", "")
			if err != nil {
				t.Fatalf("LatestPipeline: %v", err)
			}
			if p != nil {
				t.Errorf("pipeline = %+v, want nil", p)
			}
		})
	}
}

func TestLatestPipelineAcrossBranches(t *testing.T) {
	var refs []string
	c := newStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ref := r.URL.Query().Get("ref")
		refs = append(refs, ref)
		if ref == "main" {
			fmt.Fprint(w, `{"id": 42, "status": "failed", "ref": "main"}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "404 Not Found"}`)
	}))

	p, err := c.LatestPipelineAcrossBranches(context.Background(), "100",
		[]string{"release", "main", "develop"})
	if err != nil {
		t.Fatalf("LatestPipelineAcrossBranches: %v", err)
	}
	if p == nil || p.ID != "42" || p.Ref != "main" {
		t.Errorf("pipeline = %+v", p)
	}
	// First hit wins; branches after it are never queried.
	if len(refs) != 2 || refs[0] != "release" || refs[1] != "main" {
		t.Errorf("queried refs = %v", refs)
	}
}

func TestLatestPipelineAcrossBranchesAllEmpty(t *testing.T) {
	c := newStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "404"}`)
	}))

	p, err := c.LatestPipelineAcrossBranches(context.Background(), "100", []string{"a", "b"})
	if err != nil || p != nil {
		t.Errorf("got (%+v, %v), want (nil, nil)", p, err)
	}
}

func TestRetryPipeline(t *testing.T) {
	c := newStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v4/projects/100/pipelines/42/retry" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		fmt.Fprint(w, `{"id": 42, "status": "running", "ref": "main"}`)
	}))

	p, err := c.RetryPipeline(context.Background(), "100", "42")
	if err != nil {
		t.Fatalf("RetryPipeline: %v", err)
	}
	if p.Status != "running" {
		t.Errorf("pipeline = %+v", p)
	}
}

func TestRetryPipelineFailsLoudly(t *testing.T) {
	c := newStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "403 Forbidden"}`)
	}))

	_, err := c.RetryPipeline(context.Background(), "100", "42")
	if !errors.Is(err, gitlab.ErrAuth) {
		t.Errorf("err = %v, want ErrAuth", err)
	}
}

func TestCreatePipeline(t *testing.T) {
	c := newStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v4/projects/100/pipeline" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		fmt.Fprint(w, `{"id": 43, "status": "pending", "ref": "develop"}`)
	}))

	p, err := c.CreatePipeline(context.Background(), "100", "develop")
	if err != nil {
		t.Fatalf("CreatePipeline: %v", err)
	}
	if p.ID != "43" || p.Ref != "develop" {
		t.Errorf("pipeline = %+v", p)
	}
}
