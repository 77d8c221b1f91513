package cache_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Dicklesworthstone/pipeline_viewer/pkg/cache"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/model"
)

func sampleTree() *model.Tree {
	tree := model.NewTree()
	root := model.NewGroup("4241428", "platform", "https://gitlab.example.com/platform")
	root.Expanded = true
	tree.AddRoot(root)

	sub := model.NewGroup("99", "services", "https://gitlab.example.com/platform/services")
	sub.ParentName = "platform"
	proj := model.NewProject("10", "api", "https://gitlab.example.com/platform/api",
		model.StatusFailed, "main", "1234")
	tree.ReplaceChildren(root, []*model.Node{sub, proj})
	tree.InsertPlaceholder(sub)
	return tree
}

func TestRoundTrip(t *testing.T) {
	tree := sampleTree()
	data, err := cache.Snapshot(tree)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	got, warnings, err := cache.Restore(data)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}

	if len(got.Roots) != 1 {
		t.Fatalf("roots = %d, want 1", len(got.Roots))
	}
	root := got.Roots[0]
	if root.ID != "4241428" || root.Name != "platform" || !root.Expanded {
		t.Errorf("root = %+v", root)
	}
	if root.Fetch != model.FetchFetched {
		t.Errorf("root fetch = %q", root.Fetch)
	}
	if len(root.Children) != 2 {
		t.Fatalf("root children = %d, want 2", len(root.Children))
	}

	sub := root.Children[0]
	if !sub.IsGroup() || sub.ID != "99" || sub.ParentName != "platform" {
		t.Errorf("sub = %+v", sub)
	}
	// The unfetched subgroup lost its placeholder in serialization and must
	// have gained a fresh one on restore.
	if !sub.HasPlaceholder() || sub.Fetch != model.FetchUnfetched {
		t.Errorf("sub placeholder=%v fetch=%q", sub.HasPlaceholder(), sub.Fetch)
	}

	proj := root.Children[1]
	if !proj.IsProject() || proj.ID != "10" || proj.Name != "api" {
		t.Errorf("proj = %+v", proj)
	}
	if proj.Status != model.StatusFailed || proj.Ref != "main" || proj.PipelineID != "1234" {
		t.Errorf("proj pipeline fields = %+v", proj)
	}
}

func TestPlaceholdersNeverSerialized(t *testing.T) {
	tree := sampleTree()
	data, err := cache.Snapshot(tree)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if strings.Contains(string(data), model.PlaceholderText) {
		t.Errorf("snapshot contains placeholder text:\n%s", data)
	}
}

func TestDigitIDsRoundTripAsStrings(t *testing.T) {
	tree := model.NewTree()
	g := model.NewGroup("007", "leading-zero", "")
	tree.AddRoot(g)
	tree.InsertPlaceholder(g)

	data, err := cache.Snapshot(tree)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	got, _, err := cache.Restore(data)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got.Roots[0].ID != "007" {
		t.Errorf("id = %q, want 007 preserved verbatim", got.Roots[0].ID)
	}
}

func TestRestoreSkipsEntryWithoutValues(t *testing.T) {
	data := []byte(`[
		{"text": "Group: broken", "is_open": false, "children": []},
		{"text": "Group: ok", "values": ["1", "group", "unfetched", "", ""], "is_open": true, "children": []}
	]`)

	tree, warnings, err := cache.Restore(data)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if len(tree.Roots) != 1 || tree.Roots[0].Name != "ok" {
		t.Fatalf("roots = %+v", tree.Roots)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "broken") {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestRestoreSkipsUnknownType(t *testing.T) {
	data := []byte(`[
		{"text": "x", "values": ["1", "widget", ""], "is_open": false,
		 "children": [{"text": "Group: nested", "values": ["2", "group", "unfetched", "", ""], "is_open": false, "children": []}]}
	]`)

	tree, warnings, err := cache.Restore(data)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	// The whole subtree goes, including the valid nested group.
	if len(tree.Roots) != 0 {
		t.Errorf("roots = %+v, want none", tree.Roots)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestRestoreCorruptDistinctFromEmpty(t *testing.T) {
	_, _, err := cache.Restore([]byte(`{not json`))
	if !errors.Is(err, cache.ErrCorrupt) {
		t.Errorf("err = %v, want ErrCorrupt", err)
	}

	tree, _, err := cache.Restore([]byte(`[]`))
	if err != nil {
		t.Errorf("empty snapshot errored: %v", err)
	}
	if tree == nil || len(tree.Roots) != 0 {
		t.Errorf("empty snapshot tree = %+v", tree)
	}
}

func TestRestoreLegacyProjectNameFromText(t *testing.T) {
	// Caches written before the display_name slot carry only five or six
	// values; the name comes back out of the rendered label.
	data := []byte(`[
		{"text": " Project: api gateway (failed)", "values": ["10", "project", "failed", "", "main"], "is_open": false, "children": []}
	]`)

	tree, _, err := cache.Restore(data)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if tree.Roots[0].Name != "api gateway" {
		t.Errorf("name = %q, want %q", tree.Roots[0].Name, "api gateway")
	}
}

func TestSaveLoadAge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.json")
	tree := sampleTree()

	if err := cache.Save(path, tree); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Roots) != 1 {
		t.Errorf("roots = %d", len(got.Roots))
	}

	age, err := cache.Age(path)
	if err != nil {
		t.Fatalf("Age: %v", err)
	}
	if age < 0 || age > time.Minute {
		t.Errorf("age = %v", age)
	}

	if _, err := cache.Age(filepath.Join(dir, "missing.json")); !os.IsNotExist(err) {
		t.Errorf("missing file err = %v", err)
	}
}
