package model

import "strings"

// PipelineStatus is the status string GitLab reports for a pipeline, plus the
// local sentinel StatusNone for "no pipeline exists".
type PipelineStatus string

const (
	StatusSuccess  PipelineStatus = "success"
	StatusFailed   PipelineStatus = "failed"
	StatusRunning  PipelineStatus = "running"
	StatusPending  PipelineStatus = "pending"
	StatusCanceled PipelineStatus = "canceled"
	StatusSkipped  PipelineStatus = "skipped"
	StatusManual   PipelineStatus = "manual"

	// StatusNone means the project has no pipeline at all. Projects in this
	// state are filtered out of the tree during a membership fetch.
	StatusNone PipelineStatus = "none"
)

// Priority returns the sort bucket for a status; lower sorts first. Active
// pipelines come first, then failures, then successes, then everything else
// (skipped and unknown states).
func (s PipelineStatus) Priority() int {
	switch PipelineStatus(strings.ToLower(string(s))) {
	case StatusRunning, StatusPending:
		return 0
	case StatusFailed, StatusCanceled:
		return 1
	case StatusSuccess, StatusManual:
		return 2
	default:
		return 3
	}
}

// None reports whether the status is the no-pipeline sentinel (or empty).
func (s PipelineStatus) None() bool {
	return s == StatusNone || s == ""
}
