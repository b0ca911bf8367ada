package model

import "time"

// ContainerState is the lifecycle state of one widget container within a
// hydration pass.
type ContainerState string

const (
	ContainerPending    ContainerState = "pending"
	ContainerRendered   ContainerState = "rendered"
	ContainerFailed     ContainerState = "failed"     // Fetch failed; container left untouched.
	ContainerSkipped    ContainerState = "skipped"    // Invalid configuration; never fetched.
	ContainerSuperseded ContainerState = "superseded" // Inside a container that rendered over it.
)

// IsTerminal reports whether no further transition can happen.
func (s ContainerState) IsTerminal() bool {
	switch s {
	case ContainerRendered, ContainerFailed, ContainerSkipped, ContainerSuperseded:
		return true
	}
	return false
}

// ContainerResult is the outcome for one container, in document order.
type ContainerResult struct {
	Index        int
	Config       WidgetConfig
	State        ContainerState
	CommentCount int
	Err          error
}

// HydrationReport collects the outcome of one hydration pass over a document.
type HydrationReport struct {
	RunID     string
	Document  string
	StartedAt time.Time
	Results   []ContainerResult
}

// Count returns how many containers ended in the given state.
func (r *HydrationReport) Count(state ContainerState) int {
	n := 0
	for _, res := range r.Results {
		if res.State == state {
			n++
		}
	}
	return n
}

// DiagnosticRecord is the persisted form of a ContainerResult.
type DiagnosticRecord struct {
	ID             int64
	RunID          string
	Document       string
	ContainerIndex int
	Owner          string
	Repo           string
	IssueNumber    int
	State          ContainerState
	CommentCount   int
	StatusCode     int
	Error          string
	CreatedAt      time.Time
}
