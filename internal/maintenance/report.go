package maintenance

import (
	"time"

	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"
)

// State names a step of the deletion workflow.
type State string

const (
	StateResolvingDigest State = "resolving-digest"
	StateDeleting        State = "deleting"
	StateFallbackCleanup State = "fallback-cleanup"
	StateRunningGC       State = "running-gc"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// Transition records one state change, with the failure reason when the
// change was failure-driven.
type Transition struct {
	From   State
	To     State
	Reason string
	At     time.Time
}

// DeleteReport records one deletion's trip through the workflow. A
// repository-level fallback cleanup leaves Tag empty.
type DeleteReport struct {
	Repository  string
	Tag         string
	Digest      digest.Digest
	Fallback    bool
	State       State
	Transitions []Transition
	Err         error
}

func (d *DeleteReport) transition(to State, reason string) {
	d.Transitions = append(d.Transitions, Transition{
		From:   d.State,
		To:     to,
		Reason: reason,
		At:     time.Now(),
	})
	d.State = to
}

// Target renders the deletion target as repo or repo:tag.
func (d *DeleteReport) Target() string {
	if d.Tag == "" {
		return d.Repository
	}
	return d.Repository + ":" + d.Tag
}

// Report summarizes a maintenance run.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	DryRun   bool
	Deletes  []*DeleteReport
	GCRuns   int
	Restarts int
	GCOutput string
}

func newReport(dryRun bool) *Report {
	return &Report{
		RunID:   uuid.New().String()[:8],
		Started: time.Now(),
		DryRun:  dryRun,
	}
}

func (r *Report) finish() {
	r.Finished = time.Now()
}

func (r *Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Failed reports whether any deletion ended in the failed state.
func (r *Report) Failed() bool {
	for _, d := range r.Deletes {
		if d.State == StateFailed {
			return true
		}
	}
	return false
}
