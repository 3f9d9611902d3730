package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chefops/cookbook-cleaner/pkg/report"
)

// Run outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomePartial     = "partial"
	OutcomeUnavailable = "unavailable"
	OutcomeFailed      = "failed"
)

// Run is one recorded cleanup run.
type Run struct {
	ID             string        `json:"id"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	Environment    string        `json:"environment"`
	Source         string        `json:"source"`
	RetentionCount int           `json:"retention_count"`
	Destructive    bool          `json:"destructive"`
	Outcome        string        `json:"outcome"`
	Error          string        `json:"error,omitempty"`
	Totals         report.Totals `json:"totals"`

	// Cookbooks is only populated by GetRun.
	Cookbooks []Cookbook `json:"cookbooks,omitempty"`
}

// Cookbook is the recorded outcome of one cookbook within a run.
type Cookbook struct {
	Name      string     `json:"name"`
	Pinned    string     `json:"pinned,omitempty"`
	Outcome   string     `json:"outcome"`
	Reason    string     `json:"reason,omitempty"`
	Total     int        `json:"total_versions"`
	Kept      int        `json:"kept"`
	Planned   int        `json:"planned"`
	Deletions []Deletion `json:"deletions,omitempty"`
}

// Deletion is one recorded delete call.
type Deletion struct {
	Version string `json:"version"`
	Error   string `json:"error,omitempty"`
}

// Query filters ListRuns.
type Query struct {
	// Environment restricts results to one environment when set.
	Environment string

	// Since excludes runs started before this time when non-zero.
	Since time.Time

	// DestructiveOnly excludes dry runs.
	DestructiveOnly bool

	// Limit caps the number of runs returned. Default: 20
	Limit int
}

// DefaultListLimit is used when Query.Limit is not positive.
const DefaultListLimit = 20

// Store persists run history.
type Store interface {
	// RecordRun stores a finished run with its cookbooks.
	RecordRun(ctx context.Context, run *Run) error

	// ListRuns returns runs newest first, without cookbook detail.
	ListRuns(ctx context.Context, query Query) ([]*Run, error)

	// GetRun returns one run with its cookbooks, or ErrRunNotFound.
	GetRun(ctx context.Context, id string) (*Run, error)

	// LastRun returns the most recent run, or ErrRunNotFound.
	LastRun(ctx context.Context) (*Run, error)

	// Prune removes runs started before cutoff and returns how many.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// FromSummary converts a finished report summary into a Run.
func FromSummary(s *report.Summary, outcome string, runErr error) *Run {
	run := &Run{
		ID:             s.RunID,
		StartedAt:      s.StartedAt,
		FinishedAt:     s.FinishedAt,
		Environment:    s.Environment,
		Source:         s.Source,
		RetentionCount: s.RetentionCount,
		Destructive:    s.Destructive,
		Outcome:        outcome,
		Totals:         s.Totals,
		Cookbooks:      make([]Cookbook, 0, len(s.Cookbooks)),
	}
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}

	for _, r := range s.Cookbooks {
		cb := Cookbook{
			Name:    r.Name,
			Pinned:  r.Pinned,
			Outcome: string(r.Outcome),
			Reason:  r.Reason,
			Total:   r.Total,
			Kept:    len(r.Keep),
			Planned: len(r.Delete),
		}
		for _, d := range r.Deletions {
			cb.Deletions = append(cb.Deletions, Deletion{Version: d.Version, Error: d.Error})
		}
		run.Cookbooks = append(run.Cookbooks, cb)
	}
	return run
}
