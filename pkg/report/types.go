package report

import (
	"strconv"
	"time"

	"chefops/cookbook-cleaner/pkg/retention"
	"chefops/cookbook-cleaner/pkg/version"
)

// Outcome classifies what happened to one cookbook during a run.
type Outcome string

// Cookbook outcomes. The values double as metric label values.
const (
	OutcomeCleaned     Outcome = "cleaned"
	OutcomeNothingToDo Outcome = "nothing_to_do"
	OutcomeUnpinned    Outcome = "unpinned"
	OutcomeParseError  Outcome = "parse_error"
	OutcomeExcluded    Outcome = "excluded"
	OutcomeFailed      Outcome = "failed"
)

// ReasonExcluded is the skip reason for cookbooks removed by include or
// exclude patterns.
const ReasonExcluded = "excluded by filter"

// RunInfo describes a run before any cookbook is processed.
type RunInfo struct {
	RunID          string `json:"run_id"`
	Source         string `json:"source"`
	Environment    string `json:"environment"`
	RetentionCount int    `json:"retention_count"`
	Destructive    bool   `json:"destructive"`
}

// DeletionResult is the outcome of one delete call.
type DeletionResult struct {
	Version string `json:"version"`
	Error   string `json:"error,omitempty"`
}

// Failed reports whether the delete call failed.
func (d DeletionResult) Failed() bool {
	return d.Error != ""
}

// CookbookResult is the reported view of one cookbook.
type CookbookResult struct {
	Name       string           `json:"name"`
	Pinned     string           `json:"pinned,omitempty"`
	Outcome    Outcome          `json:"outcome"`
	Reason     string           `json:"reason,omitempty"`
	Total      int              `json:"total_versions"`
	Candidates []string         `json:"candidates"`
	Keep       []string         `json:"keep"`
	Delete     []string         `json:"delete"`
	Deletions  []DeletionResult `json:"deletions,omitempty"`
}

// FromDecision builds the result for an evaluated cookbook. The outcome is
// provisional until deletions are recorded.
func FromDecision(name string, d retention.Decision) CookbookResult {
	r := CookbookResult{
		Name:       name,
		Total:      len(d.All),
		Candidates: version.Strings(d.Candidates),
		Keep:       version.Strings(d.Keep),
		Delete:     version.Strings(d.Delete),
		Reason:     d.SkipReason,
	}

	switch {
	case d.Skipped:
		r.Outcome = OutcomeUnpinned
	case len(d.Delete) == 0:
		r.Outcome = OutcomeNothingToDo
	default:
		r.Outcome = OutcomeCleaned
	}

	if d.Pinned != nil {
		r.Pinned = d.Pinned.String()
	}
	return r
}

// Skipped builds the result for a cookbook that was never evaluated.
func Skipped(name string, total int, outcome Outcome, reason string) CookbookResult {
	return CookbookResult{
		Name:       name,
		Outcome:    outcome,
		Reason:     reason,
		Total:      total,
		Candidates: []string{},
		Keep:       []string{},
		Delete:     []string{},
	}
}

// AddDeletion records a delete call. Any failure turns the outcome into
// OutcomeFailed.
func (r *CookbookResult) AddDeletion(d DeletionResult) {
	r.Deletions = append(r.Deletions, d)
	if d.Failed() {
		r.Outcome = OutcomeFailed
	}
}

// Totals aggregates cookbook results.
type Totals struct {
	Cookbooks        int `json:"cookbooks"`
	Versions         int `json:"versions"`
	Cleaned          int `json:"cleaned"`
	NothingToDo      int `json:"nothing_to_do"`
	Unpinned         int `json:"unpinned"`
	ParseErrors      int `json:"parse_errors"`
	Excluded         int `json:"excluded"`
	Failed           int `json:"failed"`
	VersionsPlanned  int `json:"versions_planned"`
	VersionsDeleted  int `json:"versions_deleted"`
	DeletionFailures int `json:"deletion_failures"`
}

// Summary is the complete result of a run.
type Summary struct {
	RunInfo
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Cookbooks  []CookbookResult `json:"cookbooks"`
	Totals     Totals           `json:"totals"`
}

// NewSummary starts a summary for the run described by info.
func NewSummary(info RunInfo, startedAt time.Time) *Summary {
	return &Summary{
		RunInfo:   info,
		StartedAt: startedAt,
		Cookbooks: []CookbookResult{},
	}
}

// Add appends a finished cookbook result and updates the totals.
func (s *Summary) Add(r CookbookResult) {
	s.Cookbooks = append(s.Cookbooks, r)

	t := &s.Totals
	t.Cookbooks++
	t.Versions += r.Total
	t.VersionsPlanned += len(r.Delete)

	switch r.Outcome {
	case OutcomeCleaned:
		t.Cleaned++
	case OutcomeNothingToDo:
		t.NothingToDo++
	case OutcomeUnpinned:
		t.Unpinned++
	case OutcomeParseError:
		t.ParseErrors++
	case OutcomeExcluded:
		t.Excluded++
	case OutcomeFailed:
		t.Failed++
	}

	for _, d := range r.Deletions {
		if d.Failed() {
			t.DeletionFailures++
		} else {
			t.VersionsDeleted++
		}
	}
}

// Partial reports whether any delete call failed.
func (s *Summary) Partial() bool {
	return s.Totals.DeletionFailures > 0
}

// Duration is the wall time of the run.
func (s *Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Header implements cli.Table.
func (s *Summary) Header() []string {
	return []string{"cookbook", "pinned", "outcome", "total", "candidates", "kept", "to_delete", "deleted", "failed", "reason"}
}

// Rows implements cli.Table.
func (s *Summary) Rows() [][]string {
	rows := make([][]string, 0, len(s.Cookbooks))
	for _, r := range s.Cookbooks {
		deleted, failed := 0, 0
		for _, d := range r.Deletions {
			if d.Failed() {
				failed++
			} else {
				deleted++
			}
		}
		rows = append(rows, []string{
			r.Name,
			r.Pinned,
			string(r.Outcome),
			strconv.Itoa(r.Total),
			strconv.Itoa(len(r.Candidates)),
			strconv.Itoa(len(r.Keep)),
			strconv.Itoa(len(r.Delete)),
			strconv.Itoa(deleted),
			strconv.Itoa(failed),
			r.Reason,
		})
	}
	return rows
}
