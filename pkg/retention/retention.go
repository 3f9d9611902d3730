// Package retention decides which historical cookbook versions to keep
// and which to delete, relative to the version an environment has pinned.
package retention

import (
	"chefops/cookbook-cleaner/pkg/version"
)

// Skip and keep reasons reported alongside a Decision.
const (
	ReasonNotPromoted         = "not promoted"
	ReasonInsufficientHistory = "insufficient history, keeping all"
)

// Decision is the retention outcome for a single cookbook.
type Decision struct {
	// All holds every version on the server, newest first.
	All []version.Version `json:"all"`

	// Pinned is the promoted version, nil when the cookbook is not pinned.
	Pinned *version.Version `json:"pinned,omitempty"`

	// Candidates are the versions strictly older than Pinned, newest first.
	Candidates []version.Version `json:"candidates"`

	// Keep is the newest part of Candidates that survives the cleanup.
	Keep []version.Version `json:"keep"`

	// Delete is the oldest part of Candidates, in Candidates order.
	Delete []version.Version `json:"delete"`

	// Skipped is set when no selection was made at all.
	Skipped bool `json:"skipped"`

	// SkipReason explains a skip, or why nothing is deleted.
	SkipReason string `json:"skip_reason,omitempty"`
}

// Select partitions all into versions to keep and versions to delete.
//
// Versions equal to or newer than pinned are never candidates. The newest
// retentionCount candidates are kept and the rest are marked for deletion;
// when there are fewer candidates than retentionCount every candidate is
// kept. A nil pinned version yields a skipped decision. The input slice is
// not modified.
func Select(all []version.Version, pinned *version.Version, retentionCount int) Decision {
	sorted := make([]version.Version, len(all))
	copy(sorted, all)
	version.SortDescending(sorted)

	d := Decision{
		All:        sorted,
		Candidates: []version.Version{},
		Keep:       []version.Version{},
		Delete:     []version.Version{},
	}

	if pinned == nil {
		d.Skipped = true
		d.SkipReason = ReasonNotPromoted
		return d
	}
	pin := *pinned
	d.Pinned = &pin

	for _, v := range sorted {
		if version.Compare(v, pin) == version.Less {
			d.Candidates = append(d.Candidates, v)
		}
	}

	if retentionCount < 0 {
		retentionCount = 0
	}

	if len(d.Candidates) < retentionCount {
		d.Keep = append(d.Keep, d.Candidates...)
		d.SkipReason = ReasonInsufficientHistory
		return d
	}

	// len(Candidates) >= retentionCount here, so the split index is in range.
	split := retentionCount
	d.Keep = append(d.Keep, d.Candidates[:split]...)
	d.Delete = append(d.Delete, d.Candidates[split:]...)
	return d
}

// HasDeletions reports whether the decision marks any version for deletion.
func (d Decision) HasDeletions() bool {
	return !d.Skipped && len(d.Delete) > 0
}
