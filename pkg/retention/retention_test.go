package retention

import (
	"reflect"
	"testing"

	"chefops/cookbook-cleaner/pkg/version"
)

func parseAll(t *testing.T, raw ...string) []version.Version {
	t.Helper()
	out, err := version.ParseAll(raw)
	if err != nil {
		t.Fatalf("ParseAll(%v) error = %v", raw, err)
	}
	return out
}

func pin(s string) *version.Version {
	v := version.MustParse(s)
	return &v
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name           string
		versions       []string
		pinned         *version.Version
		retention      int
		wantCandidates []string
		wantKeep       []string
		wantDelete     []string
		wantSkipped    bool
		wantReason     string
	}{
		{
			name:           "keeps newest history and deletes the tail",
			versions:       []string{"1.0", "1.1", "1.2", "1.3", "1.4", "1.5", "2.0"},
			pinned:         pin("2.0"),
			retention:      3,
			wantCandidates: []string{"1.5", "1.4", "1.3", "1.2", "1.1", "1.0"},
			wantKeep:       []string{"1.5", "1.4", "1.3"},
			wantDelete:     []string{"1.2", "1.1", "1.0"},
		},
		{
			name:           "insufficient history keeps everything",
			versions:       []string{"1.0", "1.1"},
			pinned:         pin("1.1"),
			retention:      5,
			wantCandidates: []string{"1.0"},
			wantKeep:       []string{"1.0"},
			wantDelete:     []string{},
			wantReason:     ReasonInsufficientHistory,
		},
		{
			name:           "not promoted is skipped",
			versions:       []string{"1.0", "1.1", "1.2"},
			pinned:         nil,
			retention:      1,
			wantCandidates: []string{},
			wantKeep:       []string{},
			wantDelete:     []string{},
			wantSkipped:    true,
			wantReason:     ReasonNotPromoted,
		},
		{
			name:           "zero retention deletes every candidate",
			versions:       []string{"0.3", "0.1", "0.2", "0.4"},
			pinned:         pin("0.3"),
			retention:      0,
			wantCandidates: []string{"0.2", "0.1"},
			wantKeep:       []string{},
			wantDelete:     []string{"0.2", "0.1"},
		},
		{
			name:           "zero retention with no candidates",
			versions:       []string{"1.0", "1.1"},
			pinned:         pin("1.0"),
			retention:      0,
			wantCandidates: []string{},
			wantKeep:       []string{},
			wantDelete:     []string{},
		},
		{
			name:           "exact retention count deletes nothing",
			versions:       []string{"1.0", "1.1", "1.2", "1.3"},
			pinned:         pin("1.3"),
			retention:      3,
			wantCandidates: []string{"1.2", "1.1", "1.0"},
			wantKeep:       []string{"1.2", "1.1", "1.0"},
			wantDelete:     []string{},
		},
		{
			name:           "versions newer than pin are untouched",
			versions:       []string{"3.0", "2.1", "2.0", "1.9", "1.8"},
			pinned:         pin("2.0"),
			retention:      1,
			wantCandidates: []string{"1.9", "1.8"},
			wantKeep:       []string{"1.9"},
			wantDelete:     []string{"1.8"},
		},
		{
			name:           "numeric ordering not lexical",
			versions:       []string{"1.9.0", "1.10.0", "1.2.0", "1.11.0"},
			pinned:         pin("1.11.0"),
			retention:      1,
			wantCandidates: []string{"1.10.0", "1.9.0", "1.2.0"},
			wantKeep:       []string{"1.10.0"},
			wantDelete:     []string{"1.9.0", "1.2.0"},
		},
		{
			name:           "duplicates of the pin are excluded",
			versions:       []string{"1.0", "1.1", "1.1.0", "0.9"},
			pinned:         pin("1.1"),
			retention:      1,
			wantCandidates: []string{"1.0", "0.9"},
			wantKeep:       []string{"1.0"},
			wantDelete:     []string{"0.9"},
		},
		{
			name:           "pin not present on server",
			versions:       []string{"1.0", "1.2", "1.4"},
			pinned:         pin("1.3"),
			retention:      1,
			wantCandidates: []string{"1.2", "1.0"},
			wantKeep:       []string{"1.2"},
			wantDelete:     []string{"1.0"},
		},
		{
			name:           "negative retention is clamped to zero",
			versions:       []string{"1.0", "1.1"},
			pinned:         pin("1.1"),
			retention:      -2,
			wantCandidates: []string{"1.0"},
			wantKeep:       []string{},
			wantDelete:     []string{"1.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Select(parseAll(t, tt.versions...), tt.pinned, tt.retention)

			if got := version.Strings(d.Candidates); !reflect.DeepEqual(got, tt.wantCandidates) {
				t.Errorf("Candidates = %v, want %v", got, tt.wantCandidates)
			}
			if got := version.Strings(d.Keep); !reflect.DeepEqual(got, tt.wantKeep) {
				t.Errorf("Keep = %v, want %v", got, tt.wantKeep)
			}
			if got := version.Strings(d.Delete); !reflect.DeepEqual(got, tt.wantDelete) {
				t.Errorf("Delete = %v, want %v", got, tt.wantDelete)
			}
			if d.Skipped != tt.wantSkipped {
				t.Errorf("Skipped = %v, want %v", d.Skipped, tt.wantSkipped)
			}
			if d.SkipReason != tt.wantReason {
				t.Errorf("SkipReason = %q, want %q", d.SkipReason, tt.wantReason)
			}
			if len(d.All) != len(tt.versions) {
				t.Errorf("All has %d versions, want %d", len(d.All), len(tt.versions))
			}
		})
	}
}

func TestSelect_Invariants(t *testing.T) {
	versions := parseAll(t, "0.1", "0.2", "0.3", "1.0", "1.0.1", "1.1", "1.2", "2.0", "2.0", "2.1")

	for _, pinned := range []*version.Version{nil, pin("0.1"), pin("1.0.1"), pin("2.0"), pin("9.9")} {
		for retention := 0; retention <= len(versions)+1; retention++ {
			d := Select(versions, pinned, retention)

			if pinned == nil {
				if !d.Skipped || len(d.Delete) != 0 {
					t.Fatalf("unpinned decision must be skipped with no deletions: %+v", d)
				}
				continue
			}

			if len(d.Candidates) < retention && len(d.Delete) != 0 {
				t.Errorf("pin=%s n=%d: deletions with insufficient history", pinned, retention)
			}
			if len(d.Keep)+len(d.Delete) != len(d.Candidates) {
				t.Errorf("pin=%s n=%d: keep+delete does not cover candidates", pinned, retention)
			}

			seen := make(map[int]bool)
			for i := range d.Keep {
				seen[i] = true
				if !d.Keep[i].Equal(d.Candidates[i]) {
					t.Errorf("pin=%s n=%d: Keep[%d] is not the candidate prefix", pinned, retention, i)
				}
			}
			for i := range d.Delete {
				idx := len(d.Keep) + i
				if seen[idx] {
					t.Errorf("pin=%s n=%d: keep and delete overlap at %d", pinned, retention, idx)
				}
				if !d.Delete[i].Equal(d.Candidates[idx]) {
					t.Errorf("pin=%s n=%d: Delete[%d] is not the candidate suffix", pinned, retention, i)
				}
			}
			for _, c := range d.Candidates {
				if version.Compare(c, *pinned) != version.Less {
					t.Errorf("pin=%s n=%d: candidate %s is not older than pin", pinned, retention, c)
				}
			}
		}
	}
}

func TestSelect_Idempotent(t *testing.T) {
	versions := parseAll(t, "1.3", "1.0", "1.2", "1.1", "1.4")
	first := Select(versions, pin("1.4"), 2)
	second := Select(versions, pin("1.4"), 2)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Select is not idempotent:\nfirst  = %+v\nsecond = %+v", first, second)
	}
}

func TestSelect_DoesNotMutateInput(t *testing.T) {
	versions := parseAll(t, "1.0", "1.2", "1.1")
	Select(versions, pin("1.2"), 0)

	if got := version.Strings(versions); !reflect.DeepEqual(got, []string{"1.0", "1.2", "1.1"}) {
		t.Errorf("input mutated to %v", got)
	}
}

func TestDecision_HasDeletions(t *testing.T) {
	versions := parseAll(t, "1.0", "1.1", "1.2")

	if !Select(versions, pin("1.2"), 1).HasDeletions() {
		t.Error("expected deletions")
	}
	if Select(versions, pin("1.2"), 5).HasDeletions() {
		t.Error("expected no deletions with insufficient history")
	}
	if Select(versions, nil, 0).HasDeletions() {
		t.Error("expected no deletions when not promoted")
	}
}
