package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps history in process memory. It backs the "memory"
// driver and tests; nothing survives a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*Run)}
}

// RecordRun implements Store.
func (m *MemoryStore) RecordRun(ctx context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[run.ID]; exists {
		return NewStorageError("memory", "record", fmt.Errorf("run %s already recorded", run.ID))
	}
	m.runs[run.ID] = cloneRun(run)
	return nil
}

// ListRuns implements Store.
func (m *MemoryStore) ListRuns(ctx context.Context, query Query) ([]*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := []*Run{}
	for _, run := range m.runs {
		if query.Environment != "" && run.Environment != query.Environment {
			continue
		}
		if !query.Since.IsZero() && run.StartedAt.Before(query.Since) {
			continue
		}
		if query.DestructiveOnly && !run.Destructive {
			continue
		}
		summary := cloneRun(run)
		summary.Cookbooks = nil
		runs = append(runs, summary)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	limit := query.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetRun implements Store.
func (m *MemoryStore) GetRun(ctx context.Context, id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return cloneRun(run), nil
}

// LastRun implements Store.
func (m *MemoryStore) LastRun(ctx context.Context) (*Run, error) {
	runs, err := m.ListRuns(ctx, Query{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrRunNotFound
	}
	return runs[0], nil
}

// Prune implements Store.
func (m *MemoryStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for id, run := range m.runs {
		if run.StartedAt.Before(cutoff) {
			delete(m.runs, id)
			count++
		}
	}
	return count, nil
}

// Ping implements Store.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	return nil
}

func cloneRun(run *Run) *Run {
	c := *run
	c.Cookbooks = make([]Cookbook, len(run.Cookbooks))
	for i, cb := range run.Cookbooks {
		cb.Deletions = append([]Deletion(nil), cb.Deletions...)
		c.Cookbooks[i] = cb
	}
	return &c
}
