// Package ledger records the status of every job so clients can ask how a
// submission is progressing between polls.
package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"pagemotion/internal/jobs"
	"pagemotion/internal/pkg/errors"
)

// Entry is the status of one kind of one submission.
type Entry struct {
	JobID     string      `json:"job_id"`
	Kind      jobs.Kind   `json:"kind"`
	Status    jobs.Status `json:"status"`
	Code      string      `json:"code,omitempty"`
	Message   string      `json:"message,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Store persists entries keyed by job ID and kind.
type Store interface {
	// Record inserts or replaces the entry for (JobID, Kind).
	Record(ctx context.Context, e Entry) error
	// Get returns every entry of a job ordered by kind. It returns a
	// NOT_FOUND error when the job is unknown.
	Get(ctx context.Context, jobID string) ([]Entry, error)
	Ping(ctx context.Context) error
	Close() error
}

// Memory is a Store for a single process.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]map[jobs.Kind]Entry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]map[jobs.Kind]Entry)}
}

func (m *Memory) Record(_ context.Context, e Entry) error {
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byKind, ok := m.entries[e.JobID]
	if !ok {
		byKind = make(map[jobs.Kind]Entry)
		m.entries[e.JobID] = byKind
	}
	byKind[e.Kind] = e
	return nil
}

func (m *Memory) Get(_ context.Context, jobID string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byKind, ok := m.entries[jobID]
	if !ok {
		return nil, errors.NotFound("job", jobID)
	}
	out := make([]Entry, 0, len(byKind))
	for _, e := range byKind {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
