package escalation

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store. It is used in tests and single-node
// deployments without Redis or Postgres.
type MemoryStore struct {
	mu       sync.Mutex
	subjects map[Subject]*memoryRecord
}

type memoryRecord struct {
	snap      Snapshot
	reporters map[string]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subjects: make(map[Subject]*memoryRecord)}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) record(s Subject) *memoryRecord {
	r, ok := m.subjects[s]
	if !ok {
		r = &memoryRecord{reporters: make(map[string]struct{})}
		m.subjects[s] = r
	}
	return r
}

func (m *MemoryStore) Snapshot(ctx context.Context, s Subject) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.subjects[s]; ok {
		return r.snap, nil
	}
	return Snapshot{}, nil
}

func (m *MemoryStore) AdvanceStatus(ctx context.Context, s Subject, target Status) (Status, bool, error) {
	if !target.Valid() {
		return StatusActive, false, ErrInvalidStatus
	}
	if err := ctx.Err(); err != nil {
		return StatusActive, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.record(s)
	prev := r.snap.Status
	if target <= prev {
		return prev, false, nil
	}
	r.snap.Status = target
	return prev, true, nil
}

func (m *MemoryStore) Reinstate(ctx context.Context, s Subject, status Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(s).snap.Status = status
	return nil
}

func (m *MemoryStore) AddReport(ctx context.Context, s Subject, reporterID string) (bool, error) {
	if strings.TrimSpace(reporterID) == "" {
		return false, ErrEmptyReporter
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.record(s)
	if _, dup := r.reporters[reporterID]; dup {
		return false, nil
	}
	r.reporters[reporterID] = struct{}{}
	r.snap.Reports++
	return true, nil
}

func (m *MemoryStore) AddViolation(ctx context.Context, s Subject) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(s).snap.Violations++
	return nil
}
