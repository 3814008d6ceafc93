package store

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/timerd/internal/timer"
)

// MockStore is an in-memory implementation of Store for testing.
type MockStore struct {
	mu        sync.RWMutex
	snapshots map[string]timer.Snapshot
	calls     MockCalls

	// FailPut, when set, is returned by every Put call.
	FailPut error
	// FailGet, when set, is returned by every Get call.
	FailGet error
}

// MockCalls tracks method invocations for test verification.
type MockCalls struct {
	Get    int
	Put    int
	Delete int
	All    int
}

// NewMockStore creates a new in-memory snapshot store.
func NewMockStore() *MockStore {
	return &MockStore{snapshots: make(map[string]timer.Snapshot)}
}

// Get retrieves the snapshot for a timer id.
func (m *MockStore) Get(_ context.Context, id string) (*timer.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Get++

	if m.FailGet != nil {
		return nil, false, m.FailGet
	}
	snap, ok := m.snapshots[id]
	if !ok {
		return nil, false, nil
	}
	return &snap, true, nil
}

// Put stores the snapshot for a timer id.
func (m *MockStore) Put(_ context.Context, id string, snap timer.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Put++

	if m.FailPut != nil {
		return m.FailPut
	}
	m.snapshots[id] = snap
	return nil
}

// Delete removes the snapshot for a timer id.
func (m *MockStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Delete++

	delete(m.snapshots, id)
	return nil
}

// All returns every stored snapshot keyed by timer id.
func (m *MockStore) All(_ context.Context) (map[string]timer.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.calls.All++

	out := make(map[string]timer.Snapshot, len(m.snapshots))
	for id, snap := range m.snapshots {
		out[id] = snap
	}
	return out, nil
}

// Close is a no-op for the mock.
func (m *MockStore) Close() error { return nil }

// Calls returns a copy of the recorded call counters.
func (m *MockStore) Calls() MockCalls {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}
