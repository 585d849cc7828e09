package store

import (
	"context"
	"sync"
)

// MemStore is an in-memory implementation of Store.
//
// Designed for tests and throwaway runs; data is lost when the process
// terminates. Thread-safe.
type MemStore struct {
	mu       sync.RWMutex
	trials   map[string][]TrialRecord
	sessions map[string][]SessionRecord
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		trials:   make(map[string][]TrialRecord),
		sessions: make(map[string][]SessionRecord),
	}
}

// SaveTrial appends the record to the subject's trial history.
func (m *MemStore) SaveTrial(_ context.Context, record TrialRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.trials[record.Subject] = append(m.trials[record.Subject], record)
	return nil
}

// SaveSession appends the record to the subject's session history.
func (m *MemStore) SaveSession(_ context.Context, record SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[record.Subject] = append(m.sessions[record.Subject], record)
	return nil
}

// Trials returns a copy of the subject's trial history.
func (m *MemStore) Trials(_ context.Context, subject string) ([]TrialRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records, exists := m.trials[subject]
	if !exists || len(records) == 0 {
		return nil, ErrNotFound
	}

	result := make([]TrialRecord, len(records))
	copy(result, records)
	return result, nil
}

// LastTrial returns the most recently saved trial for the subject.
func (m *MemStore) LastTrial(_ context.Context, subject string) (TrialRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := m.trials[subject]
	if len(records) == 0 {
		return TrialRecord{}, ErrNotFound
	}
	return records[len(records)-1], nil
}

// Sessions returns a copy of the subject's session history.
func (m *MemStore) Sessions(_ context.Context, subject string) ([]SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records, exists := m.sessions[subject]
	if !exists || len(records) == 0 {
		return nil, ErrNotFound
	}

	result := make([]SessionRecord, len(records))
	copy(result, records)
	return result, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
