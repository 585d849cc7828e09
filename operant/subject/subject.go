// Package subject binds an experimental subject to its datastore.
package subject

import (
	"context"
	"errors"
	"fmt"

	"github.com/opyrant/opyrant/operant/store"
)

// Subject is one animal on one datastore. Every trial the subject runs
// is recorded through it, which keeps the subject name and session
// numbering consistent across restarts.
type Subject struct {
	// Name identifies the subject, conventionally its band or cage ID.
	Name string

	// Species and Sex are recorded for the lab's records and have no
	// effect on behavior.
	Species string
	Sex     string

	datastore store.Store
}

// New returns a subject recording to the given store.
func New(name string, datastore store.Store) *Subject {
	return &Subject{Name: name, datastore: datastore}
}

// StoreTrial writes one completed trial. The record's subject field is
// overwritten with this subject's name so rows can never be misfiled.
func (s *Subject) StoreTrial(ctx context.Context, record store.TrialRecord) error {
	if s.datastore == nil {
		return fmt.Errorf("subject %s: no datastore attached", s.Name)
	}
	record.Subject = s.Name
	if err := s.datastore.SaveTrial(ctx, record); err != nil {
		return fmt.Errorf("storing trial for %s: %w", s.Name, err)
	}
	return nil
}

// StoreSession writes one session summary.
func (s *Subject) StoreSession(ctx context.Context, record store.SessionRecord) error {
	if s.datastore == nil {
		return fmt.Errorf("subject %s: no datastore attached", s.Name)
	}
	record.Subject = s.Name
	if err := s.datastore.SaveSession(ctx, record); err != nil {
		return fmt.Errorf("storing session for %s: %w", s.Name, err)
	}
	return nil
}

// History returns all recorded trials for this subject. A subject with no
// trials yet gets an empty history, not an error.
func (s *Subject) History(ctx context.Context) ([]store.TrialRecord, error) {
	records, err := s.datastore.Trials(ctx, s.Name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return records, err
}

// NextSession returns the session number a new session should use, one
// past the last recorded trial's session. A fresh subject starts at 1.
func (s *Subject) NextSession(ctx context.Context) (int, error) {
	last, err := s.datastore.LastTrial(ctx, s.Name)
	if errors.Is(err, store.ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return last.Session + 1, nil
}

// Close releases the underlying datastore.
func (s *Subject) Close() error {
	if s.datastore == nil {
		return nil
	}
	return s.datastore.Close()
}
