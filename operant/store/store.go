// Package store provides persistence for trial and session records.
//
// Every completed trial is written through a Store before the next trial
// starts, so a crashed process never loses more than the in-flight trial.
// Backends range from a per-subject CSV file (the traditional lab format)
// to SQLite for single-rig setups and MySQL for a lab-central database.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested subject has no stored records.
var ErrNotFound = errors.New("not found")

// TrialRecord is the persisted form of a completed trial.
type TrialRecord struct {
	// Subject identifies the animal or participant.
	Subject string `json:"subject"`

	// Behavior names the behavior protocol that ran the trial.
	Behavior string `json:"behavior"`

	// Session is the session index (1-indexed).
	Session int `json:"session"`

	// Index is the trial index within the session (1-indexed).
	Index int `json:"index"`

	// Time is the trial start time.
	Time time.Time `json:"time"`

	// Stimulus and Condition name what was presented.
	Stimulus  string `json:"stimulus"`
	Condition string `json:"condition"`

	// Response records whether the subject responded.
	Response bool `json:"response"`

	// Correct records whether the response matched the condition.
	Correct bool `json:"correct"`

	// RT is the reaction time. Zero when the subject did not respond.
	RT time.Duration `json:"rt"`

	// Reward and Punish record the consequence delivered.
	Reward bool `json:"reward"`
	Punish bool `json:"punish"`

	// Annotations carries behavior-specific extras, e.g. the intertrial
	// interval or the staircase value.
	Annotations map[string]string `json:"annotations,omitempty"`
}

// SessionRecord summarizes a completed session.
type SessionRecord struct {
	Subject  string    `json:"subject"`
	Behavior string    `json:"behavior"`
	Session  int       `json:"session"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Trials   int       `json:"trials"`
	Rewards  int       `json:"rewards"`
}

// Store persists trial and session records.
//
// Implementations must be safe for use from a single experiment controller;
// they do not need to support concurrent writers.
type Store interface {
	// SaveTrial persists a completed trial. Called once per trial, before
	// the next trial begins.
	SaveTrial(ctx context.Context, record TrialRecord) error

	// SaveSession persists a session summary at session end.
	SaveSession(ctx context.Context, record SessionRecord) error

	// Trials returns all stored trials for a subject in insertion order.
	// Returns ErrNotFound when the subject has no trials.
	Trials(ctx context.Context, subject string) ([]TrialRecord, error)

	// LastTrial returns the most recently stored trial for a subject.
	// Returns ErrNotFound when the subject has no trials.
	LastTrial(ctx context.Context, subject string) (TrialRecord, error)

	// Close releases any underlying resources.
	Close() error
}
