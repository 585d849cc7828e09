package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists trial and session records in a SQLite database.
// It is the right fit for a single rig: one file next to the stimuli,
// no server to run, and safe concurrent access through WAL mode.
//
// Example:
//
//	st, err := store.NewSQLiteStore("data/bird42.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a SQLite database at path and
// runs schema migration. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// modernc.org/sqlite serializes access; a single connection avoids
	// SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS trials (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			subject TEXT NOT NULL,
			behavior TEXT NOT NULL,
			session INTEGER NOT NULL,
			trial_index INTEGER NOT NULL,
			trial_time TEXT NOT NULL,
			stimulus TEXT NOT NULL,
			condition_name TEXT NOT NULL,
			response INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			rt_ms INTEGER NOT NULL,
			reward INTEGER NOT NULL,
			punish INTEGER NOT NULL,
			annotations TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trials_subject ON trials(subject, session, trial_index)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			subject TEXT NOT NULL,
			behavior TEXT NOT NULL,
			session INTEGER NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			trials INTEGER NOT NULL,
			rewards INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_subject ON sessions(subject, session)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating tables: %w", err)
		}
	}
	return nil
}

// SaveTrial inserts one trial row.
func (s *SQLiteStore) SaveTrial(ctx context.Context, record TrialRecord) error {
	var annotations []byte
	if len(record.Annotations) > 0 {
		var err error
		annotations, err = json.Marshal(record.Annotations)
		if err != nil {
			return fmt.Errorf("marshaling annotations: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trials (subject, behavior, session, trial_index, trial_time,
			stimulus, condition_name, response, correct, rt_ms, reward, punish, annotations)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Subject, record.Behavior, record.Session, record.Index,
		record.Time.Format(time.RFC3339Nano),
		record.Stimulus, record.Condition,
		record.Response, record.Correct, record.RT.Milliseconds(),
		record.Reward, record.Punish, nullableString(annotations))
	if err != nil {
		return fmt.Errorf("inserting trial: %w", err)
	}
	return nil
}

// SaveSession inserts one session summary row.
func (s *SQLiteStore) SaveSession(ctx context.Context, record SessionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (subject, behavior, session, start_time, end_time, trials, rewards)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.Subject, record.Behavior, record.Session,
		record.Start.Format(time.RFC3339Nano), record.End.Format(time.RFC3339Nano),
		record.Trials, record.Rewards)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// Trials returns all trials for a subject ordered by session and index.
func (s *SQLiteStore) Trials(ctx context.Context, subject string) ([]TrialRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject, behavior, session, trial_index, trial_time,
			stimulus, condition_name, response, correct, rt_ms, reward, punish, annotations
		 FROM trials WHERE subject = ? ORDER BY session, trial_index`, subject)
	if err != nil {
		return nil, fmt.Errorf("querying trials: %w", err)
	}
	defer rows.Close()

	records, err := scanTrials(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

// LastTrial returns the subject's most recent trial.
func (s *SQLiteStore) LastTrial(ctx context.Context, subject string) (TrialRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT subject, behavior, session, trial_index, trial_time,
			stimulus, condition_name, response, correct, rt_ms, reward, punish, annotations
		 FROM trials WHERE subject = ? ORDER BY session DESC, trial_index DESC LIMIT 1`, subject)

	record, err := scanTrial(row)
	if err == sql.ErrNoRows {
		return TrialRecord{}, ErrNotFound
	}
	if err != nil {
		return TrialRecord{}, fmt.Errorf("querying last trial: %w", err)
	}
	return record, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullableString(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrial(row rowScanner) (TrialRecord, error) {
	var (
		record      TrialRecord
		trialTime   string
		rtMs        int64
		annotations sql.NullString
	)
	err := row.Scan(&record.Subject, &record.Behavior, &record.Session, &record.Index,
		&trialTime, &record.Stimulus, &record.Condition,
		&record.Response, &record.Correct, &rtMs,
		&record.Reward, &record.Punish, &annotations)
	if err != nil {
		return TrialRecord{}, err
	}

	record.Time, err = time.Parse(time.RFC3339Nano, trialTime)
	if err != nil {
		return TrialRecord{}, fmt.Errorf("parsing trial time: %w", err)
	}
	record.RT = time.Duration(rtMs) * time.Millisecond

	if annotations.Valid && annotations.String != "" {
		if err := json.Unmarshal([]byte(annotations.String), &record.Annotations); err != nil {
			return TrialRecord{}, fmt.Errorf("unmarshaling annotations: %w", err)
		}
	}
	return record, nil
}

func scanTrials(rows *sql.Rows) ([]TrialRecord, error) {
	var records []TrialRecord
	for rows.Next() {
		record, err := scanTrial(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning trial: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
