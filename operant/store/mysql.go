package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// MySQLStore persists trial and session records in MySQL, for labs that
// aggregate many rigs into one shared database.
//
// The DSN should include parseTime and a sensible charset, e.g.:
//
//	user:pass@tcp(db.lab.local:3306)/opyrant?parseTime=true&charset=utf8mb4
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore connects to MySQL, verifies the connection, and runs
// schema migration.
func NewMySQLStore(ctx context.Context, dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening mysql connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging mysql: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MySQLStore) createTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS trials (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			subject VARCHAR(255) NOT NULL,
			behavior VARCHAR(255) NOT NULL,
			session INT NOT NULL,
			trial_index INT NOT NULL,
			trial_time DATETIME(6) NOT NULL,
			stimulus TEXT NOT NULL,
			condition_name VARCHAR(255) NOT NULL,
			response BOOLEAN NOT NULL,
			correct BOOLEAN NOT NULL,
			rt_ms BIGINT NOT NULL,
			reward BOOLEAN NOT NULL,
			punish BOOLEAN NOT NULL,
			annotations JSON,
			INDEX idx_trials_subject (subject, session, trial_index)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			subject VARCHAR(255) NOT NULL,
			behavior VARCHAR(255) NOT NULL,
			session INT NOT NULL,
			start_time DATETIME(6) NOT NULL,
			end_time DATETIME(6) NOT NULL,
			trials INT NOT NULL,
			rewards INT NOT NULL,
			INDEX idx_sessions_subject (subject, session)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating tables: %w", err)
		}
	}
	return nil
}

// SaveTrial inserts one trial row.
func (s *MySQLStore) SaveTrial(ctx context.Context, record TrialRecord) error {
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
		record.Time.UTC(),
		record.Stimulus, record.Condition,
		record.Response, record.Correct, record.RT.Milliseconds(),
		record.Reward, record.Punish, nullableString(annotations))
	if err != nil {
		return fmt.Errorf("inserting trial: %w", err)
	}
	return nil
}

// SaveSession inserts one session summary row.
func (s *MySQLStore) SaveSession(ctx context.Context, record SessionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (subject, behavior, session, start_time, end_time, trials, rewards)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.Subject, record.Behavior, record.Session,
		record.Start.UTC(), record.End.UTC(),
		record.Trials, record.Rewards)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// Trials returns all trials for a subject ordered by session and index.
func (s *MySQLStore) Trials(ctx context.Context, subject string) ([]TrialRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject, behavior, session, trial_index, trial_time,
			stimulus, condition_name, response, correct, rt_ms, reward, punish, annotations
		 FROM trials WHERE subject = ? ORDER BY session, trial_index`, subject)
	if err != nil {
		return nil, fmt.Errorf("querying trials: %w", err)
	}
	defer rows.Close()

	records, err := scanMySQLTrials(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

// LastTrial returns the subject's most recent trial.
func (s *MySQLStore) LastTrial(ctx context.Context, subject string) (TrialRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT subject, behavior, session, trial_index, trial_time,
			stimulus, condition_name, response, correct, rt_ms, reward, punish, annotations
		 FROM trials WHERE subject = ? ORDER BY session DESC, trial_index DESC LIMIT 1`, subject)

	record, err := scanMySQLTrial(row)
	if err == sql.ErrNoRows {
		return TrialRecord{}, ErrNotFound
	}
	if err != nil {
		return TrialRecord{}, fmt.Errorf("querying last trial: %w", err)
	}
	return record, nil
}

// Close closes the underlying database.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

func scanMySQLTrial(row rowScanner) (TrialRecord, error) {
	var (
		record      TrialRecord
		rtMs        int64
		annotations sql.NullString
	)
	err := row.Scan(&record.Subject, &record.Behavior, &record.Session, &record.Index,
		&record.Time, &record.Stimulus, &record.Condition,
		&record.Response, &record.Correct, &rtMs,
		&record.Reward, &record.Punish, &annotations)
	if err != nil {
		return TrialRecord{}, err
	}

	record.RT = time.Duration(rtMs) * time.Millisecond

	if annotations.Valid && annotations.String != "" {
		if err := json.Unmarshal([]byte(annotations.String), &record.Annotations); err != nil {
			return TrialRecord{}, fmt.Errorf("unmarshaling annotations: %w", err)
		}
	}
	return record, nil
}

func scanMySQLTrials(rows *sql.Rows) ([]TrialRecord, error) {
	var records []TrialRecord
	for rows.Next() {
		record, err := scanMySQLTrial(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning trial: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
