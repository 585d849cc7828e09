package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"
)

// csvHeader is the fixed column set written to trial CSVs. Annotation keys
// are appended after these, sorted, when the file is created.
var csvHeader = []string{
	"subject", "behavior", "session", "index", "time",
	"stimulus", "condition", "response", "correct", "rt_ms",
	"reward", "punish",
}

// CSVStore writes trial records to a per-run CSV file, the traditional
// format for behavioral data that flows straight into analysis notebooks.
//
// The header row is written when the file is created. Annotation columns
// are fixed at creation from the keys passed to NewCSVStore; annotations
// with unknown keys are dropped rather than corrupting the column layout.
//
// Session summaries are written to a sibling "<base>_sessions.csv" file.
//
// Reads (Trials, LastTrial) parse the file back, so a restarted experiment
// can inspect its own history.
type CSVStore struct {
	mu             sync.Mutex
	path           string
	sessionPath    string
	annotationKeys []string
}

// NewCSVStore creates a CSV store writing to path.
//
// annotationKeys fixes which annotation columns appear, in the given order.
// The trial file and its header are created eagerly so a crashed first trial
// still leaves a parseable file behind.
func NewCSVStore(path string, annotationKeys []string) (*CSVStore, error) {
	keys := make([]string, len(annotationKeys))
	copy(keys, annotationKeys)

	s := &CSVStore{
		path:           path,
		sessionPath:    sessionCSVPath(path),
		annotationKeys: keys,
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.writeHeader(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func sessionCSVPath(path string) string {
	ext := ".csv"
	base := path
	if n := len(path) - len(ext); n > 0 && path[n:] == ext {
		base = path[:n]
	}
	return base + "_sessions" + ext
}

func (s *CSVStore) header() []string {
	return append(append([]string{}, csvHeader...), s.annotationKeys...)
}

func (s *CSVStore) writeHeader() error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("creating trial csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(s.header()); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// SaveTrial appends one row to the trial CSV.
func (s *CSVStore) SaveTrial(_ context.Context, record TrialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening trial csv: %w", err)
	}
	defer f.Close()

	row := []string{
		record.Subject,
		record.Behavior,
		strconv.Itoa(record.Session),
		strconv.Itoa(record.Index),
		record.Time.Format(time.RFC3339Nano),
		record.Stimulus,
		record.Condition,
		strconv.FormatBool(record.Response),
		strconv.FormatBool(record.Correct),
		strconv.FormatInt(record.RT.Milliseconds(), 10),
		strconv.FormatBool(record.Reward),
		strconv.FormatBool(record.Punish),
	}
	for _, key := range s.annotationKeys {
		row = append(row, record.Annotations[key])
	}

	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// SaveSession appends one row to the session summary CSV, creating it with
// a header on first use.
func (s *CSVStore) SaveSession(_ context.Context, record SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, statErr := os.Stat(s.sessionPath)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(s.sessionPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening session csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write([]string{"subject", "behavior", "session", "start", "end", "trials", "rewards"}); err != nil {
			return err
		}
	}
	err = w.Write([]string{
		record.Subject,
		record.Behavior,
		strconv.Itoa(record.Session),
		record.Start.Format(time.RFC3339Nano),
		record.End.Format(time.RFC3339Nano),
		strconv.Itoa(record.Trials),
		strconv.Itoa(record.Rewards),
	})
	if err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Trials parses the trial CSV and returns the subject's rows in file order.
func (s *CSVStore) Trials(_ context.Context, subject string) ([]TrialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing trial csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrNotFound
	}

	var records []TrialRecord
	for _, row := range rows[1:] {
		record, err := s.parseRow(row)
		if err != nil {
			return nil, err
		}
		if record.Subject == subject {
			records = append(records, record)
		}
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

// LastTrial returns the subject's final row in the trial CSV.
func (s *CSVStore) LastTrial(ctx context.Context, subject string) (TrialRecord, error) {
	records, err := s.Trials(ctx, subject)
	if err != nil {
		return TrialRecord{}, err
	}
	return records[len(records)-1], nil
}

func (s *CSVStore) parseRow(row []string) (TrialRecord, error) {
	if len(row) < len(csvHeader) {
		return TrialRecord{}, fmt.Errorf("short csv row: %d columns", len(row))
	}

	session, _ := strconv.Atoi(row[2])
	index, _ := strconv.Atoi(row[3])
	ts, err := time.Parse(time.RFC3339Nano, row[4])
	if err != nil {
		return TrialRecord{}, fmt.Errorf("parsing trial time: %w", err)
	}
	response, _ := strconv.ParseBool(row[7])
	correct, _ := strconv.ParseBool(row[8])
	rtMs, _ := strconv.ParseInt(row[9], 10, 64)
	reward, _ := strconv.ParseBool(row[10])
	punish, _ := strconv.ParseBool(row[11])

	record := TrialRecord{
		Subject:   row[0],
		Behavior:  row[1],
		Session:   session,
		Index:     index,
		Time:      ts,
		Stimulus:  row[5],
		Condition: row[6],
		Response:  response,
		Correct:   correct,
		RT:        time.Duration(rtMs) * time.Millisecond,
		Reward:    reward,
		Punish:    punish,
	}

	if len(s.annotationKeys) > 0 && len(row) >= len(csvHeader)+len(s.annotationKeys) {
		record.Annotations = make(map[string]string, len(s.annotationKeys))
		for i, key := range s.annotationKeys {
			record.Annotations[key] = row[len(csvHeader)+i]
		}
	}

	return record, nil
}

// Close is a no-op; files are opened per write.
func (s *CSVStore) Close() error {
	return nil
}

// SortedAnnotationKeys returns the sorted key set of a record's
// annotations, a convenience for fixing CSV columns from a sample trial.
func SortedAnnotationKeys(record TrialRecord) []string {
	keys := make([]string, 0, len(record.Annotations))
	for key := range record.Annotations {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
