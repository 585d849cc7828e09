package operant

import (
	"sync"
	"time"
)

// Scheduler gates when sessions may run. The controller consults every
// configured scheduler before starting a session and between trials; a
// session runs only while all of them permit it.
type Scheduler interface {
	Permits(now time.Time) bool
}

// sessionStarter is implemented by schedulers that anchor on the session
// start time.
type sessionStarter interface {
	Begin(now time.Time)
}

// trialObserver is implemented by schedulers that count trials.
type trialObserver interface {
	Observe()
}

// sessionEnder is implemented by schedulers that gate only the running
// session. End releases the gate so the next session may start.
type sessionEnder interface {
	End()
}

// TimeOfDayScheduler permits sessions inside a daily clock window. Start
// and End are offsets from midnight in local time. A window whose Start
// is after its End spans midnight.
type TimeOfDayScheduler struct {
	Start time.Duration
	End   time.Duration
}

// NewTimeOfDayScheduler returns a scheduler for the [start, end) daily
// window.
func NewTimeOfDayScheduler(start, end time.Duration) *TimeOfDayScheduler {
	return &TimeOfDayScheduler{Start: start, End: end}
}

func (s *TimeOfDayScheduler) Permits(now time.Time) bool {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	offset := now.Sub(midnight)
	if s.Start <= s.End {
		return offset >= s.Start && offset < s.End
	}
	return offset >= s.Start || offset < s.End
}

// NextOpen returns the next time at or after now that the window is
// open. If the window is already open, now is returned unchanged.
func (s *TimeOfDayScheduler) NextOpen(now time.Time) time.Time {
	if s.Permits(now) {
		return now
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	open := midnight.Add(s.Start)
	if !open.After(now) {
		open = open.Add(24 * time.Hour)
	}
	return open
}

// DurationScheduler permits a session for a fixed length of time from
// its start.
type DurationScheduler struct {
	Max time.Duration

	mu    sync.Mutex
	start time.Time
}

// NewDurationScheduler caps sessions at max wall-clock time.
func NewDurationScheduler(max time.Duration) *DurationScheduler {
	return &DurationScheduler{Max: max}
}

// Begin anchors the session start.
func (s *DurationScheduler) Begin(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start = now
}

// End clears the anchor. Until the next Begin the scheduler permits
// freely, so a finished session does not block the following one.
func (s *DurationScheduler) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start = time.Time{}
}

func (s *DurationScheduler) Permits(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.start.IsZero() {
		return true
	}
	return now.Sub(s.start) < s.Max
}

// CountScheduler permits a fixed number of trials per session.
type CountScheduler struct {
	Max int

	mu    sync.Mutex
	count int
}

// NewCountScheduler caps sessions at max trials.
func NewCountScheduler(max int) *CountScheduler {
	return &CountScheduler{Max: max}
}

// Begin resets the trial count for a new session.
func (s *CountScheduler) Begin(time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = 0
}

// Observe records one completed trial.
func (s *CountScheduler) Observe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
}

// End resets the count so the next session is not blocked by the trials
// of the finished one.
func (s *CountScheduler) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = 0
}

func (s *CountScheduler) Permits(time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count < s.Max
}
