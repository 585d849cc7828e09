package operant

import (
	"testing"
	"time"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 14, hour, min, 0, 0, time.Local)
}

func TestTimeOfDayScheduler(t *testing.T) {
	day := NewTimeOfDayScheduler(7*time.Hour, 19*time.Hour)

	cases := []struct {
		now  time.Time
		want bool
	}{
		{at(6, 59), false},
		{at(7, 0), true},
		{at(12, 0), true},
		{at(18, 59), true},
		{at(19, 0), false},
		{at(23, 0), false},
	}
	for _, tc := range cases {
		if got := day.Permits(tc.now); got != tc.want {
			t.Errorf("Permits(%v) = %v, want %v", tc.now.Format("15:04"), got, tc.want)
		}
	}
}

func TestTimeOfDaySchedulerSpansMidnight(t *testing.T) {
	night := NewTimeOfDayScheduler(22*time.Hour, 4*time.Hour)

	if !night.Permits(at(23, 0)) {
		t.Error("23:00 should be inside a 22:00-04:00 window")
	}
	if !night.Permits(at(2, 0)) {
		t.Error("02:00 should be inside a 22:00-04:00 window")
	}
	if night.Permits(at(12, 0)) {
		t.Error("12:00 should be outside a 22:00-04:00 window")
	}
}

func TestTimeOfDayNextOpen(t *testing.T) {
	day := NewTimeOfDayScheduler(7*time.Hour, 19*time.Hour)

	now := at(12, 0)
	if got := day.NextOpen(now); !got.Equal(now) {
		t.Errorf("NextOpen inside window: got %v, want %v", got, now)
	}

	evening := at(20, 0)
	want := at(7, 0).Add(24 * time.Hour)
	if got := day.NextOpen(evening); !got.Equal(want) {
		t.Errorf("NextOpen after close: got %v, want %v", got, want)
	}

	early := at(5, 0)
	if got := day.NextOpen(early); !got.Equal(at(7, 0)) {
		t.Errorf("NextOpen before open: got %v, want %v", got, at(7, 0))
	}
}

func TestDurationScheduler(t *testing.T) {
	s := NewDurationScheduler(time.Hour)
	start := at(9, 0)

	if !s.Permits(start) {
		t.Error("unanchored scheduler should permit")
	}
	s.Begin(start)
	if !s.Permits(start.Add(59 * time.Minute)) {
		t.Error("should permit inside the hour")
	}
	if s.Permits(start.Add(time.Hour)) {
		t.Error("should close at the hour")
	}

	// A new session re-arms the window.
	s.Begin(start.Add(2 * time.Hour))
	if !s.Permits(start.Add(2*time.Hour + 30*time.Minute)) {
		t.Error("should permit after re-anchoring")
	}
}

func TestCountScheduler(t *testing.T) {
	s := NewCountScheduler(3)
	now := at(9, 0)
	s.Begin(now)

	for i := 0; i < 3; i++ {
		if !s.Permits(now) {
			t.Fatalf("closed after %d trials, want 3", i)
		}
		s.Observe()
	}
	if s.Permits(now) {
		t.Error("should close after 3 trials")
	}

	s.Begin(now)
	if !s.Permits(now) {
		t.Error("Begin should reset the count")
	}
}

func TestSchedulersReleaseOnEnd(t *testing.T) {
	now := at(9, 0)

	d := NewDurationScheduler(time.Hour)
	d.Begin(now)
	if d.Permits(now.Add(2 * time.Hour)) {
		t.Error("duration cap should have closed")
	}
	d.End()
	if !d.Permits(now.Add(2 * time.Hour)) {
		t.Error("End should release the duration cap")
	}

	c := NewCountScheduler(1)
	c.Begin(now)
	c.Observe()
	if c.Permits(now) {
		t.Error("count cap should have closed")
	}
	c.End()
	if !c.Permits(now) {
		t.Error("End should release the count cap")
	}
}
