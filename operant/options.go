package operant

import (
	"time"

	"github.com/opyrant/opyrant/operant/emit"
)

// Option configures a Controller.
type Option func(*Controller)

// WithEmitter routes controller and trial events to the given emitter.
// Use emit.Multi to fan out to several sinks.
func WithEmitter(e emit.Emitter) Option {
	return func(c *Controller) {
		if e != nil {
			c.emitter = e
		}
	}
}

// WithMetrics attaches an instrumentation sink.
func WithMetrics(m Metrics) Option {
	return func(c *Controller) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithClock substitutes the time source. Tests use this to run the
// state machine without waiting.
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithSleepSchedule darkens the box outside the daily [on, off) light
// window. Offsets are from local midnight.
func WithSleepSchedule(lightsOn, lightsOff time.Duration) Option {
	return func(c *Controller) {
		c.sleepSched = NewTimeOfDayScheduler(lightsOn, lightsOff)
	}
}

// WithSessionSchedule adds a scheduler gating session start and
// continuation. Multiple schedulers all have to permit.
func WithSessionSchedule(s Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.schedulers = append(c.schedulers, s)
		}
	}
}

// WithSessionDuration caps each session's wall-clock length.
func WithSessionDuration(max time.Duration) Option {
	return func(c *Controller) {
		if max > 0 {
			c.schedulers = append(c.schedulers, NewDurationScheduler(max))
		}
	}
}

// WithSessionTrialLimit caps trials per session.
func WithSessionTrialLimit(max int) Option {
	return func(c *Controller) {
		if max > 0 {
			c.schedulers = append(c.schedulers, NewCountScheduler(max))
		}
	}
}

// WithNumSessions stops the experiment after n sessions. Zero means
// unlimited.
func WithNumSessions(n int) Option {
	return func(c *Controller) {
		c.numSessions = n
	}
}

// WithIdlePollInterval sets how often the idle state re-checks the
// schedules. Default one second.
func WithIdlePollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.idlePoll = d
		}
	}
}

// WithIntertrialInterval sets the pause between consecutive trials.
func WithIntertrialInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.iti = d
		}
	}
}
