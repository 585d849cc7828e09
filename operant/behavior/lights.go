package behavior

import (
	"context"
	"time"

	"github.com/opyrant/opyrant/operant"
)

// Lights runs a rig's light schedule with no experiment attached: house
// light on during the day window, off at night. Used to keep a box on a
// normal light cycle between experiments and to check new rig wiring.
type Lights struct {
	rig      operant.Rig
	schedule *operant.TimeOfDayScheduler
	clock    operant.Clock
	interval time.Duration
}

// NewLights returns a light-schedule runner with the given daily [on,
// off) window.
func NewLights(rig operant.Rig, lightsOn, lightsOff time.Duration) *Lights {
	return &Lights{
		rig:      rig,
		schedule: operant.NewTimeOfDayScheduler(lightsOn, lightsOff),
		clock:    operant.NewClock(),
		interval: time.Minute,
	}
}

// SetClock substitutes the time source, for tests.
func (l *Lights) SetClock(clock operant.Clock, interval time.Duration) {
	l.clock = clock
	l.interval = interval
}

// Run follows the schedule until the context is cancelled.
func (l *Lights) Run(ctx context.Context) error {
	lit := false
	first := true
	for {
		day := l.schedule.Permits(l.clock.Now())
		if first || day != lit {
			var err error
			if day {
				err = l.rig.Reset(ctx)
			} else {
				err = l.rig.Sleep(ctx)
			}
			if err != nil {
				return err
			}
			lit = day
			first = false
		}
		if err := l.clock.Sleep(ctx, l.interval); err != nil {
			return err
		}
	}
}
