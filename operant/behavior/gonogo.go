// Package behavior implements concrete experimental paradigms on top of
// the operant engine.
package behavior

import (
	"context"
	"errors"
	"time"

	"github.com/opyrant/opyrant/operant"
	"github.com/opyrant/opyrant/operant/panel"
)

// ErrNoSpeaker is returned when a paradigm that plays sound is wired to
// a panel without one.
var ErrNoSpeaker = errors.New("behavior: panel has no speaker")

// GoNoGoInterrupt is a go/no-go discrimination where the response is
// interrupting playback. The subject pecks the lit center port to start
// a trial, a stimulus plays, and a peck during the response window is
// the "go" response. Correct go responses on rewarded conditions raise
// the feeder; false alarms on punished conditions darken the box.
//
// After a trial with a response, the next trial starts immediately
// without requiring a fresh observing peck, which keeps a working bird
// in the task.
type GoNoGoInterrupt struct {
	operant.BaseBehavior

	panel *panel.Panel

	// RewardDuration is how long the hopper stays up.
	RewardDuration time.Duration

	// PunishDuration is how long the box goes dark after a false alarm.
	PunishDuration time.Duration

	// ResponseWindow extends the response period past the end of the
	// stimulus.
	ResponseWindow time.Duration

	// MaxWait bounds how long a trial waits for the observing peck.
	// Zero waits indefinitely.
	MaxWait time.Duration

	stimulusOnset time.Time
	chainNext     bool
}

// NewGoNoGoInterrupt returns the paradigm with standard timing: 2s
// hopper access, 10s timeout, 2s response window.
func NewGoNoGoInterrupt(p *panel.Panel) (*GoNoGoInterrupt, error) {
	if p.Speaker == nil {
		return nil, ErrNoSpeaker
	}
	return &GoNoGoInterrupt{
		panel:          p,
		RewardDuration: 2 * time.Second,
		PunishDuration: 10 * time.Second,
		ResponseWindow: 2 * time.Second,
	}, nil
}

func (g *GoNoGoInterrupt) Name() string {
	return "GoNoGoInterrupt"
}

func (g *GoNoGoInterrupt) SessionPre(ctx context.Context) error {
	g.chainNext = false
	return g.panel.Reset(ctx)
}

func (g *GoNoGoInterrupt) SessionPost(ctx context.Context) error {
	return g.panel.Reset(ctx)
}

// TrialPre waits for the observing peck on the lit center port, unless
// the previous trial ended with a response.
func (g *GoNoGoInterrupt) TrialPre(ctx context.Context, t *operant.Trial) error {
	if g.chainNext {
		g.chainNext = false
		t.Annotate("chained", "true")
		return nil
	}

	if err := g.panel.Center.CueOn(ctx); err != nil {
		return err
	}
	_, pecked, err := g.panel.Center.Poll(ctx, g.MaxWait)
	if cueErr := g.panel.Center.CueOff(context.Background()); cueErr != nil && err == nil {
		err = cueErr
	}
	if err != nil {
		return err
	}
	if !pecked {
		return operant.ErrEndSession
	}
	return nil
}

func (g *GoNoGoInterrupt) StimulusMain(ctx context.Context, t *operant.Trial) error {
	if err := g.panel.Speaker.Queue(t.Stimulus.Path); err != nil {
		return err
	}
	if err := g.panel.Speaker.Play(); err != nil {
		return err
	}
	g.stimulusOnset = time.Now()
	return nil
}

// ResponseMain polls the center port for the stimulus length plus the
// response window. A peck interrupts playback and is the go response.
func (g *GoNoGoInterrupt) ResponseMain(ctx context.Context, t *operant.Trial) error {
	window := t.Stimulus.Duration + g.ResponseWindow
	peckAt, pecked, err := g.panel.Center.Poll(ctx, window)
	if err != nil {
		return err
	}

	if pecked {
		t.Response = true
		t.ResponseTime = peckAt
		t.RT = peckAt.Sub(g.stimulusOnset)
		if err := g.panel.Speaker.Stop(); err != nil {
			return err
		}
	}
	return nil
}

func (g *GoNoGoInterrupt) RewardMain(ctx context.Context, t *operant.Trial) error {
	return g.panel.Feeder.Feed(ctx, g.RewardDuration)
}

func (g *GoNoGoInterrupt) PunishMain(ctx context.Context, t *operant.Trial) error {
	return g.panel.HouseLight.Timeout(ctx, g.PunishDuration)
}

func (g *GoNoGoInterrupt) TrialPost(ctx context.Context, t *operant.Trial) error {
	if t.Response {
		g.chainNext = true
	}
	return nil
}
