package behavior

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/opyrant/opyrant/operant"
	"github.com/opyrant/opyrant/operant/panel"
)

// SimpleStimulusPlayback plays stimuli with no response contingency,
// used for passive exposure and playback experiments. The pause after
// each stimulus is either fixed or drawn uniformly from a range.
type SimpleStimulusPlayback struct {
	operant.BaseBehavior

	panel *panel.Panel

	// Interval is the pause after each stimulus when MaxInterval is
	// zero. Otherwise the pause is uniform in [Interval, MaxInterval].
	Interval    time.Duration
	MaxInterval time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimpleStimulusPlayback returns the paradigm with a fixed interval.
func NewSimpleStimulusPlayback(p *panel.Panel, interval time.Duration) (*SimpleStimulusPlayback, error) {
	if p.Speaker == nil {
		return nil, ErrNoSpeaker
	}
	return &SimpleStimulusPlayback{panel: p, Interval: interval}, nil
}

func (s *SimpleStimulusPlayback) Name() string {
	return "SimpleStimulusPlayback"
}

// SetRand fixes the interval randomness, for reproducible runs.
func (s *SimpleStimulusPlayback) SetRand(rng *rand.Rand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = rng
}

// StimulusMain plays the stimulus through to the end.
func (s *SimpleStimulusPlayback) StimulusMain(ctx context.Context, t *operant.Trial) error {
	if err := s.panel.Speaker.Queue(t.Stimulus.Path); err != nil {
		return err
	}
	if err := s.panel.Speaker.Play(); err != nil {
		return err
	}

	timer := time.NewTimer(t.Stimulus.Duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		s.panel.Speaker.Stop()
		return ctx.Err()
	}
}

// TrialPost waits out the playback interval.
func (s *SimpleStimulusPlayback) TrialPost(ctx context.Context, t *operant.Trial) error {
	pause := s.nextInterval()
	if pause <= 0 {
		return nil
	}
	timer := time.NewTimer(pause)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SimpleStimulusPlayback) nextInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.MaxInterval <= s.Interval {
		return s.Interval
	}
	span := int64(s.MaxInterval - s.Interval)
	if s.rng != nil {
		return s.Interval + time.Duration(s.rng.Int63n(span))
	}
	return s.Interval + time.Duration(rand.Int63n(span))
}
