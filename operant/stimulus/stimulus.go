// Package stimulus defines stimuli and the conditions that bundle them with
// reinforcement instructions.
//
// A Condition names a class of trials (e.g. "Rewarded" / "Unrewarded" in a
// go/no-go task): which stimuli it can present, what response is expected,
// and whether correct or incorrect responses are consequated. Conditions are
// the items fed through trial queues.
package stimulus

import (
	"fmt"
	"math/rand"
	"time"
)

// Stimulus is a single presentable stimulus, typically an audio file.
type Stimulus struct {
	// Name is a short identifier, usually the file base name.
	Name string

	// Path is the location of the underlying file, empty for synthetic
	// stimuli.
	Path string

	// Duration is how long the stimulus plays. Zero when unknown.
	Duration time.Duration
}

// Condition is a class of trials sharing an expected response and
// reinforcement instructions.
type Condition struct {
	// Name labels the condition in trial records and events.
	Name string

	// Response is the response that scores the trial as correct. For
	// interruption tasks true means "the subject responded during
	// playback".
	Response bool

	// Rewarded marks correct trials in this condition as eligible for
	// reward.
	Rewarded bool

	// Punished marks incorrect trials in this condition as eligible for
	// punishment.
	Punished bool

	stimuli []Stimulus
	rng     *rand.Rand
}

// NewCondition creates a condition over a fixed stimulus set.
func NewCondition(name string, response, rewarded, punished bool, stimuli []Stimulus) *Condition {
	return &Condition{
		Name:     name,
		Response: response,
		Rewarded: rewarded,
		Punished: punished,
		stimuli:  stimuli,
	}
}

// SetRand sets the random source used by Get, making stimulus selection
// reproducible.
func (c *Condition) SetRand(rng *rand.Rand) {
	c.rng = rng
}

// Stimuli returns the condition's stimulus set.
func (c *Condition) Stimuli() []Stimulus {
	return c.stimuli
}

// Get selects a stimulus for the next trial, uniformly at random.
func (c *Condition) Get() (Stimulus, error) {
	if len(c.stimuli) == 0 {
		return Stimulus{}, fmt.Errorf("condition %q has no stimuli", c.Name)
	}
	var i int
	if c.rng != nil {
		i = c.rng.Intn(len(c.stimuli))
	} else {
		i = rand.Intn(len(c.stimuli))
	}
	return c.stimuli[i], nil
}

// String describes the condition for logs.
func (c *Condition) String() string {
	return fmt.Sprintf("%s (%d stimuli, response=%t, rewarded=%t, punished=%t)",
		c.Name, len(c.stimuli), c.Response, c.Rewarded, c.Punished)
}
