package operant

import (
	"math/rand"
	"sync"
)

// Reinforcement decides whether a trial's outcome is consequated, that
// is whether a correct response actually earns the reward and an
// incorrect one the punishment. Partial schedules keep subjects working
// without feeding them on every correct trial.
type Reinforcement interface {
	// Consequate reports whether this trial's consequence is delivered.
	Consequate(correct bool) bool
}

// Continuous consequates every trial. The standard schedule for early
// training.
type Continuous struct{}

func (Continuous) Consequate(bool) bool {
	return true
}

// VariableRatio rewards correct responses on average once per Ratio
// trials. Incorrect responses are always consequated so punishment
// contingencies stay intact.
type VariableRatio struct {
	Ratio int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewVariableRatio returns a VR-ratio schedule. A ratio below 2
// degenerates to continuous reinforcement.
func NewVariableRatio(ratio int) *VariableRatio {
	return &VariableRatio{Ratio: ratio}
}

// SetRand fixes the randomness source, for reproducible runs.
func (v *VariableRatio) SetRand(rng *rand.Rand) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rng = rng
}

func (v *VariableRatio) Consequate(correct bool) bool {
	if !correct {
		return true
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.Ratio < 2 {
		return true
	}
	if v.rng != nil {
		return v.rng.Intn(v.Ratio) == 0
	}
	return rand.Intn(v.Ratio) == 0
}
