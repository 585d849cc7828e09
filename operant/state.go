package operant

import (
	"context"
	"fmt"
)

// State is one node of the controller's top-level state machine. Run
// executes the state and names the next one; an empty next stops the
// machine.
type State interface {
	Name() string
	Run(ctx context.Context) (next string, err error)
}

// StateFunc adapts a function to the State interface.
type StateFunc struct {
	StateName string
	Fn        func(ctx context.Context) (string, error)
}

func (s StateFunc) Name() string {
	return s.StateName
}

func (s StateFunc) Run(ctx context.Context) (string, error) {
	return s.Fn(ctx)
}

// RunStates drives the state machine from the start state until a state
// returns an empty next state, an error, or the context is done.
func RunStates(ctx context.Context, start string, states ...State) error {
	byName := make(map[string]State, len(states))
	for _, state := range states {
		byName[state.Name()] = state
	}

	current := start
	for current != "" {
		if err := ctx.Err(); err != nil {
			return err
		}
		state, ok := byName[current]
		if !ok {
			return fmt.Errorf("unknown state %q", current)
		}
		next, err := state.Run(ctx)
		if err != nil {
			return fmt.Errorf("state %s: %w", current, err)
		}
		current = next
	}
	return nil
}
