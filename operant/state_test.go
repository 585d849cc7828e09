package operant

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRunStates(t *testing.T) {
	var visited []string
	step := func(name, next string) State {
		return StateFunc{StateName: name, Fn: func(context.Context) (string, error) {
			visited = append(visited, name)
			return next, nil
		}}
	}

	err := RunStates(context.Background(), "a",
		step("a", "b"), step("b", "c"), step("c", ""))
	if err != nil {
		t.Fatalf("RunStates: %v", err)
	}
	if got := strings.Join(visited, ","); got != "a,b,c" {
		t.Errorf("visited %s, want a,b,c", got)
	}
}

func TestRunStatesUnknownState(t *testing.T) {
	err := RunStates(context.Background(), "a",
		StateFunc{StateName: "a", Fn: func(context.Context) (string, error) {
			return "nowhere", nil
		}})
	if err == nil || !strings.Contains(err.Error(), "nowhere") {
		t.Fatalf("got %v, want unknown state error", err)
	}
}

func TestRunStatesPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := RunStates(context.Background(), "a",
		StateFunc{StateName: "a", Fn: func(context.Context) (string, error) {
			return "", boom
		}})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}
}

func TestRunStatesStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runs := 0
	err := RunStates(ctx, "loop",
		StateFunc{StateName: "loop", Fn: func(context.Context) (string, error) {
			runs++
			if runs == 3 {
				cancel()
			}
			return "loop", nil
		}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if runs != 3 {
		t.Errorf("ran %d times, want 3", runs)
	}
}
