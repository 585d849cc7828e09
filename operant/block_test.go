package operant

import (
	"math/rand"
	"testing"

	"github.com/opyrant/opyrant/operant/queue"
	"github.com/opyrant/opyrant/operant/stimulus"
)

func testCondition(name string, response bool) *stimulus.Condition {
	return stimulus.NewCondition(name, response, true, false, []stimulus.Stimulus{
		{Name: name + "_1", Path: "/stims/" + name + "_1.wav"},
	})
}

func TestBlockHandlerAdvances(t *testing.T) {
	a := testCondition("a", true)
	b := testCondition("b", false)

	first := NewBlock("first", queue.NewBlock([]*stimulus.Condition{a, a}), nil)
	second := NewBlock("second", queue.NewBlock([]*stimulus.Condition{b}), nil)
	h := NewBlockHandler(first, second)

	var order []string
	for {
		condition, block, ok := h.Next()
		if !ok {
			break
		}
		order = append(order, block.Name+":"+condition.Name)
	}

	want := []string{"first:a", "first:a", "second:b"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
	if h.Remaining() != 0 {
		t.Errorf("Remaining after exhaustion: got %d", h.Remaining())
	}
}

func TestBlockDefaultsToContinuous(t *testing.T) {
	b := NewBlock("b", queue.NewBlock([]*stimulus.Condition{testCondition("a", true)}), nil)
	if !b.Reinforcement.Consequate(true) || !b.Reinforcement.Consequate(false) {
		t.Error("nil reinforcement should consequate everything")
	}
}

func TestContinuousReinforcement(t *testing.T) {
	var r Reinforcement = Continuous{}
	for i := 0; i < 10; i++ {
		if !r.Consequate(true) || !r.Consequate(false) {
			t.Fatal("continuous schedule skipped a consequence")
		}
	}
}

func TestVariableRatioAlwaysConsequatesIncorrect(t *testing.T) {
	r := NewVariableRatio(5)
	r.SetRand(rand.New(rand.NewSource(1)))
	for i := 0; i < 100; i++ {
		if !r.Consequate(false) {
			t.Fatal("incorrect trial not consequated")
		}
	}
}

func TestVariableRatioThinsCorrect(t *testing.T) {
	r := NewVariableRatio(4)
	r.SetRand(rand.New(rand.NewSource(7)))

	delivered := 0
	const trials = 4000
	for i := 0; i < trials; i++ {
		if r.Consequate(true) {
			delivered++
		}
	}
	// Expect roughly one in four.
	if delivered < trials/8 || delivered > trials/2 {
		t.Errorf("VR4 delivered %d of %d", delivered, trials)
	}
}

func TestVariableRatioDegeneratesToContinuous(t *testing.T) {
	r := NewVariableRatio(1)
	for i := 0; i < 10; i++ {
		if !r.Consequate(true) {
			t.Fatal("VR1 should consequate every correct trial")
		}
	}
}
