package operant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/opyrant/opyrant/operant/emit"
	"github.com/opyrant/opyrant/operant/queue"
	"github.com/opyrant/opyrant/operant/stimulus"
	"github.com/opyrant/opyrant/operant/store"
	"github.com/opyrant/opyrant/operant/subject"
)

// fakeClock advances instantly through every sleep so schedule-driven
// tests run in microseconds.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
	return ctx.Err()
}

type fakeRig struct {
	mu     sync.Mutex
	resets int
	sleeps int
	asleep bool
}

func (r *fakeRig) Reset(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets++
	r.asleep = false
	return nil
}

func (r *fakeRig) Sleep(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sleeps++
	r.asleep = true
	return nil
}

// scriptedBehavior answers every trial with a scripted response and
// records which hooks ran.
type scriptedBehavior struct {
	BaseBehavior
	responses []bool
	trial     int
	hooks     []string

	endSessionAfter    int
	endExperimentAfter int
}

func (b *scriptedBehavior) Name() string { return "scripted" }

func (b *scriptedBehavior) record(hook string) {
	b.hooks = append(b.hooks, hook)
}

func (b *scriptedBehavior) SessionPre(context.Context) error {
	b.record("session_pre")
	return nil
}

func (b *scriptedBehavior) SessionPost(context.Context) error {
	b.record("session_post")
	return nil
}

func (b *scriptedBehavior) TrialPre(context.Context, *Trial) error {
	b.record("trial_pre")
	if b.endSessionAfter > 0 && b.trial >= b.endSessionAfter {
		return ErrEndSession
	}
	if b.endExperimentAfter > 0 && b.trial >= b.endExperimentAfter {
		return ErrEndExperiment
	}
	return nil
}

func (b *scriptedBehavior) StimulusMain(_ context.Context, t *Trial) error {
	b.record("stimulus_main")
	return nil
}

func (b *scriptedBehavior) ResponseMain(_ context.Context, t *Trial) error {
	b.record("response_main")
	if b.trial < len(b.responses) {
		t.Response = b.responses[b.trial]
		t.RT = 250 * time.Millisecond
	}
	b.trial++
	return nil
}

func (b *scriptedBehavior) RewardMain(context.Context, *Trial) error {
	b.record("reward_main")
	return nil
}

func (b *scriptedBehavior) PunishMain(context.Context, *Trial) error {
	b.record("punish_main")
	return nil
}

func (b *scriptedBehavior) TrialPost(context.Context, *Trial) error {
	b.record("trial_post")
	return nil
}

func countHooks(hooks []string, name string) int {
	n := 0
	for _, h := range hooks {
		if h == name {
			n++
		}
	}
	return n
}

// sPlus wants a response and rewards it; sMinus wants silence and
// punishes responses.
func discrimBlocks(trials int) *BlockHandler {
	sPlus := stimulus.NewCondition("sPlus", true, true, false, []stimulus.Stimulus{
		{Name: "p1", Path: "/stims/p1.wav"},
	})
	conditions := make([]*stimulus.Condition, trials)
	for i := range conditions {
		conditions[i] = sPlus
	}
	return NewBlockHandler(NewBlock("train", queue.NewBlock(conditions), nil))
}

func newTestController(t *testing.T, behavior Behavior, mem *store.MemStore, blocks *BlockHandler, opts ...Option) *Controller {
	t.Helper()
	subj := subject.New("b42", mem)
	base := []Option{
		WithClock(newFakeClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local))),
		WithNumSessions(1),
	}
	c, err := NewController(behavior, subj, &fakeRig{}, blocks, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c
}

func TestControllerRunsAllTrials(t *testing.T) {
	mem := store.NewMemStore()
	behavior := &scriptedBehavior{responses: []bool{true, true, false}}
	c := newTestController(t, behavior, mem, discrimBlocks(3))

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	trials, err := mem.Trials(context.Background(), "b42")
	if err != nil {
		t.Fatalf("Trials: %v", err)
	}
	if len(trials) != 3 {
		t.Fatalf("stored %d trials, want 3", len(trials))
	}

	// Responses to sPlus are correct and rewarded; the miss is neither.
	if !trials[0].Correct || !trials[0].Reward {
		t.Errorf("trial 0: %+v", trials[0])
	}
	if trials[2].Correct || trials[2].Reward || trials[2].Punish {
		t.Errorf("trial 2: %+v", trials[2])
	}
	if trials[1].Index != 2 || trials[1].Session != 1 {
		t.Errorf("trial 1 numbering: %+v", trials[1])
	}

	if got := countHooks(behavior.hooks, "reward_main"); got != 2 {
		t.Errorf("reward_main ran %d times, want 2", got)
	}
	if got := countHooks(behavior.hooks, "punish_main"); got != 0 {
		t.Errorf("punish_main ran %d times, want 0", got)
	}
}

func TestControllerPunishesOnSMinus(t *testing.T) {
	sMinus := stimulus.NewCondition("sMinus", false, false, true, []stimulus.Stimulus{
		{Name: "m1", Path: "/stims/m1.wav"},
	})
	blocks := NewBlockHandler(NewBlock("b", queue.NewBlock([]*stimulus.Condition{sMinus}), nil))

	mem := store.NewMemStore()
	behavior := &scriptedBehavior{responses: []bool{true}}
	c := newTestController(t, behavior, mem, blocks)

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	trials, _ := mem.Trials(context.Background(), "b42")
	if len(trials) != 1 || trials[0].Correct || !trials[0].Punish {
		t.Fatalf("got %+v", trials)
	}
	if got := countHooks(behavior.hooks, "punish_main"); got != 1 {
		t.Errorf("punish_main ran %d times, want 1", got)
	}
}

func TestControllerHookOrder(t *testing.T) {
	mem := store.NewMemStore()
	behavior := &scriptedBehavior{responses: []bool{true}}
	c := newTestController(t, behavior, mem, discrimBlocks(1))

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{
		"session_pre", "trial_pre", "stimulus_main", "response_main",
		"reward_main", "trial_post", "session_post",
	}
	if len(behavior.hooks) != len(want) {
		t.Fatalf("hooks %v, want %v", behavior.hooks, want)
	}
	for i := range want {
		if behavior.hooks[i] != want[i] {
			t.Fatalf("hooks %v, want %v", behavior.hooks, want)
		}
	}
}

func TestControllerTrialLimit(t *testing.T) {
	mem := store.NewMemStore()
	behavior := &scriptedBehavior{responses: []bool{true, true, true, true, true}}
	c := newTestController(t, behavior, mem, discrimBlocks(5), WithSessionTrialLimit(2))

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	trials, _ := mem.Trials(context.Background(), "b42")
	if len(trials) != 2 {
		t.Fatalf("stored %d trials, want 2", len(trials))
	}
}

func TestControllerTrialLimitAcrossSessions(t *testing.T) {
	// The per-session cap must release when the session ends, or the
	// second session could never start.
	mem := store.NewMemStore()
	behavior := &scriptedBehavior{responses: []bool{true, true, true, true}}
	c := newTestController(t, behavior, mem, discrimBlocks(4),
		WithSessionTrialLimit(2), WithNumSessions(2))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	trials, _ := mem.Trials(context.Background(), "b42")
	if len(trials) != 4 {
		t.Fatalf("stored %d trials, want 4 across 2 sessions", len(trials))
	}
	if trials[1].Session != 1 || trials[2].Session != 2 {
		t.Errorf("session numbering: %+v / %+v", trials[1], trials[2])
	}
	sessions, err := mem.Sessions(context.Background(), "b42")
	if err != nil || len(sessions) != 2 {
		t.Fatalf("sessions: %v, %v", sessions, err)
	}
	if sessions[0].Trials != 2 || sessions[1].Trials != 2 {
		t.Errorf("session summaries: %+v / %+v", sessions[0], sessions[1])
	}
}

func TestControllerDurationCapAcrossSessions(t *testing.T) {
	mem := store.NewMemStore()
	behavior := &scriptedBehavior{responses: []bool{true, true, true, true}}
	c := newTestController(t, behavior, mem, discrimBlocks(4),
		WithSessionDuration(90*time.Second),
		WithIntertrialInterval(time.Minute),
		WithNumSessions(2))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Two trials fit inside each 90s window at a one-minute ITI, so the
	// queue drains over exactly two sessions.
	trials, _ := mem.Trials(context.Background(), "b42")
	if len(trials) != 4 {
		t.Fatalf("stored %d trials, want 4 across 2 sessions", len(trials))
	}
	if trials[3].Session != 2 {
		t.Errorf("last trial session: %+v", trials[3])
	}
}

func TestControllerEndSession(t *testing.T) {
	mem := store.NewMemStore()
	behavior := &scriptedBehavior{
		responses:       []bool{true, true, true, true},
		endSessionAfter: 2,
	}
	c := newTestController(t, behavior, mem, discrimBlocks(4))

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	trials, _ := mem.Trials(context.Background(), "b42")
	if len(trials) != 2 {
		t.Fatalf("stored %d trials, want 2", len(trials))
	}
	// The session still closed out cleanly.
	sessions, err := mem.Sessions(context.Background(), "b42")
	if err != nil || len(sessions) != 1 {
		t.Fatalf("sessions: %v, %v", sessions, err)
	}
	if sessions[0].Trials != 2 {
		t.Errorf("session summary: %+v", sessions[0])
	}
}

func TestControllerEndExperiment(t *testing.T) {
	mem := store.NewMemStore()
	behavior := &scriptedBehavior{
		responses:          []bool{true, true, true, true},
		endExperimentAfter: 1,
	}
	c := newTestController(t, behavior, mem, discrimBlocks(4), WithNumSessions(0))

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	trials, _ := mem.Trials(context.Background(), "b42")
	if len(trials) != 1 {
		t.Fatalf("stored %d trials, want 1", len(trials))
	}
}

func TestControllerSessionSummary(t *testing.T) {
	mem := store.NewMemStore()
	behavior := &scriptedBehavior{responses: []bool{true, false, true}}
	c := newTestController(t, behavior, mem, discrimBlocks(3))

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	sessions, err := mem.Sessions(context.Background(), "b42")
	if err != nil || len(sessions) != 1 {
		t.Fatalf("sessions: %v, %v", sessions, err)
	}
	if sessions[0].Trials != 3 || sessions[0].Rewards != 2 {
		t.Errorf("summary: %+v", sessions[0])
	}
	if !sessions[0].End.After(sessions[0].Start) && !sessions[0].End.Equal(sessions[0].Start) {
		t.Errorf("session times: %+v", sessions[0])
	}
}

func TestControllerResumesSessionNumbering(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemStore()

	// A previous run left session 3 in the store.
	mem.SaveTrial(ctx, store.TrialRecord{Subject: "b42", Session: 3, Time: time.Now()})

	behavior := &scriptedBehavior{responses: []bool{true}}
	c := newTestController(t, behavior, mem, discrimBlocks(1))

	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	last, err := mem.LastTrial(ctx, "b42")
	if err != nil {
		t.Fatal(err)
	}
	if last.Session != 4 {
		t.Errorf("new trial in session %d, want 4", last.Session)
	}
}

func TestControllerEmitsEvents(t *testing.T) {
	mem := store.NewMemStore()
	buffered := emit.NewBufferedEmitter()
	behavior := &scriptedBehavior{responses: []bool{true}}
	c := newTestController(t, behavior, mem, discrimBlocks(1), WithEmitter(buffered))

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	events := buffered.History("b42")
	msgs := make(map[string]bool)
	for _, e := range events {
		msgs[e.Msg] = true
	}
	for _, want := range []string{"session_start", "trial_start", "trial_end", "session_end"} {
		if !msgs[want] {
			t.Errorf("missing %q event in %v", want, msgs)
		}
	}
}

func TestControllerSleepsOutsideLightWindow(t *testing.T) {
	mem := store.NewMemStore()
	behavior := &scriptedBehavior{responses: []bool{true}}

	// Start at 05:00, lights on at 07:00.
	clock := newFakeClock(time.Date(2026, 3, 14, 5, 0, 0, 0, time.Local))
	rig := &fakeRig{}
	subj := subject.New("b42", mem)
	c, err := NewController(behavior, subj, rig, discrimBlocks(1),
		WithClock(clock),
		WithNumSessions(1),
		WithSleepSchedule(7*time.Hour, 19*time.Hour),
		WithIdlePollInterval(10*time.Minute),
	)
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rig.sleeps == 0 {
		t.Error("rig never slept before lights-on")
	}
	trials, _ := mem.Trials(context.Background(), "b42")
	if len(trials) != 1 {
		t.Fatalf("stored %d trials, want 1", len(trials))
	}
	if got := clock.Now(); got.Hour() < 7 {
		t.Errorf("session ran at %v, before lights-on", got)
	}
}

func TestControllerCancelled(t *testing.T) {
	mem := store.NewMemStore()
	behavior := &scriptedBehavior{responses: []bool{true}}
	c := newTestController(t, behavior, mem, discrimBlocks(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestNewControllerValidation(t *testing.T) {
	mem := store.NewMemStore()
	subj := subject.New("b42", mem)
	blocks := discrimBlocks(1)

	if _, err := NewController(nil, subj, &fakeRig{}, blocks); err == nil {
		t.Error("accepted nil behavior")
	}
	if _, err := NewController(&scriptedBehavior{}, nil, &fakeRig{}, blocks); err == nil {
		t.Error("accepted nil subject")
	}
	if _, err := NewController(&scriptedBehavior{}, subj, nil, blocks); err == nil {
		t.Error("accepted nil rig")
	}
	if _, err := NewController(&scriptedBehavior{}, subj, &fakeRig{}, nil); err == nil {
		t.Error("accepted nil blocks")
	}

	var ctrlErr *ControllerError
	_, err := NewController(nil, subj, &fakeRig{}, blocks)
	if !errors.As(err, &ctrlErr) || ctrlErr.Code != CodeConfig {
		t.Errorf("got %v, want config ControllerError", err)
	}
}
