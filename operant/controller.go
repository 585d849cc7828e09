package operant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opyrant/opyrant/operant/emit"
	"github.com/opyrant/opyrant/operant/panel"
	"github.com/opyrant/opyrant/operant/stimulus"
	"github.com/opyrant/opyrant/operant/store"
	"github.com/opyrant/opyrant/operant/subject"
)

// State machine node names.
const (
	StateIdle    = "idle"
	StateSleep   = "sleep"
	StateSession = "session"
)

// Rig is what the controller needs from the hardware between sessions:
// a way to put the box into its daytime idle state and its dark sleep
// state. *panel.Panel satisfies it.
type Rig interface {
	Reset(ctx context.Context) error
	Sleep(ctx context.Context) error
}

// Controller runs an experiment: it owns the idle/sleep/session state
// machine, draws conditions from the block queues, walks each trial
// through the behavior's hooks, applies the consequation rules, and
// stores every trial before the next one starts.
type Controller struct {
	behavior Behavior
	subject  *subject.Subject
	rig      Rig
	blocks   *BlockHandler

	emitter    emit.Emitter
	metrics    Metrics
	clock      Clock
	sleepSched *TimeOfDayScheduler
	schedulers []Scheduler

	numSessions int
	idlePoll    time.Duration
	iti         time.Duration

	session      int
	sessionsRun  int
	trialCount   int
	rewardCount  int
	sessionStart time.Time
}

// NewController wires a controller. The behavior, subject, rig, and
// block handler are required; everything else has a usable default.
func NewController(behavior Behavior, subj *subject.Subject, rig Rig, blocks *BlockHandler, opts ...Option) (*Controller, error) {
	if behavior == nil {
		return nil, controllerErr(CodeConfig, "behavior is required", nil)
	}
	if subj == nil {
		return nil, controllerErr(CodeConfig, "subject is required", nil)
	}
	if rig == nil {
		return nil, controllerErr(CodeConfig, "rig is required", nil)
	}
	if blocks == nil || blocks.Remaining() == 0 {
		return nil, controllerErr(CodeConfig, "at least one block is required", nil)
	}

	c := &Controller{
		behavior: behavior,
		subject:  subj,
		rig:      rig,
		blocks:   blocks,
		emitter:  emit.NewNullEmitter(),
		metrics:  NopMetrics{},
		clock:    NewClock(),
		idlePoll: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run executes the experiment until its sessions are done, a hook asks
// for the end of the experiment, or the context is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	next, err := c.subject.NextSession(ctx)
	if err != nil {
		return controllerErr(CodeStore, "resolving next session number", err)
	}
	c.session = next

	if err := c.rig.Reset(ctx); err != nil {
		return controllerErr(CodePanel, "resetting rig", err)
	}

	err = RunStates(ctx, StateIdle,
		StateFunc{StateName: StateIdle, Fn: c.runIdle},
		StateFunc{StateName: StateSleep, Fn: c.runSleep},
		StateFunc{StateName: StateSession, Fn: c.runSession},
	)
	if errors.Is(err, ErrEndExperiment) {
		return nil
	}
	return err
}

// runIdle waits for the next thing to do: sleep when the lights should
// be out, a session when one is permitted, otherwise poll again.
func (c *Controller) runIdle(ctx context.Context) (string, error) {
	now := c.clock.Now()

	if c.sleepSched != nil && !c.sleepSched.Permits(now) {
		return StateSleep, nil
	}
	if c.sessionsDone() {
		return "", nil
	}
	if c.blocks.Remaining() == 0 {
		return "", nil
	}
	if c.sessionPermitted(now) {
		return StateSession, nil
	}
	if err := c.clock.Sleep(ctx, c.idlePoll); err != nil {
		return "", err
	}
	return StateIdle, nil
}

// runSleep darkens the box until the light schedule opens again.
func (c *Controller) runSleep(ctx context.Context) (string, error) {
	if err := c.rig.Sleep(ctx); err != nil {
		return "", controllerErr(CodePanel, "entering sleep", err)
	}
	c.emit(ctx, "sleep", nil)

	for {
		now := c.clock.Now()
		if c.sleepSched.Permits(now) {
			break
		}
		wait := c.sleepSched.NextOpen(now).Sub(now)
		if wait > c.idlePoll || wait <= 0 {
			wait = c.idlePoll
		}
		if err := c.clock.Sleep(ctx, wait); err != nil {
			return "", err
		}
	}

	if err := c.rig.Reset(ctx); err != nil {
		return "", controllerErr(CodePanel, "waking from sleep", err)
	}
	c.emit(ctx, "wake", nil)
	return StateIdle, nil
}

// runSession runs trials until the session's schedulers close it, the
// blocks run dry, or a hook ends it.
func (c *Controller) runSession(ctx context.Context) (string, error) {
	c.beginSession()
	c.metrics.SessionActive(true)
	c.emit(ctx, "session_start", nil)

	endExperiment := false
	sessionErr := c.behavior.SessionPre(ctx)
	if sessionErr == nil {
		sessionErr = c.trialLoop(ctx)
	}
	switch {
	case errors.Is(sessionErr, ErrEndExperiment):
		endExperiment = true
		sessionErr = nil
	case errors.Is(sessionErr, ErrEndSession):
		sessionErr = nil
	}

	if err := c.behavior.SessionPost(ctx); err != nil && sessionErr == nil {
		if errors.Is(err, ErrEndExperiment) {
			endExperiment = true
		} else if !errors.Is(err, ErrEndSession) {
			sessionErr = controllerErr(CodeBehavior, "session post hook", err)
		}
	}

	c.metrics.SessionActive(false)
	c.emit(ctx, "session_end", map[string]interface{}{
		"trials":  c.trialCount,
		"rewards": c.rewardCount,
	})
	if err := c.storeSession(ctx); err != nil && sessionErr == nil {
		sessionErr = err
	}
	if err := c.rig.Reset(context.Background()); err != nil && sessionErr == nil {
		sessionErr = controllerErr(CodePanel, "resetting rig after session", err)
	}
	c.endSession()

	c.session++
	c.sessionsRun++
	if sessionErr != nil {
		return "", sessionErr
	}
	if endExperiment {
		return "", ErrEndExperiment
	}
	return StateIdle, nil
}

func (c *Controller) beginSession() {
	c.trialCount = 0
	c.rewardCount = 0
	c.sessionStart = c.clock.Now()
	for _, s := range c.schedulers {
		if starter, ok := s.(sessionStarter); ok {
			starter.Begin(c.sessionStart)
		}
	}
}

// endSession releases the per-session schedulers so their caps do not
// carry over and block the next session.
func (c *Controller) endSession() {
	for _, s := range c.schedulers {
		if ender, ok := s.(sessionEnder); ok {
			ender.End()
		}
	}
}

func (c *Controller) trialLoop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		now := c.clock.Now()
		if c.sleepSched != nil && !c.sleepSched.Permits(now) {
			return nil
		}
		if !c.sessionPermitted(now) {
			return nil
		}

		condition, block, ok := c.blocks.Next()
		if !ok {
			return nil
		}
		if err := c.runTrial(ctx, condition, block); err != nil {
			return err
		}

		for _, s := range c.schedulers {
			if observer, ok := s.(trialObserver); ok {
				observer.Observe()
			}
		}
		if c.iti > 0 {
			if err := c.clock.Sleep(ctx, c.iti); err != nil {
				return err
			}
		}
	}
}

// runTrial walks one trial through the behavior hooks, consequates the
// outcome, and persists the record. The record is stored before the
// function returns, so no later trial can run ahead of its data.
func (c *Controller) runTrial(ctx context.Context, condition *stimulus.Condition, block *Block) error {
	stim, err := condition.Get()
	if err != nil {
		return controllerErr(CodeConfig, fmt.Sprintf("drawing stimulus for %s", condition.Name), err)
	}

	trial := &Trial{
		Session:   c.session,
		Index:     c.trialCount + 1,
		Time:      c.clock.Now(),
		Condition: condition,
		Stimulus:  &stim,
	}
	c.emit(ctx, "trial_start", map[string]interface{}{
		"condition": condition.Name,
		"stimulus":  stim.Path,
	})

	hooks := []struct {
		name string
		fn   func(context.Context, *Trial) error
	}{
		{"trial pre", c.behavior.TrialPre},
		{"stimulus pre", c.behavior.StimulusPre},
		{"stimulus main", c.behavior.StimulusMain},
		{"stimulus post", c.behavior.StimulusPost},
		{"response pre", c.behavior.ResponsePre},
		{"response main", c.behavior.ResponseMain},
		{"response post", c.behavior.ResponsePost},
	}
	for _, hook := range hooks {
		if err := hook.fn(ctx, trial); err != nil {
			return c.hookErr(hook.name, err)
		}
	}

	trial.Correct = trial.Response == condition.Response
	if err := c.consequate(ctx, trial, block); err != nil {
		return err
	}

	if err := c.behavior.TrialPost(ctx, trial); err != nil {
		return c.hookErr("trial post", err)
	}

	block.Report(trial.Correct)
	c.trialCount++
	if trial.Rewarded {
		c.rewardCount++
	}

	outcome := "incorrect"
	if trial.Correct {
		outcome = "correct"
	}
	c.metrics.TrialCompleted(c.behavior.Name(), condition.Name, outcome, c.clock.Now().Sub(trial.Time))
	c.emitTrial(ctx, trial)

	if err := c.subject.StoreTrial(ctx, trial.Record(c.subject.Name, c.behavior.Name())); err != nil {
		return controllerErr(CodeStore, "storing trial", err)
	}
	return nil
}

// consequate applies the outcome rules: a correct response earns the
// reward only when the condition is rewarded and the block's schedule
// consequates it; an incorrect response earns the punishment under the
// same rule.
func (c *Controller) consequate(ctx context.Context, trial *Trial, block *Block) error {
	switch {
	case trial.Correct && trial.Condition.Rewarded:
		if !block.Reinforcement.Consequate(true) {
			return nil
		}
		trial.Rewarded = true
		c.metrics.RewardDelivered()
		return c.runPhase(ctx, trial, "reward",
			c.behavior.RewardPre, c.behavior.RewardMain, c.behavior.RewardPost)

	case !trial.Correct && trial.Condition.Punished:
		if !block.Reinforcement.Consequate(false) {
			return nil
		}
		trial.Punished = true
		c.metrics.PunishmentDelivered()
		return c.runPhase(ctx, trial, "punish",
			c.behavior.PunishPre, c.behavior.PunishMain, c.behavior.PunishPost)
	}
	return nil
}

func (c *Controller) runPhase(ctx context.Context, trial *Trial, name string, fns ...func(context.Context, *Trial) error) error {
	for _, fn := range fns {
		err := fn(ctx, trial)
		if err == nil {
			continue
		}
		// Hopper faults are logged and counted but do not kill the
		// session; the rig may still be usable.
		var hopperErr *panel.HopperError
		if errors.As(err, &hopperErr) {
			c.metrics.FeederFailure(hopperErr.Kind)
			c.emit(ctx, "hopper_failure", map[string]interface{}{
				"kind":  hopperErr.Kind,
				"error": hopperErr.Error(),
			})
			return nil
		}
		return c.hookErr(name, err)
	}
	return nil
}

func (c *Controller) hookErr(hook string, err error) error {
	if errors.Is(err, ErrEndSession) || errors.Is(err, ErrEndExperiment) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return controllerErr(CodeBehavior, hook+" hook", err)
}

func (c *Controller) sessionPermitted(now time.Time) bool {
	for _, s := range c.schedulers {
		if !s.Permits(now) {
			return false
		}
	}
	return true
}

func (c *Controller) sessionsDone() bool {
	return c.numSessions > 0 && c.sessionsRun >= c.numSessions
}

func (c *Controller) storeSession(ctx context.Context) error {
	record := store.SessionRecord{
		Subject:  c.subject.Name,
		Behavior: c.behavior.Name(),
		Session:  c.session,
		Start:    c.sessionStart,
		End:      c.clock.Now(),
		Trials:   c.trialCount,
		Rewards:  c.rewardCount,
	}
	if err := c.subject.StoreSession(ctx, record); err != nil {
		return controllerErr(CodeStore, "storing session summary", err)
	}
	return nil
}

func (c *Controller) emit(_ context.Context, msg string, meta map[string]interface{}) {
	c.emitter.Emit(emit.Event{
		Subject: c.subject.Name,
		Session: c.session,
		Trial:   c.trialCount,
		Source:  "controller",
		Msg:     msg,
		Time:    c.clock.Now(),
		Meta:    meta,
	})
}

func (c *Controller) emitTrial(_ context.Context, trial *Trial) {
	outcome := "incorrect"
	if trial.Correct {
		outcome = "correct"
	}
	meta := map[string]interface{}{
		"condition": trial.Condition.Name,
		"stimulus":  trial.Stimulus.Path,
		"response":  trial.Response,
		"outcome":   outcome,
		"rt_ms":     trial.RT.Milliseconds(),
		"rewarded":  trial.Rewarded,
		"punished":  trial.Punished,
	}
	c.emitter.Emit(emit.Event{
		Subject: c.subject.Name,
		Session: trial.Session,
		Trial:   trial.Index,
		Source:  c.behavior.Name(),
		Msg:     "trial_end",
		Time:    c.clock.Now(),
		Meta:    meta,
	})
}
