package operant

import "context"

// Behavior defines an experimental paradigm as a set of hooks the
// controller calls around each phase of a trial. The controller owns the
// trial loop, consequation, and persistence; the behavior owns what
// actually happens at the panel during each phase.
//
// Any hook may return ErrEndSession or ErrEndExperiment to stop cleanly.
// Other errors abort the run.
type Behavior interface {
	// Name labels the paradigm in stored records and event streams.
	Name() string

	// SessionPre and SessionPost bracket each session.
	SessionPre(ctx context.Context) error
	SessionPost(ctx context.Context) error

	// TrialPre runs before anything is presented. Behaviors that gate
	// trials on an observing response (a peck to start) do it here.
	TrialPre(ctx context.Context, t *Trial) error

	// Stimulus phase.
	StimulusPre(ctx context.Context, t *Trial) error
	StimulusMain(ctx context.Context, t *Trial) error
	StimulusPost(ctx context.Context, t *Trial) error

	// Response phase. ResponseMain must set t.Response, and should set
	// t.ResponseTime and t.RT when a response occurred.
	ResponsePre(ctx context.Context, t *Trial) error
	ResponseMain(ctx context.Context, t *Trial) error
	ResponsePost(ctx context.Context, t *Trial) error

	// Reward phase, run only when the controller decides the trial is
	// rewarded.
	RewardPre(ctx context.Context, t *Trial) error
	RewardMain(ctx context.Context, t *Trial) error
	RewardPost(ctx context.Context, t *Trial) error

	// Punish phase, run only when the controller decides the trial is
	// punished.
	PunishPre(ctx context.Context, t *Trial) error
	PunishMain(ctx context.Context, t *Trial) error
	PunishPost(ctx context.Context, t *Trial) error

	// TrialPost runs after consequation, before the trial is stored.
	TrialPost(ctx context.Context, t *Trial) error
}

// BaseBehavior is a no-op implementation of every hook except Name.
// Embed it and override the phases your paradigm uses.
type BaseBehavior struct{}

func (BaseBehavior) SessionPre(context.Context) error            { return nil }
func (BaseBehavior) SessionPost(context.Context) error           { return nil }
func (BaseBehavior) TrialPre(context.Context, *Trial) error      { return nil }
func (BaseBehavior) StimulusPre(context.Context, *Trial) error   { return nil }
func (BaseBehavior) StimulusMain(context.Context, *Trial) error  { return nil }
func (BaseBehavior) StimulusPost(context.Context, *Trial) error  { return nil }
func (BaseBehavior) ResponsePre(context.Context, *Trial) error   { return nil }
func (BaseBehavior) ResponseMain(context.Context, *Trial) error  { return nil }
func (BaseBehavior) ResponsePost(context.Context, *Trial) error  { return nil }
func (BaseBehavior) RewardPre(context.Context, *Trial) error     { return nil }
func (BaseBehavior) RewardMain(context.Context, *Trial) error    { return nil }
func (BaseBehavior) RewardPost(context.Context, *Trial) error    { return nil }
func (BaseBehavior) PunishPre(context.Context, *Trial) error     { return nil }
func (BaseBehavior) PunishMain(context.Context, *Trial) error    { return nil }
func (BaseBehavior) PunishPost(context.Context, *Trial) error    { return nil }
func (BaseBehavior) TrialPost(context.Context, *Trial) error     { return nil }
