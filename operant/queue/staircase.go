package queue

// Staircase generates values for an adaptive staircase procedure.
//
// The procedure assumes larger values are easier. After a correct trial the
// next value moves down by down*step; after an incorrect trial it moves up
// by up*step. A reversal is counted whenever the direction of movement
// flips, and the queue exhausts once the configured number of reversals is
// reached (subject to the trial minimum) or the trial maximum is hit.
//
// The trial runner must call Report with the outcome of each trial before
// asking for the next value.
//
// Example:
//
//	q := queue.NewStaircase(80, queue.StaircaseConfig{
//	    Up: 1, Down: 3, Step: 2.5,
//	    MinValue: 0, MaxValue: 100,
//	    MaxTrials: 100, Reversals: 12,
//	})
//	for v, ok := q.Next(); ok; v, ok = q.Next() {
//	    correct := runTrial(v)
//	    q.Report(correct)
//	}
type Staircase struct {
	cfg   StaircaseConfig
	value float64

	trials    int
	reversals int
	goingUp   bool

	lastCorrect bool
	reported    bool
	done        bool
}

// StaircaseConfig parameterizes a staircase procedure. Zero values fall back
// to the defaults noted on each field.
type StaircaseConfig struct {
	// Up is the number of steps taken after an incorrect trial (default 1).
	Up int

	// Down is the number of steps taken after a correct trial (default 3).
	Down int

	// Step is the size of a single step (default 1.0).
	Step float64

	// MinValue and MaxValue clamp the generated values. They are only
	// applied when HasMin/HasMax are set, since zero is a legitimate bound.
	MinValue float64
	MaxValue float64
	HasMin   bool
	HasMax   bool

	// MinTrials is the number of trials to run before reversal-based
	// termination is considered.
	MinTrials int

	// MaxTrials ends the procedure unconditionally (default 100).
	MaxTrials int

	// Reversals ends the procedure once this many direction reversals have
	// occurred. Zero disables reversal-based termination.
	Reversals int
}

// NewStaircase creates a staircase queue starting at start.
func NewStaircase(start float64, cfg StaircaseConfig) *Staircase {
	if cfg.Up == 0 {
		cfg.Up = 1
	}
	if cfg.Down == 0 {
		cfg.Down = 3
	}
	if cfg.Step == 0 {
		cfg.Step = 1.0
	}
	if cfg.MaxTrials == 0 {
		cfg.MaxTrials = 100
	}

	return &Staircase{cfg: cfg, value: start}
}

// Report records the outcome of the trial run with the most recent value.
func (q *Staircase) Report(correct bool) {
	q.lastCorrect = correct
	q.reported = true
}

// Next returns the parameter value for the next trial.
//
// The first call returns the starting value. Subsequent calls adjust the
// value based on the most recently reported outcome; if no outcome has been
// reported since the last call, the queue treats the trial as incorrect and
// moves up, which keeps the procedure conservative rather than stalling.
func (q *Staircase) Next() (float64, bool) {
	if q.done {
		return 0, false
	}

	if q.trials == 0 {
		q.trials = 1
		return q.value, true
	}

	correct := q.reported && q.lastCorrect
	q.reported = false

	if correct {
		q.value -= float64(q.cfg.Down) * q.cfg.Step
	} else {
		q.value += float64(q.cfg.Up) * q.cfg.Step
	}

	// A reversal happens when the last outcome moved against the trend.
	if correct == q.goingUp {
		q.reversals++
		q.goingUp = !q.goingUp
	}

	if q.cfg.HasMax && q.value > q.cfg.MaxValue {
		q.value = q.cfg.MaxValue
	}
	if q.cfg.HasMin && q.value < q.cfg.MinValue {
		q.value = q.cfg.MinValue
	}

	q.trials++
	if q.trials >= q.cfg.MaxTrials {
		q.done = true
	} else if q.trials >= q.cfg.MinTrials && q.cfg.Reversals > 0 && q.reversals >= q.cfg.Reversals {
		q.done = true
	}

	return q.value, true
}

// Reversals reports how many direction reversals have occurred so far.
func (q *Staircase) Reversals() int {
	return q.reversals
}
