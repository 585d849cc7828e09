package operant

import (
	"time"

	"github.com/opyrant/opyrant/operant/stimulus"
	"github.com/opyrant/opyrant/operant/store"
)

// Trial is one presentation-response-consequence cycle. The controller
// fills in the bookkeeping fields; behavior hooks fill in Response,
// ResponseTime, and any Annotations.
type Trial struct {
	// Session and Index locate the trial: Index counts from 1 within
	// the session.
	Session int
	Index   int

	// Time is when the trial started.
	Time time.Time

	// Condition is the stimulus class drawn from the block queue and
	// Stimulus the particular exemplar played.
	Condition *stimulus.Condition
	Stimulus  *stimulus.Stimulus

	// Response is the subject's answer and RT its latency from
	// stimulus onset. ResponseTime is the absolute peck time.
	Response     bool
	ResponseTime time.Time
	RT           time.Duration

	// Outcome, filled in by the controller after the response phase.
	Correct  bool
	Rewarded bool
	Punished bool

	// Annotations carries behavior-specific extras into the datastore.
	Annotations map[string]string
}

// Annotate attaches a key/value to the trial record.
func (t *Trial) Annotate(key, value string) {
	if t.Annotations == nil {
		t.Annotations = make(map[string]string)
	}
	t.Annotations[key] = value
}

// Record converts the trial to its datastore form.
func (t *Trial) Record(subject, behavior string) store.TrialRecord {
	record := store.TrialRecord{
		Subject:  subject,
		Behavior: behavior,
		Session:  t.Session,
		Index:    t.Index,
		Time:     t.Time,
		Response: t.Response,
		Correct:  t.Correct,
		RT:       t.RT,
		Reward:   t.Rewarded,
		Punish:   t.Punished,
	}
	if t.Condition != nil {
		record.Condition = t.Condition.Name
	}
	if t.Stimulus != nil {
		record.Stimulus = t.Stimulus.Path
	}
	if len(t.Annotations) > 0 {
		record.Annotations = make(map[string]string, len(t.Annotations))
		for k, v := range t.Annotations {
			record.Annotations[k] = v
		}
	}
	return record
}
