package emit

import "sync"

// BufferedEmitter stores events in memory, keyed by subject.
//
// It is the workhorse for tests and post-session analysis: run a session,
// then query the event history to verify the trial sequence.
//
// Warning: events accumulate for the lifetime of the emitter. For
// long-running experiments prefer LogEmitter with a file, or Clear
// completed subjects periodically.
//
// Example:
//
//	emitter := emit.NewBufferedEmitter()
//	// ... run session ...
//	rewards := emitter.HistoryWithFilter("b1055", emit.HistoryFilter{Msg: "reward"})
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // subject -> events
}

// HistoryFilter selects a subset of a subject's events. All set fields must
// match (AND logic); zero fields are ignored.
type HistoryFilter struct {
	// Source filters by emitting component.
	Source string

	// Msg filters by event name.
	Msg string

	// Session filters by session index. Zero means no filter.
	Session int

	// MinTrial and MaxTrial bound the trial index. Nil means unbounded.
	MinTrial *int
	MaxTrial *int
}

// NewBufferedEmitter creates an empty BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

// Emit stores the event. Safe for concurrent use.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[event.Subject] = append(b.events[event.Subject], event)
}

// History returns all events for a subject in emission order. Returns an
// empty slice (never nil) when the subject has no events.
func (b *BufferedEmitter) History(subject string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[subject]
	result := make([]Event, len(events))
	copy(result, events)
	return result
}

// HistoryWithFilter returns the subject's events matching the filter, in
// emission order.
func (b *BufferedEmitter) HistoryWithFilter(subject string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := []Event{}
	for _, event := range b.events[subject] {
		if matchesFilter(event, filter) {
			result = append(result, event)
		}
	}
	return result
}

func matchesFilter(event Event, filter HistoryFilter) bool {
	if filter.Source != "" && event.Source != filter.Source {
		return false
	}
	if filter.Msg != "" && event.Msg != filter.Msg {
		return false
	}
	if filter.Session != 0 && event.Session != filter.Session {
		return false
	}
	if filter.MinTrial != nil && event.Trial < *filter.MinTrial {
		return false
	}
	if filter.MaxTrial != nil && event.Trial > *filter.MaxTrial {
		return false
	}
	return true
}

// Clear removes stored events. With a non-empty subject only that subject's
// events are removed; with an empty subject everything is cleared.
func (b *BufferedEmitter) Clear(subject string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subject == "" {
		b.events = make(map[string][]Event)
	} else {
		delete(b.events, subject)
	}
}
