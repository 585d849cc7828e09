package emit

// Emitter receives behavioral events from an experiment run.
//
// Implementations should be:
//   - Non-blocking: trial timing is sensitive to emission latency
//   - Thread-safe: components may emit concurrently
//   - Resilient: an emitter failure must never abort a session
//
// Emit must not panic; errors are handled internally.
type Emitter interface {
	Emit(event Event)
}

// Multi fans every event out to several emitters in order.
//
// Useful for simultaneously logging to disk and pulsing the hardware event
// line.
type Multi []Emitter

// Emit sends the event to every wrapped emitter.
func (m Multi) Emit(event Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(event)
		}
	}
}
