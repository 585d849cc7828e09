// Package emit provides the behavioral event stream for experiment runs.
//
// Everything notable that happens during an experiment (state transitions,
// trial starts, stimulus onsets, responses, rewards) is emitted as an Event
// to an Emitter. Emitters are pluggable: log output, in-memory buffers for
// tests, OpenTelemetry spans, or a digital line on the hardware interface
// for sample-accurate alignment with neural recordings.
package emit

import "time"

// Event is a single behavioral event.
type Event struct {
	// Subject identifies the animal or participant running the experiment.
	Subject string

	// Session is the session index within the experiment (1-indexed).
	// Zero for experiment-level events.
	Session int

	// Trial is the trial index within the session (1-indexed). Zero for
	// session- and experiment-level events.
	Trial int

	// Source names the component that produced the event, e.g. "speaker",
	// "response_port", "controller".
	Source string

	// Msg is a short machine-friendly event name, e.g. "trial_start",
	// "stimulus_play", "response", "reward".
	Msg string

	// Time is when the event occurred.
	Time time.Time

	// Meta carries additional structured data. Common keys:
	//   - "stimulus": stimulus name
	//   - "condition": condition name
	//   - "rt_ms": reaction time in milliseconds
	//   - "duration_ms": event duration in milliseconds
	//   - "error": error details
	Meta map[string]interface{}
}
