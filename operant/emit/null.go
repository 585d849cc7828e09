package emit

// NullEmitter discards all events.
//
// Use it when observability is not needed, e.g. throwaway runs or
// benchmarks. The zero value is ready to use.
type NullEmitter struct{}

// NewNullEmitter creates a NullEmitter.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event.
func (n *NullEmitter) Emit(_ Event) {}
