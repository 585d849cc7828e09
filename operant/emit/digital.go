package emit

import (
	"context"
	"sync"
)

// BitWriter writes a sequence of logic levels to a digital output line.
// Implementations pulse an interface channel once per bit at the device's
// native rate.
type BitWriter interface {
	WriteBits(ctx context.Context, bits []bool) error
}

// DigitalEmitter packs events into bit frames and writes them to a digital
// line on the hardware interface.
//
// Recording systems sample this line alongside neural data, so every
// behavioral event gets a hardware-accurate timestamp. The frame layout is:
//
//	start bit (high)
//	4 bytes: event source, ASCII, space padded / truncated
//	4 bytes: event name, ASCII, space padded / truncated
//	16 bytes: metadata string, only when present
//	stop bit (low)
//
// Bytes are serialized MSB first. Frames are cached per
// (source, msg, metadata) triple since the same event recurs thousands of
// times per session and re-packing would burn time inside the trial loop.
//
// Events are written asynchronously from a single goroutine so that Emit
// never blocks the trial. Close drains the queue and stops the goroutine.
type DigitalEmitter struct {
	out BitWriter

	sourceBytes   int
	msgBytes      int
	metadataBytes int

	mu    sync.Mutex
	cache map[frameKey][]bool

	qmu    sync.Mutex
	closed bool
	queue  chan Event
	done   chan struct{}
	once   sync.Once
}

type frameKey struct {
	source, msg, metadata string
}

// DigitalOption configures a DigitalEmitter.
type DigitalOption func(*DigitalEmitter)

// WithFrameWidths overrides the default byte widths (4 source, 4 msg,
// 16 metadata).
func WithFrameWidths(source, msg, metadata int) DigitalOption {
	return func(d *DigitalEmitter) {
		d.sourceBytes = source
		d.msgBytes = msg
		d.metadataBytes = metadata
	}
}

// NewDigitalEmitter creates a DigitalEmitter writing frames to out and
// starts its writer goroutine.
func NewDigitalEmitter(out BitWriter, opts ...DigitalOption) *DigitalEmitter {
	d := &DigitalEmitter{
		out:           out,
		sourceBytes:   4,
		msgBytes:      4,
		metadataBytes: 16,
		cache:         make(map[frameKey][]bool),
		queue:         make(chan Event, 256),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	go d.run()
	return d
}

// Emit enqueues the event for asynchronous writing. If the queue is full
// the event is dropped rather than stalling the trial loop. Events arriving
// after Close are dropped.
func (d *DigitalEmitter) Emit(event Event) {
	d.qmu.Lock()
	defer d.qmu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- event:
	default:
	}
}

// Close drains pending events and stops the writer goroutine.
func (d *DigitalEmitter) Close() {
	d.once.Do(func() {
		d.qmu.Lock()
		d.closed = true
		d.qmu.Unlock()
		close(d.queue)
		<-d.done
	})
}

func (d *DigitalEmitter) run() {
	defer close(d.done)
	for event := range d.queue {
		bits := d.Pack(event)
		// Best effort: a failed write must not kill the writer.
		_ = d.out.WriteBits(context.Background(), bits)
	}
}

// Pack serializes an event into its bit frame, reusing the cached frame
// when the same event shape has been seen before.
func (d *DigitalEmitter) Pack(event Event) []bool {
	metadata := ""
	if event.Meta != nil {
		if s, ok := event.Meta["metadata"].(string); ok {
			metadata = s
		}
	}

	key := frameKey{source: event.Source, msg: event.Msg, metadata: metadata}

	d.mu.Lock()
	defer d.mu.Unlock()

	if bits, ok := d.cache[key]; ok {
		return bits
	}

	var payload []byte
	payload = appendPadded(payload, event.Source, d.sourceBytes)
	payload = appendPadded(payload, event.Msg, d.msgBytes)
	if metadata != "" {
		payload = appendPadded(payload, metadata, d.metadataBytes)
	}

	bits := make([]bool, 0, len(payload)*8+2)
	bits = append(bits, true) // start bit
	for _, b := range payload {
		for i := 7; i >= 0; i-- {
			bits = append(bits, b&(1<<uint(i)) != 0)
		}
	}
	bits = append(bits, false) // stop bit

	d.cache[key] = bits
	return bits
}

// appendPadded appends s space-padded or truncated to width bytes.
func appendPadded(dst []byte, s string, width int) []byte {
	b := []byte(s)
	if len(b) > width {
		b = b[:width]
	}
	dst = append(dst, b...)
	for i := len(b); i < width; i++ {
		dst = append(dst, ' ')
	}
	return dst
}
