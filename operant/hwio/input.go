package hwio

import (
	"context"
	"time"
)

// DefaultPollInterval is the software polling period used when a device
// has no native edge detection.
const DefaultPollInterval = 15 * time.Millisecond

// BooleanInput binds one input channel of a device to a named role on the
// rig, such as the center peck port's IR beam.
type BooleanInput struct {
	Name string

	device       DigitalReadWriter
	channel      int
	pollInterval time.Duration
}

// InputOption configures a BooleanInput.
type InputOption func(*BooleanInput)

// WithPollInterval overrides the software polling period.
func WithPollInterval(d time.Duration) InputOption {
	return func(in *BooleanInput) {
		in.pollInterval = d
	}
}

// NewBooleanInput configures the channel as an input on the device and
// returns the component. pullup selects the internal pull-up resistor;
// reads are active-high either way.
func NewBooleanInput(name string, device DigitalReadWriter, channel int, pullup bool, opts ...InputOption) (*BooleanInput, error) {
	if err := device.ConfigRead(channel, pullup); err != nil {
		return nil, err
	}
	in := &BooleanInput{
		Name:         name,
		device:       device,
		channel:      channel,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in, nil
}

// Read returns the current state of the input.
func (in *BooleanInput) Read(ctx context.Context) (bool, error) {
	return in.device.ReadBool(ctx, in.channel)
}

// Poll blocks until the input goes high or timeout elapses. It returns the
// time the edge was seen and whether one was seen at all. A timeout of
// zero or less polls until the context is done. An elapsed timeout is not
// an error; cancellation of ctx itself is reported as one.
//
// Devices implementing Poller are used directly; otherwise the input is
// polled in software at the configured interval.
func (in *BooleanInput) Poll(ctx context.Context, timeout time.Duration) (time.Time, bool, error) {
	parent := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// expired distinguishes the poll's own deadline, which is a normal
	// no-response result, from cancellation of the caller's context,
	// which must propagate.
	expired := func() (time.Time, bool, error) {
		if err := parent.Err(); err != nil {
			return time.Time{}, false, err
		}
		return time.Time{}, false, nil
	}

	if poller, ok := in.device.(Poller); ok {
		at, err := poller.Poll(ctx, in.channel)
		if err != nil {
			if ctx.Err() != nil {
				return expired()
			}
			return time.Time{}, false, err
		}
		return at, true, nil
	}

	ticker := time.NewTicker(in.pollInterval)
	defer ticker.Stop()
	for {
		value, err := in.device.ReadBool(ctx, in.channel)
		if err != nil {
			if ctx.Err() != nil {
				return expired()
			}
			return time.Time{}, false, err
		}
		if value {
			return time.Now(), true, nil
		}
		select {
		case <-ctx.Done():
			return expired()
		case <-ticker.C:
		}
	}
}
