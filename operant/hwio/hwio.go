// Package hwio defines the device interfaces and panel components that sit
// between behavioral logic and physical hardware.
//
// A device driver (such as the arduino subpackage) exposes raw channels;
// components like BooleanInput and BooleanOutput bind a channel to a role
// on the rig (a peck port IR beam, a house light relay) and add the small
// behaviors experiments need on top, such as polling with a deadline.
package hwio

import (
	"context"
	"fmt"
	"time"
)

// DigitalReadWriter is the minimal contract a digital IO device driver
// must satisfy. Channels are device-defined small integers.
type DigitalReadWriter interface {
	// ConfigRead configures a channel as a digital input. With pullup
	// set, the channel uses the internal pull-up resistor and the driver
	// is expected to invert reads so callers always see active-high.
	ConfigRead(channel int, pullup bool) error

	// ConfigWrite configures a channel as a digital output.
	ConfigWrite(channel int) error

	// ReadBool returns the current state of an input channel.
	ReadBool(ctx context.Context, channel int) (bool, error)

	// WriteBool sets the state of an output channel.
	WriteBool(ctx context.Context, channel int, value bool) error
}

// Poller is implemented by devices that can block until an input channel
// goes high, which is cheaper and lower latency than a read loop. Devices
// without native edge support are polled in software by BooleanInput.
type Poller interface {
	// Poll blocks until the channel reads high or the context is done.
	// It returns the time the edge was observed.
	Poll(ctx context.Context, channel int) (time.Time, error)
}

// AudioDevice plays sound stimuli. Queue prepares a file without starting
// it so Play can be aligned with trial timing.
type AudioDevice interface {
	Queue(path string) error
	Play() error
	Stop() error
}

// DeviceError reports a failure talking to a hardware device.
type DeviceError struct {
	Device  string
	Channel int
	Op      string
	Err     error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s channel %d: %s: %v", e.Device, e.Channel, e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}
