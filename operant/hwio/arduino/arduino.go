// Package arduino drives digital IO through an Arduino running the
// companion sketch, over a plain serial line.
//
// The wire protocol is two bytes per command, channel then action:
//
//	0  read channel, device answers with one byte (nonzero = high)
//	1  drive channel high
//	2  drive channel low
//	3  configure channel as output
//	4  configure channel as input
//	5  configure channel as input with pull-up
//
// Channels configured with a pull-up idle high on the wire, so the driver
// inverts their reads. Callers always see active-high values.
package arduino

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/opyrant/opyrant/operant/hwio"
)

const (
	actionRead        = 0
	actionWriteHigh   = 1
	actionWriteLow    = 2
	actionConfigOut   = 3
	actionConfigIn    = 4
	actionConfigInPup = 5
)

// DefaultBaudRate matches the companion sketch.
const DefaultBaudRate = 19200

// resetDelay gives the board time to finish its auto-reset after the
// serial port opens. Commands sent earlier are lost.
const resetDelay = 2 * time.Second

// ErrClosed is returned by operations on a closed device.
var ErrClosed = errors.New("arduino: device closed")

// Device is a DigitalReadWriter backed by an Arduino. All serial traffic
// is serialized through a single mutex since the protocol is strictly
// request/response.
type Device struct {
	name string

	mu       sync.Mutex
	port     io.ReadWriteCloser
	inverted map[int]bool
	closed   bool

	pollInterval time.Duration
}

// Option configures a Device.
type Option func(*Device)

// WithPollInterval overrides the period of the software poll loop.
func WithPollInterval(d time.Duration) Option {
	return func(dev *Device) {
		dev.pollInterval = d
	}
}

// Open connects to the Arduino on the named serial port (for example
// "/dev/ttyACM0") and waits out the board's reset.
func Open(portName string, baud int, opts ...Option) (*Device, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", portName, err)
	}

	time.Sleep(resetDelay)
	port.ResetInputBuffer()

	return NewWithPort(portName, port, opts...), nil
}

// NewWithPort wraps an already open serial connection. It exists so tests
// and simulators can stand in for real hardware.
func NewWithPort(name string, port io.ReadWriteCloser, opts ...Option) *Device {
	dev := &Device{
		name:         name,
		port:         port,
		inverted:     make(map[int]bool),
		pollInterval: hwio.DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(dev)
	}
	return dev
}

func (d *Device) send(channel, action int) error {
	if d.closed {
		return ErrClosed
	}
	if channel < 0 || channel > 255 {
		return fmt.Errorf("arduino: channel %d out of range", channel)
	}
	_, err := d.port.Write([]byte{byte(channel), byte(action)})
	return err
}

// ConfigRead configures a channel as an input, with the internal pull-up
// when requested.
func (d *Device) ConfigRead(channel int, pullup bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	action := actionConfigIn
	if pullup {
		action = actionConfigInPup
	}
	if err := d.send(channel, action); err != nil {
		return &hwio.DeviceError{Device: d.name, Channel: channel, Op: "config read", Err: err}
	}
	d.inverted[channel] = pullup
	return nil
}

// ConfigWrite configures a channel as an output.
func (d *Device) ConfigWrite(channel int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.send(channel, actionConfigOut); err != nil {
		return &hwio.DeviceError{Device: d.name, Channel: channel, Op: "config write", Err: err}
	}
	return nil
}

// ReadBool reads the current state of an input channel.
func (d *Device) ReadBool(ctx context.Context, channel int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.send(channel, actionRead); err != nil {
		return false, &hwio.DeviceError{Device: d.name, Channel: channel, Op: "read", Err: err}
	}

	buf := make([]byte, 1)
	if _, err := io.ReadFull(d.port, buf); err != nil {
		return false, &hwio.DeviceError{Device: d.name, Channel: channel, Op: "read reply", Err: err}
	}

	value := buf[0] != 0
	if d.inverted[channel] {
		value = !value
	}
	return value, nil
}

// WriteBool sets the state of an output channel.
func (d *Device) WriteBool(ctx context.Context, channel int, value bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	action := actionWriteLow
	if value {
		action = actionWriteHigh
	}
	if err := d.send(channel, action); err != nil {
		return &hwio.DeviceError{Device: d.name, Channel: channel, Op: "write", Err: err}
	}
	return nil
}

// Poll blocks until the channel reads high or the context is done.
//
// A channel that is already high when Poll starts is treated as a held
// response from earlier. The line must drop low before a new high counts,
// so one long press cannot trigger two trials.
func (d *Device) Poll(ctx context.Context, channel int) (time.Time, error) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	armed := false
	for {
		value, err := d.ReadBool(ctx, channel)
		if err != nil {
			return time.Time{}, err
		}
		switch {
		case !value:
			armed = true
		case armed:
			return time.Now(), nil
		}
		select {
		case <-ctx.Done():
			return time.Time{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close releases the serial port. Safe to call more than once.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.port.Close()
}
