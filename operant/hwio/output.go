package hwio

import (
	"context"
	"sync"
	"time"
)

// BooleanOutput binds one output channel of a device to a named role on
// the rig, such as a house light relay or the feeder solenoid.
//
// The component tracks the last value written so Read works on devices
// whose output channels cannot be read back.
type BooleanOutput struct {
	Name string

	device  DigitalReadWriter
	channel int

	mu        sync.Mutex
	last      bool
	bitPeriod time.Duration
}

// NewBooleanOutput configures the channel as an output on the device and
// returns the component. The channel is driven low to start from a known
// state.
func NewBooleanOutput(name string, device DigitalReadWriter, channel int) (*BooleanOutput, error) {
	if err := device.ConfigWrite(channel); err != nil {
		return nil, err
	}
	out := &BooleanOutput{
		Name:    name,
		device:  device,
		channel: channel,
	}
	if err := out.Write(context.Background(), false); err != nil {
		return nil, err
	}
	return out, nil
}

// Write sets the output state.
func (out *BooleanOutput) Write(ctx context.Context, value bool) error {
	out.mu.Lock()
	defer out.mu.Unlock()
	if err := out.device.WriteBool(ctx, out.channel, value); err != nil {
		return err
	}
	out.last = value
	return nil
}

// Read returns the last value written.
func (out *BooleanOutput) Read() bool {
	out.mu.Lock()
	defer out.mu.Unlock()
	return out.last
}

// Toggle inverts the output state and returns the new value.
func (out *BooleanOutput) Toggle(ctx context.Context) (bool, error) {
	out.mu.Lock()
	defer out.mu.Unlock()
	next := !out.last
	if err := out.device.WriteBool(ctx, out.channel, next); err != nil {
		return out.last, err
	}
	out.last = next
	return next, nil
}

// Pulse drives the output high for the given duration, then low. The low
// write is attempted even when the context expires mid-pulse so hardware
// is never left on.
func (out *BooleanOutput) Pulse(ctx context.Context, d time.Duration) error {
	if err := out.Write(ctx, true); err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	if err := out.Write(context.Background(), false); err != nil {
		return err
	}
	return ctx.Err()
}

// DefaultBitPeriod is how long WriteBits holds each bit on the line.
const DefaultBitPeriod = time.Millisecond

// SetBitPeriod overrides the bit clock used by WriteBits.
func (out *BooleanOutput) SetBitPeriod(d time.Duration) {
	out.mu.Lock()
	defer out.mu.Unlock()
	out.bitPeriod = d
}

// WriteBits clocks a bit frame out on the line, holding each bit for the
// bit period and leaving the line low afterward. This is how event sync
// frames reach an acquisition system's digital input.
func (out *BooleanOutput) WriteBits(ctx context.Context, bits []bool) error {
	out.mu.Lock()
	period := out.bitPeriod
	out.mu.Unlock()
	if period <= 0 {
		period = DefaultBitPeriod
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for _, bit := range bits {
		if err := out.Write(ctx, bit); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			out.Write(context.Background(), false)
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return out.Write(ctx, false)
}

// AudioOutput wraps an AudioDevice as a named panel component.
type AudioOutput struct {
	Name   string
	device AudioDevice
}

// NewAudioOutput returns an audio component backed by the given device.
func NewAudioOutput(name string, device AudioDevice) *AudioOutput {
	return &AudioOutput{Name: name, device: device}
}

// Queue prepares a sound file for playback.
func (a *AudioOutput) Queue(path string) error {
	return a.device.Queue(path)
}

// Play starts the queued sound.
func (a *AudioOutput) Play() error {
	return a.device.Play()
}

// Stop halts playback.
func (a *AudioOutput) Stop() error {
	return a.device.Stop()
}
