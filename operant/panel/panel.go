// Package panel assembles hwio components into the operant panel a
// behavior runs against: response ports with cue lights, a house light,
// a feeder hopper, and a speaker.
package panel

import (
	"context"
	"fmt"
	"time"

	"github.com/opyrant/opyrant/operant/hwio"
)

// ChannelMap names the device channels a standard panel uses. Zero values
// are valid channel numbers, so every field must be set explicitly.
type ChannelMap struct {
	HouseLight int

	// Response ports, left to right.
	LeftIR     int
	CenterIR   int
	RightIR    int
	LeftCue    int
	CenterCue  int
	RightCue   int

	FeederSolenoid int
	FeederIR       int
}

// Panel is a fully wired rig.
type Panel struct {
	HouseLight *HouseLight
	Left       *ResponsePort
	Center     *ResponsePort
	Right      *ResponsePort
	Feeder     *Feeder
	Speaker    *hwio.AudioOutput
}

// New wires a panel on the given device using the channel map. IR beam
// inputs use the internal pull-up since the sensors pull the line low
// when broken.
func New(device hwio.DigitalReadWriter, channels ChannelMap, audio hwio.AudioDevice) (*Panel, error) {
	houseLight, err := NewHouseLight(device, channels.HouseLight)
	if err != nil {
		return nil, fmt.Errorf("wiring house light: %w", err)
	}

	left, err := NewResponsePort("left", device, channels.LeftIR, channels.LeftCue)
	if err != nil {
		return nil, fmt.Errorf("wiring left port: %w", err)
	}
	center, err := NewResponsePort("center", device, channels.CenterIR, channels.CenterCue)
	if err != nil {
		return nil, fmt.Errorf("wiring center port: %w", err)
	}
	right, err := NewResponsePort("right", device, channels.RightIR, channels.RightCue)
	if err != nil {
		return nil, fmt.Errorf("wiring right port: %w", err)
	}

	feeder, err := NewFeeder(device, channels.FeederSolenoid, channels.FeederIR)
	if err != nil {
		return nil, fmt.Errorf("wiring feeder: %w", err)
	}

	p := &Panel{
		HouseLight: houseLight,
		Left:       left,
		Center:     center,
		Right:      right,
		Feeder:     feeder,
	}
	if audio != nil {
		p.Speaker = hwio.NewAudioOutput("speaker", audio)
	}
	return p, nil
}

// Reset drives the panel to its idle state: house light on, cues off,
// feeder down, playback stopped.
func (p *Panel) Reset(ctx context.Context) error {
	if p.Speaker != nil {
		p.Speaker.Stop()
	}
	for _, port := range []*ResponsePort{p.Left, p.Center, p.Right} {
		if err := port.CueOff(ctx); err != nil {
			return err
		}
	}
	if err := p.Feeder.lower(ctx); err != nil {
		return err
	}
	return p.HouseLight.On(ctx)
}

// Sleep turns everything off for the dark phase of the light schedule.
func (p *Panel) Sleep(ctx context.Context) error {
	if p.Speaker != nil {
		p.Speaker.Stop()
	}
	for _, port := range []*ResponsePort{p.Left, p.Center, p.Right} {
		if err := port.CueOff(ctx); err != nil {
			return err
		}
	}
	if err := p.Feeder.lower(ctx); err != nil {
		return err
	}
	return p.HouseLight.Off(ctx)
}

// HouseLight controls the overhead light that marks the day phase and is
// dimmed as a timeout punishment.
type HouseLight struct {
	out *hwio.BooleanOutput
}

// NewHouseLight wires the house light relay.
func NewHouseLight(device hwio.DigitalReadWriter, channel int) (*HouseLight, error) {
	out, err := hwio.NewBooleanOutput("house_light", device, channel)
	if err != nil {
		return nil, err
	}
	return &HouseLight{out: out}, nil
}

func (h *HouseLight) On(ctx context.Context) error {
	return h.out.Write(ctx, true)
}

func (h *HouseLight) Off(ctx context.Context) error {
	return h.out.Write(ctx, false)
}

// IsOn reports the last commanded state.
func (h *HouseLight) IsOn() bool {
	return h.out.Read()
}

// Timeout darkens the box for the given duration, then restores the
// light. Used as punishment after incorrect responses.
func (h *HouseLight) Timeout(ctx context.Context, d time.Duration) error {
	if err := h.Off(ctx); err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	if err := h.On(context.Background()); err != nil {
		return err
	}
	return ctx.Err()
}

// ResponsePort is one peck port: an IR beam input plus a cue light.
type ResponsePort struct {
	Name string

	ir  *hwio.BooleanInput
	cue *hwio.BooleanOutput
}

// NewResponsePort wires a port's IR beam (with pull-up) and cue light.
func NewResponsePort(name string, device hwio.DigitalReadWriter, irChannel, cueChannel int) (*ResponsePort, error) {
	ir, err := hwio.NewBooleanInput(name+"_ir", device, irChannel, true)
	if err != nil {
		return nil, err
	}
	cue, err := hwio.NewBooleanOutput(name+"_cue", device, cueChannel)
	if err != nil {
		return nil, err
	}
	return &ResponsePort{Name: name, ir: ir, cue: cue}, nil
}

// Status reports whether the beam is currently broken.
func (r *ResponsePort) Status(ctx context.Context) (bool, error) {
	return r.ir.Read(ctx)
}

// Poll blocks until the beam breaks or timeout elapses. It returns the
// peck time and whether a peck occurred.
func (r *ResponsePort) Poll(ctx context.Context, timeout time.Duration) (time.Time, bool, error) {
	return r.ir.Poll(ctx, timeout)
}

func (r *ResponsePort) CueOn(ctx context.Context) error {
	return r.cue.Write(ctx, true)
}

func (r *ResponsePort) CueOff(ctx context.Context) error {
	return r.cue.Write(ctx, false)
}

// Flash blinks the cue light, period per full cycle.
func (r *ResponsePort) Flash(ctx context.Context, d, period time.Duration) error {
	if period <= 0 {
		period = 200 * time.Millisecond
	}
	deadline := time.Now().Add(d)
	ticker := time.NewTicker(period / 2)
	defer ticker.Stop()
	for time.Now().Before(deadline) {
		if _, err := r.cue.Toggle(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			if err := r.CueOff(context.Background()); err != nil {
				return err
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return r.CueOff(ctx)
}
