package panel

import (
	"context"
	"fmt"
	"time"

	"github.com/opyrant/opyrant/operant/hwio"
)

// Hopper failure modes. Each is detectable from the feeder IR beam, which
// reads high only while the hopper is raised.
type HopperError struct {
	// Kind is one of "already_up", "wont_come_up", "wont_drop".
	Kind string
}

func (e *HopperError) Error() string {
	switch e.Kind {
	case "already_up":
		return "hopper: already up before feed"
	case "wont_come_up":
		return "hopper: failed to come up"
	case "wont_drop":
		return "hopper: failed to drop"
	}
	return fmt.Sprintf("hopper: %s", e.Kind)
}

// Sentinel instances for errors.Is checks.
var (
	ErrHopperAlreadyUp  = &HopperError{Kind: "already_up"}
	ErrHopperWontComeUp = &HopperError{Kind: "wont_come_up"}
	ErrHopperWontDrop   = &HopperError{Kind: "wont_drop"}
)

func (e *HopperError) Is(target error) bool {
	other, ok := target.(*HopperError)
	return ok && other.Kind == e.Kind
}

// Feeder is the food hopper: a solenoid that raises it and an IR beam
// that verifies its position. Feed failures are surfaced as HopperError
// values so callers can flag a rig for maintenance.
type Feeder struct {
	solenoid *hwio.BooleanOutput
	ir       *hwio.BooleanInput

	// lag is how long the hopper mechanism is given to travel before
	// its position is checked.
	lag time.Duration
}

// NewFeeder wires the feeder solenoid and position beam.
func NewFeeder(device hwio.DigitalReadWriter, solenoidChannel, irChannel int) (*Feeder, error) {
	solenoid, err := hwio.NewBooleanOutput("feeder_solenoid", device, solenoidChannel)
	if err != nil {
		return nil, err
	}
	ir, err := hwio.NewBooleanInput("feeder_ir", device, irChannel, true)
	if err != nil {
		return nil, err
	}
	return &Feeder{solenoid: solenoid, ir: ir, lag: 300 * time.Millisecond}, nil
}

// SetTravelTime overrides the mechanical travel allowance.
func (f *Feeder) SetTravelTime(d time.Duration) {
	f.lag = d
}

// Up reports whether the hopper is raised.
func (f *Feeder) Up(ctx context.Context) (bool, error) {
	return f.ir.Read(ctx)
}

// Feed raises the hopper for the given duration, then lowers it, checking
// the position beam at each step.
func (f *Feeder) Feed(ctx context.Context, d time.Duration) error {
	up, err := f.Up(ctx)
	if err != nil {
		return err
	}
	if up {
		return ErrHopperAlreadyUp
	}

	if err := f.raise(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}

	// Lower regardless of cancellation so food access is never left open.
	if err := f.lowerChecked(context.Background()); err != nil {
		return err
	}
	return ctx.Err()
}

func (f *Feeder) raise(ctx context.Context) error {
	if err := f.solenoid.Write(ctx, true); err != nil {
		return err
	}
	_, up, err := f.ir.Poll(ctx, f.lag)
	if err != nil {
		return err
	}
	if !up {
		f.solenoid.Write(context.Background(), false)
		return ErrHopperWontComeUp
	}
	return nil
}

func (f *Feeder) lower(ctx context.Context) error {
	return f.solenoid.Write(ctx, false)
}

func (f *Feeder) lowerChecked(ctx context.Context) error {
	if err := f.lower(ctx); err != nil {
		return err
	}
	deadline := time.Now().Add(f.lag)
	for {
		up, err := f.Up(ctx)
		if err != nil {
			return err
		}
		if !up {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrHopperWontDrop
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.lag / 10):
		}
	}
}
