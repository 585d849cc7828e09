package behavior

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/opyrant/opyrant/operant"
	"github.com/opyrant/opyrant/operant/panel"
	"github.com/opyrant/opyrant/operant/stimulus"
)

type fakeDevice struct {
	mu      sync.Mutex
	inputs  map[int]bool
	outputs map[int]bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{inputs: make(map[int]bool), outputs: make(map[int]bool)}
}

func (d *fakeDevice) ConfigRead(int, bool) error { return nil }
func (d *fakeDevice) ConfigWrite(int) error      { return nil }

func (d *fakeDevice) ReadBool(_ context.Context, channel int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inputs[channel], nil
}

func (d *fakeDevice) WriteBool(_ context.Context, channel int, value bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outputs[channel] = value
	return nil
}

func (d *fakeDevice) setInput(channel int, value bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inputs[channel] = value
}

type fakeAudio struct {
	mu      sync.Mutex
	queued  []string
	playing bool
	stops   int
}

func (a *fakeAudio) Queue(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queued = append(a.queued, path)
	return nil
}

func (a *fakeAudio) Play() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.playing = true
	return nil
}

func (a *fakeAudio) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.playing = false
	a.stops++
	return nil
}

var channels = panel.ChannelMap{
	HouseLight: 0,
	LeftIR:     1, CenterIR: 2, RightIR: 3,
	LeftCue: 4, CenterCue: 5, RightCue: 6,
	FeederSolenoid: 7, FeederIR: 8,
}

func newRig(t *testing.T) (*panel.Panel, *fakeDevice, *fakeAudio) {
	t.Helper()
	dev := newFakeDevice()
	audio := &fakeAudio{}
	p, err := panel.New(dev, channels, audio)
	if err != nil {
		t.Fatal(err)
	}
	p.Feeder.SetTravelTime(30 * time.Millisecond)
	return p, dev, audio
}

func testTrial(duration time.Duration) *operant.Trial {
	condition := stimulus.NewCondition("sPlus", true, true, false, []stimulus.Stimulus{
		{Name: "p1", Path: "/stims/p1.wav", Duration: duration},
	})
	stim := condition.Stimuli()[0]
	return &operant.Trial{
		Session:   1,
		Index:     1,
		Time:      time.Now(),
		Condition: condition,
		Stimulus:  &stim,
	}
}

func TestGoNoGoRequiresSpeaker(t *testing.T) {
	dev := newFakeDevice()
	p, err := panel.New(dev, channels, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewGoNoGoInterrupt(p); !errors.Is(err, ErrNoSpeaker) {
		t.Fatalf("got %v, want ErrNoSpeaker", err)
	}
}

func TestGoNoGoObservingPeck(t *testing.T) {
	p, dev, _ := newRig(t)
	g, err := NewGoNoGoInterrupt(p)
	if err != nil {
		t.Fatal(err)
	}
	g.MaxWait = time.Second

	go func() {
		time.Sleep(20 * time.Millisecond)
		dev.setInput(channels.CenterIR, true)
	}()

	trial := testTrial(time.Second)
	if err := g.TrialPre(context.Background(), trial); err != nil {
		t.Fatalf("TrialPre: %v", err)
	}
	// Cue came on for the observing period and is off again.
	dev.mu.Lock()
	cue := dev.outputs[channels.CenterCue]
	dev.mu.Unlock()
	if cue {
		t.Error("center cue left on after observing peck")
	}
}

func TestGoNoGoNoObservingPeckEndsSession(t *testing.T) {
	p, _, _ := newRig(t)
	g, err := NewGoNoGoInterrupt(p)
	if err != nil {
		t.Fatal(err)
	}
	g.MaxWait = 30 * time.Millisecond

	err = g.TrialPre(context.Background(), testTrial(time.Second))
	if !errors.Is(err, operant.ErrEndSession) {
		t.Fatalf("got %v, want ErrEndSession", err)
	}
}

func TestGoNoGoResponseInterruptsPlayback(t *testing.T) {
	p, dev, audio := newRig(t)
	g, err := NewGoNoGoInterrupt(p)
	if err != nil {
		t.Fatal(err)
	}
	g.ResponseWindow = 100 * time.Millisecond

	trial := testTrial(200 * time.Millisecond)
	if err := g.StimulusMain(context.Background(), trial); err != nil {
		t.Fatalf("StimulusMain: %v", err)
	}
	if len(audio.queued) != 1 || audio.queued[0] != "/stims/p1.wav" {
		t.Fatalf("queued %v", audio.queued)
	}

	dev.setInput(channels.CenterIR, false)
	go func() {
		time.Sleep(30 * time.Millisecond)
		dev.setInput(channels.CenterIR, true)
	}()

	if err := g.ResponseMain(context.Background(), trial); err != nil {
		t.Fatalf("ResponseMain: %v", err)
	}
	if !trial.Response {
		t.Fatal("peck not recorded as response")
	}
	if trial.RT <= 0 || trial.RT > time.Second {
		t.Errorf("rt: %v", trial.RT)
	}
	audio.mu.Lock()
	defer audio.mu.Unlock()
	if audio.playing {
		t.Error("playback not stopped by response")
	}
}

func TestGoNoGoNoResponse(t *testing.T) {
	p, _, _ := newRig(t)
	g, err := NewGoNoGoInterrupt(p)
	if err != nil {
		t.Fatal(err)
	}
	g.ResponseWindow = 20 * time.Millisecond

	trial := testTrial(10 * time.Millisecond)
	if err := g.StimulusMain(context.Background(), trial); err != nil {
		t.Fatal(err)
	}
	if err := g.ResponseMain(context.Background(), trial); err != nil {
		t.Fatalf("ResponseMain: %v", err)
	}
	if trial.Response {
		t.Error("quiet window recorded a response")
	}
}

func TestGoNoGoChaining(t *testing.T) {
	p, _, _ := newRig(t)
	g, err := NewGoNoGoInterrupt(p)
	if err != nil {
		t.Fatal(err)
	}
	g.MaxWait = 20 * time.Millisecond

	responded := testTrial(time.Second)
	responded.Response = true
	if err := g.TrialPost(context.Background(), responded); err != nil {
		t.Fatal(err)
	}

	// Next trial starts without an observing peck.
	next := testTrial(time.Second)
	if err := g.TrialPre(context.Background(), next); err != nil {
		t.Fatalf("chained TrialPre: %v", err)
	}
	if next.Annotations["chained"] != "true" {
		t.Errorf("annotations: %v", next.Annotations)
	}

	// Chaining is one-shot.
	if err := g.TrialPre(context.Background(), testTrial(time.Second)); !errors.Is(err, operant.ErrEndSession) {
		t.Fatalf("second TrialPre: got %v, want ErrEndSession", err)
	}
}

func TestGoNoGoReward(t *testing.T) {
	p, dev, _ := newRig(t)
	// Make the hopper track the solenoid so the feed verifies.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			dev.mu.Lock()
			dev.inputs[channels.FeederIR] = dev.outputs[channels.FeederSolenoid]
			dev.mu.Unlock()
			time.Sleep(2 * time.Millisecond)
		}
	}()

	g, err := NewGoNoGoInterrupt(p)
	if err != nil {
		t.Fatal(err)
	}
	g.RewardDuration = 20 * time.Millisecond

	if err := g.RewardMain(context.Background(), testTrial(time.Second)); err != nil {
		t.Fatalf("RewardMain: %v", err)
	}
	<-done
}

func TestGoNoGoPunish(t *testing.T) {
	p, dev, _ := newRig(t)
	g, err := NewGoNoGoInterrupt(p)
	if err != nil {
		t.Fatal(err)
	}
	g.PunishDuration = 20 * time.Millisecond

	if err := p.HouseLight.On(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := g.PunishMain(context.Background(), testTrial(time.Second)); err != nil {
		t.Fatalf("PunishMain: %v", err)
	}
	dev.mu.Lock()
	lit := dev.outputs[channels.HouseLight]
	dev.mu.Unlock()
	if !lit {
		t.Error("house light not restored after timeout")
	}
}
