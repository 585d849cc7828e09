package avconv

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestInputArgs(t *testing.T) {
	c := New("/dev/video0", WithFrameRate(15), WithResolution("1280x720"))
	args := c.inputArgs()
	want := []string{"-f", "video4linux2", "-r", "15", "-s", "1280x720", "-i", "/dev/video0"}
	if len(args) != len(want) {
		t.Fatalf("got %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("got %v, want %v", args, want)
		}
	}
}

func TestInputArgsWithAudio(t *testing.T) {
	c := New("/dev/video0", WithAudio("hw:1,0"))
	args := c.inputArgs()
	found := false
	for i := 0; i+2 < len(args); i++ {
		if args[i] == "-f" && args[i+1] == "alsa" && args[i+3] == "hw:1,0" {
			found = true
		}
	}
	if !found {
		t.Fatalf("alsa input missing from %v", args)
	}
}

func TestStopWithoutStart(t *testing.T) {
	c := New("/dev/video0")
	if err := c.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("got %v, want ErrNotRecording", err)
	}
}

// TestRecordLifecycle uses /bin/sleep in place of a real encoder so the
// start/stop plumbing is exercised without capture hardware.
func TestRecordLifecycle(t *testing.T) {
	c := New("10", WithBinary("/bin/sleep"))
	path := filepath.Join(t.TempDir(), "ignored.avi")

	ctx := context.Background()
	if err := c.Start(ctx, path); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !c.Recording() {
		t.Error("Recording false while capture runs")
	}
	if err := c.Start(ctx, path); !errors.Is(err, ErrRecording) {
		t.Errorf("second Start: got %v, want ErrRecording", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if c.Recording() {
		t.Error("Recording true after Stop")
	}
}

func TestRecordDuration(t *testing.T) {
	c := New("10", WithBinary("/bin/sleep"))
	path := filepath.Join(t.TempDir(), "ignored.avi")

	start := time.Now()
	if err := c.Record(context.Background(), path, 20*time.Millisecond); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Record returned after %v", elapsed)
	}
}
