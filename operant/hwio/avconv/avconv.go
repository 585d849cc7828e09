// Package avconv captures video and audio from rig-mounted cameras and
// microphones by shelling out to avconv or ffmpeg. The two tools share a
// command line, so whichever is installed works.
package avconv

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// ErrRecording is returned when a capture is started while one is running.
var ErrRecording = errors.New("avconv: capture already in progress")

// ErrNotRecording is returned by Stop when no capture is running.
var ErrNotRecording = errors.New("avconv: no capture in progress")

// Capture records from a video4linux camera and, optionally, an ALSA
// audio source. One Capture runs at most one recording at a time.
type Capture struct {
	binary     string
	videoDev   string
	audioDev   string
	frameRate  int
	resolution string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// Option configures a Capture.
type Option func(*Capture)

// WithBinary overrides the encoder binary, for example "ffmpeg".
func WithBinary(path string) Option {
	return func(c *Capture) {
		c.binary = path
	}
}

// WithAudio records sound from an ALSA device such as "hw:1,0" alongside
// the video.
func WithAudio(device string) Option {
	return func(c *Capture) {
		c.audioDev = device
	}
}

// WithFrameRate sets the capture frame rate. Default 30.
func WithFrameRate(fps int) Option {
	return func(c *Capture) {
		c.frameRate = fps
	}
}

// WithResolution sets the capture size, for example "640x480".
func WithResolution(res string) Option {
	return func(c *Capture) {
		c.resolution = res
	}
}

// New returns a Capture reading from the given video4linux device, for
// example "/dev/video0".
func New(videoDev string, opts ...Option) *Capture {
	c := &Capture{
		binary:     "avconv",
		videoDev:   videoDev,
		frameRate:  30,
		resolution: "640x480",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Capture) inputArgs() []string {
	args := []string{
		"-f", "video4linux2",
		"-r", fmt.Sprint(c.frameRate),
		"-s", c.resolution,
		"-i", c.videoDev,
	}
	if c.audioDev != "" {
		args = append(args, "-f", "alsa", "-i", c.audioDev)
	}
	return args
}

// Snapshot grabs a single frame to path. It blocks until the encoder
// exits or the context is done.
func (c *Capture) Snapshot(ctx context.Context, path string) error {
	args := append(c.inputArgs(), "-frames:v", "1", "-y", path)
	cmd := exec.CommandContext(ctx, c.binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("avconv snapshot: %w: %s", err, out)
	}
	return nil
}

// Start begins recording to path in the background. Recording continues
// until Stop is called or the context is done.
func (c *Capture) Start(ctx context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd != nil {
		return ErrRecording
	}

	args := append(c.inputArgs(), "-y", path)
	cmd := exec.CommandContext(ctx, c.binary, args...)
	// SIGINT lets the encoder finalize the container instead of leaving
	// a truncated file.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGINT)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting avconv: %w", err)
	}
	c.cmd = cmd
	return nil
}

// Record captures for the given duration, blocking until done.
func (c *Capture) Record(ctx context.Context, path string, d time.Duration) error {
	if err := c.Start(ctx, path); err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	return c.Stop()
}

// Stop interrupts the running recording and waits for the encoder to
// finalize the file.
func (c *Capture) Stop() error {
	c.mu.Lock()
	cmd := c.cmd
	c.cmd = nil
	c.mu.Unlock()

	if cmd == nil {
		return ErrNotRecording
	}
	if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
		cmd.Process.Kill()
	}
	err := cmd.Wait()
	// Interrupted encoders exit nonzero after writing a valid file.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// Recording reports whether a capture is in progress.
func (c *Capture) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cmd != nil
}
