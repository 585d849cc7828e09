package hwio

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
)

// ErrNothingQueued is returned by Play when no file has been queued.
var ErrNothingQueued = errors.New("alsa: nothing queued")

// ALSAPlayer plays wav files through aplay. Playback runs in the
// background; Play returns as soon as the sound starts so response
// polling can overlap it, and Stop kills the player mid-file.
type ALSAPlayer struct {
	device string

	mu     sync.Mutex
	queued string
	cmd    *exec.Cmd
}

// NewALSAPlayer returns a player on the given ALSA device, such as
// "default" or "hw:1,0". Empty means the system default.
func NewALSAPlayer(device string) *ALSAPlayer {
	return &ALSAPlayer{device: device}
}

// Queue stages a wav file for the next Play.
func (a *ALSAPlayer) Queue(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queued = path
	return nil
}

// Play starts the queued file. A sound already playing is stopped first.
func (a *ALSAPlayer) Play() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.queued == "" {
		return ErrNothingQueued
	}
	a.stopLocked()

	args := []string{"-q"}
	if a.device != "" {
		args = append(args, "-D", a.device)
	}
	args = append(args, a.queued)

	cmd := exec.Command("aplay", args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting aplay: %w", err)
	}
	a.cmd = cmd
	go cmd.Wait()
	return nil
}

// Stop kills any playback in progress.
func (a *ALSAPlayer) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
	return nil
}

func (a *ALSAPlayer) stopLocked() {
	if a.cmd != nil && a.cmd.Process != nil {
		a.cmd.Process.Kill()
	}
	a.cmd = nil
}
