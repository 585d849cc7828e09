package stimulus

import (
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// NewWavCondition creates a condition whose stimuli are the .wav files found
// under dir. With recursive set, subdirectories are scanned too.
//
// Each file's playback duration is read from its RIFF header so the trial
// runner knows how long to poll for responses during playback.
func NewWavCondition(name, dir string, response, rewarded, punished, recursive bool) (*Condition, error) {
	stimuli, err := ScanWavDir(dir, recursive)
	if err != nil {
		return nil, err
	}
	if len(stimuli) == 0 {
		return nil, fmt.Errorf("no wav files found in %s", dir)
	}
	return NewCondition(name, response, rewarded, punished, stimuli), nil
}

// ScanWavDir collects Stimulus entries for every .wav file under dir.
func ScanWavDir(dir string, recursive bool) ([]Stimulus, error) {
	var stimuli []Stimulus

	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".wav") {
			return nil
		}

		dur, err := WavDuration(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		stimuli = append(stimuli, Stimulus{
			Name:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Path:     path,
			Duration: dur,
		})
		return nil
	}

	if err := filepath.WalkDir(dir, walk); err != nil {
		return nil, err
	}
	return stimuli, nil
}

// WavDuration computes the playback duration of a PCM wav file from its
// RIFF header.
func WavDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return wavDuration(f)
}

// wavDuration walks the RIFF chunk list looking for fmt and data chunks.
// Duration = data bytes / byte rate.
func wavDuration(r io.ReadSeeker) (time.Duration, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return 0, fmt.Errorf("short RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return 0, fmt.Errorf("not a RIFF/WAVE file")
	}

	var byteRate uint32
	var dataSize uint32
	haveFmt, haveData := false, false

	var chunk [8]byte
	for {
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			break
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			var fmtBody [16]byte
			if _, err := io.ReadFull(r, fmtBody[:]); err != nil {
				return 0, fmt.Errorf("short fmt chunk: %w", err)
			}
			byteRate = binary.LittleEndian.Uint32(fmtBody[8:12])
			haveFmt = true
			if size > 16 {
				if _, err := r.Seek(int64(size-16), io.SeekCurrent); err != nil {
					return 0, err
				}
			}
		case "data":
			dataSize = size
			haveData = true
			if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
				return 0, err
			}
		default:
			if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
				return 0, err
			}
		}
		// Chunks are word-aligned.
		if size%2 == 1 {
			if _, err := r.Seek(1, io.SeekCurrent); err != nil {
				return 0, err
			}
		}

		if haveFmt && haveData {
			break
		}
	}

	if !haveFmt || !haveData {
		return 0, fmt.Errorf("missing fmt or data chunk")
	}
	if byteRate == 0 {
		return 0, fmt.Errorf("zero byte rate")
	}

	seconds := float64(dataSize) / float64(byteRate)
	return time.Duration(seconds * float64(time.Second)), nil
}
