// Package config loads and saves experiment configuration files.
//
// Configs are YAML or JSON, chosen by file extension. A rig-wide global
// config can be layered under each experiment's config so panel wiring
// and datastore settings live in one place per machine.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// ErrExists is returned by Save when the target file exists and
// overwrite was not requested.
var ErrExists = errors.New("config: file exists")

// Config is a full experiment description.
type Config struct {
	// Experiment names the run, used in filenames and event streams.
	Experiment string `json:"experiment" yaml:"experiment"`

	// OutputDir is where trial data and config snapshots are written.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	Subject  SubjectConfig  `json:"subject" yaml:"subject"`
	Panel    PanelConfig    `json:"panel" yaml:"panel"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	Schedule ScheduleConfig `json:"schedule" yaml:"schedule"`
	Session  SessionConfig  `json:"session" yaml:"session"`

	// Blocks run in order; each names its conditions and queue.
	Blocks []BlockConfig `json:"blocks" yaml:"blocks"`
}

// SubjectConfig identifies the animal on this rig.
type SubjectConfig struct {
	Name    string `json:"name" yaml:"name"`
	Species string `json:"species,omitempty" yaml:"species,omitempty"`
	Sex     string `json:"sex,omitempty" yaml:"sex,omitempty"`
}

// PanelConfig describes the rig hardware.
type PanelConfig struct {
	// Device selects the driver, currently "arduino".
	Device string `json:"device" yaml:"device"`

	// Port is the serial port for serial-attached devices.
	Port string `json:"port,omitempty" yaml:"port,omitempty"`
	Baud int    `json:"baud,omitempty" yaml:"baud,omitempty"`

	// Channels maps component names (house_light, center_ir, ...) to
	// device channel numbers.
	Channels map[string]int `json:"channels" yaml:"channels"`
}

// StoreConfig selects the trial datastore.
type StoreConfig struct {
	// Backend is "csv", "sqlite", "mysql", or "memory".
	Backend string `json:"backend" yaml:"backend"`

	// Path is the file path for csv and sqlite backends.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// DSN is the connection string for the mysql backend.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// ScheduleConfig sets the rig's light schedule as clock times, "HH:MM".
type ScheduleConfig struct {
	LightsOn  string `json:"lights_on" yaml:"lights_on"`
	LightsOff string `json:"lights_off" yaml:"lights_off"`
}

// SessionConfig bounds a session.
type SessionConfig struct {
	// MaxDuration caps a session's wall-clock length. Zero means no cap.
	MaxDuration Duration `json:"max_duration,omitempty" yaml:"max_duration,omitempty"`

	// MaxTrials caps trials per session. Zero means no cap.
	MaxTrials int `json:"max_trials,omitempty" yaml:"max_trials,omitempty"`

	// IntertrialInterval is the pause between trials.
	IntertrialInterval Duration `json:"intertrial_interval,omitempty" yaml:"intertrial_interval,omitempty"`
}

// BlockConfig describes one block of trials.
type BlockConfig struct {
	Name string `json:"name" yaml:"name"`

	// Queue is "random" or "block".
	Queue string `json:"queue,omitempty" yaml:"queue,omitempty"`

	// MaxTrials applies to the random queue. Zero uses the default.
	MaxTrials int `json:"max_trials,omitempty" yaml:"max_trials,omitempty"`

	// Repetitions and Shuffle apply to the block queue.
	Repetitions int  `json:"repetitions,omitempty" yaml:"repetitions,omitempty"`
	Shuffle     bool `json:"shuffle,omitempty" yaml:"shuffle,omitempty"`

	// Reinforcement is "continuous" or "variable_ratio".
	Reinforcement string `json:"reinforcement,omitempty" yaml:"reinforcement,omitempty"`
	Ratio         int    `json:"ratio,omitempty" yaml:"ratio,omitempty"`

	Conditions []ConditionConfig `json:"conditions" yaml:"conditions"`
}

// ConditionConfig describes one stimulus class within a block.
type ConditionConfig struct {
	Name string `json:"name" yaml:"name"`

	// Dir holds the condition's wav files.
	Dir       string `json:"dir" yaml:"dir"`
	Recursive bool   `json:"recursive,omitempty" yaml:"recursive,omitempty"`

	// Response is the response that counts as correct for this
	// condition's stimuli.
	Response bool `json:"response" yaml:"response"`

	Rewarded bool `json:"rewarded" yaml:"rewarded"`
	Punished bool `json:"punished" yaml:"punished"`

	// Weight biases the random queue. Zero means weight 1.
	Weight float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// Load reads a config file, YAML or JSON by extension.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := loadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithGlobal layers the experiment config at path over the global
// config at globalPath. Fields present in the experiment config win. A
// missing global file is not an error; rigs without one just use the
// experiment config alone.
func LoadWithGlobal(path, globalPath string) (*Config, error) {
	cfg := &Config{}
	if globalPath != "" {
		if err := loadInto(globalPath, cfg); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}
	if err := loadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config: unsupported extension %q", filepath.Ext(path))
	}
	return nil
}

// Save writes the config to path in the format matching its extension.
// An existing file is only replaced when overwrite is set.
func (c *Config) Save(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
	default:
		return fmt.Errorf("config: unsupported extension %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Snapshot copies the config into the output directory with a timestamped
// name, so each run records exactly the settings it ran with.
func (c *Config) Snapshot(now time.Time) (string, error) {
	if c.OutputDir == "" {
		return "", errors.New("config: no output_dir set")
	}
	if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%s.yaml", c.Experiment, now.Format("20060102T150405"))
	path := filepath.Join(c.OutputDir, name)
	if err := c.Save(path, true); err != nil {
		return "", err
	}
	return path, nil
}

// LightTimes parses the schedule's clock times. Both must be set.
func (s ScheduleConfig) LightTimes() (on, off time.Duration, err error) {
	on, err = parseClock(s.LightsOn)
	if err != nil {
		return 0, 0, fmt.Errorf("lights_on: %w", err)
	}
	off, err = parseClock(s.LightsOff)
	if err != nil {
		return 0, 0, fmt.Errorf("lights_off: %w", err)
	}
	return on, off, nil
}

// parseClock converts "HH:MM" to an offset from midnight.
func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("config: bad clock time %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
