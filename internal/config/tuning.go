package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/plank.report/internal/hold"
	"github.com/banshee-data/plank.report/internal/pose"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

const (
	defaultTickInterval       = time.Second
	defaultDetectionThreshold = 2 * time.Second
	defaultCueEnterCommand    = "CUE ENTER"
	defaultCueExitCommand     = "CUE EXIT"
)

// TuningConfig holds the classifier and hold-tracking parameters. Fields are
// pointers so a partial file leaves the rest at their defaults; the Get*
// methods supply those defaults.
type TuningConfig struct {
	// Hold tracker params
	TickInterval       *string `json:"tick_interval,omitempty" yaml:"tick_interval,omitempty"`             // duration string like "1s"
	DetectionThreshold *string `json:"detection_threshold,omitempty" yaml:"detection_threshold,omitempty"` // duration string like "2s"

	// Classifier params
	MinJointConfidence *float64 `json:"min_joint_confidence,omitempty" yaml:"min_joint_confidence,omitempty"`
	Postures           []string `json:"postures,omitempty" yaml:"postures,omitempty"`

	// Cue device params
	CueEnterCommand *string `json:"cue_enter_command,omitempty" yaml:"cue_enter_command,omitempty"`
	CueExitCommand  *string `json:"cue_exit_command,omitempty" yaml:"cue_exit_command,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated with
// its default.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		TickInterval:       ptrString(defaultTickInterval.String()),
		DetectionThreshold: ptrString(defaultDetectionThreshold.String()),
		MinJointConfidence: ptrFloat64(pose.DefaultMinJointConfidence),
		Postures:           []string{pose.PosturePlank},
		CueEnterCommand:    ptrString(defaultCueEnterCommand),
		CueExitCommand:     ptrString(defaultCueExitCommand),
	}
}

// LoadTuningConfig loads a TuningConfig from a .json, .yaml or .yml file of
// at most 1MB. Fields omitted from the file keep their defaults.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	tick, err := parsePositiveDuration("tick_interval", c.TickInterval)
	if err != nil {
		return err
	}
	threshold, err := parsePositiveDuration("detection_threshold", c.DetectionThreshold)
	if err != nil {
		return err
	}
	if tick == 0 {
		tick = defaultTickInterval
	}
	if threshold == 0 {
		threshold = defaultDetectionThreshold
	}
	if threshold < tick {
		return fmt.Errorf("detection_threshold %s must not be shorter than tick_interval %s", threshold, tick)
	}

	if c.MinJointConfidence != nil {
		if v := *c.MinJointConfidence; v < 0 || v > 1 {
			return fmt.Errorf("min_joint_confidence must be between 0 and 1, got %f", v)
		}
	}

	for _, name := range c.Postures {
		if _, err := pose.NewDetector(name, 0); err != nil {
			return fmt.Errorf("invalid postures: %w", err)
		}
	}
	return nil
}

// parsePositiveDuration returns 0 for an unset field.
func parsePositiveDuration(field string, s *string) (time.Duration, error) {
	if s == nil || *s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s': %w", field, *s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, d)
	}
	return d, nil
}

func durationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// GetTickInterval returns the tick_interval value or the default.
func (c *TuningConfig) GetTickInterval() time.Duration {
	return durationOr(c.TickInterval, defaultTickInterval)
}

// GetDetectionThreshold returns the detection_threshold value or the default.
func (c *TuningConfig) GetDetectionThreshold() time.Duration {
	return durationOr(c.DetectionThreshold, defaultDetectionThreshold)
}

// GetMinJointConfidence returns the min_joint_confidence value or the default.
func (c *TuningConfig) GetMinJointConfidence() float64 {
	if c.MinJointConfidence == nil {
		return pose.DefaultMinJointConfidence
	}
	return *c.MinJointConfidence
}

// GetPostures returns the configured postures or the default.
func (c *TuningConfig) GetPostures() []string {
	if len(c.Postures) == 0 {
		return []string{pose.PosturePlank}
	}
	return append([]string(nil), c.Postures...)
}

// GetCueEnterCommand returns the cue_enter_command value or the default.
func (c *TuningConfig) GetCueEnterCommand() string {
	if c.CueEnterCommand == nil || *c.CueEnterCommand == "" {
		return defaultCueEnterCommand
	}
	return *c.CueEnterCommand
}

// GetCueExitCommand returns the cue_exit_command value or the default.
func (c *TuningConfig) GetCueExitCommand() string {
	if c.CueExitCommand == nil || *c.CueExitCommand == "" {
		return defaultCueExitCommand
	}
	return *c.CueExitCommand
}

// HoldConfig returns the tracker timing.
func (c *TuningConfig) HoldConfig() hold.Config {
	return hold.Config{
		TickInterval:       c.GetTickInterval(),
		DetectionThreshold: c.GetDetectionThreshold(),
	}
}

// Detectors builds the configured posture detectors.
func (c *TuningConfig) Detectors() ([]pose.Detector, error) {
	return pose.NewDetectors(c.GetPostures(), c.GetMinJointConfidence())
}
