package models

// Defaults applied by Normalize and the config store
const (
	DefaultPuzzleCeiling       = 50
	DefaultHoldTimeSeconds     = 2
	DefaultAutoStopGraceMillis = 500
	MaxPuzzleCeiling           = 1000
	MaxHoldTimeSeconds         = 10
)

// Config holds application configuration
type Config struct {
	AutoStart           bool   `json:"auto_start"`             // launch at login
	Use24Hour           bool   `json:"use_24_hour"`            // time format for display
	PuzzleCeiling       int    `json:"puzzle_ceiling"`         // largest puzzle answer
	HoldTimeSeconds     int    `json:"hold_time_seconds"`      // dismiss button hold time, 0 = tap
	SoundPath           string `json:"sound_path"`             // WAV file, empty = built-in tone
	AutoStopGraceMillis int    `json:"auto_stop_grace_millis"` // delay between auto-stop broadcast and teardown
	MetricsAddr         string `json:"metrics_addr"`           // prometheus listen address, empty = off
}

// DefaultConfig returns the configuration used on first launch
func DefaultConfig() *Config {
	return &Config{
		Use24Hour:           true,
		PuzzleCeiling:       DefaultPuzzleCeiling,
		HoldTimeSeconds:     DefaultHoldTimeSeconds,
		AutoStopGraceMillis: DefaultAutoStopGraceMillis,
	}
}

// Normalize resets out-of-range values to their defaults
func (c *Config) Normalize() {
	if c.PuzzleCeiling < 1 || c.PuzzleCeiling > MaxPuzzleCeiling {
		c.PuzzleCeiling = DefaultPuzzleCeiling
	}
	if c.HoldTimeSeconds < 0 || c.HoldTimeSeconds > MaxHoldTimeSeconds {
		c.HoldTimeSeconds = DefaultHoldTimeSeconds
	}
	if c.AutoStopGraceMillis < 0 {
		c.AutoStopGraceMillis = DefaultAutoStopGraceMillis
	}
}
