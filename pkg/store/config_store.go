package store

import (
	"fyne.io/fyne/v2"
	"github.com/altrise/clockapp/pkg/models"
)

// ConfigStore handles configuration persistence using Fyne preferences
type ConfigStore struct {
	prefs fyne.Preferences
}

// NewConfigStore creates a new ConfigStore instance
func NewConfigStore(prefs fyne.Preferences) *ConfigStore {
	return &ConfigStore{prefs: prefs}
}

// Load loads configuration from preferences
func (cs *ConfigStore) Load() *models.Config {
	d := models.DefaultConfig()

	config := &models.Config{
		AutoStart:           cs.prefs.BoolWithFallback("auto_start", d.AutoStart),
		Use24Hour:           cs.prefs.BoolWithFallback("use_24_hour", d.Use24Hour),
		PuzzleCeiling:       cs.prefs.IntWithFallback("puzzle_ceiling", d.PuzzleCeiling),
		HoldTimeSeconds:     cs.prefs.IntWithFallback("hold_time_seconds", d.HoldTimeSeconds),
		SoundPath:           cs.prefs.StringWithFallback("sound_path", d.SoundPath),
		AutoStopGraceMillis: cs.prefs.IntWithFallback("auto_stop_grace_millis", d.AutoStopGraceMillis),
		MetricsAddr:         cs.prefs.StringWithFallback("metrics_addr", d.MetricsAddr),
	}
	config.Normalize()

	return config
}

// Save saves configuration to preferences
func (cs *ConfigStore) Save(config *models.Config) {
	cs.prefs.SetBool("auto_start", config.AutoStart)
	cs.prefs.SetBool("use_24_hour", config.Use24Hour)
	cs.prefs.SetInt("puzzle_ceiling", config.PuzzleCeiling)
	cs.prefs.SetInt("hold_time_seconds", config.HoldTimeSeconds)
	cs.prefs.SetString("sound_path", config.SoundPath)
	cs.prefs.SetInt("auto_stop_grace_millis", config.AutoStopGraceMillis)
	cs.prefs.SetString("metrics_addr", config.MetricsAddr)
}
