// Package audio plays the looping alarm sound through oto
package audio

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/altrise/clockapp/pkg/logging"
)

// AlarmSound is the ringing service's sound: a WAV file from the settings,
// or the synthesized beep when none is configured
type AlarmSound struct {
	mu     sync.Mutex
	path   string
	player *Player
	logger *slog.Logger
}

// NewAlarmSound creates an AlarmSound for the WAV at path; an empty path
// selects the built-in beep
func NewAlarmSound(path string, logger *slog.Logger) *AlarmSound {
	return &AlarmSound{
		path:   path,
		logger: logging.OrDefault(logger).With("component", "audio"),
	}
}

// SetPath changes the sound used by the next Start
func (s *AlarmSound) SetPath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = path
}

// Start begins looping the sound, replacing one already playing
func (s *AlarmSound) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}

	s.player.Stop()
	player, err := Play(data, s.logger)
	if err != nil {
		return err
	}
	s.player = player
	s.logger.Info("alarm sound started", "source", s.source())
	return nil
}

// Stop silences the sound
func (s *AlarmSound) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.player.Stop()
	s.player = nil
}

func (s *AlarmSound) load() ([]byte, error) {
	if s.path == "" {
		return BeepWAV(), nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read alarm sound: %w", err)
	}
	if _, err := decodeWAV(data); err != nil {
		return nil, fmt.Errorf("alarm sound %s: %w", s.path, err)
	}
	return data, nil
}

func (s *AlarmSound) source() string {
	if s.path == "" {
		return "beep"
	}
	return s.path
}
