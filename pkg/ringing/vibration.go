package ringing

import (
	"errors"
	"sync"
	"time"
)

// VibrationPattern alternates off and on phases starting with an off phase,
// repeated from the start until stopped
var VibrationPattern = []time.Duration{0, 1000 * time.Millisecond, 500 * time.Millisecond, 1000 * time.Millisecond}

// ErrInvalidPattern is returned for a pattern with no non-zero phase
var ErrInvalidPattern = errors.New("vibration pattern has no duration")

// PatternVibrator renders a vibration pattern through a pulse callback, such
// as flashing the dismissal screen
type PatternVibrator struct {
	mu    sync.Mutex
	pulse func(on bool)
	stop  chan struct{}
	done  chan struct{}
}

// NewPatternVibrator creates a PatternVibrator calling pulse for each phase
func NewPatternVibrator(pulse func(on bool)) *PatternVibrator {
	return &PatternVibrator{pulse: pulse}
}

// SetPulse replaces the pulse callback; it takes effect on the next phase
func (v *PatternVibrator) SetPulse(pulse func(on bool)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pulse = pulse
}

// Vibrate starts repeating pattern, replacing any running pattern
func (v *PatternVibrator) Vibrate(pattern []time.Duration) error {
	var total time.Duration
	for _, d := range pattern {
		total += d
	}
	if total <= 0 {
		return ErrInvalidPattern
	}

	v.Stop()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pulse == nil {
		return errors.New("no vibration output")
	}
	v.stop = make(chan struct{})
	v.done = make(chan struct{})
	go v.run(append([]time.Duration(nil), pattern...), v.stop, v.done)
	return nil
}

// Stop ends the pattern and leaves the output off
func (v *PatternVibrator) Stop() {
	v.mu.Lock()
	stop, done := v.stop, v.done
	v.stop, v.done = nil, nil
	v.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	v.emit(false)
}

func (v *PatternVibrator) run(pattern []time.Duration, stop, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	<-timer.C
	defer timer.Stop()

	for {
		for i, d := range pattern {
			if d <= 0 {
				continue
			}
			v.emit(i%2 == 1)
			timer.Reset(d)
			select {
			case <-stop:
				return
			case <-timer.C:
			}
		}
	}
}

func (v *PatternVibrator) emit(on bool) {
	v.mu.Lock()
	pulse := v.pulse
	v.mu.Unlock()
	if pulse != nil {
		pulse(on)
	}
}
