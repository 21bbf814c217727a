package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/altrise/clockapp/pkg/logging"
	"github.com/ebitengine/oto/v3"
)

// ErrInvalidWAV is returned for data that is not 16-bit PCM WAV
var ErrInvalidWAV = errors.New("invalid WAV data")

// Global audio context singleton
var (
	globalAudioCtx     *oto.Context
	globalAudioCtxOnce sync.Once
	globalAudioCtxErr  error
)

// Player loops one sound until stopped
type Player struct {
	stopChan chan struct{}
	done     chan struct{}
	player   *oto.Player
	stopped  bool
	mu       sync.Mutex
	logger   *slog.Logger
}

// wavFormat holds WAV file format information
type wavFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// initAudioContext initializes the global audio context once, in
// outputFormat
func initAudioContext() error {
	globalAudioCtxOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   outputFormat.SampleRate,
			ChannelCount: outputFormat.Channels,
			Format:       oto.FormatSignedInt16LE,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			globalAudioCtxErr = fmt.Errorf("initialize audio context: %w", err)
			return
		}

		// Wait for the hardware audio devices to be ready
		<-readyChan
		globalAudioCtx = ctx
	})
	return globalAudioCtxErr
}

// Play starts looping the provided WAV audio and returns a Player for control.
// Mono and stereo files at any sample rate are converted to the context's
// format; other layouts fail with ErrInvalidWAV.
func Play(wavData []byte, logger *slog.Logger) (*Player, error) {
	audioData, err := decodeWAV(wavData)
	if err != nil {
		return nil, err
	}

	if err := initAudioContext(); err != nil {
		return nil, err
	}

	p := &Player{
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logging.OrDefault(logger).With("component", "audio"),
	}

	// Play the sound in a goroutine so it doesn't block
	go p.playLoop(audioData)

	return p, nil
}

func (p *Player) playLoop(audioData []byte) {
	defer close(p.done)

	for {
		player := globalAudioCtx.NewPlayer(bytes.NewReader(audioData))
		p.mu.Lock()
		p.player = player
		p.mu.Unlock()

		player.Play()

		// Wait for the sound to finish playing or stop signal
		for player.IsPlaying() {
			select {
			case <-p.stopChan:
				player.Pause()
				player.Close()
				return
			case <-time.After(10 * time.Millisecond):
			}
		}

		if err := player.Close(); err != nil {
			p.logger.Warn("failed to close audio player", "error", err)
		}

		select {
		case <-p.stopChan:
			return
		default:
		}
	}
}

// Stop stops the playback and waits for the loop to exit
func (p *Player) Stop() {
	if p == nil {
		return
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.stopChan)
	if p.player != nil {
		p.player.Pause()
	}
	p.mu.Unlock()

	<-p.done
	p.logger.Debug("audio playback stopped")
}

// parseWAV parses a WAV file and returns the format and audio data
func parseWAV(data []byte) (*wavFormat, []byte, error) {
	reader := bytes.NewReader(data)

	header := make([]byte, 12)
	if _, err := io.ReadFull(reader, header); err != nil {
		return nil, nil, fmt.Errorf("%w: short header", ErrInvalidWAV)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, nil, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalidWAV)
	}

	var format *wavFormat
	for {
		chunkID := make([]byte, 4)
		if _, err := io.ReadFull(reader, chunkID); err != nil {
			return nil, nil, fmt.Errorf("%w: no data chunk", ErrInvalidWAV)
		}

		var chunkSize uint32
		if err := binary.Read(reader, binary.LittleEndian, &chunkSize); err != nil {
			return nil, nil, fmt.Errorf("%w: truncated chunk", ErrInvalidWAV)
		}

		switch string(chunkID) {
		case "fmt ":
			if chunkSize < 16 {
				return nil, nil, fmt.Errorf("%w: fmt chunk too small", ErrInvalidWAV)
			}
			var fmtChunk struct {
				AudioFormat   uint16
				NumChannels   uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if err := binary.Read(reader, binary.LittleEndian, &fmtChunk); err != nil {
				return nil, nil, fmt.Errorf("%w: truncated fmt chunk", ErrInvalidWAV)
			}
			if fmtChunk.AudioFormat != 1 || fmtChunk.BitsPerSample != 16 {
				return nil, nil, fmt.Errorf("%w: only 16-bit PCM is supported", ErrInvalidWAV)
			}
			format = &wavFormat{
				SampleRate: int(fmtChunk.SampleRate),
				Channels:   int(fmtChunk.NumChannels),
				BitDepth:   int(fmtChunk.BitsPerSample),
			}
			// Skip any extra format bytes
			if _, err := reader.Seek(int64(chunkSize-16), io.SeekCurrent); err != nil {
				return nil, nil, err
			}
		case "data":
			if format == nil {
				return nil, nil, fmt.Errorf("%w: data before fmt chunk", ErrInvalidWAV)
			}
			size := min(int(chunkSize), reader.Len())
			audioData := make([]byte, size)
			if _, err := io.ReadFull(reader, audioData); err != nil {
				return nil, nil, err
			}
			return format, audioData, nil
		default:
			if _, err := reader.Seek(int64(chunkSize), io.SeekCurrent); err != nil {
				return nil, nil, err
			}
		}
	}
}
