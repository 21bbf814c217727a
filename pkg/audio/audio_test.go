package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeepWAV_Parses(t *testing.T) {
	data := BeepWAV()

	format, pcm, err := parseWAV(data)
	require.NoError(t, err)
	assert.Equal(t, &wavFormat{SampleRate: 44100, Channels: 2, BitDepth: 16}, format)

	// 4 x (100ms tone + 100ms gap) + 400ms pause, 4 bytes per frame
	assert.Equal(t, (8*4410+17640)*4, len(pcm))
	assert.Equal(t, len(data)-44, len(pcm))
}

func TestParseWAV_SkipsUnknownChunks(t *testing.T) {
	data := BeepWAV()
	// Insert a LIST chunk between the header and fmt
	list := append([]byte("LIST"), 4, 0, 0, 0, 'a', 'b', 'c', 'd')
	withList := append(append(append([]byte{}, data[:12]...), list...), data[12:]...)

	_, pcm, err := parseWAV(withList)
	require.NoError(t, err)
	assert.Equal(t, len(data)-44, len(pcm))
}

func TestParseWAV_Rejects(t *testing.T) {
	tests := map[string][]byte{
		"empty":      nil,
		"not riff":   []byte("RIFX\x00\x00\x00\x00WAVEfmt "),
		"no data":    BeepWAV()[:36],
		"data first": append([]byte("RIFF\x00\x00\x00\x00WAVE"), []byte("data\x00\x00\x00\x00")...),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := parseWAV(data)
			assert.ErrorIs(t, err, ErrInvalidWAV)
		})
	}
}

func TestParseWAV_RejectsNon16Bit(t *testing.T) {
	data := BeepWAV()
	data[34] = 8 // bits per sample
	_, _, err := parseWAV(data)
	assert.ErrorIs(t, err, ErrInvalidWAV)
}

func TestAlarmSound_BadFileFailsBeforePlayback(t *testing.T) {
	s := NewAlarmSound(filepath.Join(t.TempDir(), "missing.wav"), nil)
	assert.Error(t, s.Start())

	bogus := filepath.Join(t.TempDir(), "bogus.wav")
	require.NoError(t, os.WriteFile(bogus, []byte("not audio"), 0o644))
	s.SetPath(bogus)
	assert.ErrorIs(t, s.Start(), ErrInvalidWAV)

	assert.NotPanics(t, s.Stop)
}

func TestPlayer_NilStop(t *testing.T) {
	var p *Player
	assert.NotPanics(t, p.Stop)
}
