package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"
)

const (
	toneSampleRate = 44100
	toneChannels   = 2
	toneFrequency  = 880.0
	toneAmplitude  = 0.6
)

// BeepWAV synthesizes the default alarm sound: four short beeps followed by
// a pause, encoded as 16-bit stereo PCM WAV
func BeepWAV() []byte {
	var samples []int16
	beep := 100 * time.Millisecond
	for i := 0; i < 4; i++ {
		samples = appendTone(samples, toneFrequency, beep)
		samples = appendSilence(samples, beep)
	}
	samples = appendSilence(samples, 400*time.Millisecond)
	return encodeWAV(samples, toneSampleRate, toneChannels)
}

func frames(d time.Duration) int {
	return int(int64(d) * toneSampleRate / int64(time.Second))
}

func appendTone(samples []int16, freq float64, d time.Duration) []int16 {
	n := frames(d)
	fade := n / 20
	for i := 0; i < n; i++ {
		gain := toneAmplitude
		// Short ramps avoid clicks at the edges
		if i < fade {
			gain *= float64(i) / float64(fade)
		} else if i > n-fade {
			gain *= float64(n-i) / float64(fade)
		}
		v := int16(gain * math.MaxInt16 * math.Sin(2*math.Pi*freq*float64(i)/toneSampleRate))
		for c := 0; c < toneChannels; c++ {
			samples = append(samples, v)
		}
	}
	return samples
}

func appendSilence(samples []int16, d time.Duration) []int16 {
	return append(samples, make([]int16, frames(d)*toneChannels)...)
}

func encodeWAV(samples []int16, sampleRate, channels int) []byte {
	dataSize := uint32(len(samples) * 2)
	blockAlign := uint16(channels * 2)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, struct {
		Size          uint32
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
	}{16, 1, uint16(channels), uint32(sampleRate), uint32(sampleRate) * uint32(blockAlign), blockAlign, 16})

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	binary.Write(&buf, binary.LittleEndian, samples)
	return buf.Bytes()
}
