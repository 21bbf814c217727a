package audio

import (
	"encoding/binary"
	"fmt"
)

// outputFormat is the format of the shared audio context. Every sound is
// converted to it before playback.
var outputFormat = wavFormat{SampleRate: toneSampleRate, Channels: toneChannels, BitDepth: 16}

// decodeWAV parses data and returns its samples in outputFormat
func decodeWAV(data []byte) ([]byte, error) {
	format, pcm, err := parseWAV(data)
	if err != nil {
		return nil, err
	}
	return convertPCM(pcm, *format, outputFormat)
}

// convertPCM converts 16-bit PCM between mono and stereo and between sample
// rates, interpolating linearly
func convertPCM(pcm []byte, from, to wavFormat) ([]byte, error) {
	if from == to {
		return pcm, nil
	}
	if from.Channels < 1 || from.Channels > 2 || from.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: unsupported format %d Hz, %d channels", ErrInvalidWAV, from.SampleRate, from.Channels)
	}
	if to.Channels < 1 || to.Channels > 2 || to.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: unsupported output %d Hz, %d channels", ErrInvalidWAV, to.SampleRate, to.Channels)
	}

	inFrame := 2 * from.Channels
	n := len(pcm) / inFrame
	left := make([]int16, n)
	right := make([]int16, n)
	for i := 0; i < n; i++ {
		off := i * inFrame
		left[i] = int16(binary.LittleEndian.Uint16(pcm[off:]))
		right[i] = left[i]
		if from.Channels == 2 {
			right[i] = int16(binary.LittleEndian.Uint16(pcm[off+2:]))
		}
	}

	outN := int(int64(n) * int64(to.SampleRate) / int64(from.SampleRate))
	outFrame := 2 * to.Channels
	out := make([]byte, outN*outFrame)
	step := float64(from.SampleRate) / float64(to.SampleRate)
	for i := 0; i < outN; i++ {
		pos := float64(i) * step
		l := interpolate(left, pos)
		r := interpolate(right, pos)

		off := i * outFrame
		if to.Channels == 1 {
			binary.LittleEndian.PutUint16(out[off:], uint16(int16((int32(l)+int32(r))/2)))
			continue
		}
		binary.LittleEndian.PutUint16(out[off:], uint16(l))
		binary.LittleEndian.PutUint16(out[off+2:], uint16(r))
	}
	return out, nil
}

func interpolate(samples []int16, pos float64) int16 {
	j := int(pos)
	if j >= len(samples)-1 {
		return samples[len(samples)-1]
	}
	frac := pos - float64(j)
	return int16(float64(samples[j])*(1-frac) + float64(samples[j+1])*frac)
}
