// ABOUTME: Raw PCM decoder for the streaming path
// ABOUTME: Converts 16-bit little-endian PCM bytes to normalized mono frames
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/keyscope/keyscope-go/pkg/audio"
)

var (
	// ErrEmptyBuffer is returned when the input byte buffer has no data.
	ErrEmptyBuffer = errors.New("decode: empty audio buffer")

	// ErrAlignment is returned when the buffer length is not a whole
	// number of interleaved 16-bit sample frames.
	ErrAlignment = errors.New("decode: buffer not aligned to sample width")

	// ErrNoSamples is returned when decoding yields a zero-length frame.
	ErrNoSamples = errors.New("decode: no samples after decoding")
)

// PCM converts raw interleaved 16-bit signed little-endian PCM bytes into
// a normalized mono frame. Multi-channel input is mixed down by averaging
// the channels of each interleaved sample frame; mono input passes through
// untouched. The transform is pure: the input buffer is never retained.
func PCM(data []byte, sampleRate, channels int) (*audio.Frame, error) {
	if len(data) == 0 {
		return nil, ErrEmptyBuffer
	}
	if channels < 1 {
		return nil, fmt.Errorf("decode: invalid channel count %d", channels)
	}

	frameWidth := audio.StreamBytesPerSample * channels
	if len(data)%frameWidth != 0 {
		return nil, fmt.Errorf("%w: %d bytes, %d channels", ErrAlignment, len(data), channels)
	}

	numFrames := len(data) / frameWidth
	if numFrames == 0 {
		return nil, ErrNoSamples
	}

	samples := make([]float64, numFrames)
	if channels == 1 {
		for i := 0; i < numFrames; i++ {
			s := int16(binary.LittleEndian.Uint16(data[i*2:]))
			samples[i] = audio.SampleFromInt16(s)
		}
	} else {
		for i := 0; i < numFrames; i++ {
			sum := 0.0
			for ch := 0; ch < channels; ch++ {
				s := int16(binary.LittleEndian.Uint16(data[(i*channels+ch)*2:]))
				sum += audio.SampleFromInt16(s)
			}
			samples[i] = sum / float64(channels)
		}
	}

	return &audio.Frame{Samples: samples, SampleRate: sampleRate}, nil
}
