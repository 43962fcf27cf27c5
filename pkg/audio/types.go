// ABOUTME: Core audio types for the analyzer
// ABOUTME: Defines normalized sample frames and PCM sample conversions
package audio

import "time"

// Streaming protocol constants. Every binary chunk on the streaming
// endpoint is raw 16-bit signed little-endian PCM at this format.
const (
	StreamSampleRate     = 44100
	StreamChannels       = 1
	StreamBytesPerSample = 2
	StreamWindowSeconds  = 5

	// StreamWindowBytes is the fixed analysis window size: 441000 bytes.
	StreamWindowBytes = StreamSampleRate * StreamChannels * StreamBytesPerSample * StreamWindowSeconds
)

// Frame is a decoded block of mono audio, normalized to [-1.0, 1.0).
// Frames are read-only once constructed; estimators never mutate them.
type Frame struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the play time covered by the frame.
func (f *Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(f.Samples)) / float64(f.SampleRate) * float64(time.Second))
}

// Empty reports whether the frame carries no samples.
func (f *Frame) Empty() bool {
	return len(f.Samples) == 0
}

// SampleFromInt16 normalizes a signed 16-bit PCM sample to [-1.0, 1.0).
func SampleFromInt16(s int16) float64 {
	return float64(s) / 32768.0
}

// SampleToInt16 converts a normalized sample back to 16-bit PCM,
// clamping to the representable range.
func SampleToInt16(s float64) int16 {
	v := s * 32768.0
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
