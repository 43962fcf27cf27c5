// ABOUTME: Container-aware clip readers for the one-shot path
// ABOUTME: Dispatches uploaded files to WAV, MP3, FLAC or Ogg/Opus readers
package decode

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/keyscope/keyscope-go/pkg/audio"
)

// ReadClip decodes a complete uploaded audio clip into a normalized mono
// frame. The container format is chosen from the file extension.
// Supported: .wav, .mp3, .flac, .ogg, .opus.
func ReadClip(name string, r io.Reader) (*audio.Frame, error) {
	ext := strings.ToLower(filepath.Ext(name))

	switch ext {
	case ".wav":
		return ReadWAV(r)
	case ".mp3":
		return ReadMP3(r)
	case ".flac":
		return ReadFLAC(r)
	case ".ogg", ".opus":
		return ReadOpus(r)
	default:
		return nil, fmt.Errorf("decode: unsupported audio format %q (supported: .wav, .mp3, .flac, .ogg, .opus)", ext)
	}
}

// mixdown averages interleaved multi-channel samples into mono.
func mixdown(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			sum += interleaved[i*channels+ch]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}
