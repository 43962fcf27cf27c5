// ABOUTME: Chromagram computation for key estimation
// ABOUTME: Folds FFT magnitude spectra onto the 12 pitch classes
package analysis

import (
	"math"

	"github.com/keyscope/keyscope-go/pkg/audio"
)

const (
	chromaFrameSize = 4096
	chromaHopSize   = 2048

	// Bins below A1 carry mostly rumble, bins above C8 mostly noise.
	chromaMinFreq = 55.0
	chromaMaxFreq = 4186.0
)

// PitchClasses lists the 12 pitch class names, index 0 = C.
var PitchClasses = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// pitchClassOf maps a frequency to its nearest equal-tempered pitch class.
func pitchClassOf(freq float64) int {
	semis := int(math.Round(12.0 * math.Log2(freq/440.0)))
	return ((semis+9)%12 + 12) % 12
}

// chromaVector computes a time-summed chroma energy vector: the magnitude
// spectrum of each analysis frame is folded onto the 12 pitch classes and
// squared magnitudes are accumulated across all frames.
func chromaVector(frame *audio.Frame) [12]float64 {
	var chroma [12]float64
	if frame == nil || frame.Empty() || frame.SampleRate <= 0 {
		return chroma
	}

	samples := frame.Samples
	window := hann(chromaFrameSize)
	binFreq := float64(frame.SampleRate) / float64(chromaFrameSize)

	accumulate := func(seg []float64) {
		mags := magnitudes(seg, window, chromaFrameSize)
		for k := 1; k < len(mags); k++ {
			f := float64(k) * binFreq
			if f < chromaMinFreq || f > chromaMaxFreq {
				continue
			}
			chroma[pitchClassOf(f)] += mags[k] * mags[k]
		}
	}

	if len(samples) < chromaFrameSize {
		accumulate(samples)
		return chroma
	}
	for start := 0; start+chromaFrameSize <= len(samples); start += chromaHopSize {
		accumulate(samples[start : start+chromaFrameSize])
	}
	return chroma
}
