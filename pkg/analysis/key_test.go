// ABOUTME: Tests for the key estimators
// ABOUTME: Covers tonic detection on synthesized tones, silence, and determinism
package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/keyscope/keyscope-go/pkg/audio"
)

// sineMix synthesizes a sum of equal-amplitude sine tones.
func sineMix(freqs []float64, seconds, sampleRate int) *audio.Frame {
	samples := make([]float64, seconds*sampleRate)
	amp := 0.8 / float64(len(freqs))
	for _, f := range freqs {
		for i := range samples {
			samples[i] += amp * math.Sin(2.0*math.Pi*f*float64(i)/float64(sampleRate))
		}
	}
	return &audio.Frame{Samples: samples, SampleRate: sampleRate}
}

func TestEstimateKeySimpleSingleTone(t *testing.T) {
	cases := []struct {
		name string
		freq float64
		want string
	}{
		{"A4", 440.0, "A"},
		{"C4", 261.63, "C"},
		{"F#4", 369.99, "F#"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frame := sineMix([]float64{tc.freq}, 2, audio.StreamSampleRate)

			got, err := EstimateKeySimple(frame)
			if err != nil {
				t.Fatalf("EstimateKeySimple failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("detected %q, want %q", got, tc.want)
			}
		})
	}
}

func TestEstimateKeySimpleEmptyFrame(t *testing.T) {
	if _, err := EstimateKeySimple(nil); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("expected ErrEmptyFrame, got %v", err)
	}
}

func TestEstimateKeyMajorTriad(t *testing.T) {
	// C4, E4, G4: a C major triad.
	frame := sineMix([]float64{261.63, 329.63, 392.00}, 2, audio.StreamSampleRate)

	key, err := EstimateKey(frame)
	if err != nil {
		t.Fatalf("EstimateKey failed: %v", err)
	}
	if key.Tonic != "C" {
		t.Errorf("detected tonic %q, want C", key.Tonic)
	}
	if key.Scale != ScaleMajor {
		t.Errorf("detected scale %q, want major", key.Scale)
	}
	if key.Strength <= 0 || key.Strength > 1 {
		t.Errorf("strength %v outside (0, 1]", key.Strength)
	}
}

func TestEstimateKeyMinorTriad(t *testing.T) {
	// A4, C5, E5: an A minor triad.
	frame := sineMix([]float64{440.00, 523.25, 659.25}, 2, audio.StreamSampleRate)

	key, err := EstimateKey(frame)
	if err != nil {
		t.Fatalf("EstimateKey failed: %v", err)
	}
	if key.Tonic != "A" {
		t.Errorf("detected tonic %q, want A", key.Tonic)
	}
	if key.Scale != ScaleMinor {
		t.Errorf("detected scale %q, want minor", key.Scale)
	}
}

func TestEstimateKeySilence(t *testing.T) {
	frame := &audio.Frame{
		Samples:    make([]float64, audio.StreamSampleRate),
		SampleRate: audio.StreamSampleRate,
	}

	if _, err := EstimateKey(frame); !errors.Is(err, ErrNoSignal) {
		t.Fatalf("expected ErrNoSignal for silence, got %v", err)
	}
}

func TestEstimateKeyDeterministic(t *testing.T) {
	frame := sineMix([]float64{261.63, 329.63, 392.00}, 2, audio.StreamSampleRate)

	first, err := EstimateKey(frame)
	if err != nil {
		t.Fatalf("first estimate failed: %v", err)
	}
	second, err := EstimateKey(frame)
	if err != nil {
		t.Fatalf("second estimate failed: %v", err)
	}
	if first != second {
		t.Errorf("estimates differ: %+v vs %+v", first, second)
	}
}

func TestPitchClassOf(t *testing.T) {
	cases := []struct {
		freq float64
		want int
	}{
		{440.0, 9},  // A
		{261.63, 0}, // C
		{880.0, 9},  // A, octave up
		{466.16, 10}, // A#
	}

	for _, tc := range cases {
		if got := pitchClassOf(tc.freq); got != tc.want {
			t.Errorf("pitchClassOf(%v) = %d, want %d", tc.freq, got, tc.want)
		}
	}
}
