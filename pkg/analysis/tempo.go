// ABOUTME: Tempo estimation from onset-strength periodicity
// ABOUTME: RMS envelope, rectified onset strength, autocorrelation peak search
package analysis

import (
	"errors"
	"math"

	"github.com/keyscope/keyscope-go/pkg/audio"
)

var (
	// ErrEmptyFrame is returned when an estimator is given no samples.
	ErrEmptyFrame = errors.New("analysis: empty frame")

	// ErrNoSignal is returned when a frame carries no usable signal:
	// silence, or a clip too short for periodicity analysis. Callers
	// substitute an Unknown result instead of propagating it.
	ErrNoSignal = errors.New("analysis: no usable signal")
)

const (
	minBPM = 60.0
	maxBPM = 180.0

	// Smallest onset-envelope length worth correlating.
	minEnvelopeFrames = 8

	// A local autocorrelation peak within this fraction of the global
	// maximum at a shorter lag wins, so the base tempo is preferred
	// over its half-speed harmonic.
	peakTolerance = 0.9
)

// EstimateBPM estimates the tempo of a frame in beats per minute.
//
// An RMS energy envelope (100 ms frames, 25 ms hop) is reduced to an
// onset-strength curve by half-wave rectified differencing, and the lag
// whose autocorrelation best explains the onsets inside the 60-180 BPM
// band is reported as the tempo. Deterministic for identical input.
func EstimateBPM(frame *audio.Frame) (float64, error) {
	if frame == nil || frame.Empty() {
		return 0, ErrEmptyFrame
	}

	frameSize := frame.SampleRate / 10
	hopSize := frameSize / 4
	if frameSize < 4 || hopSize < 1 {
		return 0, ErrNoSignal
	}

	envelope := rmsEnvelope(frame.Samples, frameSize, hopSize)
	if len(envelope) < minEnvelopeFrames {
		return 0, ErrNoSignal
	}

	// Half-wave rectified first difference: rising energy marks onsets.
	onset := make([]float64, len(envelope)-1)
	total := 0.0
	for i := range onset {
		d := envelope[i+1] - envelope[i]
		if d > 0 {
			onset[i] = d
			total += d
		}
	}
	if total <= 1e-12 {
		return 0, ErrNoSignal
	}

	autocorr := autocorrelate(onset)

	hopTime := float64(hopSize) / float64(frame.SampleRate)
	minLag := int(math.Ceil(60.0 / maxBPM / hopTime))
	maxLag := int(math.Floor(60.0 / minBPM / hopTime))
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(autocorr) {
		maxLag = len(autocorr) - 1
	}
	if minLag > maxLag {
		return 0, ErrNoSignal
	}

	// Global maximum in the band sets the bar; the shortest lag that is a
	// local peak within tolerance of it is taken as the beat period.
	globalMax := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		if autocorr[lag] > globalMax {
			globalMax = autocorr[lag]
		}
	}
	if globalMax <= 0 {
		return 0, ErrNoSignal
	}

	bestLag := 0
	for lag := minLag; lag <= maxLag; lag++ {
		if lag == 0 || lag >= len(autocorr)-1 {
			continue
		}
		if autocorr[lag] >= autocorr[lag-1] && autocorr[lag] >= autocorr[lag+1] &&
			autocorr[lag] >= peakTolerance*globalMax {
			bestLag = lag
			break
		}
	}
	if bestLag == 0 {
		// No clean local peak; fall back to the global maximum.
		for lag := minLag; lag <= maxLag; lag++ {
			if autocorr[lag] == globalMax {
				bestLag = lag
				break
			}
		}
	}
	if bestLag == 0 {
		return 0, ErrNoSignal
	}

	return 60.0 / (float64(bestLag) * hopTime), nil
}

// rmsEnvelope computes the RMS energy of overlapping frames.
func rmsEnvelope(samples []float64, frameSize, hopSize int) []float64 {
	if len(samples) < frameSize {
		return nil
	}
	numFrames := (len(samples)-frameSize)/hopSize + 1
	envelope := make([]float64, numFrames)
	for i := 0; i < numFrames; i++ {
		start := i * hopSize
		sum := 0.0
		for _, s := range samples[start : start+frameSize] {
			sum += s * s
		}
		envelope[i] = math.Sqrt(sum / float64(frameSize))
	}
	return envelope
}

// autocorrelate computes the mean-normalized autocorrelation of a signal
// up to half its length, scaled so lag 0 equals 1.
func autocorrelate(signal []float64) []float64 {
	maxLag := len(signal) / 2
	if maxLag < 1 {
		return nil
	}
	autocorr := make([]float64, maxLag)
	for lag := 0; lag < maxLag; lag++ {
		sum := 0.0
		count := 0
		for i := 0; i < len(signal)-lag; i++ {
			sum += signal[i] * signal[i+lag]
			count++
		}
		if count > 0 {
			autocorr[lag] = sum / float64(count)
		}
	}
	if autocorr[0] > 0 {
		for i := range autocorr {
			autocorr[i] /= autocorr[0]
		}
	}
	return autocorr
}
