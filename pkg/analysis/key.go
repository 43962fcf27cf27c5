// ABOUTME: Musical key estimation from chroma energy
// ABOUTME: Simple argmax variant and Krumhansl-Schmuckler profile correlation
package analysis

import (
	"math"

	"github.com/keyscope/keyscope-go/pkg/audio"
)

// Scale is the mode of a detected key.
type Scale string

const (
	ScaleMajor Scale = "major"
	ScaleMinor Scale = "minor"
)

// Key is a detected key signature with a confidence strength in [0, 1].
type Key struct {
	Tonic    string
	Scale    Scale
	Strength float64
}

// Krumhansl-Schmuckler profiles, empirically derived from listener
// probe-tone ratings. Index 0 is the tonic.
var (
	majorProfile = [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = [12]float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// EstimateKeySimple returns the pitch class with the most summed chroma
// energy. It does not distinguish major from minor. Ties break to the
// lowest pitch class index.
func EstimateKeySimple(frame *audio.Frame) (string, error) {
	if frame == nil || frame.Empty() {
		return "", ErrEmptyFrame
	}

	chroma := chromaVector(frame)
	best := 0
	for i := 1; i < 12; i++ {
		if chroma[i] > chroma[best] {
			best = i
		}
	}
	return PitchClasses[best], nil
}

// EstimateKey estimates tonic, scale and confidence by correlating the
// frame's chroma vector against the major and minor profiles rotated to
// all 12 tonics. The strength is the best Pearson correlation clamped to
// [0, 1]. Ties break to the lowest tonic index, major before minor.
func EstimateKey(frame *audio.Frame) (Key, error) {
	if frame == nil || frame.Empty() {
		return Key{}, ErrEmptyFrame
	}

	chroma := chromaVector(frame)
	total := 0.0
	for _, e := range chroma {
		total += e
	}
	if total <= 1e-12 {
		return Key{}, ErrNoSignal
	}

	best := Key{Strength: math.Inf(-1)}
	bestCorr := math.Inf(-1)
	for tonic := 0; tonic < 12; tonic++ {
		if corr := correlateProfile(chroma, majorProfile, tonic); corr > bestCorr {
			bestCorr = corr
			best = Key{Tonic: PitchClasses[tonic], Scale: ScaleMajor}
		}
		if corr := correlateProfile(chroma, minorProfile, tonic); corr > bestCorr {
			bestCorr = corr
			best = Key{Tonic: PitchClasses[tonic], Scale: ScaleMinor}
		}
	}

	best.Strength = math.Max(0, math.Min(1, bestCorr))
	return best, nil
}

// correlateProfile computes the Pearson correlation between a chroma
// vector and a key profile rotated so its tonic sits at the given pitch
// class.
func correlateProfile(chroma [12]float64, profile [12]float64, tonic int) float64 {
	var rotated [12]float64
	for i := 0; i < 12; i++ {
		rotated[i] = profile[((i-tonic)%12+12)%12]
	}
	return pearson(chroma[:], rotated[:])
}

// pearson computes the Pearson correlation coefficient of two equal-length
// vectors. Returns 0 when either vector has zero variance.
func pearson(x, y []float64) float64 {
	n := float64(len(x))
	meanX, meanY := 0.0, 0.0
	for i := range x {
		meanX += x[i]
		meanY += y[i]
	}
	meanX /= n
	meanY /= n

	var cov, varX, varY float64
	for i := range x {
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX <= 0 || varY <= 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}
