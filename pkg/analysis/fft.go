// ABOUTME: Radix-2 FFT and window helpers for spectral analysis
// ABOUTME: Internal support for the chroma and key estimators
package analysis

import "math"

// hann returns Hann window coefficients of length n.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// nextPow2 returns the smallest power of two >= n.
func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// fft performs an in-place iterative radix-2 Cooley-Tukey transform.
// len(re) must be a power of two.
func fft(re, im []float64) {
	n := len(re)

	// Bit-reversal permutation.
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j |= bit
		if i < j {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		ang := -2.0 * math.Pi / float64(length)
		wRe, wIm := math.Cos(ang), math.Sin(ang)

		for start := 0; start < n; start += length {
			curRe, curIm := 1.0, 0.0
			for k := 0; k < length/2; k++ {
				i, j := start+k, start+k+length/2
				tRe := re[j]*curRe - im[j]*curIm
				tIm := re[j]*curIm + im[j]*curRe
				re[j], im[j] = re[i]-tRe, im[i]-tIm
				re[i], im[i] = re[i]+tRe, im[i]+tIm
				curRe, curIm = curRe*wRe-curIm*wIm, curRe*wIm+curIm*wRe
			}
		}
	}
}

// magnitudes computes the windowed magnitude spectrum of one frame,
// zero-padded to fftSize. Returns fftSize/2+1 bins.
func magnitudes(frame, window []float64, fftSize int) []float64 {
	re := make([]float64, fftSize)
	im := make([]float64, fftSize)
	for i := 0; i < len(frame) && i < len(window); i++ {
		re[i] = frame[i] * window[i]
	}

	fft(re, im)

	mags := make([]float64, fftSize/2+1)
	for i := range mags {
		mags[i] = math.Hypot(re[i], im[i])
	}
	return mags
}
