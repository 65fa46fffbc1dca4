// Package dsp implements the signal-processing primitives behind feature
// extraction: framing, FFT-based spectral measures, mel-cepstral
// coefficients, autocorrelation pitch tracking, and cycle-level voice
// quality (jitter, shimmer, HNR).
package dsp

import "math"

// Standard frame geometry at the 16 kHz analysis rate: 25 ms windows with a
// 10 ms hop, the Kaldi-style front-end convention.
const (
	FrameSize = 400
	HopSize   = 160
	FFTSize   = 512
)

// HammingWindow generates a Hamming window of the given length.
func HammingWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// NumFrames returns how many full analysis frames fit in n samples.
func NumFrames(n int) int {
	if n < FrameSize {
		return 0
	}
	return (n-FrameSize)/HopSize + 1
}

// Frame copies frame t (windowed, zero-padded to FFTSize) into dst, which
// must have length FFTSize.
func Frame(samples []float64, t int, window, dst []float64) {
	start := t * HopSize
	for i := 0; i < FrameSize; i++ {
		dst[i] = samples[start+i] * window[i]
	}
	for i := FrameSize; i < FFTSize; i++ {
		dst[i] = 0
	}
}

// PreEmphasis applies the standard 0.97 high-frequency boost in place over a
// copy of the input.
func PreEmphasis(samples []float64, coeff float64) []float64 {
	out := make([]float64, len(samples))
	if len(samples) == 0 {
		return out
	}
	out[0] = samples[0]
	for i := 1; i < len(samples); i++ {
		out[i] = samples[i] - coeff*samples[i-1]
	}
	return out
}
