package dsp

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum computes the one-sided power spectrum of a (windowed,
// zero-padded) frame.
func PowerSpectrum(frame []float64) []float64 {
	spec := fft.FFTReal(frame)
	half := len(frame)/2 + 1
	power := make([]float64, half)
	for i := 0; i < half; i++ {
		m := cmplx.Abs(spec[i])
		power[i] = m * m
	}
	return power
}

// SpectralFrame holds the per-frame spectral shape measures.
type SpectralFrame struct {
	Centroid  float64 // Hz
	Bandwidth float64 // Hz
	Rolloff   float64 // Hz, 85% cumulative energy
	Flatness  float64 // 0..1, geometric/arithmetic mean ratio
}

// AnalyzeSpectrum derives shape measures from a power spectrum.
func AnalyzeSpectrum(power []float64, sampleRate int) SpectralFrame {
	nBins := len(power)
	binHz := float64(sampleRate) / float64((nBins-1)*2)

	var total, weighted float64
	for k, p := range power {
		total += p
		weighted += p * float64(k) * binHz
	}
	if total <= 0 {
		return SpectralFrame{}
	}
	centroid := weighted / total

	var spread float64
	for k, p := range power {
		d := float64(k)*binHz - centroid
		spread += p * d * d
	}
	bandwidth := math.Sqrt(spread / total)

	// Rolloff: frequency below which 85% of the energy lies.
	target := 0.85 * total
	var cum, rolloff float64
	for k, p := range power {
		cum += p
		if cum >= target {
			rolloff = float64(k) * binHz
			break
		}
	}

	// Flatness: geometric over arithmetic mean (skip DC to avoid bias).
	var logSum float64
	count := 0
	var arith float64
	for k := 1; k < nBins; k++ {
		p := power[k]
		if p < 1e-12 {
			p = 1e-12
		}
		logSum += math.Log(p)
		arith += p
		count++
	}
	geo := math.Exp(logSum / float64(count))
	arith /= float64(count)
	flatness := 0.0
	if arith > 0 {
		flatness = geo / arith
	}

	return SpectralFrame{
		Centroid:  centroid,
		Bandwidth: bandwidth,
		Rolloff:   rolloff,
		Flatness:  flatness,
	}
}

// ZeroCrossingRate counts sign changes per sample over a raw (unwindowed)
// frame of the signal.
func ZeroCrossingRate(frame []float64) float64 {
	if len(frame) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(frame); i++ {
		if (frame[i-1] >= 0) != (frame[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(frame)-1)
}

// BandEnergy sums power spectrum energy between lo and hi Hz.
func BandEnergy(power []float64, sampleRate int, lo, hi float64) float64 {
	nBins := len(power)
	binHz := float64(sampleRate) / float64((nBins-1)*2)
	var sum float64
	for k, p := range power {
		f := float64(k) * binHz
		if f >= lo && f <= hi {
			sum += p
		}
	}
	return sum
}

// OccupiedBand estimates the effective frequency range: the lowest and
// highest frequencies whose bins carry at least 1% of the peak bin energy.
func OccupiedBand(power []float64, sampleRate int) (lo, hi float64) {
	nBins := len(power)
	binHz := float64(sampleRate) / float64((nBins-1)*2)
	var peak float64
	for _, p := range power {
		if p > peak {
			peak = p
		}
	}
	if peak <= 0 {
		return 0, 0
	}
	thresh := peak * 0.01
	loBin, hiBin := -1, -1
	for k, p := range power {
		if p >= thresh {
			if loBin < 0 {
				loBin = k
			}
			hiBin = k
		}
	}
	if loBin < 0 {
		return 0, 0
	}
	return float64(loBin) * binHz, float64(hiBin) * binHz
}
