package dsp

import "math"

// NumMFCC is the number of cepstral coefficients kept per frame.
const NumMFCC = 13

const (
	numMelFilters = 26
	melLowHz      = 20.0
	melHighHz     = 7600.0
)

func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// melFilterBank creates triangular filters over FFT bins.
// Returns [numFilters][halfFFT] weights.
func melFilterBank(numFilters, fftSize, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	halfFFT := fftSize/2 + 1
	lowMel := hzToMel(lowFreq)
	highMel := hzToMel(highFreq)

	melPoints := make([]float64, numFilters+2)
	step := (highMel - lowMel) / float64(numFilters+1)
	for i := range melPoints {
		melPoints[i] = lowMel + float64(i)*step
	}

	bins := make([]int, numFilters+2)
	for i, m := range melPoints {
		hz := melToHz(m)
		bin := int(math.Round(hz * float64(fftSize) / float64(sampleRate)))
		if bin >= halfFFT {
			bin = halfFFT - 1
		}
		bins[i] = bin
	}
	for i := 1; i < len(bins); i++ {
		if bins[i] <= bins[i-1] {
			bins[i] = bins[i-1] + 1
		}
	}

	bank := make([][]float64, numFilters)
	for m := 0; m < numFilters; m++ {
		filter := make([]float64, halfFFT)
		left, center, right := bins[m], bins[m+1], bins[m+2]
		for k := left; k < center && k < halfFFT; k++ {
			if center != left {
				filter[k] = float64(k-left) / float64(center-left)
			}
		}
		for k := center; k <= right && k < halfFFT; k++ {
			if right != center {
				filter[k] = float64(right-k) / float64(right-center)
			}
		}
		bank[m] = filter
	}
	return bank
}

// MFCCExtractor computes mel-frequency cepstral coefficients frame by frame.
type MFCCExtractor struct {
	sampleRate int
	window     []float64
	melBank    [][]float64
	dct        [][]float64 // [coeff][filter] DCT-II basis
}

// NewMFCCExtractor builds the filterbank and DCT basis once; extraction is
// then allocation-light and fully deterministic.
func NewMFCCExtractor(sampleRate int) *MFCCExtractor {
	e := &MFCCExtractor{
		sampleRate: sampleRate,
		window:     HammingWindow(FrameSize),
		melBank:    melFilterBank(numMelFilters, FFTSize, sampleRate, melLowHz, melHighHz),
	}
	e.dct = make([][]float64, NumMFCC)
	for c := 0; c < NumMFCC; c++ {
		row := make([]float64, numMelFilters)
		for m := 0; m < numMelFilters; m++ {
			row[m] = math.Cos(math.Pi * float64(c) * (float64(m) + 0.5) / float64(numMelFilters))
		}
		e.dct[c] = row
	}
	return e
}

// Extract returns the [frame][NumMFCC] coefficient matrix for pre-emphasized
// mono samples.
func (e *MFCCExtractor) Extract(samples []float64) [][]float64 {
	emphasized := PreEmphasis(samples, 0.97)
	n := NumFrames(len(emphasized))
	if n == 0 {
		return nil
	}

	coeffs := make([][]float64, n)
	frame := make([]float64, FFTSize)
	for t := 0; t < n; t++ {
		Frame(emphasized, t, e.window, frame)
		power := PowerSpectrum(frame)

		logMel := make([]float64, numMelFilters)
		for m := 0; m < numMelFilters; m++ {
			sum := 0.0
			for k, w := range e.melBank[m] {
				sum += w * power[k]
			}
			if sum < 1e-10 {
				sum = 1e-10
			}
			logMel[m] = math.Log(sum)
		}

		c := make([]float64, NumMFCC)
		for i := 0; i < NumMFCC; i++ {
			var sum float64
			for m := 0; m < numMelFilters; m++ {
				sum += e.dct[i][m] * logMel[m]
			}
			c[i] = sum
		}
		coeffs[t] = c
	}
	return coeffs
}

// Deltas computes first-order frame-to-frame coefficient differences, with a
// zero row for the first frame so the matrix shapes match.
func Deltas(coeffs [][]float64) [][]float64 {
	if len(coeffs) == 0 {
		return nil
	}
	deltas := make([][]float64, len(coeffs))
	deltas[0] = make([]float64, len(coeffs[0]))
	for t := 1; t < len(coeffs); t++ {
		row := make([]float64, len(coeffs[t]))
		for i := range row {
			row[i] = coeffs[t][i] - coeffs[t-1][i]
		}
		deltas[t] = row
	}
	return deltas
}
