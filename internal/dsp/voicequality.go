package dsp

import "math"

// VoiceQuality holds the perturbation and noise measures used for speaker
// characterization and vocal-tension analysis.
type VoiceQuality struct {
	Jitter  float64 // relative cycle-to-cycle period perturbation, ratio
	Shimmer float64 // relative cycle-to-cycle amplitude perturbation, ratio
	HNR     float64 // harmonics-to-noise ratio, dB
}

// AnalyzeVoiceQuality extracts pitch periods from voiced regions and measures
// their cycle-to-cycle irregularity plus the harmonic-to-noise ratio.
func AnalyzeVoiceQuality(samples []float64, sampleRate int, track []PitchFrame) VoiceQuality {
	periods, amps := extractPitchPeriods(samples, sampleRate, track)

	vq := VoiceQuality{
		Jitter:  relativePerturbation(periods),
		Shimmer: relativePerturbation(amps),
	}

	voiced := VoicedPitches(track)
	if len(voiced) > 0 {
		var mean float64
		for _, p := range voiced {
			mean += p
		}
		mean /= float64(len(voiced))
		vq.HNR = estimateHNR(samples, sampleRate, mean)
	}
	return vq
}

// extractPitchPeriods walks the voiced frames and slices out consecutive
// glottal periods, returning each period's length in samples and its RMS
// amplitude.
func extractPitchPeriods(samples []float64, sampleRate int, track []PitchFrame) (lengths, amps []float64) {
	lastEnd := 0
	for t, f := range track {
		if f.Pitch <= 0 || f.Voicing < 0.5 {
			continue
		}
		periodLen := int(float64(sampleRate) / f.Pitch)
		start := t * HopSize
		if start < lastEnd {
			start = lastEnd
		}
		end := start + periodLen
		if end > len(samples) {
			break
		}

		var rms float64
		for _, s := range samples[start:end] {
			rms += s * s
		}
		rms = math.Sqrt(rms / float64(periodLen))

		lengths = append(lengths, float64(periodLen))
		amps = append(amps, rms)
		lastEnd = end
	}
	return lengths, amps
}

// relativePerturbation is mean absolute consecutive difference over the mean:
// the shared formula behind jitter (periods) and shimmer (amplitudes).
func relativePerturbation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	if mean == 0 {
		return 0
	}

	var diffSum float64
	for i := 1; i < len(values); i++ {
		diffSum += math.Abs(values[i] - values[i-1])
	}
	return (diffSum / float64(len(values)-1)) / mean
}

// estimateHNR measures periodicity strength at the speaker's mean pitch lag
// via autocorrelation: HNR = 10*log10(r / (1 - r)).
func estimateHNR(samples []float64, sampleRate int, meanF0 float64) float64 {
	const frameLen = 2048
	if meanF0 <= 0 || len(samples) < frameLen {
		return 0
	}

	start := len(samples)/2 - frameLen/2
	if start < 0 {
		start = 0
	}
	frame := samples[start : start+frameLen]

	expectedLag := int(float64(sampleRate) / meanF0)
	if expectedLag < 1 || expectedLag >= frameLen {
		return 0
	}

	// Search ±25% around the expected lag for the true peak.
	searchLo := expectedLag - expectedLag/4
	searchHi := expectedLag + expectedLag/4
	if searchLo < 1 {
		searchLo = 1
	}
	if searchHi >= frameLen {
		searchHi = frameLen - 1
	}

	var r0 float64
	for _, s := range frame {
		r0 += s * s
	}
	if r0 <= 0 {
		return 0
	}

	var best float64
	for lag := searchLo; lag <= searchHi; lag++ {
		var r float64
		for i := 0; i < frameLen-lag; i++ {
			r += frame[i] * frame[i+lag]
		}
		if r > best {
			best = r
		}
	}
	if best <= 0 || best >= r0 {
		return 0
	}
	return 10 * math.Log10(best/(r0-best))
}
