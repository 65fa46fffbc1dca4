package dsp

import "math"

// Fundamental frequency search range for human voice.
const (
	MinPitchHz = 50.0
	MaxPitchHz = 500.0
)

// PitchFrame is the pitch estimate for one analysis frame.
type PitchFrame struct {
	Pitch   float64 // Hz; 0 when unvoiced
	Voicing float64 // 0..1, normalized autocorrelation peak
}

// pitchFrameSize is longer than the spectral frame so at least two periods of
// a 50 Hz voice fit inside it.
const pitchFrameSize = 1024

// TrackPitch estimates per-frame fundamental frequency with the normalized
// autocorrelation method (difference-function variant of YIN). Frames whose
// best peak is weak are reported unvoiced.
func TrackPitch(samples []float64, sampleRate int) []PitchFrame {
	if len(samples) < pitchFrameSize {
		return nil
	}
	n := (len(samples) - pitchFrameSize) / HopSize

	minLag := int(float64(sampleRate) / MaxPitchHz)
	maxLag := int(float64(sampleRate) / MinPitchHz)
	if maxLag >= pitchFrameSize {
		maxLag = pitchFrameSize - 1
	}

	out := make([]PitchFrame, n)
	for t := 0; t < n; t++ {
		frame := samples[t*HopSize : t*HopSize+pitchFrameSize]
		out[t] = estimatePitch(frame, sampleRate, minLag, maxLag)
	}
	return out
}

func estimatePitch(frame []float64, sampleRate, minLag, maxLag int) PitchFrame {
	var energy float64
	for _, s := range frame {
		energy += s * s
	}
	if energy < 1e-8 {
		return PitchFrame{}
	}

	bestLag := 0
	bestCorr := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var corr, e1, e2 float64
		for i := 0; i < len(frame)-lag; i++ {
			corr += frame[i] * frame[i+lag]
			e1 += frame[i] * frame[i]
			e2 += frame[i+lag] * frame[i+lag]
		}
		denom := math.Sqrt(e1 * e2)
		if denom <= 0 {
			continue
		}
		norm := corr / denom
		if norm > bestCorr {
			bestCorr = norm
			bestLag = lag
		}
	}

	// Peaks below this are noise or fricatives, not glottal periodicity.
	const voicingThreshold = 0.45
	if bestLag == 0 || bestCorr < voicingThreshold {
		return PitchFrame{Voicing: math.Max(0, bestCorr)}
	}
	return PitchFrame{
		Pitch:   float64(sampleRate) / float64(bestLag),
		Voicing: bestCorr,
	}
}

// VoicedPitches filters a pitch track down to its voiced values.
func VoicedPitches(track []PitchFrame) []float64 {
	var voiced []float64
	for _, f := range track {
		if f.Pitch > 0 {
			voiced = append(voiced, f.Pitch)
		}
	}
	return voiced
}
