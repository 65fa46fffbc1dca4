package dsp

import (
	"math"
	"sort"
)

// silenceFloorDB is the frame RMS level below which a frame counts as silent.
const silenceFloorDB = -40.0

// FrameRMSdB computes per-frame RMS levels in dBFS over raw samples.
func FrameRMSdB(samples []float64) []float64 {
	n := NumFrames(len(samples))
	out := make([]float64, n)
	for t := 0; t < n; t++ {
		frame := samples[t*HopSize : t*HopSize+FrameSize]
		var sum float64
		for _, s := range frame {
			sum += s * s
		}
		rms := math.Sqrt(sum / float64(FrameSize))
		if rms < 1e-9 {
			rms = 1e-9
		}
		out[t] = 20 * math.Log10(rms)
	}
	return out
}

// IsSilent reports whether a frame level is under the silence floor.
func IsSilent(levelDB float64) bool { return levelDB < silenceFloorDB }

// SilenceRatio is the fraction of frames under the silence floor.
func SilenceRatio(levels []float64) float64 {
	if len(levels) == 0 {
		return 1
	}
	silent := 0
	for _, l := range levels {
		if IsSilent(l) {
			silent++
		}
	}
	return float64(silent) / float64(len(levels))
}

// ClippingRatio is the fraction of samples at or beyond full scale.
func ClippingRatio(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	const clipLevel = 0.985
	clipped := 0
	for _, s := range samples {
		if math.Abs(s) >= clipLevel {
			clipped++
		}
	}
	return float64(clipped) / float64(len(samples))
}

// EstimateSNR treats the quietest decile of frames as the noise floor and the
// loudest half as signal, returning their level difference in dB.
func EstimateSNR(levels []float64) float64 {
	if len(levels) < 10 {
		return 0
	}
	sorted := make([]float64, len(levels))
	copy(sorted, levels)
	sort.Float64s(sorted)

	decile := len(sorted) / 10
	if decile == 0 {
		decile = 1
	}
	var noise float64
	for _, l := range sorted[:decile] {
		noise += l
	}
	noise /= float64(decile)

	upper := sorted[len(sorted)/2:]
	var signal float64
	for _, l := range upper {
		signal += l
	}
	signal /= float64(len(upper))

	snr := signal - noise
	if snr < 0 {
		snr = 0
	}
	return snr
}

// DynamicRange is the spread between the loudest and quietest non-silent
// frame levels.
func DynamicRange(levels []float64) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, l := range levels {
		if IsSilent(l) {
			continue
		}
		if l < lo {
			lo = l
		}
		if l > hi {
			hi = l
		}
	}
	if math.IsInf(lo, 1) {
		return 0
	}
	return hi - lo
}

// PauseRatio is the fraction of silent frames inside the speaking span
// (leading/trailing silence excluded), a cognitive-load indicator.
func PauseRatio(levels []float64) float64 {
	first, last := -1, -1
	for i, l := range levels {
		if !IsSilent(l) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 || last <= first {
		return 0
	}
	span := levels[first : last+1]
	silent := 0
	for _, l := range span {
		if IsSilent(l) {
			silent++
		}
	}
	return float64(silent) / float64(len(span))
}

// EstimateSpeechRate counts syllable-scale energy peaks per second of
// speaking time. A peak is a local energy maximum above the silence floor
// separated from the previous peak by at least 100 ms.
func EstimateSpeechRate(levels []float64, sampleRate int) float64 {
	if len(levels) < 3 {
		return 0
	}
	hopSeconds := float64(HopSize) / float64(sampleRate)
	minGapFrames := int(0.1 / hopSeconds)

	peaks := 0
	lastPeak := -minGapFrames
	speaking := 0
	for i := 1; i < len(levels)-1; i++ {
		if IsSilent(levels[i]) {
			continue
		}
		speaking++
		if levels[i] > levels[i-1] && levels[i] >= levels[i+1] && i-lastPeak >= minGapFrames {
			peaks++
			lastPeak = i
		}
	}
	speakingSeconds := float64(speaking) * hopSeconds
	if speakingSeconds <= 0 {
		return 0
	}
	return float64(peaks) / speakingSeconds
}
