package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/veridict/voicelab/internal/audio"
	"github.com/veridict/voicelab/internal/dsp"
	"github.com/veridict/voicelab/internal/models"
	"github.com/veridict/voicelab/internal/utils"
)

// StressDisclaimer must accompany every stress and deception output. Its
// presence is part of the result contract.
const StressDisclaimer = "Voice stress and deception analysis is not scientifically accepted as a method of determining truthfulness and must not be used as standalone evidence."

// Stress window geometry matches the emotion analyzer.
const (
	stressWindowSeconds = 2.0
	stressHopSeconds    = 1.0
)

// Component weights of the overall stress score.
const (
	weightCognitive = 0.25
	weightEmotional = 0.35
	weightPhysical  = 0.25
	weightJitterEl  = 0.075
	weightShimmerEl = 0.075
)

// Micro-tremor flags fire only when both perturbation measures are elevated.
const (
	microTremorJitter  = 0.03
	microTremorShimmer = 0.06
)

// stressBaseline is the comparison point for stress scoring: either measured
// from a supplied baseline recording or these reference constants for a calm
// adult voice.
type stressBaseline struct {
	pitchMean  float64
	pitchStd   float64
	speechRate float64
	pauseRatio float64
	jitter     float64
	shimmer    float64
	hnr        float64
	intensity  float64
}

var referenceBaseline = stressBaseline{
	pitchMean:  140,
	pitchStd:   25,
	speechRate: 4.0,
	pauseRatio: 0.15,
	jitter:     0.010,
	shimmer:    0.040,
	hnr:        15,
	intensity:  -25,
}

// StressDetector estimates vocal stress over a timeline. A supplied baseline
// recording of the same speaker in a calm state improves specificity; without
// one, reference constants are used and noted in the output.
type StressDetector struct {
	extractor *Extractor
}

func NewStressDetector(extractor *Extractor) *StressDetector {
	return &StressDetector{extractor: extractor}
}

// Analyze scores the clip window by window. baseline may be nil.
func (d *StressDetector) Analyze(ctx context.Context, clip *audio.Clip, baseline *models.AudioFeatures) (*models.VoiceStressAnalysis, error) {
	const op = "StressDetector.Analyze"

	result := &models.VoiceStressAnalysis{
		AudioID:     clip.AudioID,
		Limitations: []string{StressDisclaimer},
		AnalyzedAt:  time.Now().UTC(),
	}

	base := referenceBaseline
	result.BaselineSource = "reference_constants"
	if baseline != nil {
		base = baselineFromFeatures(baseline)
		result.BaselineSource = "supplied"
	}

	winLen := int(stressWindowSeconds * float64(clip.SampleRate))
	hopLen := int(stressHopSeconds * float64(clip.SampleRate))
	if len(clip.Samples) < winLen {
		result.Summary = "Recording too short for stress timeline analysis."
		return result, nil
	}

	var jitterSum, shimmerSum float64
	for start := 0; start+winLen <= len(clip.Samples); start += hopLen {
		if err := ctx.Err(); err != nil {
			return nil, utils.E(utils.CodeTimeout, op, "cancelled", err)
		}
		seg := clip.Samples[start : start+winLen]
		sw := scoreStressWindow(seg, clip.SampleRate, base)
		sw.StartTime = float64(start) / float64(clip.SampleRate)
		sw.EndTime = float64(start+winLen) / float64(clip.SampleRate)
		result.Segments = append(result.Segments, sw.StressSegment)
		jitterSum += sw.jitter
		shimmerSum += sw.shimmer
	}

	n := float64(len(result.Segments))
	var overall float64
	for _, s := range result.Segments {
		overall += s.OverallScore
	}
	overall /= n
	result.OverallScore = overall
	result.OverallLevel = stressLevel(overall)
	result.MicroTremorDetected = jitterSum/n > microTremorJitter && shimmerSum/n > microTremorShimmer

	result.DeceptionIndicators = findDeceptionIndicators(result.Segments)
	result.Summary = fmt.Sprintf(
		"Overall vocal stress %.2f (%s) across %d windows, baseline: %s. Micro-tremor detected: %t.",
		result.OverallScore, result.OverallLevel, len(result.Segments), result.BaselineSource, result.MicroTremorDetected)
	return result, nil
}

func baselineFromFeatures(f *models.AudioFeatures) stressBaseline {
	b := stressBaseline{
		pitchMean:  f.Prosodic.PitchMean,
		pitchStd:   f.Prosodic.PitchStd,
		speechRate: f.Prosodic.SpeechRate,
		pauseRatio: f.Prosodic.PauseRatio,
		jitter:     f.Prosodic.Jitter,
		shimmer:    f.Prosodic.Shimmer,
		hnr:        f.Prosodic.HNR,
		intensity:  f.Prosodic.IntensityMean,
	}
	// Degenerate baseline measurements fall back to reference values so a
	// silent baseline cannot inflate every score.
	if b.pitchMean <= 0 {
		b.pitchMean = referenceBaseline.pitchMean
	}
	if b.speechRate <= 0 {
		b.speechRate = referenceBaseline.speechRate
	}
	if b.hnr <= 0 {
		b.hnr = referenceBaseline.hnr
	}
	return b
}

type scoredStressWindow struct {
	models.StressSegment
	jitter, shimmer float64
}

func scoreStressWindow(seg []float64, sampleRate int, base stressBaseline) scoredStressWindow {
	levels := dsp.FrameRMSdB(seg)
	track := dsp.TrackPitch(seg, sampleRate)
	vq := dsp.AnalyzeVoiceQuality(seg, sampleRate, track)
	voiced := dsp.VoicedPitches(track)

	pitchMean, pitchStd := meanStd(voiced)
	pauseRatio := dsp.PauseRatio(levels)
	speechRate := dsp.EstimateSpeechRate(levels, sampleRate)
	intensityStd := levelSpread(levels)

	// Cognitive load: hesitation and departure from the habitual pace.
	cognitive := clamp01(
		0.6*elevation(pauseRatio, base.pauseRatio, 0.35) +
			0.4*math.Abs(speechRate-base.speechRate)/base.speechRate/1.5)

	// Emotional stress: pitch raised above baseline, unstable pitch, and
	// swings in loudness.
	emotional := clamp01(
		0.5*elevation(pitchMean, base.pitchMean, base.pitchMean*0.5) +
			0.3*elevation(pitchStd, base.pitchStd, base.pitchStd*2) +
			0.2*clamp01(intensityStd/10))

	// Physical tension: rougher phonation than baseline.
	physical := clamp01(
		0.35*elevation(vq.Jitter, base.jitter, 0.03) +
			0.35*elevation(vq.Shimmer, base.shimmer, 0.08) +
			0.30*elevation(base.hnr, vq.HNR, 10))

	jitterEl := clamp01(elevation(vq.Jitter, base.jitter, 0.03))
	shimmerEl := clamp01(elevation(vq.Shimmer, base.shimmer, 0.08))

	overall := weightCognitive*cognitive +
		weightEmotional*emotional +
		weightPhysical*physical +
		weightJitterEl*jitterEl +
		weightShimmerEl*shimmerEl

	return scoredStressWindow{
		StressSegment: models.StressSegment{
			CognitiveLoad:   cognitive,
			EmotionalStress: emotional,
			PhysicalTension: physical,
			OverallScore:    clamp01(overall),
			Level:           stressLevel(overall),
		},
		jitter:  vq.Jitter,
		shimmer: vq.Shimmer,
	}
}

// elevation measures how far value exceeds base, normalized by span. Values
// at or below base score zero.
func elevation(value, base, span float64) float64 {
	if span <= 0 {
		return 0
	}
	e := (value - base) / span
	if e < 0 {
		return 0
	}
	if e > 1 {
		return 1
	}
	return e
}

func stressLevel(score float64) models.StressLevel {
	switch {
	case score < 0.2:
		return models.StressMinimal
	case score < 0.4:
		return models.StressLow
	case score < 0.6:
		return models.StressModerate
	case score < 0.8:
		return models.StressHigh
	default:
		return models.StressSevere
	}
}

// findDeceptionIndicators flags windows whose stress spikes well above the
// recording's own mean. These observations are non-validated by definition;
// the mandatory disclaimer always travels with them.
func findDeceptionIndicators(segments []models.StressSegment) []models.DeceptionIndicator {
	if len(segments) < 4 {
		return nil
	}
	var mean float64
	for _, s := range segments {
		mean += s.OverallScore
	}
	mean /= float64(len(segments))
	var variance float64
	for _, s := range segments {
		d := s.OverallScore - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(segments)))

	var out []models.DeceptionIndicator
	for _, s := range segments {
		if std > 0.01 && s.OverallScore > mean+2*std {
			out = append(out, models.DeceptionIndicator{
				StartTime:   s.StartTime,
				EndTime:     s.EndTime,
				Kind:        "stress_spike",
				Description: fmt.Sprintf("stress %.2f exceeds recording mean %.2f by more than two standard deviations", s.OverallScore, mean),
			})
		}
		if s.CognitiveLoad > 0.7 && s.EmotionalStress > 0.5 {
			out = append(out, models.DeceptionIndicator{
				StartTime:   s.StartTime,
				EndTime:     s.EndTime,
				Kind:        "hesitation_under_load",
				Description: "elevated pausing combined with emotional stress markers",
			})
		}
	}
	return out
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return mean, math.Sqrt(variance / float64(len(values)))
}

func levelSpread(levels []float64) float64 {
	var speech []float64
	for _, l := range levels {
		if !dsp.IsSilent(l) {
			speech = append(speech, l)
		}
	}
	_, std := meanStd(speech)
	return std
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
