// Package engine implements the voice biometrics core: feature extraction,
// speaker enrollment/identification/verification, diarization, emotion and
// stress inference, audio enhancement, and forensic voice comparison.
//
// Everything here is deterministic. No randomness may influence any score:
// forensic conclusions must be reproducible from the same input bytes and
// configuration.
package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/veridict/voicelab/internal/audio"
	"github.com/veridict/voicelab/internal/dsp"
	"github.com/veridict/voicelab/internal/models"
	"github.com/veridict/voicelab/internal/utils"
)

// Suitability thresholds. Violations are warnings, not failures: forensic
// work reports a low-confidence result with its reasons rather than refusing.
const (
	MinDurationSeconds = 3.0
	MinSNRdB           = 10.0
	MaxClippingRatio   = 0.10
	MaxSilenceRatio    = 0.80
	MinHNRdB           = 5.0
)

// Extractor turns decoded clips into AudioFeatures. Safe for concurrent use;
// all state is immutable after construction.
type Extractor struct {
	mfcc *dsp.MFCCExtractor
}

func NewExtractor() *Extractor {
	return &Extractor{mfcc: dsp.NewMFCCExtractor(audio.AnalysisRate)}
}

// Extract computes the full acoustic feature set for a clip. The result is
// immutable and owned by the caller.
func (e *Extractor) Extract(ctx context.Context, clip *audio.Clip) (*models.AudioFeatures, error) {
	const op = "Extractor.Extract"

	if clip == nil || len(clip.Samples) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "empty clip", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, utils.E(utils.CodeTimeout, op, "cancelled", err)
	}

	coeffs := e.mfcc.Extract(clip.Samples)
	deltas := dsp.Deltas(coeffs)

	spectral := e.extractSpectral(clip.Samples)
	levels := dsp.FrameRMSdB(clip.Samples)
	track := dsp.TrackPitch(clip.Samples, clip.SampleRate)
	vq := dsp.AnalyzeVoiceQuality(clip.Samples, clip.SampleRate, track)

	prosodic := buildProsodic(track, levels, vq, clip.SampleRate)

	quality := models.QualityMetrics{
		SNR:           dsp.EstimateSNR(levels),
		ClippingRatio: dsp.ClippingRatio(clip.Samples),
		SilenceRatio:  dsp.SilenceRatio(levels),
	}
	quality.QualityScore = QualityScore(quality)

	return &models.AudioFeatures{
		AudioID:     clip.AudioID,
		Duration:    clip.Duration,
		SampleRate:  clip.SampleRate,
		Format:      string(clip.Format),
		ContentHash: clip.AudioID,
		MFCC: models.MFCCFeatures{
			Coefficients:    coeffs,
			Deltas:          deltas,
			NumCoefficients: dsp.NumMFCC,
		},
		Spectral: spectral,
		Prosodic: prosodic,
		Quality:  quality,
	}, nil
}

func (e *Extractor) extractSpectral(samples []float64) models.SpectralFeatures {
	n := dsp.NumFrames(len(samples))
	out := models.SpectralFeatures{
		Centroid:         make([]float64, n),
		Bandwidth:        make([]float64, n),
		Rolloff:          make([]float64, n),
		Flatness:         make([]float64, n),
		ZeroCrossingRate: make([]float64, n),
	}
	window := dsp.HammingWindow(dsp.FrameSize)
	frame := make([]float64, dsp.FFTSize)
	for t := 0; t < n; t++ {
		dsp.Frame(samples, t, window, frame)
		sf := dsp.AnalyzeSpectrum(dsp.PowerSpectrum(frame), audio.AnalysisRate)
		out.Centroid[t] = sf.Centroid
		out.Bandwidth[t] = sf.Bandwidth
		out.Rolloff[t] = sf.Rolloff
		out.Flatness[t] = sf.Flatness

		raw := samples[t*dsp.HopSize : t*dsp.HopSize+dsp.FrameSize]
		out.ZeroCrossingRate[t] = dsp.ZeroCrossingRate(raw)
	}
	return out
}

func buildProsodic(track []dsp.PitchFrame, levels []float64, vq dsp.VoiceQuality, sampleRate int) models.ProsodicFeatures {
	pitchSeries := make([]float64, len(track))
	for i, f := range track {
		pitchSeries[i] = f.Pitch
	}
	voiced := dsp.VoicedPitches(track)

	p := models.ProsodicFeatures{
		Pitch:      pitchSeries,
		Intensity:  levels,
		SpeechRate: dsp.EstimateSpeechRate(levels, sampleRate),
		PauseRatio: dsp.PauseRatio(levels),
		Jitter:     vq.Jitter,
		Shimmer:    vq.Shimmer,
		HNR:        vq.HNR,
	}
	if len(voiced) > 0 {
		p.PitchMean, _ = stats.Mean(voiced)
		p.PitchStd, _ = stats.StandardDeviation(voiced)
		mn, _ := stats.Min(voiced)
		mx, _ := stats.Max(voiced)
		p.PitchRange = mx - mn
	}
	if len(levels) > 0 {
		p.IntensityMean, _ = stats.Mean(levels)
	}
	return p
}

// QualityScore applies the multiplicative penalty model: baseline 1.0 with
// independent factors for low SNR, clipping and excess silence. Order of
// application cannot matter (multiplication commutes) and the score is
// monotonic non-decreasing in SNR with the other metrics held fixed.
func QualityScore(q models.QualityMetrics) float64 {
	snrFactor := q.SNR / 20.0
	if snrFactor > 1 {
		snrFactor = 1
	}
	if snrFactor < 0.1 {
		snrFactor = 0.1
	}

	clipFactor := 1 - math.Min(0.8, q.ClippingRatio*3)

	silenceFactor := 1.0
	if q.SilenceRatio > 0.5 {
		silenceFactor = 1 - math.Min(0.7, q.SilenceRatio-0.5)
	}

	score := snrFactor * clipFactor * silenceFactor
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// SuitableForIdentification applies the fixed suitability thresholds and
// returns the issues found. Issues are advisory: callers attach them as
// warnings and proceed.
func SuitableForIdentification(f *models.AudioFeatures) (bool, []string) {
	var issues []string
	if f.Duration < MinDurationSeconds {
		issues = append(issues, fmt.Sprintf("recording too short: %.1fs (minimum %.0fs)", f.Duration, MinDurationSeconds))
	}
	if f.Quality.SNR < MinSNRdB {
		issues = append(issues, fmt.Sprintf("low signal-to-noise ratio: %.1fdB (minimum %.0fdB)", f.Quality.SNR, MinSNRdB))
	}
	if f.Quality.ClippingRatio > MaxClippingRatio {
		issues = append(issues, fmt.Sprintf("clipping on %.1f%% of samples (maximum %.0f%%)", f.Quality.ClippingRatio*100, MaxClippingRatio*100))
	}
	if f.Quality.SilenceRatio > MaxSilenceRatio {
		issues = append(issues, fmt.Sprintf("%.0f%% silence (maximum %.0f%%)", f.Quality.SilenceRatio*100, MaxSilenceRatio*100))
	}
	if f.Prosodic.HNR < MinHNRdB {
		issues = append(issues, fmt.Sprintf("poor voice clarity: HNR %.1fdB (minimum %.0fdB)", f.Prosodic.HNR, MinHNRdB))
	}
	return len(issues) == 0, issues
}

// Signature reduces features to the compact subset used for comparison.
func Signature(f *models.AudioFeatures) models.CompactSignature {
	sig := models.CompactSignature{
		MFCCMean:   make([]float64, dsp.NumMFCC),
		MFCCStd:    make([]float64, dsp.NumMFCC),
		PitchMean:  f.Prosodic.PitchMean,
		PitchStd:   f.Prosodic.PitchStd,
		SpeechRate: f.Prosodic.SpeechRate,
		Jitter:     f.Prosodic.Jitter,
		Shimmer:    f.Prosodic.Shimmer,
		HNR:        f.Prosodic.HNR,
	}
	if len(f.Spectral.Centroid) > 0 {
		sig.SpectralCentroidMean, _ = stats.Mean(f.Spectral.Centroid)
	}
	for c := 0; c < dsp.NumMFCC; c++ {
		col := make([]float64, len(f.MFCC.Coefficients))
		for t, row := range f.MFCC.Coefficients {
			col[t] = row[c]
		}
		if len(col) > 0 {
			sig.MFCCMean[c], _ = stats.Mean(col)
			sig.MFCCStd[c], _ = stats.StandardDeviation(col)
		}
	}
	return sig
}

// ExtractWindows produces the time-sliced summaries for timeline analyses.
// Windows are finite and recomputation is idempotent: the same clip and
// geometry always yield identical windows.
func (e *Extractor) ExtractWindows(ctx context.Context, clip *audio.Clip, windowSeconds, hopSeconds float64) ([]models.FeatureWindow, error) {
	const op = "Extractor.ExtractWindows"

	if windowSeconds <= 0 || hopSeconds <= 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "window and hop must be positive", nil)
	}
	winLen := int(windowSeconds * float64(clip.SampleRate))
	hopLen := int(hopSeconds * float64(clip.SampleRate))
	if len(clip.Samples) < winLen {
		return nil, nil
	}

	spectralWindow := dsp.HammingWindow(dsp.FrameSize)
	frame := make([]float64, dsp.FFTSize)

	var out []models.FeatureWindow
	for start := 0; start+winLen <= len(clip.Samples); start += hopLen {
		if err := ctx.Err(); err != nil {
			return out, utils.E(utils.CodeTimeout, op, "cancelled", err)
		}
		seg := clip.Samples[start : start+winLen]

		w := models.FeatureWindow{
			StartTime: float64(start) / float64(clip.SampleRate),
			EndTime:   float64(start+winLen) / float64(clip.SampleRate),
		}

		coeffs := e.mfcc.Extract(seg)
		w.MFCCMean = make([]float64, dsp.NumMFCC)
		w.MFCCStd = make([]float64, dsp.NumMFCC)
		for c := 0; c < dsp.NumMFCC; c++ {
			col := make([]float64, len(coeffs))
			for t, row := range coeffs {
				col[t] = row[c]
			}
			if len(col) > 0 {
				w.MFCCMean[c], _ = stats.Mean(col)
				w.MFCCStd[c], _ = stats.StandardDeviation(col)
			}
		}

		track := dsp.TrackPitch(seg, clip.SampleRate)
		if voiced := dsp.VoicedPitches(track); len(voiced) > 0 {
			w.Pitch, _ = stats.Mean(voiced)
			w.PitchStd, _ = stats.StandardDeviation(voiced)
		}
		w.Jitter = dsp.AnalyzeVoiceQuality(seg, clip.SampleRate, track).Jitter

		levels := dsp.FrameRMSdB(seg)
		if len(levels) > 0 {
			w.Intensity, _ = stats.Mean(levels)
		}

		dsp.Frame(seg, 0, spectralWindow, frame)
		sf := dsp.AnalyzeSpectrum(dsp.PowerSpectrum(frame), clip.SampleRate)
		w.SpectralCentroid = sf.Centroid
		w.ZeroCrossingRate = dsp.ZeroCrossingRate(seg)

		out = append(out, w)
	}
	return out, nil
}
