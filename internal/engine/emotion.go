package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/veridict/voicelab/internal/audio"
	"github.com/veridict/voicelab/internal/models"
	"github.com/veridict/voicelab/internal/utils"
)

// Emotion analysis window geometry.
const (
	emotionWindowSeconds = 2.0
	emotionHopSeconds    = 1.0
)

// emotionCulturalCaveat accompanies every emotion summary.
const emotionCulturalCaveat = "Acoustic emotion inference reflects vocal patterns only; expression varies across individuals, cultures and contexts, and these results must not be treated as proof of internal state."

// acousticBand scores a normalized acoustic dimension against a preferred
// range: 1 inside [lo,hi], decaying linearly to 0 over one range-width
// outside it.
type acousticBand struct {
	lo, hi, weight float64
}

func (b acousticBand) score(x float64) float64 {
	width := b.hi - b.lo
	if width <= 0 {
		width = 1e-6
	}
	switch {
	case x >= b.lo && x <= b.hi:
		return b.weight
	case x < b.lo:
		d := (b.lo - x) / width
		if d > 1 {
			return 0
		}
		return b.weight * (1 - d)
	default:
		d := (x - b.hi) / width
		if d > 1 {
			return 0
		}
		return b.weight * (1 - d)
	}
}

// emotionProfile describes one emotion's expected acoustics in normalized
// units: pitch level and intensity relative to the recording's own baseline,
// pitch variability as coefficient of variation, jitter as the window's
// cycle-to-cycle perturbation ratio.
type emotionProfile struct {
	pitchLevel     acousticBand // ratio to baseline pitch
	pitchVariation acousticBand // window pitch CV
	intensityDelta acousticBand // dB above/below baseline
	jitter         acousticBand // perturbation ratio
	arousal        float64
	valence        float64
}

// Reference profiles, fixed at compile time. Baseline-relative units make
// them speaker independent. High-arousal negative emotions expect rough
// phonation (elevated jitter); calm speech expects stable phonation.
var emotionProfiles = map[models.EmotionType]emotionProfile{
	models.EmotionNeutral: {
		pitchLevel:     acousticBand{0.92, 1.08, 1.0},
		pitchVariation: acousticBand{0.00, 0.12, 1.0},
		intensityDelta: acousticBand{-2, 2, 1.0},
		jitter:         acousticBand{0.000, 0.015, 0.6},
		arousal:        0.0, valence: 0.0,
	},
	models.EmotionHappiness: {
		pitchLevel:     acousticBand{1.10, 1.40, 1.0},
		pitchVariation: acousticBand{0.15, 0.40, 1.0},
		intensityDelta: acousticBand{1, 6, 1.0},
		jitter:         acousticBand{0.004, 0.020, 0.6},
		arousal:        0.6, valence: 0.8,
	},
	models.EmotionSadness: {
		pitchLevel:     acousticBand{0.70, 0.92, 1.0},
		pitchVariation: acousticBand{0.00, 0.08, 1.0},
		intensityDelta: acousticBand{-8, -2, 1.0},
		jitter:         acousticBand{0.008, 0.030, 0.6},
		arousal:        -0.5, valence: -0.7,
	},
	models.EmotionAnger: {
		pitchLevel:     acousticBand{1.15, 1.60, 1.0},
		pitchVariation: acousticBand{0.20, 0.50, 1.0},
		intensityDelta: acousticBand{3, 10, 1.2},
		jitter:         acousticBand{0.015, 0.045, 0.8},
		arousal:        0.8, valence: -0.8,
	},
	models.EmotionFear: {
		pitchLevel:     acousticBand{1.20, 1.70, 1.2},
		pitchVariation: acousticBand{0.10, 0.30, 1.0},
		intensityDelta: acousticBand{-2, 4, 0.8},
		jitter:         acousticBand{0.015, 0.050, 0.8},
		arousal:        0.7, valence: -0.6,
	},
	models.EmotionAnxiety: {
		pitchLevel:     acousticBand{1.05, 1.30, 1.0},
		pitchVariation: acousticBand{0.12, 0.35, 1.2},
		intensityDelta: acousticBand{-3, 2, 0.8},
		jitter:         acousticBand{0.012, 0.040, 0.8},
		arousal:        0.5, valence: -0.4,
	},
}

// EmotionAnalyzer scores windowed acoustics against the fixed emotion
// profiles. Deterministic: same clip, same timeline.
type EmotionAnalyzer struct {
	extractor *Extractor
}

func NewEmotionAnalyzer(extractor *Extractor) *EmotionAnalyzer {
	return &EmotionAnalyzer{extractor: extractor}
}

// Analyze produces the emotional timeline and templated summary for a clip.
func (a *EmotionAnalyzer) Analyze(ctx context.Context, clip *audio.Clip) (*models.EmotionSummary, error) {
	const op = "EmotionAnalyzer.Analyze"

	windows, err := a.extractor.ExtractWindows(ctx, clip, emotionWindowSeconds, emotionHopSeconds)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "window extraction failed", err)
	}

	summary := &models.EmotionSummary{
		AudioID:     clip.AudioID,
		Limitations: []string{emotionCulturalCaveat},
		AnalyzedAt:  time.Now().UTC(),
	}
	if len(windows) == 0 {
		summary.Summary = "Recording too short for emotional timeline analysis."
		return summary, nil
	}

	basePitch, baseIntensity := baselines(windows)

	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, utils.E(utils.CodeTimeout, op, "cancelled", err)
		}
		summary.Segments = append(summary.Segments, scoreWindow(w, basePitch, baseIntensity))
	}

	finishSummary(summary)
	return summary, nil
}

func baselines(windows []models.FeatureWindow) (pitch, intensity float64) {
	var pitchSum float64
	pitchN := 0
	var intSum float64
	for _, w := range windows {
		if w.Pitch > 0 {
			pitchSum += w.Pitch
			pitchN++
		}
		intSum += w.Intensity
	}
	if pitchN > 0 {
		pitch = pitchSum / float64(pitchN)
	}
	intensity = intSum / float64(len(windows))
	return pitch, intensity
}

func scoreWindow(w models.FeatureWindow, basePitch, baseIntensity float64) models.EmotionSegment {
	pitchLevel := 1.0
	if basePitch > 0 && w.Pitch > 0 {
		pitchLevel = w.Pitch / basePitch
	}
	pitchCV := 0.0
	if w.Pitch > 0 {
		pitchCV = w.PitchStd / w.Pitch
	}
	intensityDelta := w.Intensity - baseIntensity

	seg := models.EmotionSegment{
		StartTime: w.StartTime,
		EndTime:   w.EndTime,
		Scores:    make(map[models.EmotionType]float64, len(emotionProfiles)),
	}

	var total float64
	for emo, prof := range emotionProfiles {
		s := prof.pitchLevel.score(pitchLevel) +
			prof.pitchVariation.score(pitchCV) +
			prof.intensityDelta.score(intensityDelta) +
			prof.jitter.score(w.Jitter)
		seg.Scores[emo] = s
		total += s
	}
	if total > 0 {
		for emo := range seg.Scores {
			seg.Scores[emo] /= total
		}
	} else {
		for emo := range seg.Scores {
			seg.Scores[emo] = 1.0 / float64(len(seg.Scores))
		}
	}

	seg.PrimaryEmotion = primaryEmotion(seg.Scores)
	for emo, p := range seg.Scores {
		seg.Arousal += p * emotionProfiles[emo].arousal
		seg.Valence += p * emotionProfiles[emo].valence
	}
	seg.Intensity = intensityBucket(pitchLevel, pitchCV, intensityDelta, w.Jitter)
	return seg
}

// primaryEmotion picks the highest score, breaking ties alphabetically so the
// result never depends on map iteration order.
func primaryEmotion(scores map[models.EmotionType]float64) models.EmotionType {
	keys := make([]models.EmotionType, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	best := keys[0]
	for _, k := range keys[1:] {
		if scores[k] > scores[best] {
			best = k
		}
	}
	return best
}

// intensityBucket combines pitch deviation from the recording's own baseline,
// loudness, pitch variability and jitter into the five-step ordinal level.
// Pitch and loudness are signed (speech below baseline pulls the level down);
// variability and jitter only ever raise it.
func intensityBucket(pitchLevel, pitchCV, intensityDelta, jitter float64) models.IntensityLevel {
	pitchDev := (pitchLevel - 1.0) / 0.4
	if pitchDev > 1 {
		pitchDev = 1
	} else if pitchDev < -1 {
		pitchDev = -1
	}
	loudness := intensityDelta / 8.0
	if loudness > 1 {
		loudness = 1
	} else if loudness < -1 {
		loudness = -1
	}
	variability := clamp01(pitchCV / 0.3)
	tremor := clamp01(jitter / 0.03)

	activation := 0.35*pitchDev + 0.30*loudness + 0.20*variability + 0.15*tremor
	switch {
	case activation < -0.4:
		return models.IntensityVeryLow
	case activation < -0.15:
		return models.IntensityLow
	case activation < 0.3:
		return models.IntensityModerate
	case activation < 0.6:
		return models.IntensityHigh
	default:
		return models.IntensityVeryHigh
	}
}

func finishSummary(s *models.EmotionSummary) {
	counts := map[models.EmotionType]int{}
	var arousalSum, valenceSum float64
	for i, seg := range s.Segments {
		counts[seg.PrimaryEmotion]++
		arousalSum += seg.Arousal
		valenceSum += seg.Valence
		if i > 0 && seg.PrimaryEmotion != s.Segments[i-1].PrimaryEmotion {
			s.EmotionChanges = append(s.EmotionChanges, seg.StartTime)
		}
	}
	n := len(s.Segments)
	s.MeanArousal = arousalSum / float64(n)
	s.MeanValence = valenceSum / float64(n)
	s.Volatility = float64(len(s.EmotionChanges)) / float64(n+1)

	type emoCount struct {
		emo models.EmotionType
		n   int
	}
	ranked := make([]emoCount, 0, len(counts))
	for e, c := range counts {
		ranked = append(ranked, emoCount{e, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].n != ranked[j].n {
			return ranked[i].n > ranked[j].n
		}
		return ranked[i].emo < ranked[j].emo
	})
	for i, rc := range ranked {
		if i >= 2 {
			break
		}
		s.DominantEmotions = append(s.DominantEmotions, rc.emo)
	}

	names := make([]string, len(s.DominantEmotions))
	for i, e := range s.DominantEmotions {
		names[i] = string(e)
	}
	s.Summary = fmt.Sprintf(
		"Across %d analysis windows the dominant vocal pattern(s) were %s. Mean arousal %.2f, mean valence %.2f. The primary pattern changed %d time(s); emotional volatility %.2f.",
		n, strings.Join(names, ", "), s.MeanArousal, s.MeanValence, len(s.EmotionChanges), s.Volatility)
}
