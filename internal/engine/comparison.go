package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/veridict/voicelab/internal/models"
	"github.com/veridict/voicelab/internal/utils"
)

// Forensic comparison component weights.
const (
	cmpWeightMFCC         = 0.40
	cmpWeightPitch        = 0.15
	cmpWeightSpectral     = 0.15
	cmpWeightVoiceQuality = 0.20
	cmpWeightProsodic     = 0.10
)

// Categorical conclusion thresholds, applied on top of the likelihood ratio.
const (
	conclusionIdentificationSim = 0.85
	conclusionExclusionSim      = 0.30
)

// lrAnchor maps an overall similarity to a log10 likelihood ratio. The table
// is piecewise linear between anchors and clamped at the ends.
type lrAnchor struct {
	similarity float64
	logLR      float64
}

var lrAnchors = []lrAnchor{
	{0.95, 6},
	{0.85, 4},
	{0.70, 2},
	{0.55, 0.5},
	{0.45, -0.5},
	{0.30, -2},
	{0.15, -4},
}

const lrFloor = -6.0

// Comparator performs pairwise forensic voice comparison and report assembly.
type Comparator struct{}

func NewComparator() *Comparator { return &Comparator{} }

// Compare scores two recordings' features against the same-speaker and
// different-speaker hypotheses. The comparison is symmetric: swapping the
// inputs yields identical scores.
func (c *Comparator) Compare(featA, featB *models.AudioFeatures) (*models.ComparisonResult, error) {
	const op = "Comparator.Compare"

	if featA == nil || featB == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "both recordings must have extracted features", nil)
	}

	sigA := Signature(featA)
	sigB := Signature(featB)

	score := models.SimilarityScore{
		MFCC:         mfccSimilarity(sigA, sigB),
		Pitch:        pitchSimilarity(sigA, sigB),
		Spectral:     scalarSimilarity(sigA.SpectralCentroidMean, sigB.SpectralCentroidMean, centroidScale),
		VoiceQuality: voiceQualitySimilarity(sigA, sigB),
		Prosodic:     scalarSimilarity(sigA.SpeechRate, sigB.SpeechRate, speechRateScale),
	}
	score.Overall = cmpWeightMFCC*score.MFCC +
		cmpWeightPitch*score.Pitch +
		cmpWeightSpectral*score.Spectral +
		cmpWeightVoiceQuality*score.VoiceQuality +
		cmpWeightProsodic*score.Prosodic

	logLR := similarityToLogLR(score.Overall)
	reliability, limitations := assessReliability(featA, featB)

	result := &models.ComparisonResult{
		AudioIDA:   featA.AudioID,
		AudioIDB:   featB.AudioID,
		Similarity: score,
		LikelihoodRatio: models.LikelihoodRatio{
			Log10:  logLR,
			Verbal: verbalScale(logLR),
		},
		Conclusion:  conclude(logLR, score.Overall),
		Reliability: reliability,
		Limitations: limitations,
		AnalyzedAt:  time.Now().UTC(),
	}
	return result, nil
}

func pitchSimilarity(a, b models.CompactSignature) float64 {
	mean := scalarSimilarity(a.PitchMean, b.PitchMean, pitchMeanScale)
	spread := scalarSimilarity(a.PitchStd, b.PitchStd, pitchStdScale)
	return 0.6*mean + 0.4*spread
}

// similarityToLogLR interpolates the anchor table. Outside the table it
// saturates: at the top anchor's value above 0.95, at the floor below 0.15.
func similarityToLogLR(sim float64) float64 {
	if sim >= lrAnchors[0].similarity {
		return lrAnchors[0].logLR
	}
	for i := 1; i < len(lrAnchors); i++ {
		hi, lo := lrAnchors[i-1], lrAnchors[i]
		if sim >= lo.similarity {
			t := (sim - lo.similarity) / (hi.similarity - lo.similarity)
			return lo.logLR + t*(hi.logLR-lo.logLR)
		}
	}
	return lrFloor
}

// verbalScale maps a log10 likelihood ratio onto the nine-step verbal
// conclusion scale. The scale is symmetric around inconclusive.
func verbalScale(logLR float64) string {
	abs := math.Abs(logLR)
	var strength string
	switch {
	case abs >= 4:
		strength = "very strong"
	case abs >= 2:
		strength = "strong"
	case abs >= 1:
		strength = "moderate"
	case abs >= 0.5:
		strength = "limited"
	default:
		return "inconclusive"
	}
	if logLR > 0 {
		return strength + " support for the same-speaker hypothesis"
	}
	return strength + " support for the different-speaker hypothesis"
}

// conclude derives the categorical conclusion. The extreme categories require
// the similarity itself to clear the identification or exclusion threshold so
// a borderline likelihood ratio cannot produce a definitive statement.
func conclude(logLR, similarity float64) models.ConclusionStrength {
	switch {
	case logLR >= 4:
		if similarity >= conclusionIdentificationSim {
			return models.ConclusionIdentification
		}
		return models.ConclusionStrongSupport
	case logLR >= 2:
		return models.ConclusionStrongSupport
	case logLR >= 1:
		return models.ConclusionModerateSupport
	case logLR > -1:
		return models.ConclusionInconclusive
	case logLR > -2:
		return models.ConclusionModerateExclusion
	case logLR > -4:
		return models.ConclusionStrongExclusion
	default:
		if similarity <= conclusionExclusionSim {
			return models.ConclusionExclusion
		}
		return models.ConclusionStrongExclusion
	}
}

// assessReliability starts from the mean quality score and applies the fixed
// duration penalties: either side under 5s costs x0.7, under 10s x0.85, and
// a duration imbalance beyond 0.3 costs x0.8.
func assessReliability(a, b *models.AudioFeatures) (float64, []string) {
	reliability := (a.Quality.QualityScore + b.Quality.QualityScore) / 2
	var limitations []string

	shortest := math.Min(a.Duration, b.Duration)
	longest := math.Max(a.Duration, b.Duration)
	switch {
	case shortest < 5:
		reliability *= 0.7
		limitations = append(limitations, fmt.Sprintf("shortest recording is %.1fs; comparisons under 5s carry substantially reduced reliability", shortest))
	case shortest < 10:
		reliability *= 0.85
		limitations = append(limitations, fmt.Sprintf("shortest recording is %.1fs; comparisons under 10s carry reduced reliability", shortest))
	}
	if longest > 0 && shortest/longest < 0.3 {
		reliability *= 0.8
		limitations = append(limitations, "recording durations are strongly imbalanced, which weakens feature comparability")
	}
	if _, issues := SuitableForIdentification(a); len(issues) > 0 {
		limitations = append(limitations, "recording A: "+strings.Join(issues, "; "))
	}
	if _, issues := SuitableForIdentification(b); len(issues) > 0 {
		limitations = append(limitations, "recording B: "+strings.Join(issues, "; "))
	}
	if len(limitations) == 0 {
		limitations = append(limitations, "acoustic comparison reflects recording conditions as well as speaker identity; conclusions are probabilistic, not absolute")
	}
	return clamp01(reliability), limitations
}

// GenerateForensicReport assembles the templated report for a completed
// comparison. Every sentence is a fill-in of computed values.
func (c *Comparator) GenerateForensicReport(caseID string, cmp *models.ComparisonResult) *models.ForensicReport {
	r := &models.ForensicReport{
		CaseID:      caseID,
		Comparison:  *cmp,
		GeneratedAt: time.Now().UTC(),
	}

	r.ExecutiveSummary = fmt.Sprintf(
		"Forensic voice comparison of recording %s against recording %s produced an overall acoustic similarity of %.3f and a log10 likelihood ratio of %.2f, providing %s. Categorical conclusion: %s. Reliability of this comparison: %.2f.",
		shortID(cmp.AudioIDA), shortID(cmp.AudioIDB),
		cmp.Similarity.Overall, cmp.LikelihoodRatio.Log10, cmp.LikelihoodRatio.Verbal,
		strings.ReplaceAll(string(cmp.Conclusion), "_", " "), cmp.Reliability)

	r.Methodology = "Both recordings were decoded to a common 16 kHz mono analysis format and identified by SHA-256 content hash. Mel-frequency cepstral coefficients, fundamental frequency statistics, spectral shape measures, voice quality measures (jitter, shimmer, harmonics-to-noise ratio) and prosodic timing were extracted from each recording and compared component-wise. Component similarities were combined with fixed weights and mapped to a likelihood ratio through a fixed calibration table. No step involves randomness; repeating the analysis on the same files reproduces these results exactly."

	r.Analysis = fmt.Sprintf(
		"Component similarities: cepstral envelope %.3f (weight %.2f), fundamental frequency %.3f (weight %.2f), spectral shape %.3f (weight %.2f), voice quality %.3f (weight %.2f), prosodic timing %.3f (weight %.2f). Weighted overall similarity: %.3f.",
		cmp.Similarity.MFCC, cmpWeightMFCC,
		cmp.Similarity.Pitch, cmpWeightPitch,
		cmp.Similarity.Spectral, cmpWeightSpectral,
		cmp.Similarity.VoiceQuality, cmpWeightVoiceQuality,
		cmp.Similarity.Prosodic, cmpWeightProsodic,
		cmp.Similarity.Overall)

	r.Conclusion = fmt.Sprintf(
		"The acoustic evidence provides %s (log10 LR %.2f). Categorical conclusion: %s.",
		cmp.LikelihoodRatio.Verbal, cmp.LikelihoodRatio.Log10,
		strings.ReplaceAll(string(cmp.Conclusion), "_", " "))

	r.LimitationsText = "Limitations: " + strings.Join(cmp.Limitations, " ")

	r.Certification = fmt.Sprintf(
		"This report was generated automatically from the acoustic content of the identified recordings on %s. The source recordings were not modified during analysis and are identified by the SHA-256 hashes %s and %s.",
		r.GeneratedAt.Format("2006-01-02 15:04:05 MST"), cmp.AudioIDA, cmp.AudioIDB)

	return r
}
