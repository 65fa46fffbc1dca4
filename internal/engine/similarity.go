package engine

import (
	"math"

	"github.com/veridict/voicelab/internal/models"
)

// Identification component weights. They sum to 0.90; the remaining 0.10 is
// distributed proportionally by normalizing with the sum, so the overall
// similarity stays in [0,1].
const (
	weightMFCC       = 0.40
	weightPitchMean  = 0.15
	weightPitchStd   = 0.10
	weightVoiceQual  = 0.15
	weightSpeechRate = 0.10
)

// Scales for converting absolute scalar differences into [0,1] similarities.
// A difference of one full scale maps to zero similarity.
const (
	pitchMeanScale  = 80.0  // Hz
	pitchStdScale   = 40.0  // Hz
	speechRateScale = 4.0   // syllables/s
	jitterScale     = 0.03
	shimmerScale    = 0.08
	hnrScale        = 15.0 // dB
	centroidScale   = 1500.0 // Hz
)

// CosineSimilarity returns the cosine of the angle between two vectors,
// clamped to [0,1]. Zero vectors compare as dissimilar.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if cos < 0 {
		return 0
	}
	if cos > 1 {
		return 1
	}
	return cos
}

// scalarSimilarity maps |a-b| onto [0,1] with a linear falloff over scale.
func scalarSimilarity(a, b, scale float64) float64 {
	d := math.Abs(a-b) / scale
	if d > 1 {
		return 0
	}
	return 1 - d
}

// mfccSimilarity compares the cepstral envelope: cosine over concatenated
// means and standard deviations so both the average timbre and its spread
// contribute.
func mfccSimilarity(a, b models.CompactSignature) float64 {
	va := append(append([]float64{}, a.MFCCMean...), a.MFCCStd...)
	vb := append(append([]float64{}, b.MFCCMean...), b.MFCCStd...)
	return CosineSimilarity(va, vb)
}

// voiceQualitySimilarity averages the jitter, shimmer and HNR similarities.
func voiceQualitySimilarity(a, b models.CompactSignature) float64 {
	j := scalarSimilarity(a.Jitter, b.Jitter, jitterScale)
	s := scalarSimilarity(a.Shimmer, b.Shimmer, shimmerScale)
	h := scalarSimilarity(a.HNR, b.HNR, hnrScale)
	return (j + s + h) / 3
}

// IdentifySimilarity is the weighted combination used for 1:N identification
// and 1:1 verification. It is symmetric and self-similarity is 1.0 up to
// floating point.
func IdentifySimilarity(a, b models.CompactSignature) float64 {
	total := weightMFCC + weightPitchMean + weightPitchStd + weightVoiceQual + weightSpeechRate

	score := weightMFCC*mfccSimilarity(a, b) +
		weightPitchMean*scalarSimilarity(a.PitchMean, b.PitchMean, pitchMeanScale) +
		weightPitchStd*scalarSimilarity(a.PitchStd, b.PitchStd, pitchStdScale) +
		weightVoiceQual*voiceQualitySimilarity(a, b) +
		weightSpeechRate*scalarSimilarity(a.SpeechRate, b.SpeechRate, speechRateScale)

	return score / total
}
