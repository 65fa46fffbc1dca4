package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/veridict/voicelab/internal/models"
	"github.com/veridict/voicelab/internal/utils"
)

// Decision thresholds for speaker matching. Verification is stricter than
// identification because a claimed identity raises the cost of a false accept.
const (
	IdentificationThreshold = 0.60
	VerificationThreshold   = 0.70

	// RecommendedEnrollmentSamples is the sample count below which an
	// enrollment succeeds with a warning.
	RecommendedEnrollmentSamples = 3

	// maxCandidates caps the ranked list returned by identification.
	maxCandidates = 5
)

// Demographic estimation boundaries. Pitch in Hz; jitter and shimmer are
// cycle-to-cycle perturbation ratios, which rise with vocal age.
const (
	malePitchCeiling = 120.0
	femalePitchFloor = 180.0
	childPitchFloor  = 250.0

	adolescentJitterCeiling  = 0.008
	adolescentShimmerCeiling = 0.035
	youngAdultJitterCeiling  = 0.012
	youngAdultShimmerCeiling = 0.045
	seniorJitterFloor        = 0.015
	seniorShimmerFloor       = 0.055
)

// EnrollmentSample pairs one sample's signature with its quality score and
// suitability findings.
type EnrollmentSample struct {
	AudioID   string
	Signature models.CompactSignature
	Quality   float64
	Issues    []string
}

// Enrollment is the engine-level outcome of averaging enrollment samples.
// Persistence belongs to the caller.
type Enrollment struct {
	Signature        models.CompactSignature
	GenderEstimate   string
	AgeRangeEstimate string
	SampleIDs        []string
	Warnings         []string
}

// BuildEnrollment averages the suitable samples into one profile signature,
// weighting each sample by its quality score so cleaner recordings dominate.
// Unsuitable samples are skipped with a warning; if none remain the
// enrollment fails.
func BuildEnrollment(samples []EnrollmentSample) (*Enrollment, error) {
	const op = "engine.BuildEnrollment"

	if len(samples) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "no enrollment samples provided", nil)
	}

	var usable []EnrollmentSample
	var warnings []string
	for _, s := range samples {
		if len(s.Issues) > 0 {
			warnings = append(warnings, fmt.Sprintf("sample %s skipped: %s", shortID(s.AudioID), s.Issues[0]))
			continue
		}
		usable = append(usable, s)
	}
	if len(usable) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "no enrollment sample met the suitability thresholds", nil)
	}
	if len(usable) < RecommendedEnrollmentSamples {
		warnings = append(warnings, fmt.Sprintf(
			"enrolled from %d sample(s); %d or more are recommended for reliable identification",
			len(usable), RecommendedEnrollmentSamples))
	}

	sig := averageSignatures(usable)
	gender, ageRange := EstimateDemographics(sig)

	ids := make([]string, len(usable))
	for i, s := range usable {
		ids[i] = s.AudioID
	}

	return &Enrollment{
		Signature:        sig,
		GenderEstimate:   gender,
		AgeRangeEstimate: ageRange,
		SampleIDs:        ids,
		Warnings:         warnings,
	}, nil
}

func averageSignatures(samples []EnrollmentSample) models.CompactSignature {
	dim := len(samples[0].Signature.MFCCMean)
	out := models.CompactSignature{
		MFCCMean: make([]float64, dim),
		MFCCStd:  make([]float64, dim),
	}

	var totalWeight float64
	for _, s := range samples {
		w := s.Quality
		if w <= 0 {
			w = 1e-3
		}
		totalWeight += w
		for i := 0; i < dim; i++ {
			out.MFCCMean[i] += w * s.Signature.MFCCMean[i]
			out.MFCCStd[i] += w * s.Signature.MFCCStd[i]
		}
		out.PitchMean += w * s.Signature.PitchMean
		out.PitchStd += w * s.Signature.PitchStd
		out.SpeechRate += w * s.Signature.SpeechRate
		out.Jitter += w * s.Signature.Jitter
		out.Shimmer += w * s.Signature.Shimmer
		out.HNR += w * s.Signature.HNR
		out.SpectralCentroidMean += w * s.Signature.SpectralCentroidMean
	}

	for i := 0; i < dim; i++ {
		out.MFCCMean[i] /= totalWeight
		out.MFCCStd[i] /= totalWeight
	}
	out.PitchMean /= totalWeight
	out.PitchStd /= totalWeight
	out.SpeechRate /= totalWeight
	out.Jitter /= totalWeight
	out.Shimmer /= totalWeight
	out.HNR /= totalWeight
	out.SpectralCentroidMean /= totalWeight
	return out
}

// EstimateDemographics infers coarse gender and age-range labels: gender from
// the mean fundamental frequency, age from the jitter/shimmer perturbation
// pattern. These are advisory estimates, never evidence.
func EstimateDemographics(sig models.CompactSignature) (gender, ageRange string) {
	pitch := sig.PitchMean
	if pitch <= 0 {
		return "unknown", "unknown"
	}
	if pitch > childPitchFloor {
		return "unknown", "child"
	}
	switch {
	case pitch > femalePitchFloor:
		gender = "female"
	case pitch < malePitchCeiling:
		gender = "male"
	default:
		gender = "unknown"
	}
	return gender, estimateAgeRange(sig.Jitter, sig.Shimmer)
}

// estimateAgeRange reads the perturbation pattern: very stable phonation in
// adolescents, mildly higher in young adults, clearly elevated in seniors.
// Combinations outside those bands stay a plain adult, as do signatures with
// no perturbation measurements at all.
func estimateAgeRange(jitter, shimmer float64) string {
	switch {
	case jitter <= 0 || shimmer <= 0:
		return "adult"
	case jitter < adolescentJitterCeiling && shimmer < adolescentShimmerCeiling:
		return "adolescent"
	case jitter > seniorJitterFloor && shimmer > seniorShimmerFloor:
		return "senior"
	case jitter < youngAdultJitterCeiling && shimmer < youngAdultShimmerCeiling:
		return "young_adult"
	default:
		return "adult"
	}
}

// ProfileCandidate is an enrolled profile presented to the matcher.
type ProfileCandidate struct {
	ProfileID   string
	DisplayName string
	Signature   models.CompactSignature
}

// Identify ranks every candidate by similarity to the probe and applies the
// identification threshold. Ties in similarity break on ProfileID so the
// ordering is deterministic.
func Identify(audioID string, probe models.CompactSignature, candidates []ProfileCandidate, warnings []string) *models.IdentificationResult {
	matches := make([]models.SpeakerMatch, 0, len(candidates))
	for _, c := range candidates {
		matches = append(matches, models.SpeakerMatch{
			ProfileID:   c.ProfileID,
			DisplayName: c.DisplayName,
			Similarity:  IdentifySimilarity(probe, c.Signature),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].ProfileID < matches[j].ProfileID
	})
	if len(matches) > maxCandidates {
		matches = matches[:maxCandidates]
	}

	result := &models.IdentificationResult{
		AudioID:    audioID,
		Candidates: matches,
		Threshold:  IdentificationThreshold,
		Warnings:   warnings,
		AnalyzedAt: time.Now().UTC(),
	}
	if len(matches) > 0 && matches[0].Similarity >= IdentificationThreshold {
		best := matches[0]
		result.BestMatch = &best
		result.Known = true
	}
	return result
}

// Verify performs the 1:1 claim check against a single enrolled signature.
func Verify(audioID, profileID string, probe, enrolled models.CompactSignature, warnings []string) *models.VerificationResult {
	similarity := IdentifySimilarity(probe, enrolled)
	return &models.VerificationResult{
		AudioID:    audioID,
		ProfileID:  profileID,
		Similarity: similarity,
		Threshold:  VerificationThreshold,
		Accepted:   similarity >= VerificationThreshold,
		Warnings:   warnings,
		AnalyzedAt: time.Now().UTC(),
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
