package engine

import (
	"math"
	"testing"

	"github.com/veridict/voicelab/internal/models"
)

func sampleSig(pitch float64) models.CompactSignature {
	mean := make([]float64, 13)
	std := make([]float64, 13)
	for i := range mean {
		mean[i] = pitch/100 + float64(i)
		std[i] = 1 + float64(i)*0.1
	}
	return models.CompactSignature{
		MFCCMean:             mean,
		MFCCStd:              std,
		PitchMean:            pitch,
		PitchStd:             20,
		SpeechRate:           4,
		Jitter:               0.01,
		Shimmer:              0.04,
		HNR:                  15,
		SpectralCentroidMean: 1200,
	}
}

func TestIdentifySimilarityReflexiveAndSymmetric(t *testing.T) {
	a, b := sampleSig(140), sampleSig(210)
	if s := IdentifySimilarity(a, a); math.Abs(s-1.0) > 1e-9 {
		t.Errorf("self similarity = %f, want 1.0", s)
	}
	if IdentifySimilarity(a, b) != IdentifySimilarity(b, a) {
		t.Error("similarity must be symmetric")
	}
	if s := IdentifySimilarity(a, b); s < 0 || s > 1 {
		t.Errorf("similarity out of range: %f", s)
	}
}

func TestBuildEnrollmentRejectsWhenNothingSuitable(t *testing.T) {
	_, err := BuildEnrollment([]EnrollmentSample{
		{AudioID: "a", Signature: sampleSig(140), Quality: 0.5, Issues: []string{"too short"}},
	})
	if err == nil {
		t.Fatal("enrollment with zero suitable samples must fail")
	}
	if _, err := BuildEnrollment(nil); err == nil {
		t.Fatal("empty enrollment must fail")
	}
}

func TestBuildEnrollmentWarnsBelowRecommendedCount(t *testing.T) {
	enr, err := BuildEnrollment([]EnrollmentSample{
		{AudioID: "a", Signature: sampleSig(140), Quality: 0.8},
	})
	if err != nil {
		t.Fatalf("BuildEnrollment: %v", err)
	}
	if len(enr.Warnings) == 0 {
		t.Error("single-sample enrollment must carry a warning")
	}

	samples := []EnrollmentSample{
		{AudioID: "a", Signature: sampleSig(140), Quality: 0.8},
		{AudioID: "b", Signature: sampleSig(142), Quality: 0.8},
		{AudioID: "c", Signature: sampleSig(138), Quality: 0.8},
	}
	enr, err = BuildEnrollment(samples)
	if err != nil {
		t.Fatalf("BuildEnrollment: %v", err)
	}
	if len(enr.Warnings) != 0 {
		t.Errorf("three clean samples should not warn: %v", enr.Warnings)
	}
	if len(enr.SampleIDs) != 3 {
		t.Errorf("sample ids = %v", enr.SampleIDs)
	}
}

func TestBuildEnrollmentWeightsByQuality(t *testing.T) {
	enr, err := BuildEnrollment([]EnrollmentSample{
		{AudioID: "clean", Signature: sampleSig(100), Quality: 0.9},
		{AudioID: "noisy", Signature: sampleSig(200), Quality: 0.1},
	})
	if err != nil {
		t.Fatalf("BuildEnrollment: %v", err)
	}
	// Weighted mean: (0.9*100 + 0.1*200) / 1.0 = 110.
	if math.Abs(enr.Signature.PitchMean-110) > 1e-9 {
		t.Errorf("pitch mean = %f, want 110 (quality-weighted)", enr.Signature.PitchMean)
	}
}

func TestEstimateDemographics(t *testing.T) {
	cases := []struct {
		pitch   float64
		jitter  float64
		shimmer float64
		gender  string
		age     string
	}{
		{100, 0.006, 0.030, "male", "adolescent"},
		{100, 0.010, 0.040, "male", "young_adult"},
		{100, 0.020, 0.070, "male", "senior"},
		{100, 0.013, 0.050, "male", "adult"},
		{150, 0.010, 0.040, "unknown", "young_adult"},
		{200, 0.006, 0.030, "female", "adolescent"},
		{200, 0.020, 0.070, "female", "senior"},
		{280, 0.010, 0.040, "unknown", "child"},
		{100, 0, 0, "male", "adult"},
		{0, 0.010, 0.040, "unknown", "unknown"},
	}
	for _, c := range cases {
		sig := sampleSig(c.pitch)
		sig.Jitter = c.jitter
		sig.Shimmer = c.shimmer
		g, a := EstimateDemographics(sig)
		if g != c.gender || a != c.age {
			t.Errorf("pitch %.0f jitter %.3f shimmer %.3f: got %s/%s, want %s/%s",
				c.pitch, c.jitter, c.shimmer, g, a, c.gender, c.age)
		}
	}
}

func TestEstimateDemographicsPerturbationDisagreement(t *testing.T) {
	// One elevated measure alone never promotes to senior.
	if age := estimateAgeRange(0.020, 0.040); age != "adult" {
		t.Errorf("elevated jitter with normal shimmer = %s, want adult", age)
	}
	if age := estimateAgeRange(0.010, 0.070); age != "adult" {
		t.Errorf("elevated shimmer with normal jitter = %s, want adult", age)
	}
}

func TestIdentifyRankingAndThreshold(t *testing.T) {
	probe := sampleSig(140)
	candidates := []ProfileCandidate{
		{ProfileID: "p1", DisplayName: "Alex", Signature: sampleSig(141)},
		{ProfileID: "p2", DisplayName: "Sam", Signature: sampleSig(300)},
		{ProfileID: "p3", DisplayName: "Kim", Signature: sampleSig(145)},
	}
	res := Identify("audio-1", probe, candidates, nil)
	if len(res.Candidates) != 3 {
		t.Fatalf("candidates = %d", len(res.Candidates))
	}
	for i := 1; i < len(res.Candidates); i++ {
		if res.Candidates[i].Similarity > res.Candidates[i-1].Similarity {
			t.Fatal("candidates must be sorted descending")
		}
	}
	if res.Candidates[0].ProfileID != "p1" {
		t.Errorf("best candidate = %s, want p1", res.Candidates[0].ProfileID)
	}
	if !res.Known || res.BestMatch == nil {
		t.Error("near-identical signature must clear the identification threshold")
	}
	if res.Threshold != IdentificationThreshold {
		t.Errorf("threshold = %f", res.Threshold)
	}
}

func TestIdentifyCapsCandidatesAtFive(t *testing.T) {
	probe := sampleSig(140)
	var candidates []ProfileCandidate
	for i := 0; i < 8; i++ {
		candidates = append(candidates, ProfileCandidate{
			ProfileID: string(rune('a' + i)),
			Signature: sampleSig(130 + float64(i)*5),
		})
	}
	res := Identify("audio-1", probe, candidates, nil)
	if len(res.Candidates) != 5 {
		t.Errorf("candidates = %d, want 5", len(res.Candidates))
	}
}

func TestIdentifyUnknownSpeaker(t *testing.T) {
	probe := sampleSig(100)
	dissimilar := sampleSig(400)
	dissimilar.SpeechRate = 9
	dissimilar.Jitter = 0.08
	dissimilar.Shimmer = 0.3
	dissimilar.HNR = 1
	for i := range dissimilar.MFCCMean {
		dissimilar.MFCCMean[i] = -probe.MFCCMean[i]
	}
	res := Identify("audio-1", probe, []ProfileCandidate{{ProfileID: "p1", Signature: dissimilar}}, nil)
	if res.Known || res.BestMatch != nil {
		t.Errorf("dissimilar voice matched: %+v", res.Candidates)
	}
}

func TestVerify(t *testing.T) {
	sig := sampleSig(140)
	res := Verify("audio-1", "p1", sig, sig, nil)
	if !res.Accepted {
		t.Error("self verification must accept")
	}
	if res.Threshold != VerificationThreshold {
		t.Errorf("threshold = %f", res.Threshold)
	}

	other := sampleSig(320)
	for i := range other.MFCCMean {
		other.MFCCMean[i] = -sig.MFCCMean[i]
	}
	if Verify("audio-1", "p1", sig, other, nil).Accepted {
		t.Error("dissimilar voice must be rejected")
	}
}
