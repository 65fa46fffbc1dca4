package engine

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/veridict/voicelab/internal/models"
)

func TestLikelihoodRatioAnchors(t *testing.T) {
	anchors := []struct {
		sim   float64
		logLR float64
	}{
		{0.95, 6},
		{0.85, 4},
		{0.70, 2},
		{0.55, 0.5},
		{0.45, -0.5},
		{0.30, -2},
		{0.15, -4},
		{0.14, -6},
		{0.10, -6},
		{0.00, -6},
	}
	for _, a := range anchors {
		if got := similarityToLogLR(a.sim); math.Abs(got-a.logLR) > 1e-9 {
			t.Errorf("logLR(%.2f) = %f, want %f", a.sim, got, a.logLR)
		}
	}
	// Above the top anchor the mapping saturates.
	if got := similarityToLogLR(0.99); got != 6 {
		t.Errorf("logLR(0.99) = %f, want 6", got)
	}
	// Everything below the bottom anchor sits at the floor.
	if got := similarityToLogLR(0.10); got > lrFloor {
		t.Errorf("logLR(0.10) = %f, want <= %f", got, lrFloor)
	}
	// Monotonic between anchors.
	prev := math.Inf(-1)
	for sim := 0.0; sim <= 1.0; sim += 0.01 {
		lr := similarityToLogLR(sim)
		if lr < prev {
			t.Fatalf("logLR not monotonic at sim %.2f", sim)
		}
		prev = lr
	}
}

func TestVerbalScaleCategories(t *testing.T) {
	cases := []struct {
		logLR float64
		want  string
	}{
		{5, "very strong support for the same-speaker hypothesis"},
		{3, "strong support for the same-speaker hypothesis"},
		{1.5, "moderate support for the same-speaker hypothesis"},
		{0.7, "limited support for the same-speaker hypothesis"},
		{0.2, "inconclusive"},
		{-0.2, "inconclusive"},
		{-0.7, "limited support for the different-speaker hypothesis"},
		{-1.5, "moderate support for the different-speaker hypothesis"},
		{-3, "strong support for the different-speaker hypothesis"},
		{-5, "very strong support for the different-speaker hypothesis"},
	}
	for _, c := range cases {
		if got := verbalScale(c.logLR); got != c.want {
			t.Errorf("verbalScale(%.1f) = %q, want %q", c.logLR, got, c.want)
		}
	}
}

func TestConcludeTieBreaks(t *testing.T) {
	if c := conclude(5, 0.90); c != models.ConclusionIdentification {
		t.Errorf("high LR + high similarity = %s, want identification", c)
	}
	if c := conclude(5, 0.80); c != models.ConclusionStrongSupport {
		t.Errorf("high LR below identification similarity = %s, want strong_support", c)
	}
	if c := conclude(-5, 0.25); c != models.ConclusionExclusion {
		t.Errorf("low LR + low similarity = %s, want exclusion", c)
	}
	if c := conclude(-5, 0.40); c != models.ConclusionStrongExclusion {
		t.Errorf("low LR above exclusion similarity = %s, want strong_exclusion", c)
	}
	if c := conclude(0, 0.5); c != models.ConclusionInconclusive {
		t.Errorf("neutral LR = %s, want inconclusive", c)
	}
}

func TestCompareReflexiveAndSymmetric(t *testing.T) {
	clip := testClip(150, 12)
	f, err := NewExtractor().Extract(context.Background(), clip)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	cmp := NewComparator()
	res, err := cmp.Compare(f, f)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if res.Similarity.Overall < 0.99 {
		t.Errorf("self comparison overall = %f, want ~1.0", res.Similarity.Overall)
	}
	if res.Conclusion != models.ConclusionIdentification {
		t.Errorf("self comparison conclusion = %s", res.Conclusion)
	}

	other, _ := NewExtractor().Extract(context.Background(), testClip(260, 12))
	ab, _ := cmp.Compare(f, other)
	ba, _ := cmp.Compare(other, f)
	if ab.Similarity.Overall != ba.Similarity.Overall {
		t.Error("comparison must be symmetric")
	}
	if ab.LikelihoodRatio.Log10 != ba.LikelihoodRatio.Log10 {
		t.Error("likelihood ratio must be symmetric")
	}
}

func TestCompareRequiresFeatures(t *testing.T) {
	if _, err := NewComparator().Compare(nil, nil); err == nil {
		t.Fatal("expected error for nil features")
	}
}

func TestReliabilityPenalties(t *testing.T) {
	mk := func(duration float64) *models.AudioFeatures {
		return &models.AudioFeatures{
			Duration: duration,
			Quality:  models.QualityMetrics{SNR: 25, QualityScore: 1.0, ClippingRatio: 0.01, SilenceRatio: 0.2},
			Prosodic: models.ProsodicFeatures{HNR: 15},
		}
	}

	full, _ := assessReliability(mk(30), mk(30))
	short5, _ := assessReliability(mk(4), mk(30))
	short10, _ := assessReliability(mk(8), mk(20))

	if full != 1.0 {
		t.Errorf("clean long comparison reliability = %f, want 1.0", full)
	}
	// 4s vs 30s trips both the <5s penalty and the ratio penalty.
	if math.Abs(short5-0.7*0.8) > 1e-9 {
		t.Errorf("short comparison reliability = %f, want %f", short5, 0.7*0.8)
	}
	if math.Abs(short10-0.85) > 1e-9 {
		t.Errorf("sub-10s comparison reliability = %f, want 0.85", short10)
	}

	_, limitations := assessReliability(mk(4), mk(30))
	if len(limitations) == 0 {
		t.Error("penalized comparison must explain its limitations")
	}
}

func TestForensicReportSections(t *testing.T) {
	f, _ := NewExtractor().Extract(context.Background(), testClip(150, 12))
	res, _ := NewComparator().Compare(f, f)
	report := NewComparator().GenerateForensicReport("CASE-42", res)

	if report.CaseID != "CASE-42" {
		t.Errorf("case id = %s", report.CaseID)
	}
	for name, text := range map[string]string{
		"executive summary": report.ExecutiveSummary,
		"methodology":       report.Methodology,
		"analysis":          report.Analysis,
		"conclusion":        report.Conclusion,
		"limitations":       report.LimitationsText,
		"certification":     report.Certification,
	} {
		if strings.TrimSpace(text) == "" {
			t.Errorf("report section %s is empty", name)
		}
	}
	if !strings.Contains(report.Certification, f.AudioID) {
		t.Error("certification must name the source hashes")
	}
	if !strings.Contains(report.Analysis, "0.40") {
		t.Error("analysis must disclose the component weights")
	}
}
