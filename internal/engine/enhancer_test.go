package engine

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/veridict/voicelab/internal/audio"
	"github.com/veridict/voicelab/internal/models"
)

func TestAssessQualityLevels(t *testing.T) {
	silent := audio.ClipFromSamples(make([]float64, 5*audio.AnalysisRate), []byte{1}, audio.FormatWAV)
	if q := NewEnhancer().AssessQuality(silent); q.Level != models.QualityUnusable {
		t.Errorf("silence assessed as %s, want unusable", q.Level)
	}

	clip := testClip(150, 8)
	q := NewEnhancer().AssessQuality(clip)
	if q.Level == models.QualityUnusable {
		t.Error("clean speech assessed as unusable")
	}
	if q.FreqRangeHigh <= q.FreqRangeLow {
		t.Errorf("frequency range %f..%f", q.FreqRangeLow, q.FreqRangeHigh)
	}
}

func TestAnalyzeNoiseDetectsHum(t *testing.T) {
	n := 8 * audio.AnalysisRate
	samples := make([]float64, n)
	for i := range samples {
		ts := float64(i) / audio.AnalysisRate
		samples[i] = 0.25*math.Sin(2*math.Pi*50*ts) + 0.02*math.Sin(2*math.Pi*700*ts)
	}
	clip := audio.ClipFromSamples(samples, []byte{2}, audio.FormatWAV)

	np := NewEnhancer().AnalyzeNoise(clip)
	if !np.HumDetected || np.HumFrequency != 50 {
		t.Errorf("hum not detected: %+v", np)
	}
	foundNotch := false
	for _, s := range np.RecommendedSteps {
		if s == "notch_hum" {
			foundNotch = true
		}
	}
	if !foundNotch {
		t.Error("hum must recommend the notch filter")
	}
}

func TestEnhanceNeverMutatesSource(t *testing.T) {
	clip := testClip(150, 5)
	before := append([]float64{}, clip.Samples...)

	res, enhanced, err := NewEnhancer().Enhance(context.Background(), clip, AggressivenessModerate, nil)
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	for i := range before {
		if clip.Samples[i] != before[i] {
			t.Fatal("source samples were mutated")
		}
	}
	if len(enhanced) == 0 {
		t.Fatal("no enhanced artifact produced")
	}
	if res.OriginalHash != clip.AudioID {
		t.Error("original hash must identify the source clip")
	}
	if res.EnhancedHash != audio.HashBytes(enhanced) {
		t.Error("enhanced hash must match the artifact bytes")
	}
	if res.EnhancedHash == res.OriginalHash {
		t.Error("enhanced artifact must be a distinct object")
	}
}

func TestEnhanceDeterministic(t *testing.T) {
	clip := testClip(150, 5)
	e := NewEnhancer()
	a, bytesA, _ := e.Enhance(context.Background(), clip, AggressivenessModerate, nil)
	b, bytesB, _ := e.Enhance(context.Background(), clip, AggressivenessModerate, nil)
	if a.EnhancedHash != b.EnhancedHash || len(bytesA) != len(bytesB) {
		t.Fatal("enhancement must be deterministic")
	}
}

func TestEnhanceRespectsAggressivenessBudget(t *testing.T) {
	clip := testClip(150, 5)
	res, _, err := NewEnhancer().Enhance(context.Background(), clip, AggressivenessMinimal, nil)
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if len(res.Applied) > 1 {
		t.Errorf("minimal level applied %d filters", len(res.Applied))
	}

	res, _, _ = NewEnhancer().Enhance(context.Background(), clip, AggressivenessModerate, nil)
	if len(res.Applied) > 3 {
		t.Errorf("moderate level applied %d filters", len(res.Applied))
	}
	for _, f := range res.Applied {
		if f.Name == "" || len(f.Parameters) == 0 {
			t.Errorf("applied filter missing documentation: %+v", f)
		}
	}
}

func TestEnhanceExplicitFiltersApplyInOrder(t *testing.T) {
	clip := testClip(150, 5)
	res, enhanced, err := NewEnhancer().Enhance(context.Background(), clip,
		AggressivenessMinimal, []string{"noise_gate", "highpass", "normalize"})
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	// An explicit chain bypasses the derivation and the budget.
	if len(res.Applied) != 3 {
		t.Fatalf("applied %d filters, want 3", len(res.Applied))
	}
	for i, want := range []string{"noise_gate", "highpass", "normalize"} {
		if res.Applied[i].Name != want {
			t.Errorf("filter %d = %s, want %s", i, res.Applied[i].Name, want)
		}
	}
	if len(enhanced) == 0 {
		t.Fatal("no enhanced artifact produced")
	}
	if res.EnhancedHash != audio.HashBytes(enhanced) {
		t.Error("enhanced hash must match the artifact bytes")
	}
}

func TestEnhanceRejectsUnknownFilter(t *testing.T) {
	clip := testClip(150, 5)
	_, _, err := NewEnhancer().Enhance(context.Background(), clip,
		AggressivenessModerate, []string{"highpass", "deess"})
	if err == nil {
		t.Fatal("unknown filter name must fail")
	}
}

func TestEnhanceMethodologyNamesEveryStep(t *testing.T) {
	clip := testClip(150, 5)
	res, _, _ := NewEnhancer().Enhance(context.Background(), clip, AggressivenessAggressive, nil)
	for _, f := range res.Applied {
		if !strings.Contains(res.Methodology, f.Name) {
			t.Errorf("methodology omits %s", f.Name)
		}
	}
	if !strings.Contains(res.Methodology, "SHA-256") {
		t.Error("methodology must state the hashing discipline")
	}
}

func TestNormalizePeak(t *testing.T) {
	samples := []float64{0.1, -0.5, 0.25}
	normalizePeak(samples, 0.95)
	var peak float64
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if math.Abs(peak-0.95) > 1e-9 {
		t.Errorf("peak = %f, want 0.95", peak)
	}
}

func TestNoiseGateAttenuatesQuietStretch(t *testing.T) {
	// 1s of speech followed by 1s of low-level noise.
	speech := voiceLike(150, 1)
	noise := make([]float64, audio.AnalysisRate)
	for i := range noise {
		noise[i] = 0.001 * math.Sin(2*math.Pi*1000*float64(i)/audio.AnalysisRate)
	}
	samples := append(speech, noise...)
	before := rms(samples[len(speech):])
	noiseGate(samples, -45, -20)
	after := rms(samples[len(speech):])
	if after >= before {
		t.Errorf("gate did not attenuate: %f -> %f", before, after)
	}
}

func rms(s []float64) float64 {
	var sum float64
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(s)))
}
