package engine

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/veridict/voicelab/internal/audio"
	"github.com/veridict/voicelab/internal/models"
)

func TestDiarizeSilenceReportsZeroSpeakers(t *testing.T) {
	silent := audio.ClipFromSamples(make([]float64, 5*audio.AnalysisRate), []byte{1}, audio.FormatWAV)
	res, err := NewDiarizer(NewExtractor()).Diarize(context.Background(), silent, nil)
	if err != nil {
		t.Fatalf("Diarize: %v", err)
	}
	if res.NumSpeakers != 0 || len(res.Segments) != 0 {
		t.Errorf("silence diarized as %d speakers, %d segments", res.NumSpeakers, len(res.Segments))
	}
	if len(res.Warnings) == 0 {
		t.Error("silence must carry an explanatory warning")
	}
}

func TestDiarizeSpeechYieldsOrderedSegments(t *testing.T) {
	clip := testClip(150, 8)
	res, err := NewDiarizer(NewExtractor()).Diarize(context.Background(), clip, nil)
	if err != nil {
		t.Fatalf("Diarize: %v", err)
	}
	if res.NumSpeakers < 1 {
		t.Fatal("continuous speech must yield at least one speaker")
	}
	for i, s := range res.Segments {
		if s.StartTime >= s.EndTime {
			t.Errorf("segment %d: start %.2f >= end %.2f", i, s.StartTime, s.EndTime)
		}
		if i > 0 && s.StartTime < res.Segments[i-1].EndTime {
			t.Errorf("segment %d overlaps its predecessor", i)
		}
		if s.Confidence <= 0 || s.Confidence > 1 {
			t.Errorf("segment %d confidence out of range: %f", i, s.Confidence)
		}
	}
	var talk float64
	for _, st := range res.Stats {
		talk += st.TalkTime
		if st.TurnCount < 1 {
			t.Error("stats must count at least one turn per speaker")
		}
	}
	if talk <= 0 {
		t.Error("stats must account for talk time")
	}
}

func TestDiarizeDeterministic(t *testing.T) {
	clip := testClip(150, 8)
	d := NewDiarizer(NewExtractor())
	a, _ := d.Diarize(context.Background(), clip, nil)
	b, _ := d.Diarize(context.Background(), clip, nil)
	if a.NumSpeakers != b.NumSpeakers || len(a.Segments) != len(b.Segments) {
		t.Fatal("diarization must be deterministic")
	}
	for i := range a.Segments {
		if a.Segments[i] != b.Segments[i] {
			t.Fatal("segments differ between runs")
		}
	}
}

func TestEmotionScoresAreDistributions(t *testing.T) {
	clip := testClip(150, 8)
	summary, err := NewEmotionAnalyzer(NewExtractor()).Analyze(context.Background(), clip)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(summary.Segments) == 0 {
		t.Fatal("no emotion segments")
	}
	for i, seg := range summary.Segments {
		var total float64
		for _, p := range seg.Scores {
			if p < 0 {
				t.Fatalf("segment %d has negative probability", i)
			}
			total += p
		}
		if math.Abs(total-1.0) > 1e-9 {
			t.Errorf("segment %d scores sum to %f, want 1", i, total)
		}
		if seg.Scores[seg.PrimaryEmotion] < 1.0/7 {
			t.Errorf("segment %d primary emotion is not a mode", i)
		}
		if seg.Arousal < -1 || seg.Arousal > 1 || seg.Valence < -1 || seg.Valence > 1 {
			t.Errorf("segment %d arousal/valence out of range", i)
		}
	}
}

func TestEmotionVolatilityFormula(t *testing.T) {
	clip := testClip(150, 8)
	summary, _ := NewEmotionAnalyzer(NewExtractor()).Analyze(context.Background(), clip)
	want := float64(len(summary.EmotionChanges)) / float64(len(summary.Segments)+1)
	if summary.Volatility != want {
		t.Errorf("volatility = %f, want %f", summary.Volatility, want)
	}
	if len(summary.DominantEmotions) == 0 {
		t.Error("summary must name dominant emotions")
	}
	if summary.Summary == "" {
		t.Error("summary text missing")
	}
}

func TestEmotionJitterShiftsScores(t *testing.T) {
	smooth := models.FeatureWindow{Pitch: 150, PitchStd: 5, Intensity: -25, Jitter: 0.005}
	rough := smooth
	rough.Jitter = 0.04

	a := scoreWindow(smooth, 150, -25)
	b := scoreWindow(rough, 150, -25)

	// Rough phonation moves probability mass toward the high-arousal
	// negative emotions and away from neutral.
	if b.Scores[models.EmotionAnger]+b.Scores[models.EmotionFear] <=
		a.Scores[models.EmotionAnger]+a.Scores[models.EmotionFear] {
		t.Error("elevated jitter must raise anger/fear scores")
	}
	if b.Scores[models.EmotionNeutral] >= a.Scores[models.EmotionNeutral] {
		t.Error("elevated jitter must lower the neutral score")
	}
}

func TestEmotionPitchVariabilityFromWindowSpread(t *testing.T) {
	steady := models.FeatureWindow{Pitch: 150, PitchStd: 3, Intensity: -25, Jitter: 0.005}
	varied := steady
	varied.PitchStd = 45

	a := scoreWindow(steady, 150, -25)
	b := scoreWindow(varied, 150, -25)
	if b.Scores[models.EmotionNeutral] >= a.Scores[models.EmotionNeutral] {
		t.Error("wide pitch spread must lower the neutral score")
	}
	if b.Scores[models.EmotionAnxiety] <= a.Scores[models.EmotionAnxiety] {
		t.Error("wide pitch spread must raise the anxiety score")
	}
}

func TestEmotionIntensityCombination(t *testing.T) {
	cases := []struct {
		name       string
		pitchLevel float64
		pitchCV    float64
		delta      float64
		jitter     float64
		want       models.IntensityLevel
	}{
		{"calm baseline", 1.0, 0.02, 0, 0.005, models.IntensityModerate},
		{"all dimensions elevated", 1.5, 0.4, 8, 0.04, models.IntensityVeryHigh},
		{"flat quiet speech", 0.6, 0.0, -9, 0.0, models.IntensityVeryLow},
	}
	for _, c := range cases {
		if got := intensityBucket(c.pitchLevel, c.pitchCV, c.delta, c.jitter); got != c.want {
			t.Errorf("%s: intensity = %s, want %s", c.name, got, c.want)
		}
	}
}

func TestEmotionCarriesCulturalCaveat(t *testing.T) {
	clip := testClip(150, 4)
	summary, _ := NewEmotionAnalyzer(NewExtractor()).Analyze(context.Background(), clip)
	found := false
	for _, l := range summary.Limitations {
		if strings.Contains(l, "cultures") {
			found = true
		}
	}
	if !found {
		t.Error("emotion output must carry the interpretation caveat")
	}
}

func TestStressAnalysisCarriesDisclaimer(t *testing.T) {
	clip := testClip(150, 8)
	res, err := NewStressDetector(NewExtractor()).Analyze(context.Background(), clip, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	found := false
	for _, l := range res.Limitations {
		if l == StressDisclaimer {
			found = true
		}
	}
	if !found {
		t.Fatal("stress output must carry the literal validity disclaimer")
	}
	if res.BaselineSource != "reference_constants" {
		t.Errorf("baseline source = %s", res.BaselineSource)
	}
	if res.OverallScore < 0 || res.OverallScore > 1 {
		t.Errorf("overall score out of range: %f", res.OverallScore)
	}
	if res.OverallLevel == "" {
		t.Error("overall level missing")
	}
}

func TestStressWithSuppliedBaseline(t *testing.T) {
	clip := testClip(150, 8)
	baseline, _ := NewExtractor().Extract(context.Background(), testClip(150, 8))
	res, err := NewStressDetector(NewExtractor()).Analyze(context.Background(), clip, baseline)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.BaselineSource != "supplied" {
		t.Errorf("baseline source = %s, want supplied", res.BaselineSource)
	}
	// Comparing a recording against itself as baseline should read calm.
	if res.OverallLevel == "severe" {
		t.Errorf("self-baseline stress level = %s", res.OverallLevel)
	}
}

func TestStressLevels(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0.1, "minimal"},
		{0.3, "low"},
		{0.5, "moderate"},
		{0.7, "high"},
		{0.9, "severe"},
	}
	for _, c := range cases {
		if got := string(stressLevel(c.score)); got != c.want {
			t.Errorf("stressLevel(%.1f) = %s, want %s", c.score, got, c.want)
		}
	}
}
