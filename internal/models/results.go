package models

import "time"

// Result types are immutable value objects: constructed once by the engine,
// never mutated afterwards. All normalized scores are in [0,1].

// SpeakerMatch is one ranked candidate from 1:N identification.
type SpeakerMatch struct {
	ProfileID   string  `json:"profile_id"`
	DisplayName string  `json:"display_name"`
	Similarity  float64 `json:"similarity"`
}

// IdentificationResult is the outcome of matching a recording against every
// enrolled profile.
type IdentificationResult struct {
	AudioID    string         `json:"audio_id"`
	Candidates []SpeakerMatch `json:"candidates"` // top 5, descending
	// BestMatch is set only when the top candidate clears the
	// identification threshold.
	BestMatch  *SpeakerMatch `json:"best_match,omitempty"`
	Known      bool          `json:"known"`
	Threshold  float64       `json:"threshold"`
	Warnings   []string      `json:"warnings,omitempty"`
	AnalyzedAt time.Time     `json:"analyzed_at"`
}

// VerificationResult is the outcome of a 1:1 claim check.
type VerificationResult struct {
	AudioID    string    `json:"audio_id"`
	ProfileID  string    `json:"profile_id"`
	Similarity float64   `json:"similarity"`
	Threshold  float64   `json:"threshold"`
	Accepted   bool      `json:"accepted"`
	Warnings   []string  `json:"warnings,omitempty"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// SpeakerSegment is one contiguous stretch of speech attributed to a speaker.
// Segments for one recording are non-overlapping, ordered, and satisfy
// StartTime < EndTime.
type SpeakerSegment struct {
	SpeakerLabel string  `json:"speaker_label"`
	StartTime    float64 `json:"start_time"`
	EndTime      float64 `json:"end_time"`
	Confidence   float64 `json:"confidence"`
}

// SpeakerStats aggregates talk time per diarized speaker.
type SpeakerStats struct {
	SpeakerLabel string  `json:"speaker_label"`
	TalkTime     float64 `json:"talk_time"` // seconds
	TurnCount    int     `json:"turn_count"`
}

// DiarizationResult answers "who spoke when".
type DiarizationResult struct {
	AudioID     string           `json:"audio_id"`
	NumSpeakers int              `json:"num_speakers"`
	Segments    []SpeakerSegment `json:"segments"`
	Stats       []SpeakerStats   `json:"stats"`
	Warnings    []string         `json:"warnings,omitempty"`
	AnalyzedAt  time.Time        `json:"analyzed_at"`
}

// EmotionType enumerates the fixed acoustic emotion profiles.
type EmotionType string

const (
	EmotionNeutral   EmotionType = "neutral"
	EmotionHappiness EmotionType = "happiness"
	EmotionSadness   EmotionType = "sadness"
	EmotionAnger     EmotionType = "anger"
	EmotionFear      EmotionType = "fear"
	EmotionAnxiety   EmotionType = "anxiety"
)

// IntensityLevel is the five-step ordinal loudness/activation bucket.
type IntensityLevel string

const (
	IntensityVeryLow  IntensityLevel = "very_low"
	IntensityLow      IntensityLevel = "low"
	IntensityModerate IntensityLevel = "moderate"
	IntensityHigh     IntensityLevel = "high"
	IntensityVeryHigh IntensityLevel = "very_high"
)

// EmotionSegment is one analysis window scored against every emotion profile.
type EmotionSegment struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`

	// Scores is an L1-normalized probability distribution over emotions.
	Scores         map[EmotionType]float64 `json:"scores"`
	PrimaryEmotion EmotionType             `json:"primary_emotion"`
	Intensity      IntensityLevel          `json:"intensity"`
	Arousal        float64                 `json:"arousal"` // -1..1
	Valence        float64                 `json:"valence"` // -1..1
}

// EmotionSummary is the full emotional timeline plus a templated report.
type EmotionSummary struct {
	AudioID          string           `json:"audio_id"`
	Segments         []EmotionSegment `json:"segments"`
	DominantEmotions []EmotionType    `json:"dominant_emotions"`
	EmotionChanges   []float64        `json:"emotion_changes"` // change-point times, seconds
	Volatility       float64          `json:"volatility"`      // changes / (segments+1)
	MeanArousal      float64          `json:"mean_arousal"`
	MeanValence      float64          `json:"mean_valence"`
	Summary          string           `json:"summary"`
	Limitations      []string         `json:"limitations"`
	AnalyzedAt       time.Time        `json:"analyzed_at"`
}

// StressLevel is the five-step ordinal overall stress bucket.
type StressLevel string

const (
	StressMinimal  StressLevel = "minimal"
	StressLow      StressLevel = "low"
	StressModerate StressLevel = "moderate"
	StressHigh     StressLevel = "high"
	StressSevere   StressLevel = "severe"
)

// StressSegment is one windowed stress measurement.
type StressSegment struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`

	CognitiveLoad   float64 `json:"cognitive_load"`
	EmotionalStress float64 `json:"emotional_stress"`
	PhysicalTension float64 `json:"physical_tension"`
	OverallScore    float64 `json:"overall_score"`

	Level StressLevel `json:"level"`
}

// DeceptionIndicator is an explicitly non-validated observation. Every result
// carrying these MUST also carry the validity disclaimer.
type DeceptionIndicator struct {
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	Kind        string  `json:"kind"`
	Description string  `json:"description"`
}

// VoiceStressAnalysis is the full stress timeline and summary.
type VoiceStressAnalysis struct {
	AudioID string `json:"audio_id"`

	Segments     []StressSegment `json:"segments"`
	OverallScore float64         `json:"overall_score"`
	OverallLevel StressLevel     `json:"overall_level"`

	MicroTremorDetected bool                 `json:"micro_tremor_detected"`
	DeceptionIndicators []DeceptionIndicator `json:"deception_indicators"`

	BaselineSource string `json:"baseline_source"` // "supplied" or "reference_constants"
	Summary        string `json:"summary"`

	// Limitations always contains the mandatory validity disclaimer; its
	// absence is a defect, not a style issue.
	Limitations []string  `json:"limitations"`
	AnalyzedAt  time.Time `json:"analyzed_at"`
}

// QualityLevel is the five-step recording quality enum.
type QualityLevel string

const (
	QualityExcellent QualityLevel = "excellent"
	QualityGood      QualityLevel = "good"
	QualityFair      QualityLevel = "fair"
	QualityPoor      QualityLevel = "poor"
	QualityUnusable  QualityLevel = "unusable"
)

// AudioQuality is the enhancer's assessment of a recording.
type AudioQuality struct {
	AudioID string `json:"audio_id"`

	SNR           float64 `json:"snr"`
	ClippingRatio float64 `json:"clipping_ratio"`
	SilenceRatio  float64 `json:"silence_ratio"`
	DynamicRange  float64 `json:"dynamic_range"` // dB
	FreqRangeLow  float64 `json:"freq_range_low"`
	FreqRangeHigh float64 `json:"freq_range_high"`

	Level           QualityLevel `json:"level"`
	Issues          []string     `json:"issues"`
	Recommendations []string     `json:"recommendations"`
}

// NoiseProfile describes detected noise characteristics.
type NoiseProfile struct {
	AudioID string `json:"audio_id"`

	HumDetected      bool    `json:"hum_detected"`
	HumFrequency     float64 `json:"hum_frequency"` // 50 or 60 Hz when detected
	WhiteNoise       bool    `json:"white_noise"`
	ReverbDetected   bool    `json:"reverb_detected"`
	NoiseFloor       float64 `json:"noise_floor"` // dBFS
	Stationary       bool    `json:"stationary"`
	RecommendedSteps []string `json:"recommended_steps"`
}

// AppliedFilter records one enhancement step with its parameters.
type AppliedFilter struct {
	Name       string             `json:"name"`
	Parameters map[string]float64 `json:"parameters"`
}

// EnhancementResult documents a hash-verified enhancement. The source file is
// never mutated; the enhanced artifact is a new object.
type EnhancementResult struct {
	OriginalID   string `json:"original_id"`
	EnhancedID   string `json:"enhanced_id"`
	OriginalHash string `json:"original_hash"`
	EnhancedHash string `json:"enhanced_hash"`
	ArtifactPath string `json:"artifact_path"`

	Applied     []AppliedFilter `json:"applied"`
	Methodology string          `json:"methodology"`
	Warnings    []string        `json:"warnings,omitempty"`
	ProcessedAt time.Time       `json:"processed_at"`
}

// ConclusionStrength is the categorical forensic conclusion.
type ConclusionStrength string

const (
	ConclusionIdentification    ConclusionStrength = "identification"
	ConclusionStrongSupport     ConclusionStrength = "strong_support"
	ConclusionModerateSupport   ConclusionStrength = "moderate_support"
	ConclusionInconclusive      ConclusionStrength = "inconclusive"
	ConclusionModerateExclusion ConclusionStrength = "moderate_exclusion"
	ConclusionStrongExclusion   ConclusionStrength = "strong_exclusion"
	ConclusionExclusion         ConclusionStrength = "exclusion"
)

// SimilarityScore carries the weighted component breakdown of a comparison.
type SimilarityScore struct {
	Overall float64 `json:"overall"`

	MFCC         float64 `json:"mfcc"`
	Pitch        float64 `json:"pitch"`
	Spectral     float64 `json:"spectral"`
	VoiceQuality float64 `json:"voice_quality"`
	Prosodic     float64 `json:"prosodic"`
}

// LikelihoodRatio is the forensic scoring unit: log10 of the evidence ratio
// under same-speaker vs different-speaker hypotheses.
type LikelihoodRatio struct {
	Log10 float64 `json:"log10"`
	// Verbal is one of the 9 ordered categories of the verbal scale.
	Verbal string `json:"verbal"`
}

// ComparisonResult is the pairwise forensic voice comparison output.
type ComparisonResult struct {
	AudioIDA string `json:"audio_id_a"`
	AudioIDB string `json:"audio_id_b"`

	Similarity      SimilarityScore    `json:"similarity"`
	LikelihoodRatio LikelihoodRatio    `json:"likelihood_ratio"`
	Conclusion      ConclusionStrength `json:"conclusion"`
	Reliability     float64            `json:"reliability"` // 0..1

	Limitations []string  `json:"limitations"`
	AnalyzedAt  time.Time `json:"analyzed_at"`
}

// ForensicReport is the assembled, fully templated report. Every sentence is
// a fill-in of computed numbers; no free-form generation.
type ForensicReport struct {
	CaseID     string           `json:"case_id"`
	Comparison ComparisonResult `json:"comparison"`

	ExecutiveSummary string `json:"executive_summary"`
	Methodology      string `json:"methodology"`
	Analysis         string `json:"analysis"`
	Conclusion       string `json:"conclusion"`
	LimitationsText  string `json:"limitations_text"`
	Certification    string `json:"certification"`

	GeneratedAt time.Time `json:"generated_at"`
}
