package models

// AudioFeatures is the complete acoustic profile of one recording. It is
// immutable once extracted: the same input bytes always produce the same
// values, and AudioID/ContentHash are derived from the bytes alone.
type AudioFeatures struct {
	AudioID     string  `json:"audio_id"` // sha256 of the file bytes
	Duration    float64 `json:"duration"` // seconds
	SampleRate  int     `json:"sample_rate"`
	Format      string  `json:"format"`
	ContentHash string  `json:"content_hash"`

	MFCC     MFCCFeatures     `json:"mfcc"`
	Spectral SpectralFeatures `json:"spectral"`
	Prosodic ProsodicFeatures `json:"prosodic"`
	Quality  QualityMetrics   `json:"quality"`
}

// MFCCFeatures holds the cepstral coefficient matrix and frame-to-frame deltas.
type MFCCFeatures struct {
	Coefficients    [][]float64 `json:"coefficients"` // [frame][coefficient]
	Deltas          [][]float64 `json:"deltas"`
	NumCoefficients int         `json:"num_coefficients"`
}

// SpectralFeatures are per-frame series over the whole recording.
type SpectralFeatures struct {
	Centroid         []float64 `json:"centroid"`  // Hz
	Bandwidth        []float64 `json:"bandwidth"` // Hz
	Rolloff          []float64 `json:"rolloff"`   // Hz, 85% energy point
	Flatness         []float64 `json:"flatness"`  // 0..1
	ZeroCrossingRate []float64 `json:"zero_crossing_rate"`
}

// ProsodicFeatures cover pitch, loudness, timing and voice quality.
type ProsodicFeatures struct {
	Pitch      []float64 `json:"pitch"` // Hz per voiced frame, 0 = unvoiced
	PitchMean  float64   `json:"pitch_mean"`
	PitchStd   float64   `json:"pitch_std"`
	PitchRange float64   `json:"pitch_range"`

	Intensity     []float64 `json:"intensity"` // dBFS per frame
	IntensityMean float64   `json:"intensity_mean"`

	SpeechRate float64 `json:"speech_rate"` // syllables per second
	PauseRatio float64 `json:"pause_ratio"` // 0..1

	Jitter  float64 `json:"jitter"`  // cycle-to-cycle pitch perturbation, ratio
	Shimmer float64 `json:"shimmer"` // cycle-to-cycle amplitude perturbation, ratio
	HNR     float64 `json:"hnr"`     // harmonics-to-noise ratio, dB
}

// QualityMetrics describe how usable the recording is for biometric work.
type QualityMetrics struct {
	SNR           float64 `json:"snr"` // dB
	ClippingRatio float64 `json:"clipping_ratio"`
	SilenceRatio  float64 `json:"silence_ratio"`
	QualityScore  float64 `json:"quality_score"` // 0..1, multiplicative penalty model
}

// FeatureWindow is a time-sliced summary used by timeline analyses. It is
// derived from its parent AudioFeatures and never persisted on its own.
type FeatureWindow struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`

	MFCCMean []float64 `json:"mfcc_mean"`
	MFCCStd  []float64 `json:"mfcc_std"`

	Pitch            float64 `json:"pitch"`
	PitchStd         float64 `json:"pitch_std"`
	Intensity        float64 `json:"intensity"`
	SpectralCentroid float64 `json:"spectral_centroid"`
	ZeroCrossingRate float64 `json:"zero_crossing_rate"`
	Jitter           float64 `json:"jitter"`
}

// CompactSignature is the subset of features used for speaker comparison and
// enrollment averaging. Numeric fields average component-wise; vector fields
// average element-wise.
type CompactSignature struct {
	MFCCMean []float64 `json:"mfcc_mean"`
	MFCCStd  []float64 `json:"mfcc_std"`

	PitchMean  float64 `json:"pitch_mean"`
	PitchStd   float64 `json:"pitch_std"`
	SpeechRate float64 `json:"speech_rate"`

	Jitter  float64 `json:"jitter"`
	Shimmer float64 `json:"shimmer"`
	HNR     float64 `json:"hnr"`

	SpectralCentroidMean float64 `json:"spectral_centroid_mean"`
}
