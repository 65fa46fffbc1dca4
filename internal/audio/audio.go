// Package audio turns uploaded recording bytes into the engine's analysis
// form: mono float64 samples at a fixed 16 kHz analysis rate, tagged with the
// content-hash identity every downstream result refers back to.
package audio

import (
	"crypto/sha256"
	"encoding/hex"
)

// AnalysisRate is the sample rate all recordings are resampled to before
// feature extraction. Matching the enrollment and probe rates keeps MFCC
// comparisons meaningful.
const AnalysisRate = 16000

// Format identifies a recognized container/codec.
type Format string

const (
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatOGG     Format = "ogg"
	FormatFLAC    Format = "flac"
	FormatM4A     Format = "m4a"
	FormatWebM    Format = "webm"
	FormatUnknown Format = "unknown"
)

// Clip is a decoded, analysis-ready recording. Immutable: the engine never
// writes into Samples.
type Clip struct {
	AudioID    string  // sha256 hex of the source bytes
	Samples    []float64 // mono, AnalysisRate
	SampleRate int
	Format     Format
	SourceSize int64
	Duration   float64 // seconds
}

// HashBytes returns the canonical content hash used for audio_id and
// chain-of-custody checks. Same bytes always produce the same id.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ClipFromSamples builds a Clip directly from mono samples at AnalysisRate.
// Used by the enhancer after filtering and by tests synthesizing signals.
func ClipFromSamples(samples []float64, sourceBytes []byte, format Format) *Clip {
	return &Clip{
		AudioID:    HashBytes(sourceBytes),
		Samples:    samples,
		SampleRate: AnalysisRate,
		Format:     format,
		SourceSize: int64(len(sourceBytes)),
		Duration:   float64(len(samples)) / float64(AnalysisRate),
	}
}
