package audio

import (
	"errors"
	"math"
	"testing"

	"github.com/veridict/voicelab/internal/utils"
)

// sineWAV builds an in-memory WAV of a pure tone at the analysis rate.
func sineWAV(freq float64, seconds float64) []byte {
	n := int(seconds * AnalysisRate)
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/AnalysisRate)
	}
	return EncodeWAV(samples, AnalysisRate)
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		mime string
		want Format
	}{
		{"wav magic", sineWAV(440, 0.1), "", FormatWAV},
		{"ogg magic", []byte("OggS\x00\x02 padding....."), "", FormatOGG},
		{"flac magic", []byte("fLaC\x00\x00\x00\x22 pad....."), "", FormatFLAC},
		{"id3 mp3", []byte("ID3\x04\x00\x00\x00\x00\x00\x00pad"), "", FormatMP3},
		{"ebml webm", []byte{0x1A, 0x45, 0xDF, 0xA3, 0, 0, 0, 0, 0, 0, 0, 0}, "", FormatWebM},
		{"mime fallback", []byte("not-magic-bytes!"), "audio/mpeg", FormatMP3},
		{"unknown", []byte("not-magic-bytes!"), "text/plain", FormatUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectFormat(tc.data, tc.mime); got != tc.want {
				t.Errorf("DetectFormat = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDecodeWAVRoundTrip(t *testing.T) {
	data := sineWAV(440, 1.0)
	clip, err := Decode(data, "audio/wav")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if clip.SampleRate != AnalysisRate {
		t.Errorf("sample rate = %d, want %d", clip.SampleRate, AnalysisRate)
	}
	if math.Abs(clip.Duration-1.0) > 0.01 {
		t.Errorf("duration = %f, want ~1.0", clip.Duration)
	}
	if clip.AudioID != HashBytes(data) {
		t.Error("AudioID is not the content hash")
	}

	// Signal energy should survive the trip.
	var rms float64
	for _, s := range clip.Samples {
		rms += s * s
	}
	rms = math.Sqrt(rms / float64(len(clip.Samples)))
	if rms < 0.2 || rms > 0.5 {
		t.Errorf("rms = %f, want ~0.35 for a 0.5-amplitude sine", rms)
	}
}

func TestDecodeDeterministicID(t *testing.T) {
	data := sineWAV(220, 0.5)
	a, err := Decode(data, "")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Decode(data, "")
	if err != nil {
		t.Fatal(err)
	}
	if a.AudioID != b.AudioID {
		t.Error("same bytes produced different audio ids")
	}
}

func TestDecodeUnsupported(t *testing.T) {
	_, err := Decode([]byte("definitely not audio bytes at all"), "text/plain")
	if !utils.IsCode(err, utils.CodeUnsupportedFormat) {
		t.Fatalf("want UNSUPPORTED_FORMAT, got %v", err)
	}
	if !errors.Is(err, utils.ErrUnsupportedFormat) {
		t.Error("error should wrap ErrUnsupportedFormat")
	}

	// Recognized container, undecodable codec: same hard failure.
	webm := append([]byte{0x1A, 0x45, 0xDF, 0xA3}, make([]byte, 32)...)
	_, err = Decode(webm, "audio/webm")
	if !utils.IsCode(err, utils.CodeUnsupportedFormat) {
		t.Fatalf("webm: want UNSUPPORTED_FORMAT, got %v", err)
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	b := EncodeWAV(make([]float64, 160), AnalysisRate)
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE header")
	}
	if len(b) != 44+160*2 {
		t.Errorf("len = %d, want %d", len(b), 44+160*2)
	}
}
