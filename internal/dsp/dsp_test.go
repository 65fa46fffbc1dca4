package dsp

import (
	"math"
	"testing"
)

func sine(freq float64, seconds float64, amp float64, sampleRate int) []float64 {
	n := int(seconds * float64(sampleRate))
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func TestHammingWindow(t *testing.T) {
	w := HammingWindow(FrameSize)
	if len(w) != FrameSize {
		t.Fatalf("len = %d, want %d", len(w), FrameSize)
	}
	if math.Abs(w[0]-0.08) > 0.01 {
		t.Errorf("w[0] = %f, want ~0.08", w[0])
	}
	if math.Abs(w[FrameSize/2]-1.0) > 0.02 {
		t.Errorf("center = %f, want ~1.0", w[FrameSize/2])
	}
}

func TestMelConversionRoundTrip(t *testing.T) {
	mel := hzToMel(1000)
	if math.Abs(mel-1000.45) > 1.0 {
		t.Errorf("hzToMel(1000) = %f, want ~1000.45", mel)
	}
	if hz := melToHz(mel); math.Abs(hz-1000) > 0.1 {
		t.Errorf("round trip = %f, want 1000", hz)
	}
}

func TestMFCCExtract(t *testing.T) {
	e := NewMFCCExtractor(16000)
	samples := sine(440, 1.0, 0.5, 16000)

	coeffs := e.Extract(samples)
	want := NumFrames(len(samples))
	if len(coeffs) != want {
		t.Fatalf("frames = %d, want %d", len(coeffs), want)
	}
	for i, row := range coeffs {
		if len(row) != NumMFCC {
			t.Fatalf("frame %d has %d coefficients, want %d", i, len(row), NumMFCC)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("coeffs[%d][%d] not finite", i, j)
			}
		}
	}

	// Determinism: extraction twice over the same input is identical.
	again := e.Extract(samples)
	for i := range coeffs {
		for j := range coeffs[i] {
			if coeffs[i][j] != again[i][j] {
				t.Fatal("extraction is not deterministic")
			}
		}
	}
}

func TestDeltas(t *testing.T) {
	coeffs := [][]float64{{1, 2}, {3, 5}, {6, 9}}
	d := Deltas(coeffs)
	if d[0][0] != 0 || d[0][1] != 0 {
		t.Error("first delta row should be zero")
	}
	if d[1][0] != 2 || d[1][1] != 3 || d[2][0] != 3 || d[2][1] != 4 {
		t.Errorf("unexpected deltas: %v", d)
	}
}

func TestTrackPitchSine(t *testing.T) {
	samples := sine(220, 1.0, 0.5, 16000)
	track := TrackPitch(samples, 16000)
	if len(track) == 0 {
		t.Fatal("no pitch frames")
	}

	voiced := VoicedPitches(track)
	if len(voiced) == 0 {
		t.Fatal("pure tone should be voiced")
	}
	var mean float64
	for _, p := range voiced {
		mean += p
	}
	mean /= float64(len(voiced))
	// Lag quantization at 16kHz allows a few Hz of error at 220Hz.
	if math.Abs(mean-220) > 8 {
		t.Errorf("mean pitch = %f, want ~220", mean)
	}
}

func TestTrackPitchSilence(t *testing.T) {
	track := TrackPitch(make([]float64, 16000), 16000)
	for _, f := range track {
		if f.Pitch != 0 {
			t.Fatal("silence must be unvoiced")
		}
	}
}

func TestSpectralCentroidOfTone(t *testing.T) {
	samples := sine(1000, 0.5, 0.5, 16000)
	w := HammingWindow(FrameSize)
	frame := make([]float64, FFTSize)
	Frame(samples, 1, w, frame)

	sf := AnalyzeSpectrum(PowerSpectrum(frame), 16000)
	if math.Abs(sf.Centroid-1000) > 100 {
		t.Errorf("centroid = %f, want ~1000", sf.Centroid)
	}
	if sf.Flatness > 0.3 {
		t.Errorf("flatness = %f, pure tone should be tonal (low)", sf.Flatness)
	}
}

func TestZeroCrossingRate(t *testing.T) {
	// 1kHz at 16kHz crosses zero 2000 times/s => rate ~ 2000/16000.
	samples := sine(1000, 0.1, 0.5, 16000)
	zcr := ZeroCrossingRate(samples)
	if math.Abs(zcr-0.125) > 0.01 {
		t.Errorf("zcr = %f, want ~0.125", zcr)
	}
}

func TestSilenceAndClipping(t *testing.T) {
	silent := make([]float64, 16000)
	levels := FrameRMSdB(silent)
	if r := SilenceRatio(levels); r != 1 {
		t.Errorf("silence ratio = %f, want 1", r)
	}

	loud := sine(440, 1.0, 0.5, 16000)
	levels = FrameRMSdB(loud)
	if r := SilenceRatio(levels); r != 0 {
		t.Errorf("silence ratio = %f, want 0", r)
	}

	if r := ClippingRatio(loud); r != 0 {
		t.Errorf("clipping = %f, want 0 at 0.5 amplitude", r)
	}
	hot := sine(440, 1.0, 1.2, 16000) // drives samples past full scale
	for i, s := range hot {
		hot[i] = math.Max(-1, math.Min(1, s))
	}
	if r := ClippingRatio(hot); r <= 0 {
		t.Error("clipped signal should report clipping")
	}
}

func TestEstimateSNRSeparatesCleanFromNoisy(t *testing.T) {
	clean := sine(300, 2.0, 0.5, 16000)
	// Half speech, half near-silence gives a clear floor.
	mixed := append(make([]float64, 16000), clean[:16000]...)
	for i := 0; i < 16000; i++ {
		mixed[i] = 0.001 * math.Sin(2*math.Pi*100*float64(i)/16000)
	}
	snr := EstimateSNR(FrameRMSdB(mixed))
	if snr < 20 {
		t.Errorf("snr = %f, want well above 20dB for quiet floor", snr)
	}
}

func TestRelativePerturbation(t *testing.T) {
	if p := relativePerturbation([]float64{100, 100, 100}); p != 0 {
		t.Errorf("constant series perturbation = %f, want 0", p)
	}
	p := relativePerturbation([]float64{100, 110, 100, 110})
	if p <= 0 {
		t.Error("alternating series should perturb")
	}
}

func TestPauseRatioExcludesEdges(t *testing.T) {
	// silent | speech | silent | speech | silent
	levels := []float64{-80, -80, -10, -10, -80, -80, -10, -10, -80, -80}
	r := PauseRatio(levels)
	// span is indexes 2..7: 2 silent of 6
	if math.Abs(r-2.0/6.0) > 1e-9 {
		t.Errorf("pause ratio = %f, want %f", r, 2.0/6.0)
	}
}
