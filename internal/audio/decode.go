package audio

import (
	"bytes"
	"fmt"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"
	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/veridict/voicelab/internal/utils"
)

// DetectFormat sniffs the container from magic bytes, falling back to the
// declared MIME type. Detection recognizing a format does not guarantee the
// codec is decodable (see Decode for m4a/webm).
func DetectFormat(data []byte, declaredMime string) Format {
	if len(data) >= 12 {
		switch {
		case bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
			return FormatWAV
		case bytes.Equal(data[0:4], []byte("OggS")):
			return FormatOGG
		case bytes.Equal(data[0:4], []byte("fLaC")):
			return FormatFLAC
		case bytes.Equal(data[4:8], []byte("ftyp")):
			return FormatM4A
		case bytes.Equal(data[0:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
			return FormatWebM
		case bytes.Equal(data[0:3], []byte("ID3")):
			return FormatMP3
		case data[0] == 0xFF && data[1]&0xE0 == 0xE0:
			return FormatMP3
		}
	}

	switch declaredMime {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return FormatWAV
	case "audio/mpeg", "audio/mp3":
		return FormatMP3
	case "audio/ogg", "application/ogg":
		return FormatOGG
	case "audio/flac", "audio/x-flac":
		return FormatFLAC
	case "audio/mp4", "audio/x-m4a":
		return FormatM4A
	case "audio/webm", "video/webm":
		return FormatWebM
	}
	return FormatUnknown
}

// byteReadSeekCloser adapts a byte slice to every reader shape the decoders
// want (io.Reader, io.ReadSeeker, io.ReadCloser).
type byteReadSeekCloser struct{ *bytes.Reader }

func (byteReadSeekCloser) Close() error { return nil }

func newByteReader(data []byte) byteReadSeekCloser {
	return byteReadSeekCloser{bytes.NewReader(data)}
}

// Decode turns recording bytes into an analysis-ready Clip: decoded, downmixed
// to mono, and resampled to AnalysisRate. Unrecognized bytes and recognized
// containers without a decodable codec fail hard with ErrUnsupportedFormat.
func Decode(data []byte, declaredMime string) (*Clip, error) {
	const op = "audio.Decode"

	if len(data) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "empty audio payload", nil)
	}

	format := DetectFormat(data, declaredMime)

	var (
		streamer beep.StreamSeekCloser
		bf       beep.Format
		err      error
	)
	switch format {
	case FormatWAV:
		streamer, bf, err = wav.Decode(newByteReader(data))
	case FormatMP3:
		streamer, bf, err = mp3.Decode(newByteReader(data))
	case FormatOGG:
		streamer, bf, err = vorbis.Decode(newByteReader(data))
	case FormatFLAC:
		streamer, bf, err = flac.Decode(newByteReader(data))
	case FormatM4A, FormatWebM:
		return nil, utils.E(utils.CodeUnsupportedFormat, op,
			fmt.Sprintf("%s container recognized but its codec has no decoder here; transcode to wav or flac", format),
			utils.ErrUnsupportedFormat)
	default:
		return nil, utils.E(utils.CodeUnsupportedFormat, op, "unrecognized audio format", utils.ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, utils.E(utils.CodeUnsupportedFormat, op, fmt.Sprintf("decode %s failed", format), err)
	}
	defer streamer.Close()

	mono, srcRate, err := drainMono(streamer, bf)
	if err != nil {
		return nil, utils.E(utils.CodeUnsupportedFormat, op, fmt.Sprintf("read %s stream failed", format), err)
	}
	if len(mono) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "no audio samples in file", nil)
	}

	if srcRate != AnalysisRate {
		mono, err = resampleMono(mono, srcRate, AnalysisRate)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "resample failed", err)
		}
	}

	return &Clip{
		AudioID:    HashBytes(data),
		Samples:    mono,
		SampleRate: AnalysisRate,
		Format:     format,
		SourceSize: int64(len(data)),
		Duration:   float64(len(mono)) / float64(AnalysisRate),
	}, nil
}

// drainMono pulls the full stream and averages channels into mono float64.
func drainMono(s beep.StreamSeekCloser, bf beep.Format) ([]float64, int, error) {
	var mono []float64
	buf := make([][2]float64, 2048)
	for {
		n, ok := s.Stream(buf)
		for i := 0; i < n; i++ {
			mono = append(mono, (buf[i][0]+buf[i][1])/2)
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, 0, err
	}
	return mono, int(bf.SampleRate), nil
}

// resampleMono converts the sample rate with the same pure-Go resampler the
// capture side uses, so enrollment and probe audio go through one pipeline.
func resampleMono(in []float64, fromRate, toRate int) ([]float64, error) {
	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(fromRate),
		OutputRate: float64(toRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, err
	}
	out, err := r.Process(in)
	if err != nil {
		return nil, err
	}
	return out, nil
}
