package services

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/veridict/voicelab/internal/audio"
	"github.com/veridict/voicelab/internal/engine"
	"github.com/veridict/voicelab/internal/models"
	"github.com/veridict/voicelab/internal/utils"
)

type memCustodyRepo struct {
	recs []models.CustodyRecord
}

func (r *memCustodyRepo) Append(ctx context.Context, rec *models.CustodyRecord) error {
	r.recs = append(r.recs, *rec)
	return nil
}

func (r *memCustodyRepo) ListByOriginal(ctx context.Context, originalID string) ([]models.CustodyRecord, error) {
	var out []models.CustodyRecord
	for _, rec := range r.recs {
		if rec.OriginalID == originalID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memCustodyRepo) GetByEnhanced(ctx context.Context, enhancedID string) (*models.CustodyRecord, error) {
	for _, rec := range r.recs {
		if rec.EnhancedID == enhancedID {
			cp := rec
			return &cp, nil
		}
	}
	return nil, utils.ErrNotFound
}

type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (s *memStore) Upload(ctx context.Context, objectName, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.objects[objectName] = data
	return "mem://" + objectName, nil
}

func (s *memStore) Download(ctx context.Context, objectName string) ([]byte, error) {
	data, ok := s.objects[objectName]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return data, nil
}

// clipFeatureService serves one fixed clip for any audio_id.
type clipFeatureService struct {
	clip *audio.Clip
}

func (f *clipFeatureService) FeaturesFor(ctx context.Context, audioID string) (*models.AudioFeatures, error) {
	return nil, utils.ErrNotFound
}

func (f *clipFeatureService) ClipFor(ctx context.Context, audioID string) (*audio.Clip, error) {
	return f.clip, nil
}

func toneClip(seconds int) *audio.Clip {
	samples := make([]float64, seconds*audio.AnalysisRate)
	for i := range samples {
		ts := float64(i) / audio.AnalysisRate
		samples[i] = 0.3 * math.Sin(2*math.Pi*150*ts)
	}
	return audio.ClipFromSamples(samples, []byte{7, 7, 7}, audio.FormatWAV)
}

func TestVerifyEnhancedDetectsTampering(t *testing.T) {
	custody := &memCustodyRepo{}
	store := newMemStore()
	svc := NewEnhancementService(&clipFeatureService{clip: toneClip(4)}, engine.NewEnhancer(), custody, store)
	ctx := context.Background()

	res, err := svc.Enhance(ctx, "orig-audio", engine.AggressivenessModerate, nil)
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}

	rec, err := svc.VerifyEnhanced(ctx, res.EnhancedID)
	if err != nil {
		t.Fatalf("intact artifact must verify: %v", err)
	}
	if rec.EnhancedHash != res.EnhancedHash {
		t.Errorf("custody hash = %s, want %s", rec.EnhancedHash, res.EnhancedHash)
	}

	// Corrupt one byte of the stored artifact.
	store.objects["enhanced/"+res.EnhancedID+".wav"][100] ^= 0xFF
	if _, err := svc.VerifyEnhanced(ctx, res.EnhancedID); !utils.IsCode(err, utils.CodeIntegrityMismatch) {
		t.Fatalf("tampered artifact error = %v, want integrity mismatch", err)
	}

	if _, err := svc.VerifyEnhanced(ctx, "no-such-artifact"); !utils.IsCode(err, utils.CodeNotFound) {
		t.Errorf("unknown artifact error = %v, want not found", err)
	}
	if _, err := svc.VerifyEnhanced(ctx, ""); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("empty id error = %v, want invalid argument", err)
	}
}
