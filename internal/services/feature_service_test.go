package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/veridict/voicelab/internal/audio"
	"github.com/veridict/voicelab/internal/cache"
	"github.com/veridict/voicelab/internal/engine"
	"github.com/veridict/voicelab/internal/models"
	"github.com/veridict/voicelab/internal/utils"
)

type memCache struct {
	entries map[string][]byte
}

func newMemCache() *memCache { return &memCache{entries: map[string][]byte{}} }

func (m *memCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *memCache) SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memCache) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

// tamperedRecordingService fails every clip load with the hash-mismatch error
// the real service raises when stored evidence no longer matches its hash.
type tamperedRecordingService struct{}

func (tamperedRecordingService) Ingest(ctx context.Context, caseID, fileName, mimeType string, data []byte) (*models.Recording, error) {
	return nil, utils.ErrNotFound
}

func (tamperedRecordingService) Get(ctx context.Context, audioID string) (*models.Recording, error) {
	return nil, utils.ErrNotFound
}

func (tamperedRecordingService) ListByCase(ctx context.Context, caseID string) ([]models.Recording, error) {
	return nil, nil
}

func (tamperedRecordingService) LoadClip(ctx context.Context, audioID string) (*audio.Clip, error) {
	return nil, utils.E(utils.CodeIntegrityMismatch, "RecordingService.LoadClip",
		"stored evidence does not match its recorded hash", utils.ErrIntegrityMismatch)
}

func (tamperedRecordingService) VerifyIntegrity(ctx context.Context, audioID string) error {
	return utils.E(utils.CodeIntegrityMismatch, "RecordingService.VerifyIntegrity",
		"stored evidence does not match its recorded hash", utils.ErrIntegrityMismatch)
}

func TestFeatureCacheEvictedOnIntegrityMismatch(t *testing.T) {
	fc := cache.NewFeatureCache(newMemCache())
	svc := NewFeatureService(tamperedRecordingService{}, engine.NewExtractor(), fc)
	ctx := context.Background()

	fc.Put(ctx, suitableFeatures("tampered-audio"))
	if _, hit := fc.Get(ctx, "tampered-audio"); !hit {
		t.Fatal("cache must hold the seeded features")
	}

	_, err := svc.ClipFor(ctx, "tampered-audio")
	if !utils.IsCode(err, utils.CodeIntegrityMismatch) {
		t.Fatalf("ClipFor error = %v, want integrity mismatch", err)
	}
	if _, hit := fc.Get(ctx, "tampered-audio"); hit {
		t.Error("tampered evidence must evict its cached features")
	}

	// With the cache empty, the feature path surfaces the same failure.
	if _, err := svc.FeaturesFor(ctx, "tampered-audio"); !utils.IsCode(err, utils.CodeIntegrityMismatch) {
		t.Fatalf("FeaturesFor error = %v, want integrity mismatch", err)
	}
}
