package cache

import (
	"context"
	"time"

	"github.com/veridict/voicelab/internal/models"
)

// Feature extraction is the expensive step of every analysis, and features
// are immutable per content hash, so they cache safely for a long TTL.
const featureTTL = 24 * time.Hour

func featureKey(audioID string) string { return "features:" + audioID }

// FeatureCache stores extracted AudioFeatures keyed by content hash.
type FeatureCache struct {
	c Cache
}

func NewFeatureCache(c Cache) *FeatureCache {
	return &FeatureCache{c: c}
}

func (f *FeatureCache) Get(ctx context.Context, audioID string) (*models.AudioFeatures, bool) {
	var out models.AudioFeatures
	hit, err := f.c.GetJSON(ctx, featureKey(audioID), &out)
	if err != nil || !hit {
		return nil, false
	}
	return &out, true
}

func (f *FeatureCache) Put(ctx context.Context, features *models.AudioFeatures) {
	// Cache writes are best-effort; extraction reruns on a miss.
	_ = f.c.SetJSON(ctx, featureKey(features.AudioID), features, featureTTL)
}

func (f *FeatureCache) Invalidate(ctx context.Context, audioID string) {
	_ = f.c.Del(ctx, featureKey(audioID))
}
