package services

import (
	"context"

	"github.com/veridict/voicelab/internal/audio"
	"github.com/veridict/voicelab/internal/cache"
	"github.com/veridict/voicelab/internal/engine"
	"github.com/veridict/voicelab/internal/models"
	"github.com/veridict/voicelab/internal/utils"
)

// FeatureService resolves an audio_id to its acoustic features, caching by
// content hash. Features are immutable per hash so cache hits never go stale.
type FeatureService interface {
	FeaturesFor(ctx context.Context, audioID string) (*models.AudioFeatures, error)
	ClipFor(ctx context.Context, audioID string) (*audio.Clip, error)
}

type featureService struct {
	recordings RecordingService
	extractor  *engine.Extractor
	features   *cache.FeatureCache
}

func NewFeatureService(recordings RecordingService, extractor *engine.Extractor, features *cache.FeatureCache) FeatureService {
	return &featureService{recordings: recordings, extractor: extractor, features: features}
}

func (s *featureService) FeaturesFor(ctx context.Context, audioID string) (*models.AudioFeatures, error) {
	if s.features != nil {
		if f, hit := s.features.Get(ctx, audioID); hit {
			return f, nil
		}
	}

	clip, err := s.recordings.LoadClip(ctx, audioID)
	if err != nil {
		s.dropIfTampered(ctx, audioID, err)
		return nil, err
	}
	f, err := s.extractor.Extract(ctx, clip)
	if err != nil {
		return nil, err
	}
	if s.features != nil {
		s.features.Put(ctx, f)
	}
	return f, nil
}

func (s *featureService) ClipFor(ctx context.Context, audioID string) (*audio.Clip, error) {
	clip, err := s.recordings.LoadClip(ctx, audioID)
	if err != nil {
		s.dropIfTampered(ctx, audioID, err)
		return nil, err
	}
	return clip, nil
}

// dropIfTampered evicts cached features for evidence that failed its hash
// check; tampered bytes must not keep answering from pre-tamper features.
func (s *featureService) dropIfTampered(ctx context.Context, audioID string, err error) {
	if s.features != nil && utils.IsCode(err, utils.CodeIntegrityMismatch) {
		s.features.Invalidate(ctx, audioID)
	}
}
