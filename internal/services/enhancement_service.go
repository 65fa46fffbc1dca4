package services

import (
	"bytes"
	"context"
	"errors"

	"github.com/veridict/voicelab/internal/audio"
	"github.com/veridict/voicelab/internal/engine"
	"github.com/veridict/voicelab/internal/models"
	mongorepo "github.com/veridict/voicelab/internal/repositories/mongo"
	"github.com/veridict/voicelab/internal/storage"
	"github.com/veridict/voicelab/internal/utils"
)

// EnhancementService wraps the enhancer with artifact storage and the
// chain-of-custody log.
type EnhancementService interface {
	AssessQuality(ctx context.Context, audioID string) (*models.AudioQuality, error)
	AnalyzeNoise(ctx context.Context, audioID string) (*models.NoiseProfile, error)
	Enhance(ctx context.Context, audioID string, level engine.Aggressiveness, filters []string) (*models.EnhancementResult, error)
	CustodyLog(ctx context.Context, originalID string) ([]models.CustodyRecord, error)
	VerifyEnhanced(ctx context.Context, enhancedID string) (*models.CustodyRecord, error)
}

type enhancementService struct {
	features FeatureService
	enhancer *engine.Enhancer
	custody  mongorepo.CustodyRepository
	store    storage.ArtifactStore
}

func NewEnhancementService(features FeatureService, enhancer *engine.Enhancer, custody mongorepo.CustodyRepository, store storage.ArtifactStore) EnhancementService {
	return &enhancementService{features: features, enhancer: enhancer, custody: custody, store: store}
}

func (s *enhancementService) AssessQuality(ctx context.Context, audioID string) (*models.AudioQuality, error) {
	clip, err := s.features.ClipFor(ctx, audioID)
	if err != nil {
		return nil, err
	}
	return s.enhancer.AssessQuality(clip), nil
}

func (s *enhancementService) AnalyzeNoise(ctx context.Context, audioID string) (*models.NoiseProfile, error) {
	clip, err := s.features.ClipFor(ctx, audioID)
	if err != nil {
		return nil, err
	}
	return s.enhancer.AnalyzeNoise(clip), nil
}

func enhancedObject(enhancedID string) string { return "enhanced/" + enhancedID + ".wav" }

// Enhance produces a new artifact, stores it, and appends the custody entry
// linking both hashes. The source object is never touched.
func (s *enhancementService) Enhance(ctx context.Context, audioID string, level engine.Aggressiveness, filters []string) (*models.EnhancementResult, error) {
	const op = "EnhancementService.Enhance"

	clip, err := s.features.ClipFor(ctx, audioID)
	if err != nil {
		return nil, err
	}

	result, artifact, err := s.enhancer.Enhance(ctx, clip, level, filters)
	if err != nil {
		return nil, err
	}

	storedPath, err := s.store.Upload(ctx, enhancedObject(result.EnhancedID), "audio/wav", bytes.NewReader(artifact))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to store enhanced artifact", err)
	}
	result.ArtifactPath = storedPath

	entry := &models.CustodyRecord{
		OriginalID:   result.OriginalID,
		EnhancedID:   result.EnhancedID,
		OriginalHash: result.OriginalHash,
		EnhancedHash: result.EnhancedHash,
		ArtifactPath: storedPath,
		Enhancements: result.Applied,
		Methodology:  result.Methodology,
	}
	if err := s.custody.Append(ctx, entry); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to append custody record", err)
	}
	return result, nil
}

// VerifyEnhanced re-hashes a stored enhanced artifact against its custody
// record. Evidence that no longer matches its recorded hash is reported as an
// integrity mismatch, never served as valid.
func (s *enhancementService) VerifyEnhanced(ctx context.Context, enhancedID string) (*models.CustodyRecord, error) {
	const op = "EnhancementService.VerifyEnhanced"

	if enhancedID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "enhanced_id is required", nil)
	}
	rec, err := s.custody.GetByEnhanced(ctx, enhancedID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "no custody record for this artifact", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to read custody log", err)
	}
	data, err := s.store.Download(ctx, enhancedObject(enhancedID))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to fetch enhanced artifact", err)
	}
	if audio.HashBytes(data) != rec.EnhancedHash {
		return nil, utils.E(utils.CodeIntegrityMismatch, op,
			"enhanced artifact does not match its custody hash", utils.ErrIntegrityMismatch)
	}
	return rec, nil
}

func (s *enhancementService) CustodyLog(ctx context.Context, originalID string) ([]models.CustodyRecord, error) {
	const op = "EnhancementService.CustodyLog"

	if originalID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "original_id is required", nil)
	}
	out, err := s.custody.ListByOriginal(ctx, originalID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to read custody log", err)
	}
	if len(out) == 0 {
		return nil, utils.E(utils.CodeNotFound, op, "no custody records for this recording", nil)
	}
	return out, nil
}
