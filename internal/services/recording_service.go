package services

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/veridict/voicelab/internal/audio"
	"github.com/veridict/voicelab/internal/models"
	mongorepo "github.com/veridict/voicelab/internal/repositories/mongo"
	pgrepo "github.com/veridict/voicelab/internal/repositories/postgres"
	"github.com/veridict/voicelab/internal/storage"
	"github.com/veridict/voicelab/internal/utils"
)

// RecordingService handles evidence intake and retrieval. Every stored file
// is identified by its SHA-256 content hash and gets a genesis custody entry
// on ingest; every read back verifies the hash before the bytes are used.
type RecordingService interface {
	Ingest(ctx context.Context, caseID, fileName, mimeType string, data []byte) (*models.Recording, error)
	Get(ctx context.Context, audioID string) (*models.Recording, error)
	ListByCase(ctx context.Context, caseID string) ([]models.Recording, error)
	LoadClip(ctx context.Context, audioID string) (*audio.Clip, error)
	VerifyIntegrity(ctx context.Context, audioID string) error
}

type recordingService struct {
	recordings pgrepo.RecordingRepository
	custody    mongorepo.CustodyRepository
	store      storage.ArtifactStore
}

func NewRecordingService(recordings pgrepo.RecordingRepository, custody mongorepo.CustodyRepository, store storage.ArtifactStore) RecordingService {
	return &recordingService{recordings: recordings, custody: custody, store: store}
}

func evidenceObject(audioID string) string { return "evidence/" + audioID }

func (s *recordingService) Ingest(ctx context.Context, caseID, fileName, mimeType string, data []byte) (*models.Recording, error) {
	const op = "RecordingService.Ingest"

	if len(data) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "empty file", nil)
	}

	// Decode first: an unsupported codec must fail before anything persists.
	clip, err := audio.Decode(data, mimeType)
	if err != nil {
		return nil, err
	}

	objectName := evidenceObject(clip.AudioID)
	storedPath, err := s.store.Upload(ctx, objectName, mimeType, bytes.NewReader(data))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to store evidence", err)
	}

	rec := &models.Recording{
		AudioID:     clip.AudioID,
		CaseID:      caseID,
		FileName:    fileName,
		MimeType:    mimeType,
		Format:      string(clip.Format),
		FileSize:    int64(len(data)),
		Duration:    clip.Duration,
		SampleRate:  clip.SampleRate,
		StoragePath: storedPath,
		SHA256:      clip.AudioID,
		UploadedAt:  time.Now().UTC(),
	}
	if err := s.recordings.Insert(ctx, rec); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to persist recording metadata", err)
	}

	genesis := &models.CustodyRecord{
		OriginalID:   clip.AudioID,
		OriginalHash: clip.AudioID,
		ArtifactPath: storedPath,
		Methodology:  "evidence ingested; SHA-256 content hash recorded at intake",
	}
	if err := s.custody.Append(ctx, genesis); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to append custody record", err)
	}
	return rec, nil
}

func (s *recordingService) Get(ctx context.Context, audioID string) (*models.Recording, error) {
	const op = "RecordingService.Get"

	if audioID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio_id is required", nil)
	}
	rec, err := s.recordings.GetByAudioID(ctx, audioID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "recording not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get recording", err)
	}
	return rec, nil
}

func (s *recordingService) ListByCase(ctx context.Context, caseID string) ([]models.Recording, error) {
	const op = "RecordingService.ListByCase"

	if caseID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "case_id is required", nil)
	}
	out, err := s.recordings.ListByCase(ctx, caseID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list recordings", err)
	}
	return out, nil
}

// LoadClip fetches the stored bytes, verifies them against the recorded hash
// and decodes them. A hash mismatch means the evidence was altered in storage
// and is always surfaced as a hard failure.
func (s *recordingService) LoadClip(ctx context.Context, audioID string) (*audio.Clip, error) {
	const op = "RecordingService.LoadClip"

	rec, err := s.Get(ctx, audioID)
	if err != nil {
		return nil, err
	}

	data, err := s.store.Download(ctx, evidenceObject(audioID))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to fetch stored evidence", err)
	}
	if got := audio.HashBytes(data); got != rec.SHA256 {
		return nil, utils.E(utils.CodeIntegrityMismatch, op,
			"stored evidence does not match its recorded hash", utils.ErrIntegrityMismatch)
	}
	return audio.Decode(data, rec.MimeType)
}

// VerifyIntegrity re-hashes the stored artifact without decoding it.
func (s *recordingService) VerifyIntegrity(ctx context.Context, audioID string) error {
	const op = "RecordingService.VerifyIntegrity"

	rec, err := s.Get(ctx, audioID)
	if err != nil {
		return err
	}
	data, err := s.store.Download(ctx, evidenceObject(audioID))
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to fetch stored evidence", err)
	}
	if got := audio.HashBytes(data); got != rec.SHA256 {
		return utils.E(utils.CodeIntegrityMismatch, op,
			"stored evidence does not match its recorded hash", utils.ErrIntegrityMismatch)
	}
	return nil
}
