package postgres

import (
	"context"
	"errors"

	"github.com/veridict/voicelab/internal/models"
	"github.com/veridict/voicelab/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RecordingRepository interface {
	Insert(ctx context.Context, rec *models.Recording) error
	GetByAudioID(ctx context.Context, audioID string) (*models.Recording, error)
	ListByCase(ctx context.Context, caseID string) ([]models.Recording, error)
}

type recordingRepo struct {
	db *gorm.DB
}

func NewRecordingRepo(db *gorm.DB) RecordingRepository {
	return &recordingRepo{db: db}
}

// Insert is idempotent on audio_id: re-uploading the same bytes is a no-op,
// which keeps the content hash the stable external reference.
func (r *recordingRepo) Insert(ctx context.Context, rec *models.Recording) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "audio_id"}},
			DoNothing: true,
		}).
		Create(rec).Error
}

func (r *recordingRepo) GetByAudioID(ctx context.Context, audioID string) (*models.Recording, error) {
	var rec models.Recording
	err := r.db.WithContext(ctx).
		Where("audio_id = ?", audioID).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &rec, err
}

func (r *recordingRepo) ListByCase(ctx context.Context, caseID string) ([]models.Recording, error) {
	var out []models.Recording
	err := r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("uploaded_at DESC").
		Find(&out).Error
	return out, err
}
