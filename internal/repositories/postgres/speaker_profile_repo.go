package postgres

import (
	"context"
	"errors"

	"github.com/pgvector/pgvector-go"
	"github.com/veridict/voicelab/internal/models"
	"github.com/veridict/voicelab/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SpeakerProfileRepository interface {
	Create(ctx context.Context, p *models.SpeakerProfile) error
	GetByProfileID(ctx context.Context, profileID string) (*models.SpeakerProfile, error)
	List(ctx context.Context) ([]models.SpeakerProfile, error)
	ListByCase(ctx context.Context, caseID string) ([]models.SpeakerProfile, error)
	Upsert(ctx context.Context, p *models.SpeakerProfile) error
	UpdateStats(ctx context.Context, profileID string, identificationCount int, avgMatchConfidence float64) error
	Delete(ctx context.Context, profileID string) error
	NearestByEmbedding(ctx context.Context, embedding pgvector.Vector, limit int) ([]models.SpeakerProfile, error)
}

type speakerProfileRepo struct {
	db *gorm.DB
}

func NewSpeakerProfileRepo(db *gorm.DB) SpeakerProfileRepository {
	return &speakerProfileRepo{db: db}
}

func (r *speakerProfileRepo) Create(ctx context.Context, p *models.SpeakerProfile) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *speakerProfileRepo) GetByProfileID(ctx context.Context, profileID string) (*models.SpeakerProfile, error) {
	var p models.SpeakerProfile
	err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &p, err
}

func (r *speakerProfileRepo) List(ctx context.Context) ([]models.SpeakerProfile, error) {
	var out []models.SpeakerProfile
	err := r.db.WithContext(ctx).
		Order("enrollment_date DESC").
		Find(&out).Error
	return out, err
}

func (r *speakerProfileRepo) ListByCase(ctx context.Context, caseID string) ([]models.SpeakerProfile, error) {
	var out []models.SpeakerProfile
	err := r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("enrollment_date DESC").
		Find(&out).Error
	return out, err
}

func (r *speakerProfileRepo) Upsert(ctx context.Context, p *models.SpeakerProfile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "profile_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "role", "voice_signature", "signature_embedding", "enrollment_samples", "gender_estimate", "age_range_estimate", "case_id", "notes", "updated_at"}),
		}).
		Create(p).Error
}

func (r *speakerProfileRepo) UpdateStats(ctx context.Context, profileID string, identificationCount int, avgMatchConfidence float64) error {
	res := r.db.WithContext(ctx).
		Model(&models.SpeakerProfile{}).
		Where("profile_id = ?", profileID).
		Updates(map[string]interface{}{
			"identification_count": identificationCount,
			"avg_match_confidence": avgMatchConfidence,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *speakerProfileRepo) Delete(ctx context.Context, profileID string) error {
	res := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Delete(&models.SpeakerProfile{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

// NearestByEmbedding pre-ranks candidates by cosine distance over the MFCC
// mean embedding. Final scoring always reruns on the JSONB signature.
func (r *speakerProfileRepo) NearestByEmbedding(ctx context.Context, embedding pgvector.Vector, limit int) ([]models.SpeakerProfile, error) {
	if limit <= 0 {
		limit = 25
	}
	var out []models.SpeakerProfile
	err := r.db.WithContext(ctx).
		Order(clause.OrderBy{Expression: clause.Expr{SQL: "signature_embedding <=> ?", Vars: []interface{}{embedding}}}).
		Limit(limit).
		Find(&out).Error
	return out, err
}
