package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/veridict/voicelab/internal/models"
	"github.com/veridict/voicelab/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ResultRepository interface {
	Create(ctx context.Context, res *models.AnalysisResult) error
	GetByJobID(ctx context.Context, jobID string) (*models.AnalysisResult, error)
	SetRunning(ctx context.Context, jobID string) error
	Complete(ctx context.Context, jobID string, payload []byte) error
	Fail(ctx context.Context, jobID string, reason string) error
	ListByAudio(ctx context.Context, audioID string, limit int64) ([]models.AnalysisResult, error)
}

type resultRepo struct {
	col *mongo.Collection
}

func NewResultRepo(db *mongo.Database) ResultRepository {
	return &resultRepo{col: db.Collection("analysis_results")}
}

func (r *resultRepo) Create(ctx context.Context, res *models.AnalysisResult) error {
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	if res.Status == "" {
		res.Status = models.JobQueued
	}
	_, err := r.col.InsertOne(ctx, res)
	return err
}

func (r *resultRepo) GetByJobID(ctx context.Context, jobID string) (*models.AnalysisResult, error) {
	var res models.AnalysisResult
	err := r.col.FindOne(ctx, bson.M{"job_id": jobID}).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &res, err
}

func (r *resultRepo) SetRunning(ctx context.Context, jobID string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"job_id": jobID},
		bson.M{"$set": bson.M{"status": models.JobRunning}},
	)
	return err
}

func (r *resultRepo) Complete(ctx context.Context, jobID string, payload []byte) error {
	now := time.Now().UTC()
	_, err := r.col.UpdateOne(ctx,
		bson.M{"job_id": jobID},
		bson.M{"$set": bson.M{
			"status":      models.JobDone,
			"payload":     payload,
			"finished_at": now,
		}},
	)
	return err
}

func (r *resultRepo) Fail(ctx context.Context, jobID string, reason string) error {
	now := time.Now().UTC()
	_, err := r.col.UpdateOne(ctx,
		bson.M{"job_id": jobID},
		bson.M{"$set": bson.M{
			"status":      models.JobFailed,
			"error":       reason,
			"finished_at": now,
		}},
	)
	return err
}

func (r *resultRepo) ListByAudio(ctx context.Context, audioID string, limit int64) ([]models.AnalysisResult, error) {
	if limit <= 0 {
		limit = 100
	}
	cur, err := r.col.Find(ctx,
		bson.M{"audio_id": audioID},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.AnalysisResult
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
