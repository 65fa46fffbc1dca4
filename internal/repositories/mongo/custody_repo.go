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

// CustodyRepository is append-only by contract: there is no update or delete
// surface, matching the chain-of-custody requirement.
type CustodyRepository interface {
	Append(ctx context.Context, rec *models.CustodyRecord) error
	ListByOriginal(ctx context.Context, originalID string) ([]models.CustodyRecord, error)
	GetByEnhanced(ctx context.Context, enhancedID string) (*models.CustodyRecord, error)
}

type custodyRepo struct {
	col *mongo.Collection
}

func NewCustodyRepo(db *mongo.Database) CustodyRepository {
	return &custodyRepo{col: db.Collection("custody_log")}
}

func (r *custodyRepo) Append(ctx context.Context, rec *models.CustodyRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, rec)
	return err
}

func (r *custodyRepo) ListByOriginal(ctx context.Context, originalID string) ([]models.CustodyRecord, error) {
	cur, err := r.col.Find(ctx,
		bson.M{"original_id": originalID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.CustodyRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *custodyRepo) GetByEnhanced(ctx context.Context, enhancedID string) (*models.CustodyRecord, error) {
	var rec models.CustodyRecord
	err := r.col.FindOne(ctx, bson.M{"enhanced_id": enhancedID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
