package config

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureMongoIndexes() error {
	if MongoClient == nil {
		return errors.New("MongoClient is nil; call InitMongo() first")
	}
	db := MongoDatabase()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// custody_log: append-only enhancement / integrity records.
	custody := db.Collection("custody_log")
	_, err := custody.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "original_id", Value: 1}, {Key: "timestamp", Value: 1}},
			Options: options.Index().SetName("by_original_ts"),
		},
		{
			Keys: bson.D{{Key: "enhanced_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_enhanced_id").
				SetUnique(true).
				SetSparse(true),
		},
	})
	if err != nil {
		return err
	}

	// analysis_results: persisted engine outputs keyed by job.
	results := db.Collection("analysis_results")
	_, err = results.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "job_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_job_id").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "audio_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("by_audio_created"),
		},
	})
	return err
}
