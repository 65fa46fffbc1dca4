package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CustodyRecord is one append-only chain-of-custody entry. Records are never
// updated or deleted; integrity is proven by re-hashing stored artifacts
// against these values.
type CustodyRecord struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
	OriginalID string    `bson:"original_id" json:"original_id"`
	EnhancedID string    `bson:"enhanced_id,omitempty" json:"enhanced_id,omitempty"`

	OriginalHash string `bson:"original_hash" json:"original_hash"`
	EnhancedHash string `bson:"enhanced_hash,omitempty" json:"enhanced_hash,omitempty"`
	ArtifactPath string `bson:"artifact_path,omitempty" json:"artifact_path,omitempty"`

	Enhancements []AppliedFilter `bson:"enhancements,omitempty" json:"enhancements,omitempty"`
	Methodology  string          `bson:"methodology,omitempty" json:"methodology,omitempty"`
}

// JobStatus tracks an async analysis job through the worker pool.
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// AnalysisResult is a persisted engine output for an async job. Payload holds
// the JSON-encoded result DTO for the given operation.
type AnalysisResult struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	JobID     string    `bson:"job_id" json:"job_id"`
	AudioID   string    `bson:"audio_id" json:"audio_id"`
	Operation string    `bson:"operation" json:"operation"`
	Status    JobStatus `bson:"status" json:"status"`
	Payload   []byte    `bson:"payload,omitempty" json:"payload,omitempty"`
	Error     string    `bson:"error,omitempty" json:"error,omitempty"`

	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	FinishedAt *time.Time `bson:"finished_at,omitempty" json:"finished_at,omitempty"`
}
