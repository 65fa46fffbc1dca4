package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// SpeakerRole tags a profile with its role in the case file.
type SpeakerRole string

const (
	RoleParent    SpeakerRole = "parent"
	RoleChild     SpeakerRole = "child"
	RoleWitness   SpeakerRole = "witness"
	RoleExpert    SpeakerRole = "expert"
	RoleOpposing  SpeakerRole = "opposing_party"
	RoleUnlisted  SpeakerRole = "unlisted"
	RoleRecording SpeakerRole = "recording_subject"
)

// SpeakerProfile is the enrollment identity for 1:N identification and 1:1
// verification. Created by enrollment, mutated only by successful
// identification events (running statistics) and explicit updates.
type SpeakerProfile struct {
	ProfileID   string      `gorm:"column:profile_id;type:uuid;primaryKey" json:"profile_id"`
	DisplayName string      `gorm:"column:display_name;type:text" json:"display_name"`
	Role        SpeakerRole `gorm:"column:role;type:text" json:"role"`

	// VoiceSignature is the quality-weighted average CompactSignature over
	// all enrollment samples, stored as JSONB.
	VoiceSignature datatypes.JSON `gorm:"column:voice_signature;type:jsonb" json:"voice_signature"`

	// SignatureEmbedding mirrors the signature's MFCC mean vector for
	// pgvector candidate pre-ranking. The JSONB signature stays the source
	// of truth for scoring.
	SignatureEmbedding pgvector.Vector `gorm:"column:signature_embedding;type:vector(13)" json:"-"`

	EnrollmentSamples pq.StringArray `gorm:"column:enrollment_samples;type:text[]" json:"enrollment_samples"`
	EnrollmentDate    time.Time      `gorm:"column:enrollment_date;type:timestamptz" json:"enrollment_date"`

	GenderEstimate   string `gorm:"column:gender_estimate;type:text" json:"gender_estimate"`
	AgeRangeEstimate string `gorm:"column:age_range_estimate;type:text" json:"age_range_estimate"`

	CaseID string `gorm:"column:case_id;type:text;index" json:"case_id"`
	Notes  string `gorm:"column:notes;type:text" json:"notes"`

	IdentificationCount int     `gorm:"column:identification_count" json:"identification_count"`
	AvgMatchConfidence  float64 `gorm:"column:avg_match_confidence" json:"avg_match_confidence"`

	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (SpeakerProfile) TableName() string { return "speaker_profiles" }

// ProfileExport is the portable JSON form of a profile. Export/import must
// round-trip exactly: export(import(export(p))) == export(p).
type ProfileExport struct {
	ProfileID         string           `json:"profile_id"`
	DisplayName       string           `json:"display_name"`
	Role              SpeakerRole      `json:"role"`
	VoiceSignature    CompactSignature `json:"voice_signature"`
	EnrollmentSamples []string         `json:"enrollment_samples"`
	EnrollmentDate    time.Time        `json:"enrollment_date"`
	GenderEstimate    string           `json:"gender_estimate"`
	AgeRangeEstimate  string           `json:"age_range_estimate"`
	CaseID            string           `json:"case_id"`
	Notes             string           `json:"notes"`
}
