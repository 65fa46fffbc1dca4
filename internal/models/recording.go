package models

import "time"

// Recording is the stored metadata for an uploaded evidence file. The bytes
// live in the artifact store; AudioID is the content hash and doubles as the
// external reference key.
type Recording struct {
	AudioID  string `gorm:"column:audio_id;type:text;primaryKey" json:"audio_id"`
	CaseID   string `gorm:"column:case_id;type:text;index" json:"case_id"`
	FileName string `gorm:"column:file_name;type:text" json:"file_name"`
	MimeType string `gorm:"column:mime_type;type:text" json:"mime_type"`
	Format   string `gorm:"column:format;type:text" json:"format"`

	FileSize    int64   `gorm:"column:file_size" json:"file_size"`
	Duration    float64 `gorm:"column:duration" json:"duration"`
	SampleRate  int     `gorm:"column:sample_rate" json:"sample_rate"`
	StoragePath string  `gorm:"column:storage_path;type:text" json:"storage_path"`
	SHA256      string  `gorm:"column:sha256;type:text" json:"sha256"`

	UploadedAt time.Time `gorm:"column:uploaded_at;type:timestamptz" json:"uploaded_at"`
}

func (Recording) TableName() string { return "recordings" }
