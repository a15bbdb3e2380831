package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Article is the source text picked for a job, fingerprinted for dedup.
type Article struct {
	ID          uuid.UUID `gorm:"primaryKey;"`
	JobID       uuid.UUID `gorm:"not null;uniqueIndex:articles_job_id_idx"`
	Title       string    `gorm:"not null"`
	Body        string    `gorm:"type:TEXT;not null"`
	URL         string
	ImageURL    *string
	ContentHash string `gorm:"type:VARCHAR(32);not null;index:articles_content_hash_idx"`
	PublishedAt *time.Time
	CreatedAt   time.Time
}

// Summary carries the script text plus a fixed set of quality checks.
type Summary struct {
	ID        uuid.UUID `gorm:"primaryKey;"`
	JobID     uuid.UUID `gorm:"not null;uniqueIndex:summaries_job_id_idx"`
	Text      string    `gorm:"type:TEXT;not null"`
	WordCount int       `gorm:"not null"`
	TooShort  bool      `gorm:"not null"`
	Truncated bool      `gorm:"not null"`
	CreatedAt time.Time
}

type AudioAsset struct {
	ID         uuid.UUID `gorm:"primaryKey;"`
	JobID      uuid.UUID `gorm:"not null;uniqueIndex:audio_assets_job_id_idx"`
	URL        string    `gorm:"not null"`
	Duration   float64   `gorm:"not null"`
	SampleRate int
	Format     string `gorm:"type:VARCHAR(16)"`
	CreatedAt  time.Time
}

type VideoAsset struct {
	ID           uuid.UUID `gorm:"primaryKey;"`
	JobID        uuid.UUID `gorm:"not null;uniqueIndex:video_assets_job_id_idx"`
	URL          string    `gorm:"not null"`
	ThumbnailURL string
	SubtitleURL  *string
	Width        int
	Height       int
	Duration     float64
	CreatedAt    time.Time
}

type PublicationStatus string

const (
	PublicationStatusPublished PublicationStatus = "published"
	PublicationStatusFailed    PublicationStatus = "failed"
)

// Publication is one publish attempt for a job's video. A publish failure
// leaves the job completed; the failure lives here instead.
type Publication struct {
	ID              uuid.UUID         `gorm:"primaryKey;"`
	JobID           uuid.UUID         `gorm:"not null;index:publications_job_id_idx"`
	Platform        string            `gorm:"type:VARCHAR(32);not null"`
	PlatformVideoID string
	Status          PublicationStatus `gorm:"type:VARCHAR(16);not null"`
	Error           *string
	PublishedAt     *time.Time
	CreatedAt       time.Time
}

func (a Article) String() string {
	val, _ := json.Marshal(a)
	return string(val)
}

func (p Publication) String() string {
	val, _ := json.Marshal(p)
	return string(val)
}
