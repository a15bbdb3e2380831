package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transition may leave the status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is one request to turn a news topic into a published video. It owns a
// single pass through the pipeline; derived artifacts hang off it 1:1 and
// are deleted with it.
type Job struct {
	ID           uuid.UUID `gorm:"primaryKey;"`
	Topic        string    `gorm:"not null;index:jobs_topic_idx"`
	Language     string    `gorm:"type:VARCHAR(8);not null"`
	TargetLength int       `gorm:"not null"`
	AutoPublish  bool      `gorm:"not null"`
	Status       JobStatus `gorm:"type:VARCHAR(16);not null;index:jobs_status_idx"`
	Progress     int       `gorm:"not null"`
	Error        *string
	CreatedAt    time.Time `gorm:"index:jobs_created_at_idx"`
	UpdatedAt    time.Time

	Article      *Article      `gorm:"constraint:OnDelete:CASCADE;"`
	Summary      *Summary      `gorm:"constraint:OnDelete:CASCADE;"`
	AudioAsset   *AudioAsset   `gorm:"constraint:OnDelete:CASCADE;"`
	VideoAsset   *VideoAsset   `gorm:"constraint:OnDelete:CASCADE;"`
	Publications []Publication `gorm:"constraint:OnDelete:CASCADE;"`
}

type JobList []Job

func (j Job) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}
