package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/newsreel/newsreel/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Job interface {
	Create(ctx context.Context, job model.Job) (*model.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Job, error)
	List(ctx context.Context, filter *JobQueryFilter, opts *JobQueryOptions) (model.JobList, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.JobStatus, errMsg *string, progress *int) (*model.Job, error)
	CountByTopicSince(ctx context.Context, topic string, since time.Time) (int64, error)
	GetStuck(ctx context.Context, staleFor time.Duration) (model.JobList, error)
	FailIfStillRunning(ctx context.Context, id uuid.UUID, observedUpdatedAt time.Time, errMsg string) (bool, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type JobStore struct {
	db *gorm.DB
}

// Make sure we conform to Job interface
var _ Job = (*JobStore)(nil)

func NewJobStore(db *gorm.DB) Job {
	return &JobStore{db: db}
}

func (s *JobStore) Create(ctx context.Context, job model.Job) (*model.Job, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = model.JobStatusQueued
	}
	result := s.getDB(ctx).Create(&job)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("creating job: %w", result.Error)
	}
	return &job, nil
}

func (s *JobStore) Get(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	var job model.Job
	result := s.getDB(ctx).
		Preload("Article").Preload("Summary").
		Preload("AudioAsset").Preload("VideoAsset").Preload("Publications").
		First(&job, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying job: %w", result.Error)
	}
	return &job, nil
}

func (s *JobStore) List(ctx context.Context, filter *JobQueryFilter, opts *JobQueryOptions) (model.JobList, error) {
	var jobs model.JobList

	tx := s.getDB(ctx).Model(&model.Job{})
	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}
	if opts != nil {
		for _, fn := range opts.QueryFn {
			tx = fn(tx)
		}
	}

	if result := tx.Find(&jobs); result.Error != nil {
		return nil, result.Error
	}
	return jobs, nil
}

// UpdateStatus applies a field-scoped update so concurrent writers touching
// other columns are never clobbered. errMsg and progress are only written
// when non-nil.
func (s *JobStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.JobStatus, errMsg *string, progress *int) (*model.Job, error) {
	job := model.Job{ID: id, Status: status, UpdatedAt: time.Now().UTC()}
	selectFields := []string{"status", "updated_at"}
	if errMsg != nil {
		job.Error = errMsg
		selectFields = append(selectFields, "error")
	}
	if progress != nil {
		job.Progress = *progress
		selectFields = append(selectFields, "progress")
	}

	result := s.getDB(ctx).Model(&job).Clauses(clause.Returning{}).Select(selectFields).Updates(&job)
	if result.Error != nil {
		return nil, fmt.Errorf("updating job status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}
	return &job, nil
}

func (s *JobStore) CountByTopicSince(ctx context.Context, topic string, since time.Time) (int64, error) {
	var count int64
	result := s.getDB(ctx).Model(&model.Job{}).
		Where("topic = ? AND created_at > ?", topic, since).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("counting jobs: %w", result.Error)
	}
	return count, nil
}

func (s *JobStore) GetStuck(ctx context.Context, staleFor time.Duration) (model.JobList, error) {
	var jobs model.JobList
	threshold := time.Now().UTC().Add(-staleFor)
	result := s.getDB(ctx).
		Where("status = ? AND updated_at < ?", model.JobStatusRunning, threshold).
		Find(&jobs)
	if result.Error != nil {
		return nil, fmt.Errorf("querying stuck jobs: %w", result.Error)
	}
	return jobs, nil
}

// FailIfStillRunning marks a job failed only if it is still running and its
// updated_at matches what the caller observed. The guard closes the race
// where the executor finishes the job between the reaper's read and write.
func (s *JobStore) FailIfStillRunning(ctx context.Context, id uuid.UUID, observedUpdatedAt time.Time, errMsg string) (bool, error) {
	result := s.getDB(ctx).Model(&model.Job{}).
		Where("id = ? AND status = ? AND updated_at = ?", id, model.JobStatusRunning, observedUpdatedAt).
		Updates(map[string]interface{}{
			"status":     model.JobStatusFailed,
			"error":      errMsg,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failing stuck job: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteOlderThan purges jobs created at or before the cutoff together with
// their artifacts and publications, and returns the number of jobs removed.
// Artifacts are deleted explicitly so the sweep does not depend on
// database-level cascade support.
func (s *JobStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64

	err := s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uuid.UUID
		if err := tx.Model(&model.Job{}).Where("created_at <= ?", cutoff).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		for _, artifact := range []interface{}{
			&model.Article{}, &model.Summary{}, &model.AudioAsset{}, &model.VideoAsset{}, &model.Publication{},
		} {
			if err := tx.Where("job_id IN ?", ids).Delete(artifact).Error; err != nil {
				return err
			}
		}

		result := tx.Where("id IN ?", ids).Delete(&model.Job{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("deleting expired jobs: %w", err)
	}
	return deleted, nil
}

func (s *JobStore) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		for _, artifact := range []interface{}{
			&model.Article{}, &model.Summary{}, &model.AudioAsset{}, &model.VideoAsset{}, &model.Publication{},
		} {
			if err := tx.Where("job_id = ?", id).Delete(artifact).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.Job{ID: id}).Error
	})
	if err != nil {
		return fmt.Errorf("deleting job: %w", err)
	}
	return nil
}

func (s *JobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
