package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/newsreel/newsreel/internal/scheduler"
	"github.com/newsreel/newsreel/internal/store"
	"github.com/newsreel/newsreel/internal/store/model"
	"github.com/newsreel/newsreel/pkg/metrics"
	"go.uber.org/zap"
)

// CreateJobForm is the validated input of a manual job creation.
type CreateJobForm struct {
	Topic        string `validate:"required,min=2,max=120"`
	Language     string `validate:"required,min=2,max=8"`
	TargetLength int    `validate:"required,gte=15,lte=600"`
	AutoPublish  bool
}

type JobFilter struct {
	Status   *model.JobStatus
	Topic    *string
	Language *string
	Since    *time.Time
}

type JobService struct {
	store    store.Store
	runner   scheduler.JobRunner
	validate *validator.Validate
	log      *zap.SugaredLogger
}

func NewJobService(s store.Store, runner scheduler.JobRunner) *JobService {
	return &JobService{
		store:    s,
		runner:   runner,
		validate: validator.New(),
		log:      zap.S().Named("job_service"),
	}
}

// CreateJob persists a queued job and hands it to the pipeline. The caller
// gets the queued row back immediately; execution is asynchronous.
func (s *JobService) CreateJob(ctx context.Context, form CreateJobForm) (*model.Job, error) {
	if err := s.validate.Struct(form); err != nil {
		return nil, NewErrInvalidJob(err.Error())
	}

	job, err := s.store.Job().Create(ctx, model.Job{
		Topic:        form.Topic,
		Language:     form.Language,
		TargetLength: form.TargetLength,
		AutoPublish:  form.AutoPublish,
		Status:       model.JobStatusQueued,
	})
	if err != nil {
		return nil, err
	}
	metrics.IncreaseJobsCreatedMetric("manual")
	s.log.Infow("job created", "job_id", job.ID, "topic", job.Topic)

	s.runner.Run(job.ID)
	return job, nil
}

func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	job, err := s.store.Job().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(id)
		}
		return nil, err
	}
	return job, nil
}

func (s *JobService) ListJobs(ctx context.Context, filter *JobFilter) (model.JobList, error) {
	storeFilter := store.NewJobQueryFilter()
	if filter != nil {
		if filter.Status != nil {
			storeFilter = storeFilter.ByStatus(*filter.Status)
		}
		if filter.Topic != nil {
			storeFilter = storeFilter.ByTopic(*filter.Topic)
		}
		if filter.Language != nil {
			storeFilter = storeFilter.ByLanguage(*filter.Language)
		}
		if filter.Since != nil {
			storeFilter = storeFilter.CreatedAfter(*filter.Since)
		}
	}

	opts := store.NewJobQueryOptions().WithSortOrder(store.SortByCreatedTime)
	return s.store.Job().List(ctx, storeFilter, opts)
}

// DeleteJob removes a terminal job and its artifacts. Running jobs are
// protected; they are owned by their executor until they settle.
func (s *JobService) DeleteJob(ctx context.Context, id uuid.UUID) error {
	job, err := s.store.Job().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return NewErrJobNotFound(id)
		}
		return err
	}
	if job.Status == model.JobStatusRunning {
		return NewErrJobNotDeletable(id)
	}

	return s.store.Job().Delete(ctx, id)
}
