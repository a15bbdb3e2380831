package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/newsreel/newsreel/internal/store"
	"github.com/newsreel/newsreel/internal/store/model"
	"github.com/newsreel/newsreel/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	progressStarted     = 10
	progressFetched     = 25
	progressSummarized  = 50
	progressSynthesized = 75
	progressCompleted   = 100

	defaultStageTimeout  = 5 * time.Minute
	defaultMaxConcurrent = 8
)

// Executor drives the five-stage pipeline for one job at a time per job id.
// Executions are independent; a weighted semaphore bounds the fan-out so
// bursty job creation cannot overwhelm the collaborators.
type Executor struct {
	store        store.Store
	collab       Collaborators
	stageTimeout time.Duration
	sem          *semaphore.Weighted
	log          *zap.SugaredLogger
}

func NewExecutor(s store.Store, collab Collaborators, stageTimeout time.Duration, maxConcurrent int64) *Executor {
	if stageTimeout <= 0 {
		stageTimeout = defaultStageTimeout
	}
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Executor{
		store:        s,
		collab:       collab,
		stageTimeout: stageTimeout,
		sem:          semaphore.NewWeighted(maxConcurrent),
		log:          zap.S().Named("executor"),
	}
}

// jobRun accumulates the artifacts produced by earlier stages. It is owned
// by a single execution and never shared.
type jobRun struct {
	job     *model.Job
	article *model.Article
	summary *model.Summary
	audio   *model.AudioAsset
	video   *model.VideoAsset
}

type stage struct {
	name         string
	collaborator string
	// progress written after the stage persists its artifact. Zero leaves
	// the write to the terminal completed update, which carries 100.
	progress int
	run      func(ctx context.Context, r *jobRun) error
}

func (e *Executor) stages() []stage {
	return []stage{
		{name: "fetch", collaborator: "article source", progress: progressFetched, run: e.fetchArticle},
		{name: "summarize", collaborator: "summarizer", progress: progressSummarized, run: e.summarize},
		{name: "synthesize", collaborator: "speech synthesizer", progress: progressSynthesized, run: e.synthesizeSpeech},
		{name: "render", collaborator: "video renderer", run: e.renderVideo},
	}
}

// Run drives the pipeline for a queued job in the background. Fire and
// forget: every outcome, including a panic, ends up on the job row.
func (e *Executor) Run(jobID uuid.UUID) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.log.Errorw("pipeline panicked", "job_id", jobID, "panic", r)
				e.forceFail(jobID, fmt.Sprintf("internal error: %v", r))
			}
		}()

		ctx := context.Background()
		if err := e.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer e.sem.Release(1)

		e.Execute(ctx, jobID)
	}()
}

// Execute is the synchronous core of Run. The job must be in queued status;
// anything else is logged and skipped.
func (e *Executor) Execute(ctx context.Context, jobID uuid.UUID) {
	job, err := e.store.Job().Get(ctx, jobID)
	if err != nil {
		e.log.Errorw("failed to load job", "job_id", jobID, "error", err)
		return
	}
	if job.Status != model.JobStatusQueued {
		e.log.Warnw("job is not queued, skipping", "job_id", jobID, "status", job.Status)
		return
	}

	started := progressStarted
	if _, err := e.store.Job().UpdateStatus(ctx, jobID, model.JobStatusRunning, nil, &started); err != nil {
		e.log.Errorw("failed to mark job running", "job_id", jobID, "error", err)
		return
	}

	run := &jobRun{job: job}
	for _, st := range e.stages() {
		if err := e.runStage(ctx, st, run); err != nil {
			msg := err.Error()
			e.log.Errorw("stage failed", "job_id", jobID, "stage", st.name, "error", err)
			metrics.IncreaseJobsFailedMetric(st.name)
			if _, uerr := e.store.Job().UpdateStatus(ctx, jobID, model.JobStatusFailed, &msg, nil); uerr != nil {
				e.log.Errorw("failed to mark job failed", "job_id", jobID, "error", uerr)
			}
			return
		}
	}

	completed := progressCompleted
	if _, err := e.store.Job().UpdateStatus(ctx, jobID, model.JobStatusCompleted, nil, &completed); err != nil {
		e.log.Errorw("failed to mark job completed", "job_id", jobID, "error", err)
		return
	}
	metrics.IncreaseJobsCompletedMetric()
	e.log.Infow("pipeline completed", "job_id", jobID, "topic", job.Topic)

	// Publishing is best-effort once the video exists: a failure here never
	// reverts the completed status, it is recorded on the publication.
	if job.AutoPublish {
		e.publish(ctx, run)
	}
}

func (e *Executor) runStage(ctx context.Context, st stage, r *jobRun) error {
	start := time.Now()
	sctx, cancel := context.WithTimeout(ctx, e.stageTimeout)
	defer cancel()

	if err := st.run(sctx, r); err != nil {
		metrics.ObserveStageDurationMetric(st.name, time.Since(start), "error")
		if errors.Is(err, context.DeadlineExceeded) {
			return NewUpstreamError(st.collaborator, fmt.Errorf("timed out after %s", e.stageTimeout))
		}
		return err
	}
	metrics.ObserveStageDurationMetric(st.name, time.Since(start), "success")

	if st.progress > 0 {
		p := st.progress
		if _, err := e.store.Job().UpdateStatus(ctx, r.job.ID, model.JobStatusRunning, nil, &p); err != nil {
			return fmt.Errorf("recording stage progress: %w", err)
		}
	}
	return nil
}

func (e *Executor) fetchArticle(ctx context.Context, r *jobRun) error {
	candidates, err := e.collab.Articles.FetchArticles(ctx, r.job.Topic, r.job.Language)
	if err != nil {
		return NewUpstreamError("article source", err)
	}
	if len(candidates) == 0 {
		return ErrNoArticlesFound
	}

	pick := candidates[0]
	article := model.Article{
		JobID:       r.job.ID,
		Title:       pick.Title,
		Body:        pick.Body,
		URL:         pick.URL,
		ContentHash: ContentHash(pick.Body),
		PublishedAt: pick.PublishedAt,
	}
	if pick.ImageURL != "" {
		img := pick.ImageURL
		article.ImageURL = &img
	}

	created, err := e.store.Article().Create(ctx, article)
	if err != nil {
		return fmt.Errorf("persisting article: %w", err)
	}
	r.article = created
	return nil
}

func (e *Executor) summarize(ctx context.Context, r *jobRun) error {
	res, err := e.collab.Summarizer.GenerateSummary(ctx, r.article.Title, r.article.Body, r.job.TargetLength)
	if err != nil {
		return NewUpstreamError("summarizer", err)
	}

	created, err := e.store.Summary().Create(ctx, model.Summary{
		JobID:     r.job.ID,
		Text:      res.Text,
		WordCount: res.WordCount,
		TooShort:  res.TooShort,
		Truncated: res.Truncated,
	})
	if err != nil {
		return fmt.Errorf("persisting summary: %w", err)
	}
	r.summary = created
	return nil
}

func (e *Executor) synthesizeSpeech(ctx context.Context, r *jobRun) error {
	res, err := e.collab.Speech.GenerateTTS(ctx, r.summary.Text, r.job.Language)
	if err != nil {
		return NewUpstreamError("speech synthesizer", err)
	}

	created, err := e.store.AudioAsset().Create(ctx, model.AudioAsset{
		JobID:      r.job.ID,
		URL:        res.URL,
		Duration:   res.Duration,
		SampleRate: res.SampleRate,
		Format:     res.Format,
	})
	if err != nil {
		return fmt.Errorf("persisting audio asset: %w", err)
	}
	r.audio = created
	return nil
}

func (e *Executor) renderVideo(ctx context.Context, r *jobRun) error {
	images := []string{}
	if r.article.ImageURL != nil {
		images = append(images, *r.article.ImageURL)
	}

	res, err := e.collab.Renderer.Render(ctx, RenderRequest{
		Title:       r.article.Title,
		SummaryText: r.summary.Text,
		AudioURL:    r.audio.URL,
		Duration:    r.audio.Duration,
		Images:      images,
	})
	if err != nil {
		return NewUpstreamError("video renderer", err)
	}

	created, err := e.store.VideoAsset().Create(ctx, model.VideoAsset{
		JobID:        r.job.ID,
		URL:          res.VideoURL,
		ThumbnailURL: res.ThumbnailURL,
		SubtitleURL:  res.SubtitleURL,
		Width:        res.Width,
		Height:       res.Height,
		Duration:     res.Duration,
	})
	if err != nil {
		return fmt.Errorf("persisting video asset: %w", err)
	}
	r.video = created
	return nil
}

func (e *Executor) publish(ctx context.Context, r *jobRun) {
	pctx, cancel := context.WithTimeout(ctx, e.stageTimeout)
	defer cancel()

	publication := model.Publication{
		JobID:    r.job.ID,
		Platform: e.collab.Publisher.Platform(),
	}

	res, err := e.collab.Publisher.PublishVideo(pctx, r.job, r.video)
	if err != nil {
		msg := err.Error()
		publication.Status = model.PublicationStatusFailed
		publication.Error = &msg
		metrics.IncreasePublicationsMetric("error")
		e.log.Warnw("publish failed", "job_id", r.job.ID, "platform", publication.Platform, "error", err)
	} else {
		publication.Status = model.PublicationStatusPublished
		publication.PlatformVideoID = res.PlatformVideoID
		publication.PublishedAt = res.PublishedAt
		metrics.IncreasePublicationsMetric("success")
	}

	if _, err := e.store.Publication().Create(ctx, publication); err != nil {
		e.log.Errorw("failed to record publication", "job_id", r.job.ID, "error", err)
	}
}

// forceFail is the panic backstop. It refuses to touch a job that already
// reached a terminal status.
func (e *Executor) forceFail(jobID uuid.UUID, msg string) {
	ctx := context.Background()
	job, err := e.store.Job().Get(ctx, jobID)
	if err != nil || job.Status.Terminal() {
		return
	}
	if _, err := e.store.Job().UpdateStatus(ctx, jobID, model.JobStatusFailed, &msg, nil); err != nil {
		e.log.Errorw("failed to mark panicked job failed", "job_id", jobID, "error", err)
	}
}
