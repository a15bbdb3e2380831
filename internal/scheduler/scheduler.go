package scheduler

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lthibault/jitterbug/v2"
	"github.com/newsreel/newsreel/internal/pipeline"
	"github.com/newsreel/newsreel/internal/store"
	"github.com/newsreel/newsreel/internal/store/model"
	"github.com/newsreel/newsreel/pkg/metrics"
	"github.com/pkg/errors"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// JobRunner hands a freshly created job to the pipeline. Creation and
// execution are decoupled; the scheduler never waits on a run.
type JobRunner interface {
	Run(jobID uuid.UUID)
}

type Options struct {
	Topics         []string
	Language       string
	SyncInterval   time.Duration
	LookbackWindow time.Duration
	TopicQuota     int
	CandidateLimit int
	SyncCap        int
	CreationDelay  time.Duration
	TargetLengths  []int
	AutoPublish    bool

	ReaperInterval    time.Duration
	RetentionInterval time.Duration
}

// Scheduler owns the three automation timers: content sync, the stuck-job
// reaper and the retention sweep. The pause flag is consulted at trigger
// time only; in-flight work is never cancelled by a pause.
type Scheduler struct {
	store    store.Store
	articles pipeline.ArticleSource
	runner   JobRunner
	reaper   *StuckJobReaper
	sweeper  *RetentionSweeper
	opts     Options

	paused atomic.Bool
	cancel context.CancelFunc
	log    *zap.SugaredLogger
}

func New(s store.Store, articles pipeline.ArticleSource, runner JobRunner, reaper *StuckJobReaper, sweeper *RetentionSweeper, opts Options) *Scheduler {
	if opts.TopicQuota <= 0 {
		opts.TopicQuota = 3
	}
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = 5
	}
	if opts.SyncCap <= 0 {
		opts.SyncCap = 2
	}
	if opts.LookbackWindow <= 0 {
		opts.LookbackWindow = 24 * time.Hour
	}
	if len(opts.TargetLengths) == 0 {
		opts.TargetLengths = []int{60, 90, 120}
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = time.Hour
	}
	if opts.ReaperInterval <= 0 {
		opts.ReaperInterval = 15 * time.Minute
	}
	if opts.RetentionInterval <= 0 {
		opts.RetentionInterval = 24 * time.Hour
	}
	return &Scheduler{
		store:    s,
		articles: articles,
		runner:   runner,
		reaper:   reaper,
		sweeper:  sweeper,
		opts:     opts,
		log:      zap.S().Named("scheduler"),
	}
}

// Start registers the three timers. Each tick checks the pause flag before
// doing anything; a paused scheduler keeps ticking so Resume takes effect on
// the next trigger.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go s.loop(ctx, "sync", s.opts.SyncInterval, func(ctx context.Context) { s.syncAll(ctx) })
	go s.loop(ctx, "reaper", s.opts.ReaperInterval, s.reaper.Sweep)
	go s.loop(ctx, "retention", s.opts.RetentionInterval, s.sweeper.Sweep)

	s.log.Infow("automation started",
		"topics", s.opts.Topics,
		"sync_interval", s.opts.SyncInterval,
		"reaper_interval", s.opts.ReaperInterval,
		"retention_interval", s.opts.RetentionInterval,
	)
}

func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Scheduler) Pause() {
	s.paused.Store(true)
	s.log.Info("automation paused")
}

func (s *Scheduler) Resume() {
	s.paused.Store(false)
	s.log.Info("automation resumed")
}

func (s *Scheduler) Paused() bool {
	return s.paused.Load()
}

// SyncNow runs the sync pass immediately, bypassing the pause flag. Manual
// override for operators.
func (s *Scheduler) SyncNow(ctx context.Context) {
	s.syncAll(ctx)
}

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, tick func(context.Context)) {
	ticker := jitterbug.New(interval, &jitterbug.Norm{Stdev: interval / 20})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if s.paused.Load() {
			s.log.Debugw("automation paused, skipping trigger", "trigger", name)
			continue
		}
		tick(ctx)
	}
}

// syncAll fans out across topics with settle-all semantics: every topic gets
// its chance to finish even when siblings error.
func (s *Scheduler) syncAll(ctx context.Context) {
	var g errgroup.Group
	for _, topic := range s.opts.Topics {
		topic := topic
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					s.log.Errorw("topic sync panicked", "topic", topic, "panic", r)
				}
			}()
			if err := s.syncTopic(ctx, topic); err != nil {
				s.log.Errorw("topic sync failed", "topic", topic, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Scheduler) syncTopic(ctx context.Context, topic string) error {
	since := time.Now().UTC().Add(-s.opts.LookbackWindow)
	count, err := s.store.Job().CountByTopicSince(ctx, topic, since)
	if err != nil {
		return errors.Wrap(err, "counting recent jobs")
	}
	if count >= int64(s.opts.TopicQuota) {
		s.log.Debugw("topic quota reached, skipping", "topic", topic, "recent_jobs", count)
		return nil
	}

	candidates, err := s.articles.FetchArticles(ctx, topic, s.opts.Language)
	if err != nil {
		return errors.Wrap(err, "fetching candidate articles")
	}
	if len(candidates) > s.opts.CandidateLimit {
		candidates = candidates[:s.opts.CandidateLimit]
	}

	hashes := funk.Map(candidates, func(c pipeline.ArticleCandidate) string {
		return pipeline.ContentHash(c.Body)
	}).([]string)

	seen, err := s.store.Article().ExistingHashes(ctx, hashes)
	if err != nil {
		return errors.Wrap(err, "querying existing article hashes")
	}

	created := 0
	for i := range candidates {
		if created >= s.opts.SyncCap {
			break
		}
		// store-wide and intra-sync dedup share the same seen set
		if funk.ContainsString(seen, hashes[i]) {
			continue
		}
		seen = append(seen, hashes[i])

		if created > 0 && s.opts.CreationDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.opts.CreationDelay):
			}
		}

		job, err := s.store.Job().Create(ctx, model.Job{
			Topic:        topic,
			Language:     s.opts.Language,
			TargetLength: s.opts.TargetLengths[rand.Intn(len(s.opts.TargetLengths))],
			AutoPublish:  s.opts.AutoPublish,
			Status:       model.JobStatusQueued,
		})
		if err != nil {
			return errors.Wrap(err, "creating job")
		}
		metrics.IncreaseJobsCreatedMetric("automation")
		s.log.Infow("job created from sync", "job_id", job.ID, "topic", topic, "target_length", job.TargetLength)

		s.runner.Run(job.ID)
		created++
	}

	return nil
}
