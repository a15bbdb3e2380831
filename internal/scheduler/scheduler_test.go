package scheduler_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/newsreel/newsreel/internal/config"
	"github.com/newsreel/newsreel/internal/pipeline"
	"github.com/newsreel/newsreel/internal/scheduler"
	"github.com/newsreel/newsreel/internal/store"
	"github.com/newsreel/newsreel/internal/store/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	testStore store.Store
	gormdb    *gorm.DB
)

func TestMain(m *testing.M) {
	os.Setenv("DB_TYPE", "sqlite")
	os.Setenv("DB_NAME", "file::memory:?cache=shared")

	cfg, err := config.New()
	if err != nil {
		panic(err)
	}
	db, err := store.InitDB(cfg)
	if err != nil {
		panic(err)
	}
	gormdb = db
	testStore = store.NewStore(db)
	if err := testStore.InitialMigration(); err != nil {
		panic(err)
	}

	code := m.Run()
	testStore.Close()
	os.Exit(code)
}

func resetTables(t *testing.T) {
	t.Helper()
	for _, table := range []string{"publications", "video_assets", "audio_assets", "summaries", "articles", "jobs"} {
		require.NoError(t, gormdb.Exec("DELETE from "+table+";").Error)
	}
}

// recordingRunner collects the job ids handed to the pipeline without
// executing anything.
type recordingRunner struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (r *recordingRunner) Run(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *recordingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

type stubArticles struct {
	candidates []pipeline.ArticleCandidate
}

func (s *stubArticles) FetchArticles(ctx context.Context, topic, language string) ([]pipeline.ArticleCandidate, error) {
	return s.candidates, nil
}

func candidates(bodies ...string) []pipeline.ArticleCandidate {
	out := make([]pipeline.ArticleCandidate, 0, len(bodies))
	for i, body := range bodies {
		out = append(out, pipeline.ArticleCandidate{
			Title: "candidate",
			Body:  body,
			URL:   "https://example.com/" + string(rune('a'+i)),
		})
	}
	return out
}

func newScheduler(articles pipeline.ArticleSource, runner scheduler.JobRunner, opts scheduler.Options) *scheduler.Scheduler {
	reaper := scheduler.NewStuckJobReaper(testStore, 30*time.Minute)
	sweeper := scheduler.NewRetentionSweeper(testStore, 30*24*time.Hour)
	return scheduler.New(testStore, articles, runner, reaper, sweeper, opts)
}

func TestSyncCapsJobsPerTopic(t *testing.T) {
	resetTables(t)

	runner := &recordingRunner{}
	articles := &stubArticles{candidates: candidates("body one", "body two", "body three", "body four", "body five")}
	s := newScheduler(articles, runner, scheduler.Options{Topics: []string{"Economy"}})

	s.SyncNow(context.Background())

	jobs, err := testStore.Job().List(context.Background(), store.NewJobQueryFilter(), store.NewJobQueryOptions())
	require.NoError(t, err)
	require.Len(t, jobs, 2, "a sync pass creates at most two jobs per topic")
	require.Equal(t, 2, runner.count())

	for _, job := range jobs {
		require.Equal(t, "Economy", job.Topic)
		require.Equal(t, "en", job.Language)
		require.Equal(t, model.JobStatusQueued, job.Status)
		require.Contains(t, []int{60, 90, 120}, job.TargetLength)
	}
}

func TestSyncRespectsTopicQuota(t *testing.T) {
	resetTables(t)

	for i := 0; i < 3; i++ {
		_, err := testStore.Job().Create(context.Background(), model.Job{
			Topic:        "Economy",
			Language:     "en",
			TargetLength: 60,
			Status:       model.JobStatusCompleted,
		})
		require.NoError(t, err)
	}

	runner := &recordingRunner{}
	articles := &stubArticles{candidates: candidates("body one", "body two")}
	s := newScheduler(articles, runner, scheduler.Options{Topics: []string{"Economy"}})

	s.SyncNow(context.Background())

	count, err := testStore.Job().CountByTopicSince(context.Background(), "Economy", time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(3), count, "a topic at quota gets no new jobs")
	require.Equal(t, 0, runner.count())
}

func TestSyncSkipsSeenArticles(t *testing.T) {
	resetTables(t)

	// an earlier job already produced candidate one's article
	earlier, err := testStore.Job().Create(context.Background(), model.Job{
		Topic:        "Science",
		Language:     "en",
		TargetLength: 60,
		Status:       model.JobStatusCompleted,
	})
	require.NoError(t, err)
	_, err = testStore.Article().Create(context.Background(), model.Article{
		JobID:       earlier.ID,
		Title:       "candidate",
		Body:        "body one",
		ContentHash: pipeline.ContentHash("body one"),
	})
	require.NoError(t, err)

	runner := &recordingRunner{}
	articles := &stubArticles{candidates: candidates("body one", "body two")}
	s := newScheduler(articles, runner, scheduler.Options{Topics: []string{"Economy"}})

	s.SyncNow(context.Background())

	jobs, err := testStore.Job().List(context.Background(),
		store.NewJobQueryFilter().ByTopic("Economy"), store.NewJobQueryOptions())
	require.NoError(t, err)
	require.Len(t, jobs, 1, "only the unseen candidate becomes a job")
}

func TestSyncSkipsDuplicateCandidates(t *testing.T) {
	resetTables(t)

	runner := &recordingRunner{}
	articles := &stubArticles{candidates: candidates("same body", "same body", "same body")}
	s := newScheduler(articles, runner, scheduler.Options{Topics: []string{"Economy"}})

	s.SyncNow(context.Background())

	jobs, err := testStore.Job().List(context.Background(), store.NewJobQueryFilter(), store.NewJobQueryOptions())
	require.NoError(t, err)
	require.Len(t, jobs, 1, "identical candidates collapse to one job inside a pass")
}

// syncRunner executes the pipeline inline so a sync pass leaves articles
// behind for the next pass to dedup against.
type syncRunner struct {
	executor *pipeline.Executor
}

func (r *syncRunner) Run(id uuid.UUID) {
	r.executor.Execute(context.Background(), id)
}

func TestSyncDedupAcrossPasses(t *testing.T) {
	resetTables(t)

	articles := &stubArticles{candidates: candidates("breaking story")}
	collab := pipeline.Collaborators{
		Articles: articles,
		Summarizer: summarizerFunc(func(ctx context.Context, title, body string, targetSeconds int) (*pipeline.SummaryResult, error) {
			return &pipeline.SummaryResult{Text: "summary", WordCount: 1}, nil
		}),
		Speech: speechFunc(func(ctx context.Context, text, language string) (*pipeline.SpeechResult, error) {
			return &pipeline.SpeechResult{URL: "https://cdn.example.com/a.mp3", Duration: 30}, nil
		}),
		Renderer: rendererFunc(func(ctx context.Context, req pipeline.RenderRequest) (*pipeline.RenderResult, error) {
			return &pipeline.RenderResult{VideoURL: "https://cdn.example.com/a.mp4", Width: 1920, Height: 1080}, nil
		}),
	}
	executor := pipeline.NewExecutor(testStore, collab, time.Minute, 1)
	s := newScheduler(articles, &syncRunner{executor: executor}, scheduler.Options{Topics: []string{"Economy"}})

	s.SyncNow(context.Background())
	jobs, err := testStore.Job().List(context.Background(), store.NewJobQueryFilter(), store.NewJobQueryOptions())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, model.JobStatusCompleted, jobs[0].Status)

	// the same candidate shows up again on the next pass
	s.SyncNow(context.Background())
	jobs, err = testStore.Job().List(context.Background(), store.NewJobQueryFilter(), store.NewJobQueryOptions())
	require.NoError(t, err)
	require.Len(t, jobs, 1, "a published story must not become a second job")
}

func TestPauseAndResume(t *testing.T) {
	resetTables(t)

	runner := &recordingRunner{}
	articles := &stubArticles{candidates: candidates("body one")}
	s := newScheduler(articles, runner, scheduler.Options{Topics: []string{"Economy"}})

	require.False(t, s.Paused())
	s.Pause()
	require.True(t, s.Paused())

	// manual sync bypasses the pause flag
	s.SyncNow(context.Background())
	require.Equal(t, 1, runner.count())

	s.Resume()
	require.False(t, s.Paused())
}

func TestReaperSweep(t *testing.T) {
	resetTables(t)

	stale, err := testStore.Job().Create(context.Background(), model.Job{
		Topic: "Economy", Language: "en", TargetLength: 60, Status: model.JobStatusRunning,
	})
	require.NoError(t, err)
	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, gormdb.Model(&model.Job{}).Where("id = ?", stale.ID).
		Updates(map[string]interface{}{"updated_at": past}).Error)

	fresh, err := testStore.Job().Create(context.Background(), model.Job{
		Topic: "Economy", Language: "en", TargetLength: 60, Status: model.JobStatusRunning,
	})
	require.NoError(t, err)

	reaper := scheduler.NewStuckJobReaper(testStore, 30*time.Minute)
	reaper.Sweep(context.Background())

	got, err := testStore.Job().Get(context.Background(), stale.ID)
	require.NoError(t, err)
	require.Equal(t, model.JobStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	require.Contains(t, *got.Error, "timed out")

	got, err = testStore.Job().Get(context.Background(), fresh.ID)
	require.NoError(t, err)
	require.Equal(t, model.JobStatusRunning, got.Status, "a live running job must not be reaped")
}

func TestRetentionSweep(t *testing.T) {
	resetTables(t)

	old, err := testStore.Job().Create(context.Background(), model.Job{
		Topic: "Economy", Language: "en", TargetLength: 60, Status: model.JobStatusCompleted,
	})
	require.NoError(t, err)
	_, err = testStore.Summary().Create(context.Background(), model.Summary{
		JobID: old.ID, Text: "summary", WordCount: 1,
	})
	require.NoError(t, err)
	past := time.Now().UTC().Add(-31 * 24 * time.Hour)
	require.NoError(t, gormdb.Model(&model.Job{}).Where("id = ?", old.ID).
		Updates(map[string]interface{}{"created_at": past, "updated_at": past}).Error)

	recent, err := testStore.Job().Create(context.Background(), model.Job{
		Topic: "Economy", Language: "en", TargetLength: 60, Status: model.JobStatusCompleted,
	})
	require.NoError(t, err)

	sweeper := scheduler.NewRetentionSweeper(testStore, 30*24*time.Hour)
	sweeper.Sweep(context.Background())

	_, err = testStore.Job().Get(context.Background(), old.ID)
	require.ErrorIs(t, err, store.ErrRecordNotFound)

	_, err = testStore.Job().Get(context.Background(), recent.ID)
	require.NoError(t, err)

	count := 0
	require.NoError(t, gormdb.Raw("SELECT COUNT(*) from summaries;").Scan(&count).Error)
	require.Equal(t, 0, count)
}

// function adapters for the collaborator interfaces

type summarizerFunc func(ctx context.Context, title, body string, targetSeconds int) (*pipeline.SummaryResult, error)

func (f summarizerFunc) GenerateSummary(ctx context.Context, title, body string, targetSeconds int) (*pipeline.SummaryResult, error) {
	return f(ctx, title, body, targetSeconds)
}

type speechFunc func(ctx context.Context, text, language string) (*pipeline.SpeechResult, error)

func (f speechFunc) GenerateTTS(ctx context.Context, text, language string) (*pipeline.SpeechResult, error) {
	return f(ctx, text, language)
}

type rendererFunc func(ctx context.Context, req pipeline.RenderRequest) (*pipeline.RenderResult, error)

func (f rendererFunc) Render(ctx context.Context, req pipeline.RenderRequest) (*pipeline.RenderResult, error) {
	return f(ctx, req)
}
