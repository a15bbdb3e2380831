package store_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/newsreel/newsreel/internal/config"
	"github.com/newsreel/newsreel/internal/store"
	"github.com/newsreel/newsreel/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("job store", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
	)

	createJob := func(topic string, status model.JobStatus) *model.Job {
		job, err := s.Job().Create(context.TODO(), model.Job{
			Topic:        topic,
			Language:     "en",
			TargetLength: 60,
			Status:       status,
		})
		Expect(err).To(BeNil())
		return job
	}

	backdate := func(id uuid.UUID, column string, t time.Time) {
		tx := gormdb.Model(&model.Job{}).Where("id = ?", id).
			Updates(map[string]interface{}{column: t, "updated_at": t})
		Expect(tx.Error).To(BeNil())
	}

	BeforeAll(func() {
		cfg, err := config.New()
		Expect(err).To(BeNil())

		db, err := store.InitDB(cfg)
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration()).To(BeNil())
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE from publications;")
		gormdb.Exec("DELETE from video_assets;")
		gormdb.Exec("DELETE from audio_assets;")
		gormdb.Exec("DELETE from summaries;")
		gormdb.Exec("DELETE from articles;")
		gormdb.Exec("DELETE from jobs;")
	})

	Context("create", func() {
		It("assigns an id and defaults the status to queued", func() {
			job, err := s.Job().Create(context.TODO(), model.Job{
				Topic:        "Economy",
				Language:     "en",
				TargetLength: 90,
			})
			Expect(err).To(BeNil())
			Expect(job.ID).ToNot(Equal(uuid.Nil))
			Expect(job.Status).To(Equal(model.JobStatusQueued))
			Expect(job.Progress).To(Equal(0))
		})

		It("keeps an explicit id", func() {
			id := uuid.New()
			job, err := s.Job().Create(context.TODO(), model.Job{
				ID:           id,
				Topic:        "Economy",
				Language:     "en",
				TargetLength: 60,
			})
			Expect(err).To(BeNil())
			Expect(job.ID).To(Equal(id))
		})
	})

	Context("get", func() {
		It("returns not found for an unknown id", func() {
			_, err := s.Job().Get(context.TODO(), uuid.New())
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})

		It("preloads the job's artifacts", func() {
			job := createJob("Economy", model.JobStatusQueued)

			_, err := s.Article().Create(context.TODO(), model.Article{
				JobID:       job.ID,
				Title:       "title",
				Body:        "body",
				ContentHash: "abcd",
			})
			Expect(err).To(BeNil())
			_, err = s.Summary().Create(context.TODO(), model.Summary{
				JobID:     job.ID,
				Text:      "summary",
				WordCount: 1,
			})
			Expect(err).To(BeNil())

			got, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(got.Article).ToNot(BeNil())
			Expect(got.Article.Title).To(Equal("title"))
			Expect(got.Summary).ToNot(BeNil())
			Expect(got.AudioAsset).To(BeNil())
		})
	})

	Context("list", func() {
		It("filters by status and topic", func() {
			createJob("Economy", model.JobStatusQueued)
			createJob("Economy", model.JobStatusCompleted)
			createJob("Science", model.JobStatusQueued)

			jobs, err := s.Job().List(context.TODO(),
				store.NewJobQueryFilter().ByStatus(model.JobStatusQueued),
				store.NewJobQueryOptions())
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(2))

			jobs, err = s.Job().List(context.TODO(),
				store.NewJobQueryFilter().ByStatus(model.JobStatusQueued).ByTopic("Science"),
				store.NewJobQueryOptions())
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].Topic).To(Equal("Science"))
		})

		It("honours the limit option", func() {
			createJob("Economy", model.JobStatusQueued)
			createJob("Economy", model.JobStatusQueued)
			createJob("Economy", model.JobStatusQueued)

			jobs, err := s.Job().List(context.TODO(),
				store.NewJobQueryFilter(),
				store.NewJobQueryOptions().WithSortOrder(store.SortByCreatedTime).WithLimit(2))
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(2))
		})
	})

	Context("update status", func() {
		It("writes status and progress together", func() {
			job := createJob("Economy", model.JobStatusQueued)

			progress := 25
			updated, err := s.Job().UpdateStatus(context.TODO(), job.ID, model.JobStatusRunning, nil, &progress)
			Expect(err).To(BeNil())
			Expect(updated.Status).To(Equal(model.JobStatusRunning))

			got, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(model.JobStatusRunning))
			Expect(got.Progress).To(Equal(25))
			Expect(got.Error).To(BeNil())
		})

		It("leaves progress untouched when nil", func() {
			job := createJob("Economy", model.JobStatusQueued)

			progress := 50
			_, err := s.Job().UpdateStatus(context.TODO(), job.ID, model.JobStatusRunning, nil, &progress)
			Expect(err).To(BeNil())

			msg := "summarizer: boom"
			_, err = s.Job().UpdateStatus(context.TODO(), job.ID, model.JobStatusFailed, &msg, nil)
			Expect(err).To(BeNil())

			got, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(model.JobStatusFailed))
			Expect(got.Progress).To(Equal(50))
			Expect(got.Error).ToNot(BeNil())
			Expect(*got.Error).To(Equal("summarizer: boom"))
		})

		It("returns not found for an unknown id", func() {
			_, err := s.Job().UpdateStatus(context.TODO(), uuid.New(), model.JobStatusRunning, nil, nil)
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})

	Context("count by topic", func() {
		It("only counts jobs created inside the window", func() {
			createJob("Economy", model.JobStatusCompleted)
			old := createJob("Economy", model.JobStatusCompleted)
			backdate(old.ID, "created_at", time.Now().UTC().Add(-48*time.Hour))
			createJob("Science", model.JobStatusCompleted)

			count, err := s.Job().CountByTopicSince(context.TODO(), "Economy", time.Now().UTC().Add(-24*time.Hour))
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(1)))
		})
	})

	Context("stuck jobs", func() {
		It("finds running jobs with a stale updated_at", func() {
			stale := createJob("Economy", model.JobStatusRunning)
			backdate(stale.ID, "updated_at", time.Now().UTC().Add(-time.Hour))
			createJob("Economy", model.JobStatusRunning)
			queued := createJob("Economy", model.JobStatusQueued)
			backdate(queued.ID, "updated_at", time.Now().UTC().Add(-time.Hour))

			jobs, err := s.Job().GetStuck(context.TODO(), 30*time.Minute)
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].ID).To(Equal(stale.ID))
		})

		It("fails a stuck job when updated_at still matches", func() {
			stale := createJob("Economy", model.JobStatusRunning)
			backdate(stale.ID, "updated_at", time.Now().UTC().Add(-time.Hour))

			jobs, err := s.Job().GetStuck(context.TODO(), 30*time.Minute)
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))

			reaped, err := s.Job().FailIfStillRunning(context.TODO(), jobs[0].ID, jobs[0].UpdatedAt, "timed out: no pipeline progress")
			Expect(err).To(BeNil())
			Expect(reaped).To(BeTrue())

			got, err := s.Job().Get(context.TODO(), stale.ID)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(model.JobStatusFailed))
			Expect(*got.Error).To(Equal("timed out: no pipeline progress"))
		})

		It("leaves the job alone when the executor progressed since the read", func() {
			stale := createJob("Economy", model.JobStatusRunning)
			backdate(stale.ID, "updated_at", time.Now().UTC().Add(-time.Hour))

			jobs, err := s.Job().GetStuck(context.TODO(), 30*time.Minute)
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))

			// the executor completes the job before the reaper writes
			progress := 100
			_, err = s.Job().UpdateStatus(context.TODO(), stale.ID, model.JobStatusCompleted, nil, &progress)
			Expect(err).To(BeNil())

			reaped, err := s.Job().FailIfStillRunning(context.TODO(), jobs[0].ID, jobs[0].UpdatedAt, "timed out")
			Expect(err).To(BeNil())
			Expect(reaped).To(BeFalse())

			got, err := s.Job().Get(context.TODO(), stale.ID)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(model.JobStatusCompleted))
			Expect(got.Error).To(BeNil())
		})
	})

	Context("retention", func() {
		It("deletes expired jobs together with their artifacts", func() {
			old := createJob("Economy", model.JobStatusCompleted)
			backdate(old.ID, "created_at", time.Now().UTC().Add(-31*24*time.Hour))
			_, err := s.Article().Create(context.TODO(), model.Article{
				JobID:       old.ID,
				Title:       "title",
				Body:        "body",
				ContentHash: "abcd",
			})
			Expect(err).To(BeNil())
			_, err = s.Publication().Create(context.TODO(), model.Publication{
				JobID:    old.ID,
				Platform: "youtube",
				Status:   model.PublicationStatusPublished,
			})
			Expect(err).To(BeNil())

			fresh := createJob("Economy", model.JobStatusCompleted)

			deleted, err := s.Job().DeleteOlderThan(context.TODO(), time.Now().UTC().Add(-30*24*time.Hour))
			Expect(err).To(BeNil())
			Expect(deleted).To(Equal(int64(1)))

			_, err = s.Job().Get(context.TODO(), old.ID)
			Expect(err).To(MatchError(store.ErrRecordNotFound))

			_, err = s.Job().Get(context.TODO(), fresh.ID)
			Expect(err).To(BeNil())

			count := 0
			Expect(gormdb.Raw("SELECT COUNT(*) from articles;").Scan(&count).Error).To(BeNil())
			Expect(count).To(Equal(0))
			Expect(gormdb.Raw("SELECT COUNT(*) from publications;").Scan(&count).Error).To(BeNil())
			Expect(count).To(Equal(0))
		})

		It("returns zero when nothing is expired", func() {
			createJob("Economy", model.JobStatusCompleted)

			deleted, err := s.Job().DeleteOlderThan(context.TODO(), time.Now().UTC().Add(-30*24*time.Hour))
			Expect(err).To(BeNil())
			Expect(deleted).To(Equal(int64(0)))
		})
	})

	Context("delete", func() {
		It("removes the job and its artifacts", func() {
			job := createJob("Economy", model.JobStatusCompleted)
			_, err := s.Summary().Create(context.TODO(), model.Summary{
				JobID:     job.ID,
				Text:      "summary",
				WordCount: 1,
			})
			Expect(err).To(BeNil())

			Expect(s.Job().Delete(context.TODO(), job.ID)).To(BeNil())

			_, err = s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(MatchError(store.ErrRecordNotFound))

			count := 0
			Expect(gormdb.Raw("SELECT COUNT(*) from summaries;").Scan(&count).Error).To(BeNil())
			Expect(count).To(Equal(0))
		})
	})
})
