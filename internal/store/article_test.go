package store_test

import (
	"context"

	"github.com/newsreel/newsreel/internal/config"
	"github.com/newsreel/newsreel/internal/store"
	"github.com/newsreel/newsreel/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("article store", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
	)

	createArticle := func(hash string) {
		job, err := s.Job().Create(context.TODO(), model.Job{
			Topic:        "Economy",
			Language:     "en",
			TargetLength: 60,
		})
		Expect(err).To(BeNil())

		_, err = s.Article().Create(context.TODO(), model.Article{
			JobID:       job.ID,
			Title:       "title",
			Body:        "body",
			ContentHash: hash,
		})
		Expect(err).To(BeNil())
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
		gormdb.Exec("DELETE from articles;")
		gormdb.Exec("DELETE from jobs;")
	})

	Context("existing hashes", func() {
		It("returns only the hashes already stored", func() {
			createArticle("aaaa")
			createArticle("bbbb")

			seen, err := s.Article().ExistingHashes(context.TODO(), []string{"aaaa", "cccc"})
			Expect(err).To(BeNil())
			Expect(seen).To(ConsistOf("aaaa"))
		})

		It("returns nothing for an empty input", func() {
			createArticle("aaaa")

			seen, err := s.Article().ExistingHashes(context.TODO(), []string{})
			Expect(err).To(BeNil())
			Expect(seen).To(BeEmpty())
		})

		It("collapses duplicate stored hashes", func() {
			createArticle("aaaa")
			createArticle("aaaa")

			seen, err := s.Article().ExistingHashes(context.TODO(), []string{"aaaa"})
			Expect(err).To(BeNil())
			Expect(seen).To(HaveLen(1))
		})
	})
})
