package store

import (
	"context"

	"github.com/newsreel/newsreel/internal/store/model"
	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Job() Job
	Article() Article
	Summary() Summary
	AudioAsset() AudioAsset
	VideoAsset() VideoAsset
	Publication() Publication
	InitialMigration() error
	Close() error
}

type DataStore struct {
	db          *gorm.DB
	job         Job
	article     Article
	summary     Summary
	audioAsset  AudioAsset
	videoAsset  VideoAsset
	publication Publication
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:          db,
		job:         NewJobStore(db),
		article:     NewArticleStore(db),
		summary:     NewSummaryStore(db),
		audioAsset:  NewAudioAssetStore(db),
		videoAsset:  NewVideoAssetStore(db),
		publication: NewPublicationStore(db),
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Job() Job {
	return s.job
}

func (s *DataStore) Article() Article {
	return s.article
}

func (s *DataStore) Summary() Summary {
	return s.summary
}

func (s *DataStore) AudioAsset() AudioAsset {
	return s.audioAsset
}

func (s *DataStore) VideoAsset() VideoAsset {
	return s.videoAsset
}

func (s *DataStore) Publication() Publication {
	return s.publication
}

func (s *DataStore) InitialMigration() error {
	return s.db.AutoMigrate(
		&model.Job{},
		&model.Article{},
		&model.Summary{},
		&model.AudioAsset{},
		&model.VideoAsset{},
		&model.Publication{},
	)
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
