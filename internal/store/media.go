package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/newsreel/newsreel/internal/store/model"
	"gorm.io/gorm"
)

type Summary interface {
	Create(ctx context.Context, summary model.Summary) (*model.Summary, error)
}

type AudioAsset interface {
	Create(ctx context.Context, asset model.AudioAsset) (*model.AudioAsset, error)
}

type VideoAsset interface {
	Create(ctx context.Context, asset model.VideoAsset) (*model.VideoAsset, error)
}

type SummaryStore struct {
	db *gorm.DB
}

var _ Summary = (*SummaryStore)(nil)

func NewSummaryStore(db *gorm.DB) Summary {
	return &SummaryStore{db: db}
}

func (s *SummaryStore) Create(ctx context.Context, summary model.Summary) (*model.Summary, error) {
	if summary.ID == uuid.Nil {
		summary.ID = uuid.New()
	}
	if result := s.getDB(ctx).Create(&summary); result.Error != nil {
		return nil, fmt.Errorf("creating summary: %w", result.Error)
	}
	return &summary, nil
}

func (s *SummaryStore) getDB(ctx context.Context) *gorm.DB {
	if tx := FromContext(ctx); tx != nil {
		return tx
	}
	return s.db
}

type AudioAssetStore struct {
	db *gorm.DB
}

var _ AudioAsset = (*AudioAssetStore)(nil)

func NewAudioAssetStore(db *gorm.DB) AudioAsset {
	return &AudioAssetStore{db: db}
}

func (s *AudioAssetStore) Create(ctx context.Context, asset model.AudioAsset) (*model.AudioAsset, error) {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	if result := s.getDB(ctx).Create(&asset); result.Error != nil {
		return nil, fmt.Errorf("creating audio asset: %w", result.Error)
	}
	return &asset, nil
}

func (s *AudioAssetStore) getDB(ctx context.Context) *gorm.DB {
	if tx := FromContext(ctx); tx != nil {
		return tx
	}
	return s.db
}

type VideoAssetStore struct {
	db *gorm.DB
}

var _ VideoAsset = (*VideoAssetStore)(nil)

func NewVideoAssetStore(db *gorm.DB) VideoAsset {
	return &VideoAssetStore{db: db}
}

func (s *VideoAssetStore) Create(ctx context.Context, asset model.VideoAsset) (*model.VideoAsset, error) {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	if result := s.getDB(ctx).Create(&asset); result.Error != nil {
		return nil, fmt.Errorf("creating video asset: %w", result.Error)
	}
	return &asset, nil
}

func (s *VideoAssetStore) getDB(ctx context.Context) *gorm.DB {
	if tx := FromContext(ctx); tx != nil {
		return tx
	}
	return s.db
}
