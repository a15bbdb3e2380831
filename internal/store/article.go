package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/newsreel/newsreel/internal/store/model"
	"gorm.io/gorm"
)

type Article interface {
	Create(ctx context.Context, article model.Article) (*model.Article, error)
	GetByJobID(ctx context.Context, jobID uuid.UUID) (*model.Article, error)
	ExistingHashes(ctx context.Context, hashes []string) ([]string, error)
}

type ArticleStore struct {
	db *gorm.DB
}

var _ Article = (*ArticleStore)(nil)

func NewArticleStore(db *gorm.DB) Article {
	return &ArticleStore{db: db}
}

func (s *ArticleStore) Create(ctx context.Context, article model.Article) (*model.Article, error) {
	if article.ID == uuid.Nil {
		article.ID = uuid.New()
	}
	result := s.getDB(ctx).Create(&article)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("creating article: %w", result.Error)
	}
	return &article, nil
}

func (s *ArticleStore) GetByJobID(ctx context.Context, jobID uuid.UUID) (*model.Article, error) {
	var article model.Article
	result := s.getDB(ctx).First(&article, "job_id = ?", jobID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying article: %w", result.Error)
	}
	return &article, nil
}

// ExistingHashes returns the subset of the given content hashes that are
// already present in the store. Used by the scheduler for dedup.
func (s *ArticleStore) ExistingHashes(ctx context.Context, hashes []string) ([]string, error) {
	if len(hashes) == 0 {
		return nil, nil
	}
	var seen []string
	result := s.getDB(ctx).Model(&model.Article{}).
		Where("content_hash IN ?", hashes).
		Distinct().
		Pluck("content_hash", &seen)
	if result.Error != nil {
		return nil, fmt.Errorf("querying article hashes: %w", result.Error)
	}
	return seen, nil
}

func (s *ArticleStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
