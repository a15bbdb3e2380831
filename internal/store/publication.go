package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/newsreel/newsreel/internal/store/model"
	"gorm.io/gorm"
)

type Publication interface {
	Create(ctx context.Context, publication model.Publication) (*model.Publication, error)
	ListByJobID(ctx context.Context, jobID uuid.UUID) ([]model.Publication, error)
}

type PublicationStore struct {
	db *gorm.DB
}

var _ Publication = (*PublicationStore)(nil)

func NewPublicationStore(db *gorm.DB) Publication {
	return &PublicationStore{db: db}
}

func (s *PublicationStore) Create(ctx context.Context, publication model.Publication) (*model.Publication, error) {
	if publication.ID == uuid.Nil {
		publication.ID = uuid.New()
	}
	if result := s.getDB(ctx).Create(&publication); result.Error != nil {
		return nil, fmt.Errorf("creating publication: %w", result.Error)
	}
	return &publication, nil
}

func (s *PublicationStore) ListByJobID(ctx context.Context, jobID uuid.UUID) ([]model.Publication, error) {
	var publications []model.Publication
	result := s.getDB(ctx).Where("job_id = ?", jobID).Order("created_at").Find(&publications)
	if result.Error != nil {
		return nil, fmt.Errorf("querying publications: %w", result.Error)
	}
	return publications, nil
}

func (s *PublicationStore) getDB(ctx context.Context) *gorm.DB {
	if tx := FromContext(ctx); tx != nil {
		return tx
	}
	return s.db
}
