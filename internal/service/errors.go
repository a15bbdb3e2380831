package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id uuid.UUID, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrJobNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "job")
}

type ErrInvalidJob struct {
	error
}

func NewErrInvalidJob(message string) *ErrInvalidJob {
	return &ErrInvalidJob{fmt.Errorf("invalid job: %s", message)}
}

type ErrJobNotDeletable struct {
	error
}

func NewErrJobNotDeletable(id uuid.UUID) *ErrJobNotDeletable {
	return &ErrJobNotDeletable{fmt.Errorf("job %s is still running and cannot be deleted", id)}
}
