package scheduler

import (
	"context"
	"time"

	"github.com/newsreel/newsreel/internal/store"
	"github.com/newsreel/newsreel/pkg/metrics"
	"go.uber.org/zap"
)

// RetentionSweeper purges jobs older than the retention window, cascading
// to their artifacts and publications.
type RetentionSweeper struct {
	store  store.Store
	window time.Duration
	log    *zap.SugaredLogger
}

func NewRetentionSweeper(s store.Store, window time.Duration) *RetentionSweeper {
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	return &RetentionSweeper{
		store:  s,
		window: window,
		log:    zap.S().Named("retention"),
	}
}

func (s *RetentionSweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.window)
	deleted, err := s.store.Job().DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.log.Errorw("retention sweep failed", "cutoff", cutoff, "error", err)
		return
	}
	if deleted > 0 {
		metrics.AddJobsPurgedMetric(deleted)
		s.log.Infow("retention sweep finished", "cutoff", cutoff, "jobs_deleted", deleted)
	}
}
