package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/newsreel/newsreel/internal/store"
	"github.com/newsreel/newsreel/pkg/metrics"
	"go.uber.org/zap"
)

// StuckJobReaper fails jobs stuck in running status past the staleness
// threshold. A job whose executor died silently never writes again, so a
// stale updated_at is the only signal we get.
type StuckJobReaper struct {
	store      store.Store
	staleAfter time.Duration
	log        *zap.SugaredLogger
}

func NewStuckJobReaper(s store.Store, staleAfter time.Duration) *StuckJobReaper {
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	return &StuckJobReaper{
		store:      s,
		staleAfter: staleAfter,
		log:        zap.S().Named("reaper"),
	}
}

// Sweep fails every stale running job. The write is conditional on the
// updated_at observed at query time, so an executor completing the job
// between our read and write wins the race.
func (r *StuckJobReaper) Sweep(ctx context.Context) {
	jobs, err := r.store.Job().GetStuck(ctx, r.staleAfter)
	if err != nil {
		r.log.Errorw("failed to query stuck jobs", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	errMsg := fmt.Sprintf("timed out: no pipeline progress for more than %s", r.staleAfter)
	for _, job := range jobs {
		reaped, err := r.store.Job().FailIfStillRunning(ctx, job.ID, job.UpdatedAt, errMsg)
		if err != nil {
			r.log.Errorw("failed to reap stuck job", "job_id", job.ID, "error", err)
			continue
		}
		if !reaped {
			// the executor made progress since our query; leave it alone
			continue
		}
		metrics.IncreaseJobsReapedMetric()
		r.log.Warnw("reaped stuck job", "job_id", job.ID, "topic", job.Topic, "last_update", job.UpdatedAt)
	}
}
