package service

import (
	"context"

	"github.com/newsreel/newsreel/internal/scheduler"
)

// AutomationService is the operator control surface over the scheduler:
// trigger-sync-now, pause and resume. All three are idempotent.
type AutomationService struct {
	scheduler *scheduler.Scheduler
}

func NewAutomationService(sched *scheduler.Scheduler) *AutomationService {
	return &AutomationService{scheduler: sched}
}

// TriggerSync runs a sync pass immediately, regardless of the pause flag.
func (s *AutomationService) TriggerSync(ctx context.Context) {
	s.scheduler.SyncNow(ctx)
}

func (s *AutomationService) Pause() {
	s.scheduler.Pause()
}

func (s *AutomationService) Resume() {
	s.scheduler.Resume()
}

func (s *AutomationService) Paused() bool {
	return s.scheduler.Paused()
}
