package batch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/autoeda/pkg/constants"
	"github.com/inferloop/autoeda/pkg/models"
)

// Scheduler wakes every tick, collects the due jobs from the registry and
// runs them one after another on a single goroutine
type Scheduler struct {
	registry *Registry
	tick     time.Duration
	logger   *logrus.Logger

	mu      sync.Mutex
	stopped atomic.Bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewScheduler creates a scheduler; a non-positive tick selects one second
func NewScheduler(registry *Registry, tick time.Duration, logger *logrus.Logger) *Scheduler {
	if tick <= 0 {
		tick = constants.SchedulerTick
	}
	if logger == nil {
		logger = logrus.New()
	}
	s := &Scheduler{registry: registry, tick: tick, logger: logger}
	s.stopped.Store(true)
	return s
}

// Start launches the loop. Starting a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		select {
		case <-s.done:
		default:
			return
		}
	}

	s.stopped.Store(false)
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(ctx, s.stopCh, s.done)

	s.logger.WithField("tick", s.tick).Info("Batch scheduler started")
}

// Stop signals the loop and waits up to timeout for it to exit. A run in
// progress is not cancelled; if it outlasts the timeout Stop returns an error
// and the loop exits once the run completes.
func (s *Scheduler) Stop(timeout time.Duration) error {
	s.mu.Lock()
	done := s.done
	if done == nil || s.stopped.Load() {
		s.mu.Unlock()
		return nil
	}
	s.stopped.Store(true)
	close(s.stopCh)
	s.mu.Unlock()

	if timeout <= 0 {
		timeout = constants.SchedulerStopWait
	}
	select {
	case <-done:
		s.logger.Info("Batch scheduler stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("batch scheduler did not stop within %s", timeout)
	}
}

// Running reports whether the loop is active
func (s *Scheduler) Running() bool {
	return !s.stopped.Load()
}

func (s *Scheduler) loop(ctx context.Context, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.stopped.Store(true)
			return
		case <-stopCh:
			return
		case <-ticker.C:
			if s.stopped.Load() {
				return
			}
			s.runDue(ctx, s.registry.now(), true)
		}
	}
}

// RunDue runs every job that is due at now and returns how many were started
func (s *Scheduler) RunDue(ctx context.Context, now time.Time) int {
	return s.runDue(ctx, now, false)
}

func (s *Scheduler) runDue(ctx context.Context, now time.Time, honourStop bool) int {
	started := 0
	for _, jobID := range s.registry.CollectDue(now) {
		if honourStop && s.stopped.Load() {
			break
		}
		s.runOne(ctx, jobID)
		started++
	}
	return started
}

func (s *Scheduler) runOne(ctx context.Context, jobID string) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.WithFields(logrus.Fields{
				"job_id": jobID,
				"panic":  rec,
			}).Error("Batch run panicked")
		}
	}()

	if _, err := s.registry.RunJob(ctx, jobID, models.TriggerScheduler); err != nil {
		s.logger.WithError(err).WithField("job_id", jobID).Warn("Scheduled batch run skipped")
	}
}
