package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a periodic task. A failing run is logged and retried at the next
// interval.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler fires each job on its own ticker.
type Scheduler struct {
	jobs     []Job
	zaplog   *zap.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

func NewScheduler(zaplog *zap.Logger, jobs ...Job) *Scheduler {
	return &Scheduler{
		jobs:   jobs,
		zaplog: zaplog.With(zap.String("component", "scheduler")),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called. A job without a
// positive interval fails Start before anything runs.
func (s *Scheduler) Start(ctx context.Context) error {
	defer close(s.doneCh)

	for _, job := range s.jobs {
		if job.Interval <= 0 {
			return fmt.Errorf("job %q: interval must be positive, got %s", job.Name, job.Interval)
		}
	}

	var wg sync.WaitGroup
	for _, job := range s.jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.run(ctx, job)
		}(job)
	}
	wg.Wait()

	if ctx.Err() != nil {
		s.zaplog.Info("scheduler stopping (context cancelled)")
		return ctx.Err()
	}
	s.zaplog.Info("scheduler stopping (stop called)")
	return nil
}

// Stop shuts the scheduler down and waits for running jobs to return. It
// must be called after Start.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
}

func (s *Scheduler) run(ctx context.Context, job Job) {
	s.zaplog.Info("job started", zap.String("job", job.Name), zap.Duration("interval", job.Interval))
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := job.Run(ctx); err != nil {
				s.zaplog.Error("tick error", zap.String("job", job.Name), zap.Error(err))
			}
		}
	}
}
