package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/log"
)

// Job is a periodic task. Run returns the number of records it touched.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context, now time.Time) (int, error)
}

// Scheduler runs each job once at start and then on its own ticker until
// stopped or the context ends.
type Scheduler struct {
	jobs   []Job
	logger *log.Logger
	now    func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewScheduler(logger *log.Logger, jobs ...Job) *Scheduler {
	return &Scheduler{jobs: jobs, logger: logger.WithComponent(log.ComponentWorker), now: time.Now}
}

// Start begins the job loops. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	for _, j := range s.jobs {
		if j.Interval <= 0 || j.Run == nil {
			s.mu.Unlock()
			return fmt.Errorf("job %q needs a positive interval and a run func", j.Name)
		}
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.doneCh)
		var g errgroup.Group
		for _, j := range s.jobs {
			g.Go(func() error {
				s.loop(ctx, j)
				return nil
			})
		}
		_ = g.Wait()
	}()

	s.logger.InfoContext(ctx, "Scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop signals every loop and waits for them to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)

	select {
	case <-s.doneCh:
		s.logger.InfoContext(ctx, "Scheduler stopped gracefully")
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Scheduler stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, j Job) {
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	s.runOnce(ctx, j)
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, j)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, j Job) {
	start := s.now()
	n, err := j.Run(ctx, start)
	if err != nil {
		s.logger.ErrorContext(ctx, "Scheduled job failed", "job", j.Name, log.FieldError, err)
		return
	}
	s.logger.DebugContext(ctx, "Scheduled job finished",
		"job", j.Name,
		log.FieldCount, n,
		log.FieldDuration, time.Since(start).Milliseconds())
}
