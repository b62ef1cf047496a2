package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Scheduler manages a background task that runs at regular intervals
type Scheduler struct {
	name     string
	interval time.Duration
	task     func(context.Context)
	clock    clock.Clock
	logger   *zap.Logger
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
}

// New creates a new Scheduler instance
func New(name string, interval time.Duration, clk clock.Clock, logger *zap.Logger, task func(context.Context)) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		task:     task,
		clock:    clk,
		logger:   logger.With(zap.String("component", "scheduler"), zap.String("task", name)),
	}
}

// Start begins executing the task at the specified interval
func (s *Scheduler) Start(ctx context.Context, firstRunImmediately bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	// created before the goroutine so a tick right after Start is not lost
	ticker := s.clock.Ticker(s.interval)

	s.logger.Debug("scheduler started", zap.Duration("interval", s.interval))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()

		if firstRunImmediately {
			s.run(ctx)
		}

		for {
			select {
			case <-ticker.C:
				s.run(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := s.clock.Now()
	s.task(ctx)
	s.logger.Debug("task finished", zap.Duration("took", s.clock.Since(start)))
}

// Stop terminates the periodic task execution
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.running = false
	s.logger.Debug("scheduler stopped")
}

// IsRunning returns true if the task is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Interval returns the period between runs
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}
