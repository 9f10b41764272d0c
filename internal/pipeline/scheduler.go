package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Scheduler periodically asks the cycle to run when the store is stale.
type Scheduler struct {
	cycle *Cycle

	mu       sync.Mutex
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	started  bool
}

// NewScheduler creates a scheduler checking staleness every interval.
func NewScheduler(cycle *Cycle, interval time.Duration) *Scheduler {
	return &Scheduler{cycle: cycle, interval: interval}
}

// Start launches the loop. The first staleness check happens immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("scheduler already started")
	}
	if s.interval <= 0 {
		return errors.New("scheduler interval must be > 0")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.started = true
	go s.loop(ctx, s.interval, s.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight cycle to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.started = false
	s.mu.Unlock()

	cancel()
	<-done
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.tick(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	ran, report, err := s.cycle.RunIfStale(ctx)
	switch {
	case errors.Is(err, ErrCycleRunning):
		slog.Debug("scheduled fetch skipped, cycle already running")
	case err != nil:
		slog.Error("scheduled fetch failed", "error", err)
	case ran:
		slog.Info("scheduled fetch done", "message", report.Message())
	}
}
