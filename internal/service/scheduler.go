package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/polyarb/arbscan/internal/domain"
)

// Scheduler runs periodic refreshes on a single repeating timer. Start is
// idempotent: calling it again cancels and replaces the prior timer. Stop
// clears it, leaving no dangling schedule.
type Scheduler struct {
	svc    *RefreshService
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a Scheduler for the given refresh service.
func NewScheduler(svc *RefreshService, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		svc:    svc,
		logger: logger.With(slog.String("component", "scheduler")),
	}
}

// Start begins auto-refreshing every interval. An immediate refresh runs
// first. Any previously started timer is cancelled and replaced.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	s.logger.Info("auto-refresh started", slog.Duration("interval", interval))

	go func() {
		defer close(done)

		s.refreshOnce(loopCtx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.refreshOnce(loopCtx)
			}
		}
	}()
}

// Stop cancels the auto-refresh timer and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
	s.logger.Info("auto-refresh stopped")
}

func (s *Scheduler) refreshOnce(ctx context.Context) {
	if _, err := s.svc.Refresh(ctx); err != nil {
		if errors.Is(err, domain.ErrRefreshInFlight) || errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Error("scheduled refresh failed", slog.String("error", err.Error()))
	}
}
