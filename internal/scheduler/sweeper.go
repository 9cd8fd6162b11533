// Package scheduler periodically starts scheduled newsletter campaigns that have come due.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// DueProcessor starts every scheduled campaign whose time has come.
type DueProcessor interface {
	ProcessDueScheduledCampaigns(ctx context.Context) (int, error)
}

// Recoverer restarts SENDING campaigns whose jobs were lost.
type Recoverer interface {
	RecoverAbandoned(ctx context.Context) (int, error)
}

// Locker guards a sweep so that one replica runs it at a time.
type Locker interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Sweeper runs the due-campaign sweep on a fixed interval.
type Sweeper struct {
	processor DueProcessor
	recoverer Recoverer
	locker    Locker
	interval  time.Duration
	logger    *slog.Logger
}

func NewSweeper(processor DueProcessor, locker Locker, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{processor: processor, locker: locker, interval: interval, logger: logger}
}

// WithRecovery makes every sweep also recover abandoned campaigns, under the same lock.
func (s *Sweeper) WithRecovery(r Recoverer) *Sweeper {
	s.recoverer = r
	return s
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass if the lock is free. It returns the number of scheduled
// campaigns started.
func (s *Sweeper) Sweep(ctx context.Context) int {
	ok, err := s.locker.TryAcquire(ctx)
	if err != nil {
		s.logger.Error("scheduler lock unavailable", "err", err)
		return 0
	}
	if !ok {
		s.logger.Debug("scheduler sweep skipped, lock held elsewhere")
		return 0
	}
	defer func() {
		// Release even when ctx was cancelled mid-sweep.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.locker.Release(releaseCtx); err != nil {
			s.logger.Warn("scheduler lock release failed", "err", err)
		}
	}()

	if s.recoverer != nil {
		if n, err := s.recoverer.RecoverAbandoned(ctx); err != nil {
			s.logger.Error("abandoned campaign recovery failed", "recovered", n, "err", err)
		} else if n > 0 {
			s.logger.Info("abandoned campaigns recovered", "count", n)
		}
	}

	n, err := s.processor.ProcessDueScheduledCampaigns(ctx)
	if err != nil {
		s.logger.Error("scheduled campaign sweep failed", "started", n, "err", err)
	} else if n > 0 {
		s.logger.Info("scheduled campaigns started", "count", n)
	}
	return n
}
