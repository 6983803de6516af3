package store

import (
	"context"
	"log/slog"
	"time"
)

type sweepStore interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
	DeleteStaleLoginProcesses(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Sweeper periodically deletes expired sessions and abandoned login
// processes. It shares nothing with request handling beyond the connection
// pool; all coordination happens through the database.
type Sweeper struct {
	store    sweepStore
	interval time.Duration
	loginTTL time.Duration
	logger   *slog.Logger
}

func NewSweeper(store sweepStore, interval, loginTTL time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		loginTTL: loginTTL,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	sessions, err := s.store.DeleteExpiredSessions(ctx)
	if err != nil {
		s.logger.Error("sweep: deleting expired sessions", "error", err)
	}

	logins, err := s.store.DeleteStaleLoginProcesses(ctx, s.loginTTL)
	if err != nil {
		s.logger.Error("sweep: deleting stale login processes", "error", err)
	}

	s.logger.Debug("sweep complete",
		"sessions_removed", sessions,
		"login_processes_removed", logins,
	)
}
