package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/five82/duelist/internal/state"
)

const (
	defaultPollInterval = 2 * time.Second
	maxBackoff          = 30 * time.Second
)

// refresher is the part of a session the poller drives.
type refresher interface {
	Refresh(ctx context.Context, background bool) error
	Store() *state.Store
}

// StartPoller launches a background goroutine that reconciles the session
// with the server at a fixed cadence, backing off while the server is
// unreachable. It returns immediately.
func StartPoller(ctx context.Context, src refresher, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	go func() {
		timer := time.NewTimer(0)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			failures := pollOnce(ctx, src, log)
			timer.Reset(calculateBackoff(failures, interval))
		}
	}()
}

// pollOnce runs one background refresh, records its outcome and returns the
// number of consecutive transport failures so far.
func pollOnce(ctx context.Context, src refresher, log *zap.Logger) int {
	err := src.Refresh(ctx, true)
	if ctx.Err() != nil {
		return 0
	}
	store := src.Store()
	store.RecordPoll(err)
	failures := store.Snapshot().ConsecutiveFailures
	if err != nil {
		log.Debug("poll tick failed", zap.Int("consecutive_failures", failures), zap.Error(err))
	}
	return failures
}

// calculateBackoff doubles the interval per consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, interval time.Duration) time.Duration {
	if failures <= 0 {
		return interval
	}
	if failures >= 16 {
		return maxBackoff
	}
	backoff := interval << failures
	if backoff <= 0 || backoff > maxBackoff {
		return maxBackoff
	}
	return backoff
}
