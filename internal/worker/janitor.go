package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/geocoder89/bankdesk/internal/observability"
)

// StaleTokenStore removes refresh token rows nobody can use anymore.
type StaleTokenStore interface {
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type Config struct {
	Interval time.Duration
	// Retention keeps expired or revoked rows around for this long so reuse
	// of a recently rotated token is still detected.
	Retention    time.Duration
	SweepTimeout time.Duration
}

type Janitor struct {
	cfg   Config
	store StaleTokenStore
	prom  *observability.Prom
	log   *slog.Logger
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool

	ready        atomic.Bool
	shuttingDown atomic.Bool
}

func New(cfg Config, store StaleTokenStore, prom *observability.Prom, log *slog.Logger) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if cfg.SweepTimeout <= 0 {
		cfg.SweepTimeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &Janitor{
		cfg:   cfg,
		store: store,
		prom:  prom,
		log:   log,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// SweepOnce deletes every refresh token that expired or was revoked before
// now minus the retention window.
func (j *Janitor) SweepOnce(ctx context.Context) (int64, error) {
	sweepCtx, cancel := context.WithTimeout(ctx, j.cfg.SweepTimeout)
	defer cancel()

	cutoff := j.now().UTC().Add(-j.cfg.Retention)

	deleted, err := j.store.DeleteStale(sweepCtx, cutoff)
	j.prom.JanitorRun(deleted, err)

	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		j.log.Info("stale refresh tokens deleted", "deleted", deleted, "cutoff", cutoff)
	}

	return deleted, nil
}

// Run sweeps on every tick until ctx is cancelled. Failed sweeps back off
// exponentially instead of waiting a full interval.
func (j *Janitor) Run(ctx context.Context) error {
	j.ready.Store(true)
	defer j.ready.Store(false)

	j.log.Info("janitor started", "interval", j.cfg.Interval, "retention", j.cfg.Retention)

	failures := 0

	for {
		wait := j.cfg.Interval

		_, err := j.SweepOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}

			wait = ExponentialBackoff(failures)
			failures++
			j.log.Error("janitor sweep failed", "err", err, "attempt", failures, "retry_in", wait)
		} else {
			failures = 0
		}

		if !j.sleep(ctx, wait) {
			break
		}
	}

	j.shuttingDown.Store(true)
	j.log.Info("janitor received shutdown signal")
	return nil
}

func (j *Janitor) Ready() bool {
	return j.ready.Load() && !j.shuttingDown.Load()
}

func (j *Janitor) ShuttingDown() bool {
	return j.shuttingDown.Load()
}

// sleepCtx reports false when ctx ended before d elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
