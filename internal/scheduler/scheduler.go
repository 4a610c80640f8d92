// Package scheduler drives periodic credit reconciliation in the background.
// It sweeps every registered shop on a fixed interval: first recovering
// records stuck in processing, then running one reconciliation pass.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-credit-backend/internal/repo"
	"github.com/tbourn/go-credit-backend/internal/services"
)

// Reconciler is the slice of the reconcile service the scheduler needs.
type Reconciler interface {
	RecoverStale(ctx context.Context, shopID string) (int64, error)
	Run(ctx context.Context, shopID string) (services.Summary, error)
}

// Scheduler sweeps all shops on each tick. A sweep that overruns the
// interval simply delays the next one; passes never overlap.
type Scheduler struct {
	DB       *gorm.DB
	Rec      Reconciler
	Log      zerolog.Logger
	Interval time.Duration

	// WebhookTTL is how long webhook delivery records are kept for replay
	// detection. Zero or less skips pruning.
	WebhookTTL time.Duration
}

// Run blocks until ctx is cancelled, sweeping every Interval. An Interval
// of zero or less disables the scheduler and returns immediately.
func (s *Scheduler) Run(ctx context.Context) {
	if s.Interval <= 0 {
		s.Log.Info().Msg("reconcile scheduler disabled")
		return
	}

	s.Log.Info().Dur("interval", s.Interval).Msg("reconcile scheduler started")
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Log.Info().Msg("reconcile scheduler stopped")
			return
		case <-t.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep prunes expired webhook delivery records, then runs one
// reconciliation pass for every registered shop. Per-shop failures are
// logged and do not stop the sweep.
func (s *Scheduler) Sweep(ctx context.Context) {
	if s.WebhookTTL > 0 {
		cutoff := time.Now().UTC().Add(-s.WebhookTTL)
		if n, err := repo.PruneWebhookEvents(ctx, s.DB, cutoff); err != nil {
			s.Log.Error().Err(err).Msg("scheduler: webhook prune failed")
		} else if n > 0 {
			s.Log.Info().Int64("pruned", n).Msg("scheduler: pruned webhook deliveries")
		}
	}

	shops, err := repo.ListShops(ctx, s.DB)
	if err != nil {
		s.Log.Error().Err(err).Msg("scheduler: list shops failed")
		return
	}

	for _, shop := range shops {
		if ctx.Err() != nil {
			return
		}
		if n, err := s.Rec.RecoverStale(ctx, shop.ID); err != nil {
			s.Log.Error().Err(err).Str("shop_id", shop.ID).Msg("scheduler: stale recovery failed")
		} else if n > 0 {
			s.Log.Warn().Str("shop_id", shop.ID).Int64("recovered", n).Msg("scheduler: recovered stale records")
		}

		sum, err := s.Rec.Run(ctx, shop.ID)
		if err != nil {
			s.Log.Error().Err(err).Str("shop_id", shop.ID).Msg("scheduler: reconcile pass failed")
			continue
		}
		if sum.Attempted > 0 {
			s.Log.Info().
				Str("shop_id", shop.ID).
				Int("attempted", sum.Attempted).
				Int("succeeded", sum.Succeeded).
				Int("failed", sum.Failed).
				Int("released", sum.Released).
				Msg("scheduler: reconcile pass finished")
		}
	}
}
