// Package sweep reconciles orders that outlived their validity window and
// evicts terminal orders past the retention policy.
//
// The sweeper is the only actor permitted to move an order to EXPIRED. It
// runs outside the request path: a client submitting a late fill against an
// already-swept order gets OrderTerminalError from the engine, never silent
// acceptance.
package sweep

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"tradeledger/internal/engine"
	"tradeledger/internal/models"
	"tradeledger/internal/store"
)

// Sweeper expires overdue pending orders and compacts old terminal ones.
type Sweeper struct {
	store     store.OrderStore
	locks     *engine.LockTable
	logger    zerolog.Logger
	retention time.Duration
}

// New creates a sweeper sharing the engine's per-order lock table, so a
// sweep transition and a concurrent fill for the same order serialize.
func New(s store.OrderStore, locks *engine.LockTable, logger zerolog.Logger, retention time.Duration) *Sweeper {
	return &Sweeper{
		store:     s,
		locks:     locks,
		logger:    logger,
		retention: retention,
	}
}

// SweepExpired transitions every non-terminal order whose deadline passed
// before asOf to EXPIRED with IsActive=false, and returns how many orders
// it flipped. Re-running with the same asOf is a no-op: already-expired
// orders are terminal and skipped on the locked re-read.
func (s *Sweeper) SweepExpired(ctx context.Context, asOf time.Time) (int, error) {
	candidates, err := s.store.ListOrders(ctx, store.OrderFilter{PendingOnly: true})
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range candidates {
		id := candidates[i].ID
		if !candidates[i].IsExpired(asOf) {
			continue
		}

		n, err := s.expireOne(ctx, id, asOf)
		if err != nil {
			// Persistence failures go back to the caller unaltered,
			// with the count of what did get swept.
			return swept, err
		}
		swept += n
	}

	if swept > 0 {
		s.logger.Info().Int("count", swept).Time("as_of", asOf).Msg("Expired orders swept")
	}
	return swept, nil
}

// expireOne re-reads and flips a single order under its lock. A concurrent
// fill may have completed or the order may already be terminal; both are
// counted as no-ops, not errors.
func (s *Sweeper) expireOne(ctx context.Context, orderID string, asOf time.Time) (int, error) {
	mu := s.locks.Acquire(orderID)
	mu.Lock()
	defer mu.Unlock()

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}
	if order.IsTerminal() || !order.IsExpired(asOf) {
		return 0, nil
	}

	updated := order.Clone()
	updated.Status = models.StatusExpired
	updated.IsActive = false
	updated.AppendNote("expired by sweep at " + asOf.UTC().Format(time.RFC3339))
	updated.UpdatedAt = asOf

	if err := s.store.UpdateOrder(ctx, updated); err != nil {
		return 0, err
	}
	return 1, nil
}

// Compact physically evicts cancelled and expired orders whose last update
// is older than the retention window. Eviction is storage hygiene only;
// correctness never depends on it.
func (s *Sweeper) Compact(ctx context.Context, asOf time.Time) (int, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	cutoff := asOf.Add(-s.retention)

	candidates, err := s.store.ListOrders(ctx, store.OrderFilter{
		TerminalOnly: true,
		UpdatedUntil: cutoff,
	})
	if err != nil {
		return 0, err
	}

	evicted := 0
	for i := range candidates {
		o := &candidates[i]
		if o.Status != models.StatusCancelled && o.Status != models.StatusExpired {
			continue
		}
		if err := s.store.DeleteOrder(ctx, o.ID); err != nil {
			return evicted, err
		}
		s.locks.Forget(o.ID)
		evicted++
	}

	if evicted > 0 {
		s.logger.Info().Int("count", evicted).Time("cutoff", cutoff).Msg("Terminal orders evicted")
	}
	return evicted, nil
}

// Run sweeps on a fixed interval until the context is cancelled. Errors are
// logged and the loop continues; the next tick retries.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := s.SweepExpired(ctx, now); err != nil {
				s.logger.Error().Err(err).Msg("Expiration sweep failed")
			}
			if _, err := s.Compact(ctx, now); err != nil {
				s.logger.Error().Err(err).Msg("Retention compaction failed")
			}
		}
	}
}
