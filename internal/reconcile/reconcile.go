// Package reconcile prunes history for products that are no longer
// tracked. It runs at the start of every batch, before any fetch, so an
// orphaned product never gains a fresh observation in the same cycle.
package reconcile

import (
	"context"

	"github.com/hadiiskaargar/PricePilot/internal/store"
	"github.com/hadiiskaargar/PricePilot/logger"
	apperrors "github.com/hadiiskaargar/PricePilot/pkg/errors"
)

// Reconciler removes orphaned price history.
type Reconciler struct {
	history *store.Store
	log     *logger.Logger
}

// New creates a reconciler over the history store.
func New(history *store.Store) *Reconciler {
	return &Reconciler{history: history, log: logger.ForComponent("reconcile")}
}

// Reconcile deletes every history product whose URL is absent from the
// tracked set. Deletion is transactional per product; a failure on one
// orphan is logged and the rest proceed, since the check re-runs every
// cycle. Returns the number of products removed.
func (r *Reconciler) Reconcile(ctx context.Context, tracked map[string]struct{}) (int, error) {
	products, err := r.history.ListProducts(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, p := range products {
		if _, ok := tracked[p.URL]; ok {
			continue
		}
		if err := r.history.DeleteProduct(ctx, p.ID); err != nil {
			r.log.Warn().Err(apperrors.NewReconcile(p.URL, err)).
				Str("url", p.URL).
				Int64("product_id", p.ID).
				Msg("orphan cleanup failed, will retry next cycle")
			continue
		}
		removed++
		r.log.Info().
			Str("url", p.URL).
			Int64("product_id", p.ID).
			Msg("removed orphaned product history")
	}

	if removed == 0 {
		r.log.Debug().Msg("no orphaned history found")
	}
	return removed, nil
}
