// Package alert decides when a price drop warrants a notification and
// delivers it. Alerts are ephemeral: deduplication lives in memory for
// one batch and is never persisted.
package alert

import (
	"fmt"
	"sync"

	"github.com/hadiiskaargar/PricePilot/internal/price"
	"github.com/hadiiskaargar/PricePilot/internal/store"
)

// Event is one price-drop alert. Identity within a run is the
// (product, old price, new price) triple.
type Event struct {
	ProductID   int64
	ProductName string
	URL         string
	OldPrice    price.Price
	NewPrice    price.Price
}

func (e Event) key() string {
	return fmt.Sprintf("%d|%s|%s", e.ProductID, e.OldPrice, e.NewPrice)
}

// Detector compares observations and emits at most one event per
// distinct transition within its lifetime. Create one per batch.
type Detector struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDetector creates a detector for one batch run.
func NewDetector() *Detector {
	return &Detector{seen: make(map[string]struct{})}
}

// Evaluate returns an event when the current observation is a genuine
// drop: a prior observation exists, both prices are determined, and the
// current price is strictly lower. Repeated identical transitions within
// the run return nil.
func (d *Detector) Evaluate(product store.Product, prev, cur *store.Observation) *Event {
	if prev == nil || cur == nil {
		return nil
	}
	if !prev.Price.Determined || !cur.Price.Determined {
		return nil
	}
	if !cur.Price.Amount.LessThan(prev.Price.Amount) {
		return nil
	}

	ev := &Event{
		ProductID:   product.ID,
		ProductName: product.Name,
		URL:         product.URL,
		OldPrice:    prev.Price,
		NewPrice:    cur.Price,
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, dup := d.seen[ev.key()]; dup {
		return nil
	}
	d.seen[ev.key()] = struct{}{}
	return ev
}
