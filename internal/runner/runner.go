// Package runner orchestrates one scheduled batch: reconcile orphans,
// enumerate targets, fetch each through the retry policy with bounded
// parallelism, persist the day's observation and raise drop alerts.
package runner

import (
	"context"
	"sync"
	"time"

	"github.com/hadiiskaargar/PricePilot/internal/alert"
	"github.com/hadiiskaargar/PricePilot/internal/extract"
	"github.com/hadiiskaargar/PricePilot/internal/fetch"
	"github.com/hadiiskaargar/PricePilot/internal/price"
	"github.com/hadiiskaargar/PricePilot/internal/reconcile"
	"github.com/hadiiskaargar/PricePilot/internal/registry"
	"github.com/hadiiskaargar/PricePilot/internal/store"
	"github.com/hadiiskaargar/PricePilot/logger"

	"github.com/google/uuid"
)

// Summary reports what one batch did.
type Summary struct {
	RunID     string
	Targets   int
	Succeeded int
	GaveUp    int
	Alerts    int
	Orphans   int
}

// Options wires a Runner.
type Options struct {
	Registry *registry.Registry
	History  *store.Store
	Policy   *fetch.Policy
	// EmailSink is gated by the registry's email-alerts toggle; nil
	// disables email delivery.
	EmailSink alert.Sink
	// ExtraSinks always receive alerts (e.g. the redis stream).
	ExtraSinks []alert.Sink
	Workers    int
}

// Runner executes batches.
type Runner struct {
	registry   *registry.Registry
	history    *store.Store
	reconciler *reconcile.Reconciler
	policy     *fetch.Policy
	emailSink  alert.Sink
	extraSinks []alert.Sink
	workers    int
	now        func() time.Time
	log        *logger.Logger
}

// New creates a batch runner.
func New(opts Options) *Runner {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		registry:   opts.Registry,
		history:    opts.History,
		reconciler: reconcile.New(opts.History),
		policy:     opts.Policy,
		emailSink:  opts.EmailSink,
		extraSinks: opts.ExtraSinks,
		workers:    workers,
		now:        time.Now,
		log:        logger.ForComponent("runner"),
	}
}

// RunBatch performs exactly one batch. The only batch-fatal condition is
// failing to enumerate tracked targets; every other failure is contained
// to its target.
func (r *Runner) RunBatch(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}
	log := r.log.WithField("run_id", summary.RunID)
	start := r.now()

	// Orphan cleanup completes fully before any fetch begins.
	tracked, err := r.registry.URLSet(ctx)
	if err != nil {
		log.Error().Err(err).Msg("cannot enumerate tracked targets, aborting batch")
		return summary, err
	}
	orphans, err := r.reconciler.Reconcile(ctx, tracked)
	if err != nil {
		log.Warn().Err(err).Msg("orphan reconciliation failed, continuing batch")
	}
	summary.Orphans = orphans

	targets, err := r.registry.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("cannot enumerate tracked targets, aborting batch")
		return summary, err
	}
	summary.Targets = len(targets)
	if len(targets) == 0 {
		log.Info().Msg("no tracked targets")
		return summary, nil
	}

	dispatcher := r.buildDispatcher(ctx, log)
	detector := alert.NewDetector()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, r.workers)
	)
	for _, target := range targets {
		// A batch may be aborted between targets.
		if ctx.Err() != nil {
			log.Warn().Msg("batch cancelled, skipping remaining targets")
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(t registry.Target) {
			defer wg.Done()
			defer func() { <-sem }()
			succeeded, alerted := r.processTarget(ctx, t, detector, dispatcher)
			mu.Lock()
			if succeeded {
				summary.Succeeded++
			} else {
				summary.GaveUp++
			}
			if alerted {
				summary.Alerts++
			}
			mu.Unlock()
		}(target)
	}
	wg.Wait()

	log.Info().
		Int("targets", summary.Targets).
		Int("succeeded", summary.Succeeded).
		Int("gave_up", summary.GaveUp).
		Int("alerts", summary.Alerts).
		Int("orphans", summary.Orphans).
		Dur("elapsed", r.now().Sub(start)).
		Msg("batch complete")
	return summary, nil
}

func (r *Runner) buildDispatcher(ctx context.Context, log *logger.Logger) *alert.Dispatcher {
	sinks := make([]alert.Sink, 0, len(r.extraSinks)+1)
	if r.emailSink != nil {
		enabled, err := r.registry.EmailAlertsEnabled(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("cannot read email alerts toggle, leaving email off")
		} else if enabled {
			sinks = append(sinks, r.emailSink)
		}
	}
	sinks = append(sinks, r.extraSinks...)
	return alert.NewDispatcher(sinks...)
}

// processTarget resolves one target to a fully-determined observation,
// persists it and evaluates the drop alert. Reported booleans are
// (fetch succeeded, alert fired).
func (r *Runner) processTarget(ctx context.Context, t registry.Target, detector *alert.Detector, dispatcher *alert.Dispatcher) (bool, bool) {
	log := logger.ForTarget(t.URL)
	res := r.policy.Fetch(ctx, t.URL, t.Source)

	name, priceVal, availability := r.resolveObservation(ctx, t.URL, res)

	productID, err := r.history.UpsertProduct(ctx, t.URL, name)
	if err != nil {
		log.Error().Err(err).Msg("product upsert failed")
		return !res.GaveUp(), false
	}

	today := r.now()
	appendRes, err := r.history.AppendObservation(ctx, productID, today, priceVal, availability)
	if err != nil {
		log.Error().Err(err).Msg("observation append failed")
		return !res.GaveUp(), false
	}
	if appendRes == store.AlreadyPresent {
		log.Debug().Str("date", today.Format(store.DateLayout)).Msg("observation slot already occupied, keeping first value")
	}

	// Evaluate against what is actually stored: if an earlier attempt
	// won today's slot, its value is the one that counts.
	cur, err := r.history.ObservationOn(ctx, productID, today)
	if err != nil || cur == nil {
		if err != nil {
			log.Error().Err(err).Msg("reading today's observation failed")
		}
		return !res.GaveUp(), false
	}
	prev, err := r.history.PreviousObservation(ctx, productID, today)
	if err != nil {
		log.Error().Err(err).Msg("previous observation lookup failed")
		return !res.GaveUp(), false
	}

	product := store.Product{ID: productID, URL: t.URL, Name: name}
	ev := detector.Evaluate(product, prev, cur)
	if ev != nil {
		dispatcher.Dispatch(ctx, *ev)
	}
	return !res.GaveUp(), ev != nil
}

// resolveObservation maps a fetch result onto the stored fields. A
// give-up is still a recorded fact: price undetermined, availability
// unknown. The give-up reason only becomes the display name when the
// product has no known name yet, so real names are never clobbered by
// "Bot Protection Detected".
func (r *Runner) resolveObservation(ctx context.Context, url string, res fetch.Result) (string, price.Price, string) {
	if !res.GaveUp() {
		return res.Fields.Title, res.Fields.Price, string(res.Fields.Availability)
	}

	name := ""
	if _, known, err := r.history.FindProductByURL(ctx, url); err != nil || !known {
		name = res.Outcome.Label()
	}
	return name, price.Undetermined, string(extract.AvailabilityUnknown)
}
