package alert

import (
	"context"

	"github.com/hadiiskaargar/PricePilot/logger"
)

// Sink delivers one alert event. Delivery is fire-and-forget from the
// pipeline's point of view.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string

	// Send delivers the event.
	Send(ctx context.Context, ev Event) error
}

// Dispatcher fans an event out to every configured sink. A sink failure
// is logged and swallowed; it never aborts the run and is not retried
// within the run.
type Dispatcher struct {
	sinks []Sink
	log   *logger.Logger
}

// NewDispatcher creates a dispatcher over the given sinks.
func NewDispatcher(sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, log: logger.ForComponent("alert")}
}

// Dispatch sends the event to all sinks.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	for _, sink := range d.sinks {
		if err := sink.Send(ctx, ev); err != nil {
			d.log.Error().Err(err).
				Str("sink", sink.Name()).
				Str("url", ev.URL).
				Msg("alert delivery failed")
			continue
		}
		d.log.Info().
			Str("sink", sink.Name()).
			Str("product", ev.ProductName).
			Str("old_price", ev.OldPrice.String()).
			Str("new_price", ev.NewPrice.String()).
			Msg("price drop alert sent")
	}
}
