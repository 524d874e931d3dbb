package alert

import (
	"context"

	apperrors "github.com/hadiiskaargar/PricePilot/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// StreamSink publishes alert events onto a redis stream so downstream
// consumers (dashboards, bots) can react without polling the store.
type StreamSink struct {
	client    *redis.Client
	stream    string
	maxLength int
}

// NewStreamSink creates a redis stream sink.
func NewStreamSink(addr string, db int, stream string, maxLength int) *StreamSink {
	return &StreamSink{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
		stream:    stream,
		maxLength: maxLength,
	}
}

// Name implements Sink.
func (s *StreamSink) Name() string {
	return "redis_stream"
}

// Send implements Sink. The stream is capped so unconsumed alerts do not
// grow without bound.
func (s *StreamSink) Send(ctx context.Context, ev Event) error {
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: int64(s.maxLength),
		Approx: true,
		Values: map[string]interface{}{
			"product":   ev.ProductName,
			"url":       ev.URL,
			"old_price": ev.OldPrice.String(),
			"new_price": ev.NewPrice.String(),
		},
	}).Err()
	if err != nil {
		return apperrors.NewAlert(ev.URL, err)
	}
	return nil
}

// Close closes the redis connection.
func (s *StreamSink) Close() error {
	return s.client.Close()
}
