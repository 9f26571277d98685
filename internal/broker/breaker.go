package broker

import (
	"context"
	"time"

	"storefront/internal/util"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerSettings tunes the publish circuit breaker.
type BreakerSettings struct {
	Name                string
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	HalfOpenRequests    uint32
}

// DefaultBreakerSettings trips after five straight failures and probes again after 30s.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:                "kafka-publish",
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

// BreakerPublisher stops calling the broker while it keeps failing, so a
// broker outage costs checkout a fast error instead of a write timeout.
type BreakerPublisher struct {
	next Publisher
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreakerPublisher wraps next with a circuit breaker
func NewBreakerPublisher(next Publisher, s BreakerSettings) *BreakerPublisher {
	logger := util.Named("breaker")

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.HalfOpenRequests,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &BreakerPublisher{next: next, cb: cb}
}

// PublishEvent forwards to the wrapped publisher unless the breaker is open
func (b *BreakerPublisher) PublishEvent(ctx context.Context, key string, event any) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.PublishEvent(ctx, key, event)
	})
	return err
}

// State reports the breaker state for readiness checks
func (b *BreakerPublisher) State() gobreaker.State {
	return b.cb.State()
}
