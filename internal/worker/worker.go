package worker

import (
	"context"

	"storefront/internal/broker"
	"storefront/internal/live"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// EventLog records which events have already been fanned out.
type EventLog interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// Broadcaster pushes a message to live subscribers of a topic.
type Broadcaster interface {
	Broadcast(topic, msgType string, data any) int
}

// OrderFeedWorker relays order events from Kafka to the admin live feed
type OrderFeedWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	events       EventLog
	feed         Broadcaster
	logger       *zap.Logger
}

// NewOrderFeedWorker creates a new order feed worker
func NewOrderFeedWorker(consumer *broker.Consumer, events EventLog, feed Broadcaster) *OrderFeedWorker {
	w := &OrderFeedWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		events:       events,
		feed:         feed,
		logger:       util.Named("order-feed-worker"),
	}

	w.eventHandler.OnOrderPlaced(func(ctx context.Context, e *models.OrderPlacedEvent) error {
		return w.relay(ctx, e.BaseEvent, e)
	})
	w.eventHandler.OnOrderStatusChanged(func(ctx context.Context, e *models.OrderStatusChangedEvent) error {
		return w.relay(ctx, e.BaseEvent, e)
	})
	w.eventHandler.OnOrderUpdated(func(ctx context.Context, e *models.OrderUpdatedEvent) error {
		return w.relay(ctx, e.BaseEvent, e)
	})
	w.eventHandler.OnOrderDeleted(func(ctx context.Context, e *models.OrderDeletedEvent) error {
		return w.relay(ctx, e.BaseEvent, e)
	})

	return w
}

// relay broadcasts an event once. A redelivered event is acknowledged
// without a second broadcast.
func (w *OrderFeedWorker) relay(ctx context.Context, base models.BaseEvent, payload any) error {
	if base.EventID != "" {
		processed, err := w.events.IsEventProcessed(ctx, base.EventID)
		if err != nil {
			return err
		}
		if processed {
			w.logger.Debug("Skipping duplicate event", zap.String("event_id", base.EventID))
			return nil
		}
	}

	n := w.feed.Broadcast(live.TopicOrders, base.EventType, payload)
	w.logger.Debug("Relayed order event",
		zap.String("type", base.EventType),
		zap.Int("subscribers", n))

	if base.EventID == "" {
		return nil
	}
	return w.events.MarkEventProcessed(ctx, base.EventID, base.EventType)
}

// Start starts the worker
func (w *OrderFeedWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting order feed worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *OrderFeedWorker) Stop() error {
	w.logger.Info("Stopping order feed worker")
	return w.consumer.Close()
}
