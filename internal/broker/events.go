package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing order domain events
type EventPublisher struct {
	publisher Publisher
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(publisher Publisher) *EventPublisher {
	return &EventPublisher{publisher: publisher}
}

func newBase(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

func orderKey(orderID string) string {
	return "order-" + orderID
}

// PublishOrderPlaced publishes ORDER_PLACED for a freshly written record
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, rec *models.OrderRecord) error {
	event := &models.OrderPlacedEvent{
		BaseEvent: newBase(models.EventTypeOrderPlaced),
		OrderID:   rec.OrderID,
		InvoiceID: rec.InvoiceID,
		ItemCount: rec.ItemCount,
		Total:     rec.Total,
		Items:     rec.Items,
		Source:    rec.Source,
	}
	return ep.publish(ctx, rec.OrderID, event.EventType, event)
}

// PublishOrderStatusChanged publishes ORDER_STATUS_CHANGED
func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, orderID string, from, to models.OrderStatus) error {
	event := &models.OrderStatusChangedEvent{
		BaseEvent: newBase(models.EventTypeOrderStatusChanged),
		OrderID:   orderID,
		From:      from,
		To:        to,
	}
	return ep.publish(ctx, orderID, event.EventType, event)
}

// PublishOrderUpdated publishes ORDER_UPDATED
func (ep *EventPublisher) PublishOrderUpdated(ctx context.Context, orderID string, customer models.Customer) error {
	event := &models.OrderUpdatedEvent{
		BaseEvent: newBase(models.EventTypeOrderUpdated),
		OrderID:   orderID,
		Customer:  customer,
	}
	return ep.publish(ctx, orderID, event.EventType, event)
}

// PublishOrderDeleted publishes ORDER_DELETED
func (ep *EventPublisher) PublishOrderDeleted(ctx context.Context, orderID string) error {
	event := &models.OrderDeletedEvent{
		BaseEvent: newBase(models.EventTypeOrderDeleted),
		OrderID:   orderID,
	}
	return ep.publish(ctx, orderID, event.EventType, event)
}

func (ep *EventPublisher) publish(ctx context.Context, orderID, eventType string, event any) error {
	if err := ep.publisher.PublishEvent(ctx, orderKey(orderID), event); err != nil {
		util.EventPublishFailedTotal.WithLabelValues(eventType).Inc()
		return err
	}
	return nil
}

// EventHandler handles incoming events
type EventHandler struct {
	onOrderPlaced        func(context.Context, *models.OrderPlacedEvent) error
	onOrderStatusChanged func(context.Context, *models.OrderStatusChangedEvent) error
	onOrderUpdated       func(context.Context, *models.OrderUpdatedEvent) error
	onOrderDeleted       func(context.Context, *models.OrderDeletedEvent) error
	logger               *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.Named("event-handler")}
}

// OnOrderPlaced registers a handler for ORDER_PLACED events
func (eh *EventHandler) OnOrderPlaced(handler func(context.Context, *models.OrderPlacedEvent) error) {
	eh.onOrderPlaced = handler
}

// OnOrderStatusChanged registers a handler for ORDER_STATUS_CHANGED events
func (eh *EventHandler) OnOrderStatusChanged(handler func(context.Context, *models.OrderStatusChangedEvent) error) {
	eh.onOrderStatusChanged = handler
}

// OnOrderUpdated registers a handler for ORDER_UPDATED events
func (eh *EventHandler) OnOrderUpdated(handler func(context.Context, *models.OrderUpdatedEvent) error) {
	eh.onOrderUpdated = handler
}

// OnOrderDeleted registers a handler for ORDER_DELETED events
func (eh *EventHandler) OnOrderDeleted(handler func(context.Context, *models.OrderDeletedEvent) error) {
	eh.onOrderDeleted = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeOrderPlaced:
		if eh.onOrderPlaced != nil {
			var event models.OrderPlacedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderPlaced event: %w", err)
			}
			return eh.onOrderPlaced(ctx, &event)
		}

	case models.EventTypeOrderStatusChanged:
		if eh.onOrderStatusChanged != nil {
			var event models.OrderStatusChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderStatusChanged event: %w", err)
			}
			return eh.onOrderStatusChanged(ctx, &event)
		}

	case models.EventTypeOrderUpdated:
		if eh.onOrderUpdated != nil {
			var event models.OrderUpdatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderUpdated event: %w", err)
			}
			return eh.onOrderUpdated(ctx, &event)
		}

	case models.EventTypeOrderDeleted:
		if eh.onOrderDeleted != nil {
			var event models.OrderDeletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderDeleted event: %w", err)
			}
			return eh.onOrderDeleted(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
