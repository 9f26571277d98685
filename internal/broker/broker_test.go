package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []any
	err    error
}

func (r *recordingPublisher) PublishEvent(ctx context.Context, key string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.keys = append(r.keys, key)
	r.events = append(r.events, event)
	return nil
}

func TestEventPublisher_OrderPlaced(t *testing.T) {
	rec := &recordingPublisher{}
	ep := NewEventPublisher(rec)

	order := &models.OrderRecord{
		OrderID:   "WA-1-2",
		InvoiceID: "INV-1",
		ItemCount: 3,
		Total:     decimal.NewFromInt(2500),
		Source:    models.OrderSourceWhatsApp,
	}
	require.NoError(t, ep.PublishOrderPlaced(context.Background(), order))

	require.Len(t, rec.events, 1)
	assert.Equal(t, "order-WA-1-2", rec.keys[0])

	event, ok := rec.events[0].(*models.OrderPlacedEvent)
	require.True(t, ok)
	assert.Equal(t, models.EventTypeOrderPlaced, event.EventType)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, 3, event.ItemCount)
	assert.True(t, event.Total.Equal(decimal.NewFromInt(2500)))
}

func TestEventHandler_RoutesByType(t *testing.T) {
	h := NewEventHandler()

	var placed *models.OrderPlacedEvent
	var changed *models.OrderStatusChangedEvent
	h.OnOrderPlaced(func(ctx context.Context, e *models.OrderPlacedEvent) error {
		placed = e
		return nil
	})
	h.OnOrderStatusChanged(func(ctx context.Context, e *models.OrderStatusChangedEvent) error {
		changed = e
		return nil
	})

	body, _ := json.Marshal(models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{EventID: "e1", EventType: models.EventTypeOrderStatusChanged},
		OrderID:   "WA-1",
		From:      models.OrderStatusPending,
		To:        models.OrderStatusConfirmed,
	})
	require.NoError(t, h.HandleMessage(context.Background(), kafka.Message{Value: body}))

	assert.Nil(t, placed)
	require.NotNil(t, changed)
	assert.Equal(t, models.OrderStatusConfirmed, changed.To)

	// unknown and unregistered types are ignored
	body, _ = json.Marshal(models.BaseEvent{EventID: "e2", EventType: "SOMETHING_ELSE"})
	assert.NoError(t, h.HandleMessage(context.Background(), kafka.Message{Value: body}))

	body, _ = json.Marshal(models.OrderDeletedEvent{BaseEvent: models.BaseEvent{EventType: models.EventTypeOrderDeleted}})
	assert.NoError(t, h.HandleMessage(context.Background(), kafka.Message{Value: body}))

	assert.Error(t, h.HandleMessage(context.Background(), kafka.Message{Value: []byte("{")}))
}

func TestBreakerPublisher_OpensAfterFailures(t *testing.T) {
	rec := &recordingPublisher{err: errors.New("broker down")}
	bp := NewBreakerPublisher(rec, BreakerSettings{
		Name:                "test",
		ConsecutiveFailures: 2,
		OpenTimeout:         time.Minute,
		HalfOpenRequests:    1,
	})

	ctx := context.Background()
	assert.Error(t, bp.PublishEvent(ctx, "k", "v"))
	assert.Error(t, bp.PublishEvent(ctx, "k", "v"))
	assert.Equal(t, gobreaker.StateOpen, bp.State())

	rec.mu.Lock()
	rec.err = nil
	rec.mu.Unlock()

	err := bp.PublishEvent(ctx, "k", "v")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Empty(t, rec.events)
}

func TestBreakerPublisher_PassesThrough(t *testing.T) {
	rec := &recordingPublisher{}
	bp := NewBreakerPublisher(rec, DefaultBreakerSettings())

	require.NoError(t, bp.PublishEvent(context.Background(), "order-1", map[string]string{"a": "b"}))
	assert.Equal(t, []string{"order-1"}, rec.keys)
	assert.Equal(t, gobreaker.StateClosed, bp.State())
}
