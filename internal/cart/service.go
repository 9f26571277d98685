package cart

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"sync"

	"storefront/internal/live"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// Storage persists the serialized cart snapshot of a session. A missing
// snapshot is reported as (nil, nil).
type Storage interface {
	LoadCart(ctx context.Context, session string) ([]byte, error)
	SaveCart(ctx context.Context, session string, data []byte) error
	DeleteCart(ctx context.Context, session string) error
}

const lockStripes = 64

// Service owns the carts of all sessions. Mutations of one session are
// applied in call order; every mutation is persisted and broadcast.
type Service struct {
	storage Storage
	hub     *Hub
	locks   [lockStripes]sync.Mutex
	logger  *zap.Logger
}

// NewService creates a new cart service
func NewService(storage Storage, hub *Hub) *Service {
	if hub == nil {
		hub = NewHub(nil)
	}
	return &Service{
		storage: storage,
		hub:     hub,
		logger:  util.Named("cart"),
	}
}

// Hub returns the hub that carries this service's change notifications.
func (s *Service) Hub() *Hub {
	return s.hub
}

// Subscribe is shorthand for Hub().Subscribe.
func (s *Service) Subscribe(session string) (<-chan live.Message, func()) {
	return s.hub.Subscribe(session)
}

// Get restores the session's cart. Unreadable snapshots yield an empty cart.
func (s *Service) Get(ctx context.Context, session string) *Cart {
	ctx, span := util.StartSpan(ctx, "CartService.Get")
	defer span.End()

	return s.load(ctx, session)
}

// Add merges item into the session's cart.
func (s *Service) Add(ctx context.Context, session string, item models.CartLineItem) (*Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.Add")
	defer span.End()

	unlock := s.lock(session)
	defer unlock()

	c := s.load(ctx, session)
	if err := c.Add(item); err != nil {
		return nil, err
	}

	s.commit(ctx, session, c, Event{Type: EventItemAdded, SKU: item.ProductSKU})
	util.CartMutationsTotal.WithLabelValues("add").Inc()
	return c, nil
}

// Remove deletes the line for sku; absent skus leave the cart unchanged.
func (s *Service) Remove(ctx context.Context, session, sku string) *Cart {
	ctx, span := util.StartSpan(ctx, "CartService.Remove")
	defer span.End()

	unlock := s.lock(session)
	defer unlock()

	c := s.load(ctx, session)
	c.Remove(sku)

	s.commit(ctx, session, c, Event{Type: EventItemRemoved, SKU: sku})
	util.CartMutationsTotal.WithLabelValues("remove").Inc()
	return c
}

// Clear empties the session's cart.
func (s *Service) Clear(ctx context.Context, session string) *Cart {
	ctx, span := util.StartSpan(ctx, "CartService.Clear")
	defer span.End()

	unlock := s.lock(session)
	defer unlock()

	c := New()
	if err := s.storage.DeleteCart(ctx, session); err != nil {
		util.CartStorageErrorsTotal.WithLabelValues("delete").Inc()
		s.logger.Warn("Failed to delete cart snapshot", zap.String("session", session), zap.Error(err))
	}

	s.publish(session, c, Event{Type: EventCleared})
	util.CartMutationsTotal.WithLabelValues("clear").Inc()
	return c
}

func (s *Service) load(ctx context.Context, session string) *Cart {
	data, err := s.storage.LoadCart(ctx, session)
	if err != nil {
		util.CartStorageErrorsTotal.WithLabelValues("load").Inc()
		s.logger.Warn("Failed to load cart, starting empty", zap.String("session", session), zap.Error(err))
		return New()
	}
	if len(data) == 0 {
		return New()
	}

	c := New()
	if err := json.Unmarshal(data, c); err != nil {
		util.CartStorageErrorsTotal.WithLabelValues("decode").Inc()
		s.logger.Warn("Corrupt cart snapshot, starting empty", zap.String("session", session), zap.Error(err))
		return New()
	}
	return c
}

func (s *Service) commit(ctx context.Context, session string, c *Cart, ev Event) {
	data, err := json.Marshal(c)
	if err == nil {
		err = s.storage.SaveCart(ctx, session, data)
	}
	if err != nil {
		util.CartStorageErrorsTotal.WithLabelValues("save").Inc()
		s.logger.Warn("Failed to persist cart", zap.String("session", session), zap.Error(err))
	}

	s.publish(session, c, ev)
}

func (s *Service) publish(session string, c *Cart, ev Event) {
	ev.Session = session
	ev.Items = c.Items()
	ev.Count = c.Count()
	ev.Total = c.Total()
	s.hub.Publish(ev)
}

func (s *Service) lock(session string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(session))
	m := &s.locks[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}
