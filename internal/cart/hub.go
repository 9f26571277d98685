package cart

import (
	"storefront/internal/live"
	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// EventType describes what happened to a cart.
type EventType string

const (
	EventItemAdded   EventType = "item_added"
	EventItemRemoved EventType = "item_removed"
	EventCleared     EventType = "cleared"
)

// Event is the payload of a cart message, published after every mutation.
// The enclosing live.Message carries its type and timestamp.
type Event struct {
	Session string                `json:"-"`
	Type    EventType             `json:"-"`
	SKU     string                `json:"sku,omitempty"`
	Items   []models.CartLineItem `json:"items"`
	Count   int                   `json:"count"`
	Total   decimal.Decimal       `json:"total"`
}

// Hub publishes cart events on a live.Feed, one topic per session. Slow
// subscribers drop events rather than block the mutation.
type Hub struct {
	feed *live.Feed
}

// NewHub publishes on feed, or on a private feed when feed is nil.
func NewHub(feed *live.Feed) *Hub {
	if feed == nil {
		feed = live.NewFeed()
	}
	return &Hub{feed: feed}
}

// Subscribe returns the messages for session and a function that
// unsubscribes and closes the channel. Each message's Data is an Event.
func (h *Hub) Subscribe(session string) (<-chan live.Message, func()) {
	return h.feed.Subscribe(live.CartTopic(session))
}

// Publish delivers ev to every subscriber of ev.Session.
func (h *Hub) Publish(ev Event) {
	h.feed.Broadcast(live.CartTopic(ev.Session), string(ev.Type), ev)
}

// Subscribers reports how many subscriptions are open for session.
func (h *Hub) Subscribers(session string) int {
	return h.feed.Subscribers(live.CartTopic(session))
}
