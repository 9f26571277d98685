package live

import (
	"strings"
	"sync"
	"time"

	"storefront/internal/util"
)

// Topic names
const (
	TopicOrders = "orders"
)

// CatalogTopic is the topic carrying changes to one product category.
func CatalogTopic(category string) string {
	return "catalog:" + category
}

// CartTopic is the topic carrying changes to one session's cart.
func CartTopic(session string) string {
	return "cart:" + session
}

// topicKind collapses per-session and per-category topics into one metric label.
func topicKind(topic string) string {
	if i := strings.IndexByte(topic, ':'); i >= 0 {
		return topic[:i]
	}
	return topic
}

// Message is one update pushed to websocket clients.
type Message struct {
	Type string    `json:"type"`
	Data any       `json:"data"`
	At   time.Time `json:"at"`
}

const subscriberBuffer = 32

// Feed broadcasts messages to every subscriber of a topic. Delivery is best
// effort: a subscriber whose buffer is full misses the message.
type Feed struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan Message
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[string]map[int]chan Message)}
}

// Subscribe registers a subscriber on topic. The returned cancel closes the
// channel and may be called more than once.
func (f *Feed) Subscribe(topic string) (<-chan Message, func()) {
	ch := make(chan Message, subscriberBuffer)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	if f.subs[topic] == nil {
		f.subs[topic] = make(map[int]chan Message)
	}
	f.subs[topic][id] = ch
	f.mu.Unlock()
	util.LiveSubscribers.WithLabelValues(topicKind(topic)).Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs[topic], id)
			if len(f.subs[topic]) == 0 {
				delete(f.subs, topic)
			}
			close(ch)
			f.mu.Unlock()
			util.LiveSubscribers.WithLabelValues(topicKind(topic)).Dec()
		})
	}
	return ch, cancel
}

// Broadcast sends a message to all current subscribers of topic and returns
// how many received it.
func (f *Feed) Broadcast(topic, msgType string, data any) int {
	msg := Message{Type: msgType, Data: data, At: time.Now().UTC()}

	f.mu.RLock()
	defer f.mu.RUnlock()

	delivered := 0
	for _, ch := range f.subs[topic] {
		select {
		case ch <- msg:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers reports the number of open subscriptions on topic.
func (f *Feed) Subscribers(topic string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[topic])
}
