package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront/internal/live"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

func newUpgrader(origins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(origins),
	}
}

// originChecker admits browsers from the configured CORS origins. Requests
// without an Origin header come from non-browser clients and pass, as do
// same-host pages. An empty list or "*" admits every origin.
func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		o = strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			allowed[o] = true
		}
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		return allowed[strings.ToLower(strings.TrimRight(origin, "/"))]
	}
}

// cartFeed pushes cart changes for one session
func (h *Handler) cartFeed(c *gin.Context) {
	session := strings.TrimSpace(c.Query("session"))
	if session == "" {
		session = strings.TrimSpace(c.GetHeader(cartSessionHeader))
	}
	if session == "" {
		session, _ = c.Cookie(cartSessionCookie)
	}
	if session == "" {
		badRequest(c, "Missing cart session", nil)
		return
	}

	events, cancel := h.deps.Carts.Subscribe(session)
	defer cancel()
	stream(h, c, "cart", events)
}

// catalogFeed pushes product changes for one category
func (h *Handler) catalogFeed(c *gin.Context) {
	category, ok := categoryParam(c)
	if !ok {
		return
	}

	msgs, cancel := h.deps.Feed.Subscribe(live.CatalogTopic(string(category)))
	defer cancel()
	stream(h, c, "catalog", msgs)
}

// orderFeed pushes order lifecycle events to the back-office
func (h *Handler) orderFeed(c *gin.Context) {
	msgs, cancel := h.deps.Feed.Subscribe(live.TopicOrders)
	defer cancel()
	stream(h, c, "orders", msgs)
}

// stream upgrades the request and writes every value from src as JSON until
// src closes, a write fails or the client goes away.
func stream[T any](h *Handler, c *gin.Context, feed string, src <-chan T) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.String("feed", feed), zap.Error(err))
		return
	}
	defer conn.Close()

	// clients never send data; reading only services pongs and notices close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case v, ok := <-src:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(v); err != nil {
				h.logger.Debug("Websocket write failed", zap.String("feed", feed), zap.Error(err))
				return
			}
		}
	}
}
