package handlers

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/chainraise/backend/internal/auth"
	"github.com/chainraise/backend/internal/config"
	"github.com/chainraise/backend/internal/events"
)

// WSHub pushes campaign events to connected clients. Connections are keyed
// by lowercased wallet address; anonymous connections subscribe under the
// empty key and still receive broadcasts.
type WSHub struct {
	cfg         *config.Config
	subscriber  events.Subscriber
	log         *zap.Logger
	mu          sync.RWMutex
	connections map[string][]*websocket.Conn
}

func NewWSHub(cfg *config.Config, subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		cfg:         cfg,
		subscriber:  subscriber,
		log:         log,
		connections: make(map[string][]*websocket.Conn),
	}
}

// Start relays the campaign event stream to every connection. Snapshot
// refreshes, confirmed donations and lifecycle actions all arrive here, so
// a client can re-fetch instead of polling.
func (h *WSHub) Start(ctx context.Context) {
	_ = h.subscriber.Subscribe(ctx, events.StreamCampaigns, func(event events.Event) {
		h.broadcast(event)
	})
}

func (h *WSHub) broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conns := range h.connections {
		for _, conn := range conns {
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
	}
}

// SendToAddress pushes an event to one wallet's connections only.
func (h *WSHub) SendToAddress(address string, event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.connections[strings.ToLower(address)] {
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	// Token is optional: without one the client still gets broadcasts,
	// just no address-targeted pushes.
	address := ""
	if tokenStr := conn.Query("token"); tokenStr != "" {
		claims, err := auth.ParseJWT(h.cfg.JWTSecret, tokenStr)
		if err != nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid token"}`))
			conn.Close()
			return
		}
		address = strings.ToLower(claims.Address)
	}

	h.mu.Lock()
	h.connections[address] = append(h.connections[address], conn)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		conns := h.connections[address]
		for i, c := range conns {
			if c == conn {
				h.connections[address] = append(conns[:i], conns[i+1:]...)
				break
			}
		}
		if len(h.connections[address]) == 0 {
			delete(h.connections, address)
		}
		h.mu.Unlock()
		conn.Close()
	}()

	// Read loop (keep alive / pings)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
