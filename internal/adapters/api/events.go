package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// EventLogout tells every client of an account that its session was revoked.
const EventLogout = "logout"

// SessionEvent is pushed to connected clients of one account
type SessionEvent struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// EventHub tracks websocket connections per account
type EventHub struct {
	connections map[string]map[*websocket.Conn]*sync.Mutex // accountID -> conn -> write lock
	mu          sync.RWMutex
}

// NewEventHub creates an empty hub
func NewEventHub() *EventHub {
	return &EventHub{connections: make(map[string]map[*websocket.Conn]*sync.Mutex)}
}

// Register adds a connection for an account
func (h *EventHub) Register(accountID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.connections[accountID]; !exists {
		h.connections[accountID] = make(map[*websocket.Conn]*sync.Mutex)
	}
	h.connections[accountID][conn] = &sync.Mutex{}
	log.Info().Str("account_id", accountID).Msg("Event connection registered")
}

// Unregister removes a connection
func (h *EventHub) Unregister(accountID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, exists := h.connections[accountID]; exists {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.connections, accountID)
		}
	}
	log.Info().Str("account_id", accountID).Msg("Event connection unregistered")
}

// Count returns the number of open connections for an account
func (h *EventHub) Count(accountID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[accountID])
}

// Publish sends ev to every connection of ev.UserID
func (h *EventHub) Publish(ev SessionEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn, wmu := range h.connections[ev.UserID] {
		wmu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		wmu.Unlock()
		if err != nil {
			log.Warn().Err(err).Str("account_id", ev.UserID).Msg("Failed to push session event")
		}
	}
	log.Debug().Str("account_id", ev.UserID).Str("type", ev.Type).Msg("Session event published")
}

// HandleEvents streams session events to a client authenticated by access token (?token=...)
func (h *Handler) HandleEvents(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		fail(c, http.StatusBadRequest, "token required")
		return
	}
	account, err := h.authService.Authenticate(c.Request.Context(), token)
	if err != nil {
		fail(c, http.StatusUnauthorized, "invalid token")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}
	defer func() {
		h.events.Unregister(account.ID, conn)
		conn.Close()
	}()

	h.events.Register(account.ID, conn)

	// Clients never send anything; reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Info().Str("account_id", account.ID).Msg("Event connection closed")
			break
		}
	}
}
