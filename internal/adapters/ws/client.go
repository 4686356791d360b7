package ws

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	domain "dokan/internal/domain/session"

	"github.com/gorilla/websocket"
)

// Client implements WebSocketClientPort over gorilla/websocket.
// Close may be called from another goroutine to interrupt a blocked read.
type Client struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	dialer *websocket.Dialer
}

// NewClient returns an unconnected client. Proxy settings come from the
// environment.
func NewClient() *Client {
	return &Client{dialer: &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
	}}
}

// Connect dials url. A 401 handshake maps to domain.ErrNoSession.
func (c *Client) Connect(url string) error {
	conn, resp, err := c.dialer.Dial(url, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("event stream: %w", domain.ErrNoSession)
		}
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

func (c *Client) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// ReadMessage blocks for the next message on the current connection.
func (c *Client) ReadMessage() ([]byte, error) {
	conn := c.current()
	if conn == nil {
		return nil, websocket.ErrBadHandshake
	}
	_, msg, err := conn.ReadMessage()
	return msg, err
}

func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}
