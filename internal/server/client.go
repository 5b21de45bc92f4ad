// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one live connection of an authenticated user. A client belongs
// to at most one room at a time.
type Client struct {
	id          string
	username    string
	conn        *websocket.Conn
	send        chan []byte
	hub         *Hub
	addr        string
	closed      bool // guarded by hub.mutex
	rateLimiter *rate.Limiter
	logger      *slog.Logger

	mu       sync.Mutex
	room     string
	detached bool
}

// NewClient creates a Client for username on conn. The send buffer size and
// rate limit come from the hub's configuration. conn may be nil for clients
// that are driven without a socket.
func NewClient(conn *websocket.Conn, hub *Hub, username, addr string) *Client {
	cfg := hub.config
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	id := uuid.NewString()
	return &Client{
		id:          id,
		username:    username,
		conn:        conn,
		send:        make(chan []byte, cfg.SendBufferSize),
		hub:         hub,
		addr:        addr,
		rateLimiter: newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		logger:      hub.logger.With("client", id, "user", username),
	}
}

// ID returns the connection's unique identifier.
func (c *Client) ID() string {
	return c.id
}

// Username returns the identity the connection was admitted with.
func (c *Client) Username() string {
	return c.username
}

// Room returns the room the client is currently in, or "".
func (c *Client) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// GetSendChan returns the client's send channel for reading outgoing messages.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// setRoom records the current room. It fails once the client is detached.
func (c *Client) setRoom(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detached {
		return false
	}
	c.room = name
	return true
}

// clearRoom forgets name if it is still the current room.
func (c *Client) clearRoom(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room == name {
		c.room = ""
	}
}

// detach marks the client as gone and returns the room it has to leave.
func (c *Client) detach() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detached = true
	room := c.room
	c.room = ""
	return room
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Warn("setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Warn("setting read deadline in pong handler", "error", err)
		}
		return nil
	})
}

// logReadError reports why the read loop stopped.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn("message exceeded maximum size", "limit", c.hub.config.MaxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.logger.Info("client disconnected", "reason", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.logger.Info("client connection closed", "reason", err)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.logger.Warn("unexpected websocket close", "error", err)
	default:
		c.logger.Warn("websocket read error", "error", err)
	}
}

// checkRateLimit reports whether the next inbound event may be processed.
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.Allow() {
		c.logger.Warn("rate limit exceeded; discarding event",
			"burst", c.hub.config.RateLimit.Burst,
			"interval", c.hub.config.RateLimit.RefillInterval)
		return false
	}
	return true
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.closeConnection()
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.checkRateLimit() {
			c.hub.reply(c, errRateLimited)
			continue
		}

		c.hub.Dispatch(c, raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.logger.Warn("closing connection", "error", err)
	}
}

// handleMessage writes one outgoing frame and returns false if the connection should be closed
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Warn("setting write deadline", "error", err)
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warn("writing message", "error", err)
		}
		return false
	}
	return true
}

// writeCloseMessage sends a close message to the client
func (c *Client) writeCloseMessage() bool {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
		c.logger.Warn("writing close message", "error", err)
	}
	return false
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Warn("setting write deadline for ping", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Warn("writing ping", "error", err)
		return false
	}
	return true
}
