// Package server coordinates client registration, presence, room fan-out,
// and connection cleanup for roomhub via the Hub type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/roomhub/internal/chat"
)

// Hub owns every live Client. Registration and unregistration flow through
// Run; inbound events are dispatched on the reading client's goroutine and
// only contend on the lock of the room they touch.
type Hub struct {
	config   Config
	registry *chat.Registry
	presence *chat.Presence
	logger   *slog.Logger

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}

	// Held while a room's state change is enqueued to its members so that
	// every member observes that room's events in mutation order. Only
	// non-blocking channel sends happen under these locks.
	roomOrder     map[string]*sync.Mutex
	presenceOrder sync.Mutex
}

// NewHub creates a Hub serving the rooms of registry. A nil logger discards output.
func NewHub(cfg Config, registry *chat.Registry, logger *slog.Logger) *Hub {
	cfg.Sanitize()
	if logger == nil {
		logger = discardLogger()
	}

	roomOrder := make(map[string]*sync.Mutex)
	for _, name := range registry.Names() {
		roomOrder[name] = &sync.Mutex{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		config:     cfg,
		registry:   registry,
		presence:   chat.NewPresence(),
		logger:     logger,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		roomOrder:  roomOrder,
	}
}

// Registry returns the rooms served by the hub.
func (h *Hub) Registry() *chat.Registry {
	return h.registry
}

// Presence returns the global presence tracker.
func (h *Hub) Presence() *chat.Presence {
	return h.presence
}

// Register hands a client to the Run loop. It returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister hands a client to the Run loop for cleanup. After the loop has
// stopped the cleanup runs on the caller's goroutine.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		h.release(client)
	}
}

// Run starts the hub's main event loop, handling client registration and
// unregistration. It should be called in a separate goroutine.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.logger.Warn("received nil client registration; skipping")
				continue
			}
			h.admit(client)

		case client := <-h.unregister:
			h.release(client)
		}
	}
}

// admit adds a client, announces presence, and starts its pumps.
func (h *Hub) admit(client *Client) {
	h.mutex.Lock()
	client.closed = false
	h.clients[client] = true
	clientCount := len(h.clients)
	h.mutex.Unlock()
	client.logger.Info("client registered", "addr", client.addr, "clients", clientCount)

	h.presenceOrder.Lock()
	users := h.presence.Add(client.username)
	failed := h.broadcastAll(EventActiveUsers, ActiveUsers{Users: users})
	h.presenceOrder.Unlock()
	h.releaseAll(failed)

	if client.conn == nil {
		return
	}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// release removes a client exactly once: it stops its send channel, leaves
// its room, and drops it from presence. Later calls are no-ops.
func (h *Hub) release(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock
	close(client.send)
	client.logger.Info("client unregistered", "addr", client.addr, "clients", clientCount)

	if room := client.detach(); room != "" {
		h.leaveRoom(client, room)
	}

	h.presenceOrder.Lock()
	users := h.presence.Remove(client.username)
	failed := h.broadcastAll(EventActiveUsers, ActiveUsers{Users: users})
	h.presenceOrder.Unlock()
	h.releaseAll(failed)
}

func (h *Hub) releaseAll(clients []*Client) {
	for _, client := range clients {
		client.logger.Warn("client removed due to full send buffer", "addr", client.addr)
		h.release(client)
	}
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("recovered from panic in safeSend", "panic", r)
		}
	}()

	// Hold the lock during the send so release cannot close the channel underneath
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if _, exists := h.clients[client]; !exists || client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// sendTo enqueues one event for a single client.
func (h *Hub) sendTo(client *Client, event string, data any) bool {
	payload, err := encodeEvent(event, data)
	if err != nil {
		h.logger.Error("encoding event", "event", event, "error", err)
		return true
	}
	return h.safeSend(client, payload)
}

// fanout enqueues payload for every member and returns the clients whose
// buffers were full.
func (h *Hub) fanout(members []chat.Member, payload []byte) []*Client {
	var failed []*Client
	for _, m := range members {
		client, ok := m.(*Client)
		if !ok {
			continue
		}
		if !h.safeSend(client, payload) {
			failed = append(failed, client)
		}
	}
	return failed
}

func (h *Hub) broadcastRoom(members []chat.Member, event string, data any) []*Client {
	payload, err := encodeEvent(event, data)
	if err != nil {
		h.logger.Error("encoding event", "event", event, "error", err)
		return nil
	}
	return h.fanout(members, payload)
}

// broadcastAll enqueues an event for every registered client.
func (h *Hub) broadcastAll(event string, data any) []*Client {
	payload, err := encodeEvent(event, data)
	if err != nil {
		h.logger.Error("encoding event", "event", event, "error", err)
		return nil
	}

	clients := h.getClientSnapshot()
	var failed []*Client
	for _, client := range clients {
		if !h.safeSend(client, payload) {
			failed = append(failed, client)
		}
	}
	return failed
}

// getClientSnapshot returns a thread-safe snapshot of all current clients
func (h *Hub) getClientSnapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// connectionsOf returns the live connections labeled username.
func (h *Hub) connectionsOf(username string) []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	var clients []*Client
	for client := range h.clients {
		if client.username == username && !client.closed {
			clients = append(clients, client)
		}
	}
	return clients
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// shutdownClients gracefully closes all active client connections
func (h *Hub) shutdownClients() {
	h.logger.Info("shutting down all client connections")

	clients := h.getClientSnapshot()
	for _, client := range clients {
		if client.conn == nil {
			continue
		}
		if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
			client.logger.Warn("closing client connection", "error", err)
		}
	}

	h.logger.Info("closed client connections", "count", len(clients))
}

// Shutdown stops the hub and waits for all client goroutines to finish,
// or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
