// Package server exposes HTTP handlers, including authenticated WebSocket
// upgrades, health checks, and read-only room statistics.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/roomhub/internal/auth"
)

// WebSocketHandler authenticates the request, upgrades it, and registers
// the resulting client with hub. No upgrade happens without an identity.
func WebSocketHandler(hub *Hub, authn auth.Authenticator) http.HandlerFunc {
	origins := newOriginPolicy(hub.config.AllowedOrigins, hub.logger)
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if origins.allows(r) {
				return true
			}
			hub.logger.Warn("blocked websocket connection from disallowed origin", "origin", r.Header.Get("Origin"))
			return false
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		username, err := authn.Authenticate(r)
		if err != nil {
			hub.logger.Info("rejected unauthenticated connection", "addr", r.RemoteAddr, "error", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.logger.Warn("websocket upgrade failed", "error", err)
			return
		}

		client := NewClient(conn, hub, username, r.RemoteAddr)

		// The hub launches the pump goroutines once the client is registered.
		if !hub.Register(client) {
			_ = conn.Close()
		}
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "roomhub server is running!")
}

// RoomInfo summarizes one configured room.
type RoomInfo struct {
	Name     string `json:"name"`
	Members  int    `json:"members"`
	Messages int    `json:"messages"`
}

// RoomsHandler lists the configured rooms with their member and message counts.
func RoomsHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		rooms := hub.registry.Rooms()
		infos := make([]RoomInfo, 0, len(rooms))
		for _, room := range rooms {
			infos = append(infos, RoomInfo{
				Name:     room.Name(),
				Members:  len(room.Members()),
				Messages: room.Len(),
			})
		}
		writeJSON(w, hub, map[string][]RoomInfo{"rooms": infos})
	}
}

// StatsHandler reports the number of rooms and connected clients.
func StatsHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, hub, map[string]int{
			"rooms":   len(hub.registry.Names()),
			"clients": hub.ClientCount(),
		})
	}
}

func writeJSON(w http.ResponseWriter, hub *Hub, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hub.logger.Warn("writing JSON response", "error", err)
	}
}
