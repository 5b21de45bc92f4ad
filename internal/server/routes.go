// Package server wires HTTP handlers into a ServeMux for the roomhub
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/Tyrowin/roomhub/internal/auth"
)

// SetupRoutes configures and returns an HTTP ServeMux with all application routes.
func SetupRoutes(hub *Hub, authn auth.Authenticator) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", WebSocketHandler(hub, authn))
	mux.HandleFunc("GET /rooms", RoomsHandler(hub))
	mux.HandleFunc("GET /stats", StatsHandler(hub))
	return mux
}
