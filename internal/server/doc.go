// Package server implements the HTTP and WebSocket surface of roomhub.
//
// A Hub coordinates connected Clients: it admits and releases them, routes
// their inbound events to the rooms of a chat.Registry, and fans the
// resulting state out to room members after the room lock is released.
// Each Client owns a bounded send buffer drained by its own write pump, so
// a slow peer is disconnected rather than stalling anyone else.
package server
