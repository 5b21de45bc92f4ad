// Package testhelpers provides common utilities for testing the roomhub server.
//
// It wraps the WebSocket dialing and event framing used by the server
// package's end-to-end tests so that individual tests stay short.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// TestOrigin is the Origin header sent by ConnectWebSocket.
const TestOrigin = "http://localhost:8080"

// Event is a decoded envelope as seen by a client.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Decode unmarshals the event payload into v, failing the test on error.
func (e Event) Decode(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(e.Data, v); err != nil {
		t.Fatalf("Failed to decode %s payload %s: %v", e.Event, e.Data, err)
	}
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// WebSocketURL turns an httptest server URL into the ws:// URL of path,
// carrying token as the query credential when non-empty.
func WebSocketURL(t *testing.T, srv *httptest.Server, path, token string) string {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("Failed to parse test server URL: %v", err)
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = path
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Dialer returns the dialer used by ConnectWebSocket.
func Dialer() *websocket.Dialer {
	return &websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
}

// ConnectWebSocket dials url with the test origin. The response is returned
// so callers can inspect failed handshakes.
func ConnectWebSocket(url string) (*websocket.Conn, *http.Response, error) {
	dialer := Dialer()

	headers := http.Header{}
	headers.Set("Origin", TestOrigin)

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// MustConnect dials url and registers the connection for cleanup.
func MustConnect(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := ConnectWebSocket(url)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendEvent writes one envelope frame.
func SendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to marshal %s payload: %v", event, err)
	}
	frame, err := json.Marshal(Event{Event: event, Data: raw})
	if err != nil {
		t.Fatalf("Failed to marshal envelope: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("Failed to send %s: %v", event, err)
	}
}

// ReadEvent reads the next envelope, failing the test after timeout.
func ReadEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) Event {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}
	return ev
}

// WaitForEvent reads until an envelope named event arrives and passes
// match, skipping everything else. A nil match accepts the first one.
func WaitForEvent(t *testing.T, conn *websocket.Conn, event string, match func(Event) bool) Event {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		ev := ReadEvent(t, conn, time.Until(deadline))
		if ev.Event == event && (match == nil || match(ev)) {
			return ev
		}
	}
	t.Fatalf("Timed out waiting for %s event", event)
	return Event{}
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
