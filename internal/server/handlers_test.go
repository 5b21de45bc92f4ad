package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomhub/internal/auth"
	"github.com/Tyrowin/roomhub/internal/chat"
	"github.com/Tyrowin/roomhub/internal/server"
	"github.com/Tyrowin/roomhub/internal/testhelpers"
)

const testSecret = "integration-secret"

type testEnv struct {
	hub   *server.Hub
	authn *auth.TokenAuthenticator
	srv   *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{testhelpers.TestOrigin}
	cfg.RateLimit.Burst = 100

	registry, err := chat.NewRegistry(cfg.Rooms)
	require.NoError(t, err)

	hub := server.NewHub(*cfg, registry, nil)
	server.StartHub(hub)

	authn := auth.NewTokenAuthenticator(auth.TokenConfig{
		SecretKey:     testSecret,
		Issuer:        "roomhub-test",
		TokenDuration: time.Hour,
	})
	srv := httptest.NewServer(server.SetupRoutes(hub, authn))

	t.Cleanup(func() {
		srv.Close()
		_ = hub.Shutdown(2 * time.Second)
	})
	return &testEnv{hub: hub, authn: authn, srv: srv}
}

func (e *testEnv) token(t *testing.T, username string) string {
	t.Helper()
	token, err := e.authn.Issue(username)
	require.NoError(t, err)
	return token
}

// TestHealthHandler verifies the health endpoint answers every method.
func TestHealthHandler(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut} {
		t.Run(method, func(t *testing.T) {
			req := httptest.NewRequest(method, "/", http.NoBody)
			rr := httptest.NewRecorder()

			server.HealthHandler(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "roomhub server is running!", rr.Body.String())
		})
	}
}

// TestCreateServer checks the production timeouts.
func TestCreateServer(t *testing.T) {
	srv := server.CreateServer(":0", http.NewServeMux())

	assert.Equal(t, ":0", srv.Addr)
	assert.Equal(t, 15*time.Second, srv.ReadTimeout)
	assert.Equal(t, 15*time.Second, srv.WriteTimeout)
	assert.Equal(t, 60*time.Second, srv.IdleTimeout)
}

func TestWebSocketHandler_Rejections(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		query  string
		want   int
	}{
		{name: "non-GET method", method: http.MethodPost, want: http.StatusMethodNotAllowed},
		{name: "missing token", method: http.MethodGet, want: http.StatusUnauthorized},
		{name: "garbage token", method: http.MethodGet, query: "?token=nope", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, env.srv.URL+"/ws"+tt.query, http.NoBody)
			require.NoError(t, err)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			testhelpers.AssertStatusCode(t, resp, tt.want)
		})
	}
	assert.Zero(t, env.hub.ClientCount())
}

func TestWebSocketHandler_DisallowedOrigin(t *testing.T) {
	env := newTestEnv(t)
	url := testhelpers.WebSocketURL(t, env.srv, "/ws", env.token(t, "alice"))

	dialer := testhelpers.Dialer()
	headers := http.Header{}
	headers.Set("Origin", "http://evil.example")

	conn, resp, err := dialer.Dial(url, headers)
	if conn != nil {
		_ = conn.Close()
	}
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStatsAndRoomsHandlers(t *testing.T) {
	env := newTestEnv(t)

	conn := testhelpers.MustConnect(t, testhelpers.WebSocketURL(t, env.srv, "/ws", env.token(t, "alice")))
	testhelpers.WaitForEvent(t, conn, server.EventActiveUsers, nil)
	testhelpers.SendEvent(t, conn, server.EventJoin, server.JoinRequest{Room: "Open Mic"})
	testhelpers.WaitForEvent(t, conn, server.EventChatHistory, nil)
	testhelpers.SendEvent(t, conn, server.EventMessage, server.MessageRequest{Msg: "hi", Room: "Open Mic"})
	testhelpers.WaitForEvent(t, conn, server.EventMessage, nil)

	resp, err := http.Get(env.srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	testhelpers.AssertStatusCode(t, resp, http.StatusOK)

	var stats map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, len(chat.DefaultRooms), stats["rooms"])
	assert.Equal(t, 1, stats["clients"])

	resp, err = http.Get(env.srv.URL + "/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	testhelpers.AssertStatusCode(t, resp, http.StatusOK)

	var rooms struct {
		Rooms []server.RoomInfo `json:"rooms"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	require.Len(t, rooms.Rooms, len(chat.DefaultRooms))
	assert.Equal(t, server.RoomInfo{Name: "Open Mic", Members: 1, Messages: 1}, rooms.Rooms[0])
}
