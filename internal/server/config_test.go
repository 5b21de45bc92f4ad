package server

import (
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Tyrowin/roomhub/internal/chat"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, int64(4096), cfg.MaxMessageSize)
	assert.Equal(t, 256, cfg.SendBufferSize)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, chat.DefaultRooms, cfg.Rooms)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9090")
	t.Setenv("ALLOWED_ORIGINS", "https://chat.example.com, http://localhost:3000")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("SEND_BUFFER_SIZE", "32")
	t.Setenv("RATE_LIMIT_BURST", "10")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "3")
	t.Setenv("CHAT_ROOMS", "General, Random ,")
	t.Setenv("AUTH_SECRET", "s3cret")
	t.Setenv("AUTH_ISSUER", "acme")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SHUTDOWN_TIMEOUT", "4")

	cfg := NewConfigFromEnv()

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, []string{"https://chat.example.com", "http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(1024), cfg.MaxMessageSize)
	assert.Equal(t, 32, cfg.SendBufferSize)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, 3*time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, []string{"General", "Random"}, cfg.Rooms)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, "acme", cfg.Auth.Issuer)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 4*time.Second, cfg.ShutdownTimeout)
}

func TestNewConfigFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "-5")
	t.Setenv("SEND_BUFFER_SIZE", "lots")
	t.Setenv("RATE_LIMIT_BURST", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "soon")
	t.Setenv("CHAT_ROOMS", " , ")
	t.Setenv("LOG_LEVEL", "verbose")

	cfg := NewConfigFromEnv()

	assert.Equal(t, int64(4096), cfg.MaxMessageSize)
	assert.Equal(t, 256, cfg.SendBufferSize)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, chat.DefaultRooms, cfg.Rooms)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestConfig_Sanitize(t *testing.T) {
	cfg := Config{}
	cfg.Sanitize()

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, 256, cfg.SendBufferSize)
	assert.NotEmpty(t, cfg.Rooms)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestOriginPolicy(t *testing.T) {
	policy := newOriginPolicy([]string{"HTTP://Localhost:8080", "not a url", " "}, discardLogger())

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{name: "configured origin", origin: "http://localhost:8080", want: true},
		{name: "case insensitive", origin: "http://LOCALHOST:8080", want: true},
		{name: "other port", origin: "http://localhost:9999", want: false},
		{name: "missing origin", origin: "", want: false},
		{name: "garbage origin", origin: "::", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, policy.allows(req))
		})
	}
}

func TestOriginPolicy_Wildcard(t *testing.T) {
	policy := newOriginPolicy([]string{"*"}, discardLogger())

	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	assert.True(t, policy.allows(req))
}

func TestRateLimiter(t *testing.T) {
	limiter := newRateLimiter(3, time.Hour)

	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow(), "burst exhausted")
}

func TestRateLimiter_InvalidParameters(t *testing.T) {
	limiter := newRateLimiter(0, 0)

	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, CodeOutOfRange, errorCode(chat.ErrOutOfRange))
	assert.Equal(t, CodeRateLimited, errorCode(errRateLimited))
	assert.Equal(t, CodeInternal, errorCode(assert.AnError))
}
