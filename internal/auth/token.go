// Package auth resolves the verified username a connection is admitted with.
// Account management and password checks live with the external provider
// that issues the tokens; this package only verifies them.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken is returned when the request carries no token.
	ErrMissingToken = errors.New("missing token")
	// ErrInvalidToken is returned when the token is invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

// Authenticator resolves the username behind an upgrade request.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// TokenConfig holds signing configuration.
type TokenConfig struct {
	SecretKey     string
	Issuer        string
	TokenDuration time.Duration
}

// Claims identifies a chat user.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenAuthenticator verifies HS256 tokens carried in the Authorization
// header or, for browser websockets, the "token" query parameter.
type TokenAuthenticator struct {
	config TokenConfig
}

// NewTokenAuthenticator creates a TokenAuthenticator.
func NewTokenAuthenticator(config TokenConfig) *TokenAuthenticator {
	if config.TokenDuration <= 0 {
		config.TokenDuration = 24 * time.Hour
	}
	return &TokenAuthenticator{config: config}
}

// Issue signs a token for username.
func (a *TokenAuthenticator) Issue(username string) (string, error) {
	if strings.TrimSpace(username) == "" {
		return "", errors.New("username is required")
	}

	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.config.Issuer,
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(a.config.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.config.SecretKey))
}

// Validate parses the token and returns its username.
func (a *TokenAuthenticator) Validate(tokenString string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return []byte(a.config.SecretKey), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}

	username := claims.Username
	if username == "" {
		username = claims.Subject
	}
	if strings.TrimSpace(username) == "" {
		return "", ErrInvalidToken
	}
	return username, nil
}

// Authenticate implements Authenticator.
func (a *TokenAuthenticator) Authenticate(r *http.Request) (string, error) {
	token := bearerToken(r)
	if token == "" {
		return "", ErrMissingToken
	}
	return a.Validate(token)
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}
