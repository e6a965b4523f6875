// Package auth resolves the caller behind a request.
//
// Sessions are written by the login service, which is deployed separately:
// it stores a JSON Session under "session:<id>" in Redis and hands the id to
// the browser in the session cookie. This package only reads them.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrUnauthorized means the request carries no valid session.
var ErrUnauthorized = errors.New("auth: no valid session")

// DefaultCookieName is the cookie holding the session id.
const DefaultCookieName = "session_id"

// Authorizer identifies the caller of a request.
type Authorizer interface {
	// Authorize returns the caller's user id or ErrUnauthorized.
	Authorize(r *http.Request) (uuid.UUID, error)
}

// Session is the record the login service stores for a signed-in user.
type Session struct {
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionKey is the Redis key holding session id.
func SessionKey(id string) string { return "session:" + id }

// RedisSessions reads sessions from Redis and implements Authorizer.
type RedisSessions struct {
	client     *redis.Client
	cookieName string
	maxAge     time.Duration
	now        func() time.Time
}

// NewRedisSessions creates a session reader. Sessions older than maxAge are
// rejected even if the stored record has not expired. Empty cookieName and
// non-positive maxAge fall back to DefaultCookieName and 24h.
func NewRedisSessions(client *redis.Client, cookieName string, maxAge time.Duration) *RedisSessions {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &RedisSessions{client: client, cookieName: cookieName, maxAge: maxAge, now: time.Now}
}

// Authorize returns the user id of the request's session.
func (s *RedisSessions) Authorize(r *http.Request) (uuid.UUID, error) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return uuid.Nil, ErrUnauthorized
	}

	data, err := s.client.Get(r.Context(), SessionKey(cookie.Value)).Bytes()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrUnauthorized
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("load session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return uuid.Nil, fmt.Errorf("decode session: %w", err)
	}
	now := s.now()
	if now.After(session.ExpiresAt) || now.After(session.CreatedAt.Add(s.maxAge)) {
		return uuid.Nil, ErrUnauthorized
	}
	return session.UserID, nil
}

// Anonymous is the Authorizer used when no session store is configured.
// Every request is treated as logged out.
type Anonymous struct{}

// Authorize always returns ErrUnauthorized.
func (Anonymous) Authorize(*http.Request) (uuid.UUID, error) {
	return uuid.Nil, ErrUnauthorized
}
