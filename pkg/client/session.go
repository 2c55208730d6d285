package client

import (
	"sync"
	"time"
)

// Session holds the token pair for an authenticated user. It is created
// by Gateway.Login, renewed only by an explicit Gateway.Refresh, and
// destroyed by Gateway.Logout. There is no ambient or global session;
// callers pass the Gateway around and the Gateway carries its session.
type Session struct {
	mu                    sync.RWMutex
	accessToken           string
	refreshToken          string
	accessTokenExpiresAt  time.Time
	refreshTokenExpiresAt time.Time
	user                  User
}

func newSession(resp loginPayload) *Session {
	return &Session{
		accessToken:           resp.AccessToken,
		refreshToken:          resp.RefreshToken,
		accessTokenExpiresAt:  resp.AccessTokenExpiresAt,
		refreshTokenExpiresAt: resp.RefreshTokenExpiresAt,
		user:                  resp.User,
	}
}

// User returns the user the session was issued for
func (s *Session) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// AccessToken returns the current bearer token
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// ExpiresAt returns when the access token stops being accepted
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessTokenExpiresAt
}

// Expired reports whether the access token is past its expiry. The
// session is not renewed automatically; call Gateway.Refresh.
func (s *Session) Expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Now().After(s.accessTokenExpiresAt)
}

func (s *Session) refreshTokenValue() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

func (s *Session) update(resp refreshPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = resp.AccessToken
	s.refreshToken = resp.RefreshToken
	s.accessTokenExpiresAt = resp.AccessTokenExpiresAt
	s.refreshTokenExpiresAt = resp.RefreshTokenExpiresAt
}

type loginPayload struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
	User                  User      `json:"user"`
}

type refreshPayload struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}
