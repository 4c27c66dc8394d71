package auth

import (
	"context"
	"sync"
	"time"
)

// Token is a Data API session token.
type Token struct {
	AccessToken string
	Database    string
	ObtainedAt  time.Time
}

// Valid reports whether the token can be sent. FileMaker does not tell the
// client when a session expires, so only presence is checked.
func (t *Token) Valid() bool {
	return t != nil && t.AccessToken != ""
}

// TokenManager provides the bearer token for Data API calls.
type TokenManager interface {
	GetToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) error
	SetToken(token string)
}

// TokenStore holds one token behind a lock.
type TokenStore struct {
	mutex sync.RWMutex
	token *Token
}

// NewTokenStore creates an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Get returns the stored token or nil.
func (s *TokenStore) Get() *Token {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.token
}

// Set replaces the stored token.
func (s *TokenStore) Set(token *Token) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.token = token
}

// Clear removes the stored token.
func (s *TokenStore) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.token = nil
}
