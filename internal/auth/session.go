package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fivetwenty-io/fmdata/internal/constants"
	fmhttp "github.com/fivetwenty-io/fmdata/internal/http"
	"github.com/fivetwenty-io/fmdata/pkg/fmdata"
)

// Credentials are the account used to open sessions.
type Credentials struct {
	Username string
	Password string
}

// BasicAuthHeader returns the Authorization header value for c.
func (c Credentials) BasicAuthHeader() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.Username+":"+c.Password))
}

// SessionTokenManager opens one Data API session and hands out its token.
// Tokens are never renewed.
type SessionTokenManager struct {
	httpClient  *fmhttp.Client
	database    string
	credentials Credentials
	store       *TokenStore
	logger      fmdata.Logger
}

// NewSessionTokenManager creates a manager for database. httpClient must not
// carry a token manager of its own.
func NewSessionTokenManager(httpClient *fmhttp.Client, database string, credentials Credentials, logger fmdata.Logger) *SessionTokenManager {
	if logger == nil {
		logger = fmdata.NoopLogger{}
	}

	return &SessionTokenManager{
		httpClient:  httpClient,
		database:    database,
		credentials: credentials,
		store:       NewTokenStore(),
		logger:      logger,
	}
}

type sessionResponse struct {
	Token string `json:"token"`
}

// Login opens a session with HTTP Basic auth and stores the token.
func (m *SessionTokenManager) Login(ctx context.Context) (string, error) {
	m.logger.Debug("requesting session token", map[string]interface{}{
		"database": m.database,
	})

	resp, err := m.httpClient.Do(ctx, &fmhttp.Request{
		Method: "POST",
		Path:   fmhttp.JoinPath("databases", m.database, constants.PathSessions),
		Body:   json.RawMessage(`{}`),
		Headers: map[string]string{
			constants.HeaderAuthorization: m.credentials.BasicAuthHeader(),
		},
	})
	if err != nil {
		m.logger.Error("session request failed", map[string]interface{}{
			"database": m.database,
			"error":    err.Error(),
		})

		return "", fmt.Errorf("opening session: %w", err)
	}

	envelope, err := resp.Envelope()
	if err != nil {
		return "", fmt.Errorf("opening session: %w", err)
	}

	var session sessionResponse

	err = envelope.DecodeResponse(&session)
	if err != nil || session.Token == "" {
		return "", fmt.Errorf("opening session: %w", fmdata.ErrMissingToken)
	}

	m.store.Set(&Token{
		AccessToken: session.Token,
		Database:    m.database,
		ObtainedAt:  time.Now(),
	})

	m.logger.Info("session opened", map[string]interface{}{
		"database": m.database,
	})

	return session.Token, nil
}

// GetToken returns the stored token.
func (m *SessionTokenManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if !token.Valid() {
		return "", fmdata.ErrNoSessionToken
	}

	return token.AccessToken, nil
}

// RefreshToken always fails: the Data API has no refresh grant.
func (m *SessionTokenManager) RefreshToken(ctx context.Context) error {
	return fmdata.ErrSessionCannotRefresh
}

// SetToken stores an existing session token.
func (m *SessionTokenManager) SetToken(token string) {
	m.store.Set(&Token{
		AccessToken: token,
		Database:    m.database,
		ObtainedAt:  time.Now(),
	})
}

// Logout deletes the upstream session and clears the store. It is a no-op
// when no session is open.
func (m *SessionTokenManager) Logout(ctx context.Context) error {
	token := m.store.Get()
	if !token.Valid() {
		return nil
	}

	_, err := m.httpClient.Do(ctx, &fmhttp.Request{
		Method: "DELETE",
		Path:   fmhttp.JoinPath("databases", m.database, constants.PathSessions, token.AccessToken),
	})
	if err != nil {
		return fmt.Errorf("closing session: %w", err)
	}

	m.store.Clear()

	m.logger.Debug("session closed", map[string]interface{}{
		"database": m.database,
	})

	return nil
}
