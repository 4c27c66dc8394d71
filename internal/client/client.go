package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fivetwenty-io/fmdata/internal/auth"
	"github.com/fivetwenty-io/fmdata/internal/events"
	"github.com/fivetwenty-io/fmdata/internal/http"
	"github.com/fivetwenty-io/fmdata/internal/metrics"
	"github.com/fivetwenty-io/fmdata/pkg/fmdata"
)

// Client implements the fmdata.Client interface.
type Client struct {
	*RecordsClient
	*FindClient

	session   *auth.SessionTokenManager
	database  string
	layout    string
	logger    fmdata.Logger
	publisher fmdata.EventPublisher
}

// validateConfig checks the fields every session-scoped client needs.
func validateConfig(config *fmdata.Config) error {
	switch {
	case config == nil:
		return fmdata.ErrConfigRequired
	case config.Username == "":
		return fmdata.ErrUsernameRequired
	case config.Database == "":
		return fmdata.ErrDatabaseRequired
	case config.Layout == "":
		return fmdata.ErrLayoutRequired
	}

	return nil
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *fmdata.Config) ([]http.Option, error) {
	httpOpts := []http.Option{
		http.WithSkipTLSVerify(config.SkipTLSVerify),
		http.WithTimeout(config.HTTPTimeout),
		http.WithUserAgent(config.UserAgent),
		http.WithRateLimit(config.RateLimit),
	}

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.RetryMax > 0 {
		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, config.RetryWaitMin, config.RetryWaitMax))
	}

	chain := config.Interceptors.Clone()

	if config.MetricsRegisterer != nil {
		collector, err := metrics.NewCollector(config.MetricsRegisterer)
		if err != nil {
			return nil, err
		}

		collector.Attach(chain)
	}

	httpOpts = append(httpOpts, http.WithInterceptors(chain))

	return httpOpts, nil
}

// newBasicHTTPClient creates a client without a token manager, used for
// session handshakes and discovery.
func newBasicHTTPClient(config *fmdata.Config) (*http.Client, error) {
	httpOpts, err := createHTTPClientOptions(config)
	if err != nil {
		return nil, err
	}

	return http.NewClient(config.BaseURL, nil, httpOpts...), nil
}

func createEventPublisher(config *fmdata.Config) (fmdata.EventPublisher, error) {
	if config.EventPublisher != nil {
		return config.EventPublisher, nil
	}

	if config.NATSURL == "" {
		return nil, nil
	}

	publisher, err := events.Connect(config.NATSURL, config.Logger)
	if err != nil {
		return nil, err
	}

	return publisher, nil
}

// New opens a session and returns a client bound to config.Database and
// config.Layout. It performs exactly one authentication round trip.
func New(ctx context.Context, config *fmdata.Config) (*Client, error) {
	err := validateConfig(config)
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = fmdata.NoopLogger{}
	}

	basic, err := newBasicHTTPClient(config)
	if err != nil {
		return nil, err
	}

	session := auth.NewSessionTokenManager(basic, config.Database, credentials(config), logger)

	_, err = session.Login(ctx)
	if err != nil {
		return nil, err
	}

	publisher, err := createEventPublisher(config)
	if err != nil {
		_ = session.Logout(ctx)

		return nil, err
	}

	return newClient(basic.WithTokenManager(session), session, config.Database, config.Layout, logger, publisher), nil
}

func newClient(httpClient *http.Client, session *auth.SessionTokenManager, database, layout string, logger fmdata.Logger, publisher fmdata.EventPublisher) *Client {
	return &Client{
		RecordsClient: NewRecordsClient(httpClient, database, layout, logger, publisher),
		FindClient:    NewFindClient(httpClient, database, layout, logger),
		session:       session,
		database:      database,
		layout:        layout,
		logger:        logger,
		publisher:     publisher,
	}
}

func credentials(config *fmdata.Config) auth.Credentials {
	return auth.Credentials{Username: config.Username, Password: config.Password}
}

// Database implements fmdata.Client.Database.
func (c *Client) Database() string {
	return c.database
}

// Layout implements fmdata.Client.Layout.
func (c *Client) Layout() string {
	return c.layout
}

// Close implements fmdata.Client.Close.
func (c *Client) Close(ctx context.Context) error {
	var errs []error

	if c.session != nil {
		err := c.session.Logout(ctx)
		if err != nil {
			errs = append(errs, err)
		}
	}

	if c.publisher != nil {
		err := c.publisher.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("closing event publisher: %w", err))
		}
	}

	return errors.Join(errs...)
}

// eventEmitter publishes record events without failing the mutation.
type eventEmitter struct {
	publisher fmdata.EventPublisher
	database  string
	layout    string
	logger    fmdata.Logger
}

func newEventEmitter(publisher fmdata.EventPublisher, database, layout string, logger fmdata.Logger) *eventEmitter {
	return &eventEmitter{
		publisher: publisher,
		database:  database,
		layout:    layout,
		logger:    logger,
	}
}

func (e *eventEmitter) emit(ctx context.Context, operation fmdata.Operation, recordID string) {
	if e.publisher == nil {
		return
	}

	err := e.publisher.Publish(ctx, fmdata.RecordEvent{
		Database:  e.database,
		Layout:    e.layout,
		Operation: operation,
		RecordID:  recordID,
		Time:      time.Now().UTC(),
	})
	if err != nil {
		e.logger.Warn("failed to publish record event", map[string]interface{}{
			"operation": string(operation),
			"recordId":  recordID,
			"error":     err.Error(),
		})
	}
}
