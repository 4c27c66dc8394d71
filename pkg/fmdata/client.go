package fmdata

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fivetwenty-io/fmdata/internal/constants"
)

// RecordsClient reads and mutates records of one layout.
type RecordsClient interface {
	GetRecords(ctx context.Context, offset, limit int) ([]Record, error)
	GetRecordCount(ctx context.Context) (int, error)
	GetAllRecords(ctx context.Context) ([]Record, error)
	GetRecordByID(ctx context.Context, recordID int) (*Record, error)
	AddRecord(ctx context.Context, fields FieldData) (*AddRecordResult, error)
	UpdateRecord(ctx context.Context, recordID int, fields FieldData) (*Envelope, error)
	DeleteRecord(ctx context.Context, recordID int) error
	ClearRecords(ctx context.Context) error
	GetFieldNames(ctx context.Context) ([]string, error)
}

// FindClient runs find requests against one layout.
type FindClient interface {
	Search(ctx context.Context, query []map[string]string, sort []string, ascending bool) ([]Record, error)
	AdvancedSearch(ctx context.Context, fields map[string]interface{}, sort []string, ascending bool) ([]Record, error)
}

// Client is a session-scoped handle bound to one database and layout.
type Client interface {
	RecordsClient
	FindClient

	Database() string
	Layout() string

	// Close releases the upstream session and the event publisher.
	Close(ctx context.Context) error
}

// EventPublisher receives an event after each successful record mutation.
type EventPublisher interface {
	Publish(ctx context.Context, event RecordEvent) error
	Close() error
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// NoopLogger discards everything.
type NoopLogger struct{}

func (NoopLogger) Debug(string, map[string]interface{}) {}
func (NoopLogger) Info(string, map[string]interface{})  {}
func (NoopLogger) Warn(string, map[string]interface{})  {}
func (NoopLogger) Error(string, map[string]interface{}) {}

// Config represents client configuration for building a fmdata.Client.
//
// # Base URL
//
// BaseURL is the Data API root, e.g. "https://fm.example.com/fmi/data/vLatest".
// When it is empty the FM_URL environment variable is read on every request,
// so changing FM_URL affects clients that were already built.
//
// # Sessions
//
// fmclient.New logs in exactly once. The token is never refreshed; once
// FileMaker expires it (after 15 idle minutes) calls fail with an
// unauthorized ResponseError and a new client must be created.
type Config struct {
	// BaseURL overrides FM_URL.
	BaseURL string

	// Username and Password are sent with HTTP Basic auth to open a session.
	Username string
	Password string

	// Database and Layout select what the client operates on. Both are
	// path-encoded before use.
	Database string
	Layout   string

	// SkipTLSVerify disables certificate validation. FileMaker Server often
	// runs with a self-signed certificate; DefaultConfig sets this.
	SkipTLSVerify bool

	// HTTPTimeout bounds each HTTP round trip.
	HTTPTimeout time.Duration

	// RetryMax is the number of retries for 5xx, 429 and connection errors.
	// Zero disables retries.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// RateLimit caps requests per second. Zero means unlimited.
	RateLimit float64

	// Debug enables "HTTP Request"/"HTTP Response" logging when Logger is set.
	Debug  bool
	Logger Logger

	UserAgent    string
	Interceptors *InterceptorChain

	// EventPublisher receives record mutation events. When nil and NATSURL
	// is set, fmclient.New connects a NATS publisher.
	EventPublisher EventPublisher
	NATSURL        string

	// MetricsRegisterer, when set, receives request counters and latencies.
	MetricsRegisterer prometheus.Registerer
}

// DefaultConfig returns a Config with the library defaults applied.
func DefaultConfig() *Config {
	return &Config{
		SkipTLSVerify: true,
		HTTPTimeout:   constants.DefaultHTTPTimeout,
		RetryMax:      constants.DefaultRetryMax,
		RetryWaitMin:  constants.DefaultRetryWaitMin,
		RetryWaitMax:  constants.DefaultRetryWaitMax,
		UserAgent:     constants.DefaultUserAgent,
	}
}
