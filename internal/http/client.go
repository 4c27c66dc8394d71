package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/fivetwenty-io/fmdata/internal/constants"
	"github.com/fivetwenty-io/fmdata/pkg/fmdata"
)

// TokenManager supplies the bearer token attached to each request.
type TokenManager interface {
	GetToken(ctx context.Context) (string, error)
}

// Request describes one Data API call. Body is JSON-encoded unless it is
// already a []byte or json.RawMessage.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Headers map[string]string
}

// Response holds the raw reply.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Envelope decodes the reply body.
func (r *Response) Envelope() (*fmdata.Envelope, error) {
	return fmdata.ParseEnvelope(r.Body)
}

// Client sends Data API requests. It is safe for concurrent use.
type Client struct {
	baseURL       string
	tokenManager  TokenManager
	httpClient    *retryablehttp.Client
	logger        fmdata.Logger
	debug         bool
	userAgent     string
	interceptors  *fmdata.InterceptorChain
	limiter       *rate.Limiter
	skipTLSVerify bool
	timeout       time.Duration
	retryMax      int
	retryWaitMin  time.Duration
	retryWaitMax  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger fmdata.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithRetryConfig enables retries of 5xx, 429 and connection errors.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.retryMax = retryMax

		if waitMin > 0 {
			c.retryWaitMin = waitMin
		}

		if waitMax > 0 {
			c.retryWaitMax = waitMax
		}
	}
}

// WithSkipTLSVerify disables certificate validation.
func WithSkipTLSVerify(skip bool) Option {
	return func(c *Client) {
		c.skipTLSVerify = skip
	}
}

// WithRateLimit caps outgoing requests per second. Zero or less disables it.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = nil

			return
		}

		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}

		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// WithInterceptors runs chain around every request.
func WithInterceptors(chain *fmdata.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// WithTimeout bounds each round trip.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewClient creates a Client. An empty baseURL means FM_URL is read on every
// request. A nil tokenManager sends requests without a bearer token.
func NewClient(baseURL string, tokenManager TokenManager, opts ...Option) *Client {
	client := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		tokenManager: tokenManager,
		userAgent:    constants.DefaultUserAgent,
		timeout:      constants.DefaultHTTPTimeout,
		retryMax:     constants.DefaultRetryMax,
		retryWaitMin: constants.DefaultRetryWaitMin,
		retryWaitMax: constants.DefaultRetryWaitMax,
	}

	for _, opt := range opts {
		opt(client)
	}

	client.httpClient = client.newRetryableClient()

	return client
}

// WithTokenManager returns a copy of c that authenticates with tokenManager
// and shares c's transport and connection pool.
func (c *Client) WithTokenManager(tokenManager TokenManager) *Client {
	clone := *c
	clone.tokenManager = tokenManager

	return &clone
}

func (c *Client) newRetryableClient() *retryablehttp.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = c.retryMax
	retryClient.RetryWaitMin = c.retryWaitMin
	retryClient.RetryWaitMax = c.retryWaitMax
	retryClient.HTTPClient.Timeout = c.timeout
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.CheckRetry = checkRetry
	retryClient.Logger = nil

	if c.retryMax > 0 && c.logger != nil {
		retryClient.Logger = &leveledLogger{logger: c.logger}
	}

	if c.skipTLSVerify {
		transport, ok := retryClient.HTTPClient.Transport.(*http.Transport)
		if !ok {
			transport = http.DefaultTransport.(*http.Transport).Clone()
			retryClient.HTTPClient.Transport = transport
		}

		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // FileMaker Server ships self-signed certificates
	}

	return retryClient
}

// checkRetry follows the default policy except for 500, which FileMaker uses
// for application errors such as "no records match".
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp != nil && resp.StatusCode == http.StatusInternalServerError {
		return false, ctx.Err()
	}

	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// BaseURL returns the configured base URL, or FM_URL when none was set.
func (c *Client) BaseURL() string {
	if c.baseURL != "" {
		return c.baseURL
	}

	return strings.TrimSuffix(os.Getenv(constants.EnvBaseURL), "/")
}

// Do sends req. A non-2xx reply returns both the Response and a
// *fmdata.ResponseError.
//
//nolint:funlen,cyclop
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	baseURL := c.BaseURL()
	if baseURL == "" {
		return nil, constants.ErrNoBaseURL
	}

	fullURL := baseURL + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	headers := make(http.Header)
	headers.Set(constants.HeaderAccept, constants.ContentTypeJSON)
	headers.Set(constants.HeaderUserAgent, c.userAgent)

	if body != nil {
		headers.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	}

	for key, value := range req.Headers {
		headers.Set(key, value)
	}

	if c.tokenManager != nil && headers.Get(constants.HeaderAuthorization) == "" {
		token, err := c.tokenManager.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("getting session token: %w", err)
		}

		headers.Set(constants.HeaderAuthorization, "Bearer "+token)
	}

	intercepted := &fmdata.Request{
		Method:  req.Method,
		Path:    req.Path,
		Headers: headers,
		Body:    body,
	}

	if c.interceptors != nil {
		err = c.interceptors.ExecuteRequestInterceptors(ctx, intercepted)
		if err != nil {
			return nil, err
		}
	}

	if c.limiter != nil {
		err = c.limiter.Wait(ctx)
		if err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, bodyReader(intercepted.Body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header = intercepted.Headers

	if c.debug && c.logger != nil {
		loggedURL := baseURL + redactPath(req.Path)
		if len(req.Query) > 0 {
			loggedURL += "?" + req.Query.Encode()
		}

		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    loggedURL,
		})
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.intercept(ctx, intercepted, &fmdata.Response{Error: err})

		return nil, fmt.Errorf("sending %s %s: %w", req.Method, req.Path, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	response := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}

	if c.debug && c.logger != nil {
		loggedBody := preview(respBody)
		if isSessionPath(req.Path) {
			loggedBody = "[redacted]"
		}

		c.logger.Debug("HTTP Response", map[string]interface{}{
			"status": httpResp.StatusCode,
			"body":   loggedBody,
		})
	}

	c.intercept(ctx, intercepted, &fmdata.Response{
		StatusCode: response.StatusCode,
		Headers:    response.Headers,
		Body:       response.Body,
	})

	if httpResp.StatusCode < http.StatusOK || httpResp.StatusCode >= http.StatusMultipleChoices {
		return response, fmdata.ParseResponseError(httpResp.StatusCode, respBody)
	}

	return response, nil
}

// intercept runs response interceptors. Their errors are logged only, the
// reply has already been received.
func (c *Client) intercept(ctx context.Context, req *fmdata.Request, resp *fmdata.Response) {
	if c.interceptors == nil {
		return
	}

	err := c.interceptors.ExecuteResponseInterceptors(ctx, req, resp)
	if err != nil && c.logger != nil {
		c.logger.Warn("response interceptor failed", map[string]interface{}{
			"path":  req.Path,
			"error": err.Error(),
		})
	}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
	})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPut,
		Path:   path,
		Body:   body,
	})
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPatch,
		Path:   path,
		Body:   body,
	})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodDelete,
		Path:   path,
	})
}

// JoinPath builds an absolute path, escaping every segment.
func JoinPath(segments ...string) string {
	var builder strings.Builder

	for _, segment := range segments {
		builder.WriteByte('/')
		builder.WriteString(url.PathEscape(segment))
	}

	return builder.String()
}

func encodeBody(body interface{}) ([]byte, error) {
	switch value := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return value, nil
	case json.RawMessage:
		return value, nil
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}

		return data, nil
	}
}

func bodyReader(body []byte) io.Reader {
	if body == nil {
		return nil
	}

	return bytes.NewReader(body)
}

// redactPath replaces the token in .../sessions/{token} paths.
func redactPath(path string) string {
	segments := strings.Split(path, "/")
	for i := 1; i < len(segments); i++ {
		if segments[i-1] == constants.PathSessions {
			segments[i] = "{token}"
		}
	}

	return strings.Join(segments, "/")
}

// isSessionPath reports whether path is a login or logout call, whose
// replies carry the session token.
func isSessionPath(path string) bool {
	for _, segment := range strings.Split(path, "/") {
		if segment == constants.PathSessions {
			return true
		}
	}

	return false
}

func preview(body []byte) string {
	if len(body) > constants.MaxBodyPreview {
		return string(body[:constants.MaxBodyPreview]) + "..."
	}

	return string(body)
}

// leveledLogger adapts fmdata.Logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger fmdata.Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, toFields(keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, toFields(keysAndValues))
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, toFields(keysAndValues))
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, toFields(keysAndValues))
}

func toFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return fields
}
