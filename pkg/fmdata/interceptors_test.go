package fmdata_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/fmdata/pkg/fmdata"
)

type recordingLogger struct {
	entries []string
}

func (l *recordingLogger) Debug(msg string, _ map[string]interface{}) {
	l.entries = append(l.entries, "debug:"+msg)
}

func (l *recordingLogger) Info(msg string, _ map[string]interface{}) {
	l.entries = append(l.entries, "info:"+msg)
}

func (l *recordingLogger) Warn(msg string, _ map[string]interface{}) {
	l.entries = append(l.entries, "warn:"+msg)
}

func (l *recordingLogger) Error(msg string, _ map[string]interface{}) {
	l.entries = append(l.entries, "error:"+msg)
}

func TestInterceptorChain_RequestInterceptors(t *testing.T) {
	t.Parallel()

	chain := fmdata.NewInterceptorChain()
	ctx := context.Background()

	var executionOrder []string

	chain.AddRequestInterceptor(func(ctx context.Context, req *fmdata.Request) error {
		executionOrder = append(executionOrder, "first")

		return nil
	})

	chain.AddRequestInterceptor(func(ctx context.Context, req *fmdata.Request) error {
		executionOrder = append(executionOrder, "second")

		return nil
	})

	req := &fmdata.Request{
		Method: "GET",
		Path:   "/databases/Contacts/layouts/People/records",
	}

	err := chain.ExecuteRequestInterceptors(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, executionOrder)
}

func TestInterceptorChain_StopsOnError(t *testing.T) {
	t.Parallel()

	chain := fmdata.NewInterceptorChain()
	errBlocked := errors.New("blocked")
	called := false

	chain.AddRequestInterceptor(func(ctx context.Context, req *fmdata.Request) error {
		return errBlocked
	})
	chain.AddRequestInterceptor(func(ctx context.Context, req *fmdata.Request) error {
		called = true

		return nil
	})

	err := chain.ExecuteRequestInterceptors(context.Background(), &fmdata.Request{})
	require.ErrorIs(t, err, errBlocked)
	assert.False(t, called)
}

func TestInterceptorChain_ResponseInterceptors(t *testing.T) {
	t.Parallel()

	chain := fmdata.NewInterceptorChain()

	var statuses []int

	chain.AddResponseInterceptor(func(ctx context.Context, req *fmdata.Request, resp *fmdata.Response) error {
		statuses = append(statuses, resp.StatusCode)

		return nil
	})

	err := chain.ExecuteResponseInterceptors(context.Background(),
		&fmdata.Request{Method: "GET", Path: "/databases"},
		&fmdata.Response{StatusCode: http.StatusOK},
	)
	require.NoError(t, err)
	assert.Equal(t, []int{http.StatusOK}, statuses)
}

func TestLoggingInterceptors(t *testing.T) {
	t.Parallel()

	logger := &recordingLogger{}
	ctx := context.Background()
	req := &fmdata.Request{Method: "POST", Path: "/databases/Contacts/layouts/People/_find"}

	require.NoError(t, fmdata.LoggingInterceptor(logger)(ctx, req))
	require.NoError(t, fmdata.LoggingResponseInterceptor(logger)(ctx, req, &fmdata.Response{StatusCode: http.StatusOK}))
	require.NoError(t, fmdata.LoggingResponseInterceptor(logger)(ctx, req, &fmdata.Response{StatusCode: http.StatusInternalServerError}))

	assert.Equal(t, []string{
		"debug:API Request",
		"debug:API Response",
		"error:API Response Error",
	}, logger.entries)
}

func TestHeaderInterceptor(t *testing.T) {
	t.Parallel()

	req := &fmdata.Request{}

	err := fmdata.HeaderInterceptor(map[string]string{"X-Request-Source": "sync"})(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "sync", req.Headers.Get("X-Request-Source"))
}

func TestInterceptorChain_Clone(t *testing.T) {
	t.Parallel()

	var nilChain *fmdata.InterceptorChain

	require.NoError(t, nilChain.Clone().ExecuteRequestInterceptors(context.Background(), &fmdata.Request{}))

	original := fmdata.NewInterceptorChain()
	calls := 0

	original.AddRequestInterceptor(func(ctx context.Context, req *fmdata.Request) error {
		calls++

		return nil
	})

	clone := original.Clone()
	clone.AddRequestInterceptor(func(ctx context.Context, req *fmdata.Request) error {
		calls += 10

		return nil
	})

	require.NoError(t, original.ExecuteRequestInterceptors(context.Background(), &fmdata.Request{}))
	assert.Equal(t, 1, calls)

	require.NoError(t, clone.ExecuteRequestInterceptors(context.Background(), &fmdata.Request{}))
	assert.Equal(t, 12, calls)
}
