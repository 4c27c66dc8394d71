// Package metrics records Data API request counts and latencies with
// Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fivetwenty-io/fmdata/pkg/fmdata"
)

const startTimeKey = "metrics_start_time"

// Collector holds the request metrics.
type Collector struct {
	RequestsTotal  *prometheus.CounterVec
	ErrorsTotal    *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec
}

// NewCollector creates the metrics and registers them on registerer. When
// they are already registered, for example by a second client sharing the
// registry, the existing metrics are reused.
func NewCollector(registerer prometheus.Registerer) (*Collector, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fmdata_requests_total",
		Help: "Total number of FileMaker Data API requests.",
	}, []string{"method", "route", "status"})

	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fmdata_request_errors_total",
		Help: "Total number of failed FileMaker Data API requests by FileMaker message code.",
	}, []string{"method", "route", "code"})

	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fmdata_request_duration_seconds",
		Help:    "Duration of FileMaker Data API requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	var err error

	collector := &Collector{}

	collector.RequestsTotal, err = register(registerer, requests)
	if err != nil {
		return nil, err
	}

	collector.ErrorsTotal, err = register(registerer, failures)
	if err != nil {
		return nil, err
	}

	collector.RequestLatency, err = register(registerer, latency)
	if err != nil {
		return nil, err
	}

	return collector, nil
}

func register[T prometheus.Collector](registerer prometheus.Registerer, collector T) (T, error) {
	err := registerer.Register(collector)
	if err == nil {
		return collector, nil
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(T); ok {
			return existing, nil
		}
	}

	return collector, fmt.Errorf("registering metrics: %w", err)
}

// Attach adds the collector's interceptors to chain.
func (c *Collector) Attach(chain *fmdata.InterceptorChain) {
	chain.AddRequestInterceptor(c.RequestInterceptor())
	chain.AddResponseInterceptor(c.ResponseInterceptor())
}

// RequestInterceptor records the request start time.
func (c *Collector) RequestInterceptor() fmdata.RequestInterceptor {
	return func(ctx context.Context, req *fmdata.Request) error {
		if req.Metadata == nil {
			req.Metadata = make(map[string]interface{})
		}

		req.Metadata[startTimeKey] = time.Now()

		return nil
	}
}

// ResponseInterceptor counts the request and observes its latency.
func (c *Collector) ResponseInterceptor() fmdata.ResponseInterceptor {
	return func(ctx context.Context, req *fmdata.Request, resp *fmdata.Response) error {
		route := Route(req.Path)
		status := "error"

		if resp.Error == nil {
			status = strconv.Itoa(resp.StatusCode)
		}

		c.RequestsTotal.WithLabelValues(req.Method, route, status).Inc()

		if start, ok := req.Metadata[startTimeKey].(time.Time); ok {
			c.RequestLatency.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
		}

		if resp.Error != nil || resp.StatusCode >= http.StatusBadRequest {
			c.ErrorsTotal.WithLabelValues(req.Method, route, messageCode(resp)).Inc()
		}

		return nil
	}
}

func messageCode(resp *fmdata.Response) string {
	if resp.Error != nil {
		return "transport"
	}

	first := fmdata.ParseResponseError(resp.StatusCode, resp.Body).FirstMessage()
	if first == nil {
		return "unknown"
	}

	return first.Code
}

// Route replaces names and ids in a Data API path with placeholders so it
// can be used as a label.
func Route(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")

	for i := 1; i < len(segments); i++ {
		switch segments[i-1] {
		case "databases":
			segments[i] = "{database}"
		case "layouts":
			segments[i] = "{layout}"
		case "records":
			segments[i] = "{id}"
		case "sessions":
			segments[i] = "{token}"
		}
	}

	return "/" + strings.Join(segments, "/")
}
