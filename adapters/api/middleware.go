package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsMiddleware registers the request metrics on registry and returns
// the middleware updating them.
func MetricsMiddleware(registry prometheus.Registerer) (gin.HandlerFunc, error) {
	requestCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fireflyiii",
			Name:      "http_requests_total",
			Help:      "How many HTTP requests processed, partitioned by status code and HTTP method.",
		},
		[]string{"code", "method", "url"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fireflyiii",
			Name:      "http_request_duration_seconds",
			Help:      "The HTTP request latencies in seconds.",
		},
		[]string{"code", "method", "url"},
	)

	if err := registry.Register(requestCount); err != nil {
		existing, err := alreadyRegistered[*prometheus.CounterVec](err)
		if err != nil {
			return nil, fmt.Errorf("could not register request counter: %w", err)
		}
		requestCount = existing
	}
	if err := registry.Register(requestDuration); err != nil {
		existing, err := alreadyRegistered[*prometheus.HistogramVec](err)
		if err != nil {
			return nil, fmt.Errorf("could not register request histogram: %w", err)
		}
		requestDuration = existing
	}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		elapsed := float64(time.Since(start)) / float64(time.Second)

		// Replace URL parameters with their name to bound label cardinality
		url := c.Request.URL.Path
		for _, p := range c.Params {
			url = strings.Replace(url, p.Value, ":"+p.Key, 1)
		}

		requestDuration.WithLabelValues(status, c.Request.Method, url).Observe(elapsed)
		requestCount.WithLabelValues(status, c.Request.Method, url).Inc()
	}, nil
}

// alreadyRegistered returns the collector a failed Register call collided
// with, so routers built on the same registry share their metrics.
func alreadyRegistered[T prometheus.Collector](err error) (T, error) {
	var zero T
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return zero, err
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return zero, err
	}
	return existing, nil
}
