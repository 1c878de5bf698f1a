package metrics

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics captures low-cardinality HTTP server metrics.
type HTTPMetrics struct {
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

var (
	httpMetricsOnce sync.Once
	httpMetrics     *HTTPMetrics
)

// HTTP returns the process-wide HTTP metrics.
func HTTP() *HTTPMetrics {
	httpMetricsOnce.Do(func() {
		requestDuration := prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fabline_http_request_duration_seconds",
				Help:    "HTTP request latency by route and status.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "method", "status_code"},
		)
		inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fabline_http_in_flight_requests",
			Help: "Requests currently being served.",
		})
		prometheus.DefaultRegisterer.MustRegister(requestDuration, inFlight)
		httpMetrics = &HTTPMetrics{
			requestDuration: requestDuration,
			inFlight:        inFlight,
		}
	})
	return httpMetrics
}

// GinMiddleware records request duration and in-flight counts.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		endpoint := normalizeEndpoint(c.FullPath())
		m.inFlight.Inc()
		start := time.Now()
		c.Next()
		m.inFlight.Dec()

		m.requestDuration.
			WithLabelValues(endpoint, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "unknown"
	}
	return endpoint
}
