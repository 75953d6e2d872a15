package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors shared by the backend gateway and the token manager.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	backendRequests *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	cacheHits       prometheus.Counter
	renewals        *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalogue_editor",
			Name:      "backend_requests_total",
			Help:      "Requests sent to the catalogue API by method and status code.",
		}, []string{"method", "code"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "catalogue_editor",
			Name:      "backend_request_duration_seconds",
			Help:      "Catalogue API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "catalogue_editor",
			Name:      "backend_cache_hits_total",
			Help:      "Catalogue API responses served from the revalidate cache.",
		}),
		renewals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalogue_editor",
			Name:      "token_renewals_total",
			Help:      "Access token renewals by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.backendRequests, m.backendLatency, m.cacheHits, m.renewals)
	}
	return m
}

// ObserveBackendRequest records one round trip. code 0 means the request never got a response.
func (m *Metrics) ObserveBackendRequest(method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.backendRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.backendLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// IncRenewal records a renewal attempt; result is "success" or "failure".
func (m *Metrics) IncRenewal(result string) {
	if m == nil {
		return
	}
	m.renewals.WithLabelValues(result).Inc()
}
