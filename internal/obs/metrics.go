package obs

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics groups Prometheus collectors for HTTP observability.
type HTTPMetrics struct {
	ReqTotal *prometheus.CounterVec
	ReqDur   *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// NewHTTPMetrics registers and returns HTTP metrics collectors.
func NewHTTPMetrics(namespace string, buckets []float64, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if len(buckets) == 0 {
		buckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500}
	} else {
		sort.Float64s(buckets)
	}
	m := &HTTPMetrics{
		ReqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled by the server.",
		}, []string{"method", "route", "status"}),
		ReqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency distribution in milliseconds.",
			Buckets:   buckets,
		}, []string{"method", "route"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
	}
	mustRegisterCollector(reg, m.ReqTotal, nil)
	mustRegisterCollector(reg, m.ReqDur, nil)
	mustRegisterCollector(reg, m.InFlight, nil)
	return m
}

// DurationMillis converts a duration to milliseconds for metric observation.
func DurationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

var (
	domainOnce sync.Once

	// CartMutationTotal counts cart mutations by operation.
	CartMutationTotal *prometheus.CounterVec
	// CacheLookupTotal counts cache lookups by cache name and outcome.
	CacheLookupTotal *prometheus.CounterVec
	// PriceResolutionTotal counts unit price resolutions by client category
	// and outcome.
	PriceResolutionTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific
// Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartMutationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart mutations by operation.",
		}, []string{"op"})
		CacheLookupTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Count of cache lookups by cache and outcome.",
		}, []string{"cache", "result"})
		PriceResolutionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_resolutions_total",
			Help:      "Count of unit price resolutions by category and outcome.",
		}, []string{"category", "result"})

		mustRegisterCollector(reg, CartMutationTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartMutationTotal = v
			}
		})
		mustRegisterCollector(reg, CacheLookupTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CacheLookupTotal = v
			}
		})
		mustRegisterCollector(reg, PriceResolutionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PriceResolutionTotal = v
			}
		})
	})
}

// ObserveCartMutation records a cart mutation. Safe to call before metrics
// registration (tests): it is a no-op then.
func ObserveCartMutation(op string) {
	if CartMutationTotal == nil {
		return
	}
	CartMutationTotal.WithLabelValues(op).Inc()
}

// ObserveCacheLookup records a cache lookup outcome. No-op before
// registration.
func ObserveCacheLookup(cache string, hit bool) {
	if CacheLookupTotal == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupTotal.WithLabelValues(cache, result).Inc()
}

// ObservePriceResolution records the outcome of a unit price resolution.
// No-op before registration.
func ObservePriceResolution(category string, err error) {
	if PriceResolutionTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	PriceResolutionTotal.WithLabelValues(category, result).Inc()
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}
