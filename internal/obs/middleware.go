package obs

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type routePatternKey struct{}

// WithRoutePattern stores the matched chi route pattern in the context so
// downstream middleware can label metrics with the template path instead of
// the raw URL.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext returns the matched route pattern. It prefers an
// explicitly stashed pattern and falls back to the chi routing context,
// which is populated once routing has completed.
func RoutePatternFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(routePatternKey{}).(string); ok && v != "" {
		return v
	}
	if rctx := chi.RouteContext(ctx); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

// StatusRecorder wraps a ResponseWriter to capture the status code and the
// number of bytes written.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
	Bytes  int
}

// NewStatusRecorder wraps w, defaulting the status to 200.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

func (sr *StatusRecorder) WriteHeader(code int) {
	sr.Status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *StatusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.Bytes += n
	return n, err
}

// HTTPObs is the metrics middleware for the HTTP server.
type HTTPObs struct {
	Metrics *HTTPMetrics
}

// Middleware records request counts, latency, and in-flight gauge per route
// pattern.
func (h HTTPObs) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		h.Metrics.InFlight.Inc()
		defer h.Metrics.InFlight.Dec()

		sr := NewStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(sr, r)

		route := RoutePatternFromContext(r.Context())
		if route == "" {
			route = "unmatched"
		}
		h.Metrics.ReqTotal.WithLabelValues(r.Method, route, strconv.Itoa(sr.Status)).Inc()
		h.Metrics.ReqDur.WithLabelValues(r.Method, route).Observe(DurationMillis(time.Since(start)))
	})
}

// TracingMiddleware wraps the handler chain with OpenTelemetry HTTP server
// spans. Span names use the chi route pattern when available.
func TracingMiddleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName,
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				if rctx := chi.RouteContext(r.Context()); rctx != nil {
					if p := rctx.RoutePattern(); p != "" {
						return r.Method + " " + p
					}
				}
				return r.Method + " " + r.URL.Path
			}),
		)
	}
}
