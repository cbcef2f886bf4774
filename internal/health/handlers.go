package health

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	"github.com/rvk/skycommerce/internal/common"
)

// Handler exposes liveness and readiness probes. Either dependency may be
// nil; the server then runs without it and the probe reports it as skipped.
type Handler struct {
	DB           *pgxpool.Pool
	Redis        *redis.Client
	ProbeTimeout time.Duration
}

// Live reports process liveness.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready probes the configured dependencies.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
	defer cancel()

	status := map[string]string{
		"db":    "skipped",
		"redis": "skipped",
	}
	healthy := true

	if h.DB != nil {
		status["db"] = "ok"
		if err := h.DB.Ping(ctx); err != nil {
			status["db"] = err.Error()
			healthy = false
		}
	}
	if h.Redis != nil {
		status["redis"] = "ok"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			status["redis"] = err.Error()
			healthy = false
		}
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	common.JSON(w, code, status)
}

func (h Handler) timeout() time.Duration {
	if h.ProbeTimeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.ProbeTimeout
}
