package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/finlend/ledger-engine/pkg/response"
)

type HealthHandler struct {
	db      *sqlx.DB
	redis   *redis.Client
	timeout time.Duration
}

func NewHealthHandler(db *sqlx.DB, redisClient *redis.Client, timeout time.Duration) *HealthHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthHandler{db: db, redis: redisClient, timeout: timeout}
}

// Health reports liveness.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{"status": "ok"})
}

// Ready reports readiness: both the database and the cache must answer.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := map[string]string{"database": "ok", "redis": "ok"}
	healthy := true

	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = err.Error()
		healthy = false
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		}
	}

	if !healthy {
		response.JSON(w, http.StatusServiceUnavailable, checks)
		return
	}

	response.Success(w, checks)
}
