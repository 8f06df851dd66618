package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/harborgate/site-api/internal/uploads"
	"github.com/harborgate/site-api/pkg/logging"
)

type dbPinger interface {
	Ping(ctx context.Context) error
}

type cachePinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

type storageProber interface {
	Reachable(ctx context.Context) bool
}

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"

	serviceOK          = "ok"
	serviceUnavailable = "unavailable"
)

// Response is the GET /api/health body.
type Response struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// Handler probes the service's external dependencies.
type Handler struct {
	db      dbPinger
	cache   cachePinger
	storage storageProber
	timeout time.Duration
	logger  *logging.Logger
}

// NewHandler creates a health handler. Any dependency handle may be nil;
// a nil handle reports as unavailable.
func NewHandler(pool *pgxpool.Pool, cache *redis.Client, storage *uploads.Store, timeout time.Duration, logger *logging.Logger) *Handler {
	h := newHandlerWithProbes(nil, nil, nil, timeout, logger)
	if pool != nil {
		h.db = pool
	}
	if cache != nil {
		h.cache = cache
	}
	if storage != nil && storage.Enabled() {
		h.storage = storage
	}
	return h
}

func newHandlerWithProbes(db dbPinger, cache cachePinger, storage storageProber, timeout time.Duration, logger *logging.Logger) *Handler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		db:      db,
		cache:   cache,
		storage: storage,
		timeout: timeout,
		logger:  logger,
	}
}

// Check handles GET /api/health. Healthy requires all three dependencies
// reachable; unhealthy means none are.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	services := map[string]string{
		"database": h.probeDatabase(r.Context()),
		"storage":  h.probeStorage(r.Context()),
		"cache":    h.probeCache(r.Context()),
	}

	unavailable := 0
	for _, state := range services {
		if state == serviceUnavailable {
			unavailable++
		}
	}

	status := statusDegraded
	switch unavailable {
	case 0:
		status = statusHealthy
	case len(services):
		status = statusUnhealthy
	}

	if status != statusHealthy {
		h.logger.Warn("health check degraded", "status", status, "services", services)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(Response{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  services,
	})
}

func (h *Handler) probeDatabase(ctx context.Context) string {
	if h.db == nil {
		return serviceUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		return serviceUnavailable
	}
	return serviceOK
}

func (h *Handler) probeCache(ctx context.Context) string {
	if h.cache == nil {
		return serviceUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	if err := h.cache.Ping(ctx).Err(); err != nil {
		return serviceUnavailable
	}
	return serviceOK
}

func (h *Handler) probeStorage(ctx context.Context) string {
	if h.storage == nil {
		return serviceUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	if !h.storage.Reachable(ctx) {
		return serviceUnavailable
	}
	return serviceOK
}
