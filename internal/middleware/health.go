package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

type HealthStatus struct {
	Status      string    `json:"status"`
	Database    string    `json:"database"`
	LastChecked time.Time `json:"last_checked"`
	Uptime      string    `json:"uptime"`
	Version     string    `json:"version"`
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker answers /api/health. Database pings are cached for
// cacheDuration so probes do not hammer the pool.
type HealthChecker struct {
	mu            sync.Mutex
	db            Pinger
	version       string
	startTime     time.Time
	cacheDuration time.Duration
	last          HealthStatus
	lastCode      int
}

func NewHealthChecker(db Pinger, version string) *HealthChecker {
	return &HealthChecker{
		db:            db,
		version:       version,
		startTime:     time.Now(),
		cacheDuration: 5 * time.Second,
	}
}

func (h *HealthChecker) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		code, status := h.check(c.Request.Context())
		c.JSON(code, status)
	}
}

func (h *HealthChecker) check(ctx context.Context) (int, HealthStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	if h.lastCode != 0 && now.Sub(h.last.LastChecked) < h.cacheDuration {
		h.last.Uptime = now.Sub(h.startTime).Round(time.Second).String()
		return h.lastCode, h.last
	}

	status := HealthStatus{
		Status:      StatusOK,
		Database:    StatusOK,
		LastChecked: now,
		Uptime:      now.Sub(h.startTime).Round(time.Second).String(),
		Version:     h.version,
	}
	code := http.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		status.Status = StatusDegraded
		status.Database = err.Error()
		code = http.StatusServiceUnavailable
	}

	h.last, h.lastCode = status, code
	return code, status
}
