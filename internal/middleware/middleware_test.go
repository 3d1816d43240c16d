package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubPinger struct {
	err   error
	calls int
}

func (p *stubPinger) Ping(context.Context) error {
	p.calls++
	return p.err
}

func serve(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealthChecker(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		pingErr  error
		code     int
		status   string
		database string
	}{
		{name: "database reachable", code: http.StatusOK, status: StatusOK, database: StatusOK},
		{name: "database down", pingErr: errors.New("connection refused"), code: http.StatusServiceUnavailable, status: StatusDegraded, database: "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pinger := &stubPinger{err: tt.pingErr}
			router := gin.New()
			router.GET("/api/health", NewHealthChecker(pinger, "test").Handler())

			w := serve(t, router, "/api/health")
			assert.Equal(t, tt.code, w.Code)

			var body HealthStatus
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body.Status)
			assert.Equal(t, tt.database, body.Database)
			assert.Equal(t, "test", body.Version)
		})
	}
}

func TestHealthCheckerCachesPing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pinger := &stubPinger{}
	router := gin.New()
	router.GET("/api/health", NewHealthChecker(pinger, "test").Handler())

	serve(t, router, "/api/health")
	serve(t, router, "/api/health")

	assert.Equal(t, 1, pinger.calls)
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RecoveryMiddleware(zap.NewNop()))
	router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	w := serve(t, router, "/boom")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal Server Error")
}
