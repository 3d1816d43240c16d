package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gusify/QualgenAssets/internal/database/migration"
	"github.com/Gusify/QualgenAssets/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockStatusReporter struct {
	mock.Mock
}

func (m *MockStatusReporter) Status(ctx context.Context) ([]migration.StepStatus, error) {
	args := m.Called(ctx)
	statuses, _ := args.Get(0).([]migration.StepStatus)
	return statuses, args.Error(1)
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func newRouter(reporter StatusReporter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterUtilityRoutes(router, middleware.NewHealthChecker(okPinger{}, "test"), reporter, zap.NewNop())
	return router
}

func TestSchemaStatusRoute(t *testing.T) {
	reporter := new(MockStatusReporter)
	reporter.On("Status", mock.Anything).Return([]migration.StepStatus{
		{Name: "asset_catalog", State: migration.StateLegacyRetired},
		{Name: "owner_normalization", State: migration.StateSchemaPrepared},
	}, nil).Once()

	w := httptest.NewRecorder()
	newRouter(reporter).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/schema", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[
		{"step": "asset_catalog", "state": "complete"},
		{"step": "owner_normalization", "state": "schema-prepared"}
	]`, w.Body.String())
	reporter.AssertExpectations(t)
}

func TestSchemaStatusRouteFailure(t *testing.T) {
	reporter := new(MockStatusReporter)
	reporter.On("Status", mock.Anything).Return(nil, errors.New("connection reset")).Once()

	w := httptest.NewRecorder()
	newRouter(reporter).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/schema", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestHealthRoute(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(new(MockStatusReporter)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
