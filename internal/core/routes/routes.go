package routes

import (
	"context"
	"net/http"

	"github.com/Gusify/QualgenAssets/internal/database/migration"
	"github.com/Gusify/QualgenAssets/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StatusReporter interface {
	Status(ctx context.Context) ([]migration.StepStatus, error)
}

type stepStatusResponse struct {
	Step  string `json:"step"`
	State string `json:"state"`
}

func RegisterUtilityRoutes(router *gin.Engine, health *middleware.HealthChecker, schema StatusReporter, logger *zap.Logger) {
	api := router.Group("/api")
	api.GET("/health", health.Handler())
	api.GET("/schema", schemaStatusHandler(schema, logger))
}

// schemaStatusHandler reports the detected state of every migration step.
// It only reads the catalog.
func schemaStatusHandler(schema StatusReporter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		statuses, err := schema.Status(c.Request.Context())
		if err != nil {
			logger.Error("Failed to read schema status", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not read schema status"})
			return
		}

		response := make([]stepStatusResponse, 0, len(statuses))
		for _, s := range statuses {
			response = append(response, stepStatusResponse{Step: s.Name, State: s.State.String()})
		}
		c.JSON(http.StatusOK, response)
	}
}
