package api

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/quantdesk/quantdesk-go/internal/api/handlers"
)

// Dependencies bundles the handlers the router wires up.
type Dependencies struct {
	Analysis *handlers.AnalysisHandler
	Reports  *handlers.ReportsHandler
	Health   *handlers.HealthHandler
}

// SetupRoutes registers all HTTP routes on the router.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	router.Use(otelgin.Middleware("quantdesk"))

	router.GET("/health", deps.Health.Check)

	v1 := router.Group("/api/v1")
	{
		analysis := v1.Group("/analysis")
		{
			analysis.POST("/single", deps.Analysis.SingleAsset)
			analysis.POST("/portfolio", deps.Analysis.Portfolio)
		}

		reports := v1.Group("/reports")
		{
			reports.GET("", deps.Reports.List)
			reports.POST("/run", deps.Reports.Run)
		}
	}
}
