package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"weather-telemetry-service/internal/db"
	"weather-telemetry-service/internal/logging"
	"weather-telemetry-service/internal/notifiers"
	"weather-telemetry-service/internal/rules"
)

func NewRouter(dbConn *db.DB, ruleStore *rules.Store, hub *notifiers.Hub, logger *logging.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	h := NewHandler(dbConn, ruleStore, logger)

	api := r.Group("/api/v0")
	{
		// Alert configurations (administrative mutation path)
		api.POST("/alert-configurations", h.CreateAlertConfiguration)
		api.GET("/alert-configurations", h.ListAlertConfigurations)
		api.GET("/alert-configurations/:id", h.GetAlertConfiguration)
		api.PUT("/alert-configurations/:id", h.UpdateAlertConfiguration)
		api.DELETE("/alert-configurations/:id", h.DeleteAlertConfiguration)

		// Projections
		api.GET("/alerts", h.ListAlerts)
		api.GET("/stations", h.ListStations)
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", gin.WrapH(hub))

	return r
}
