package api

import (
	"github.com/Benaah/amaniquery-sub002/internal/api/handler"
	"github.com/Benaah/amaniquery-sub002/internal/api/middleware"
	"github.com/Benaah/amaniquery-sub002/internal/logger"
	"github.com/Benaah/amaniquery-sub002/internal/metrics"
	"github.com/Benaah/amaniquery-sub002/internal/stream"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the ops HTTP surface for the consumer process.
func NewRouter(reporter *metrics.Reporter, log stream.Log, appLogger *logger.Logger, mode string) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(appLogger))

	ops := handler.NewOpsHandler(reporter, log)
	r.GET("/healthz", ops.Health)
	r.GET("/metrics", ops.Metrics)

	return r
}
