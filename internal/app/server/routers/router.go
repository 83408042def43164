package routers

import (
	"github.com/gin-gonic/gin"

	"github.com/kachmul2004/auraflowpos-sub004/internal/app/server/handlers/sync"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/server/middlewares"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/pkg/logger"
)

// SetupRoutes 配置所有路由，使用 Route Group 分类
func SetupRoutes(syncHandler *sync.SyncHandler, log logger.Logger) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.CORS())
	r.Use(middlewares.AccessLog(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "possyncd",
			"message": "Service is running",
		})
	})

	api := r.Group("/api")
	{
		syncGroup := api.Group("/sync")
		{
			syncGroup.POST("/batch", syncHandler.Batch)
			syncGroup.POST("/order", syncHandler.Order)
			syncGroup.POST("/transaction", syncHandler.Transaction)
			syncGroup.GET("/updates", syncHandler.Updates)
		}
	}

	return r
}
