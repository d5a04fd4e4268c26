package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/strideatlas/streets-backend-go/internal/handler"
	"github.com/strideatlas/streets-backend-go/internal/middleware"
)

// SetupRouter wires the HTTP surface over the coverage core.
func SetupRouter(activity *handler.ActivityHandler, coverage *handler.CoverageHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Streets coverage API is running",
		})
	})

	api := r.Group("/api/v1")
	{
		// Processing triggers remote graph and map-matching queries, so it
		// gets a much tighter limit than reads.
		api.POST("/activities/process", middleware.RateLimit(20, time.Minute), activity.ProcessActivity)
		api.GET("/coverage", middleware.RateLimit(120, time.Minute), coverage.GetAreaCoverage)
	}

	return r
}
