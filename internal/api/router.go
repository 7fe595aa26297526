package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/pockettune/radiosync/internal/mw"
)

// NewRouter creates and configures the HTTP surface for one session.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.Default()

	// Rate limit: 20 requests per second with a burst of 10
	rateLimiter := mw.RateLimit(rate.Limit(20), 10)

	// Station list cache: short TTL, the list changes on every local edit
	listCache := cache.New(2*time.Second, time.Minute)
	caching := mw.Cache(listCache, 2*time.Second)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/stations", caching, h.GetStations)
		api.POST("/stations", h.PostStation)
		api.PUT("/stations/:id", h.PutStation)
		api.DELETE("/stations/:id", h.DeleteStation)

		api.GET("/sync/status", h.GetSyncStatus)
		api.POST("/sync", h.PostSync)
	}

	return r
}
