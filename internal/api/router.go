package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"voe-monitor-backend/config"
	"voe-monitor-backend/internal/mw"
)

// NewRouter creates and configures the Gin router.
func NewRouter(cfg *config.ServerConfig, h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)
	rateLimit := mw.RateLimit(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	api := r.Group("/api")
	api.Use(rateLimit)
	{
		api.GET("/status", h.GetStatus)

		// Autocomplete queries are passed through to the VOE site, so they
		// are both cached and rate limited.
		api.GET("/autocomplete/cities", caching, h.GetCities)
		api.GET("/autocomplete/streets", caching, h.GetStreets)
		api.GET("/autocomplete/houses", caching, h.GetHouses)

		api.GET("/addresses/:id/schedule", h.GetSchedule)

		api.GET("/subscriptions", h.GetSubscriptions)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)

		api.POST("/admin/silent-recalc", h.PostSilentRecalc)
	}

	return r
}
