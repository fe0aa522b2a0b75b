package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voe-monitor-backend/internal/fetch"
)

// GetCities handles GET /api/autocomplete/cities?q=.
func (h *Handler) GetCities(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	items, err := h.voe.Cities(c.Request.Context(), query)
	h.respondAutocomplete(c, items, err)
}

// GetStreets handles GET /api/autocomplete/streets?city_id=&q=.
func (h *Handler) GetStreets(c *gin.Context) {
	cityID, err := strconv.ParseInt(c.Query("city_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid city_id"})
		return
	}
	query := c.Query("q")
	if query == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	items, err := h.voe.Streets(c.Request.Context(), cityID, query)
	h.respondAutocomplete(c, items, err)
}

// GetHouses handles GET /api/autocomplete/houses?street_id=&q=.
func (h *Handler) GetHouses(c *gin.Context) {
	streetID, err := strconv.ParseInt(c.Query("street_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid street_id"})
		return
	}
	query := c.Query("q")
	if query == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	items, err := h.voe.Houses(c.Request.Context(), streetID, query)
	h.respondAutocomplete(c, items, err)
}

func (h *Handler) respondAutocomplete(c *gin.Context, items []fetch.AutocompleteItem, err error) {
	if err != nil {
		h.logger.Error("autocomplete request failed", zap.Error(err))
		if errors.Is(err, fetch.ErrSourceUnavailable) {
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "source unavailable"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "autocomplete failed"})
		return
	}
	if items == nil {
		items = []fetch.AutocompleteItem{}
	}
	c.JSON(http.StatusOK, items)
}
