package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voe-monitor-backend/internal/fetch"
)

// GetSchedule handles GET /api/addresses/:id/schedule. It performs a live
// fetch+parse for the address and returns the structured schedule; the
// worker's stored hashes are not touched.
func (h *Handler) GetSchedule(c *gin.Context) {
	addrID := c.Param("id")
	cityID, streetID, houseID, err := splitAddressID(addrID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "address id must be {city_id}-{street_id}-{house_id}"})
		return
	}

	name := addrID
	if addr, err := h.store.GetAddress(c.Request.Context(), addrID); err == nil && addr != nil {
		name = addr.Name
	}

	rawHTML, err := h.voe.Schedule(c.Request.Context(), cityID, streetID, houseID)
	if err != nil {
		h.logger.Error("schedule fetch failed", zap.String("address", addrID), zap.Error(err))
		if errors.Is(err, fetch.ErrSourceUnavailable) {
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "source unavailable"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "schedule fetch failed"})
		return
	}

	resp := h.parser.Parse(rawHTML, name, h.maxDays, time.Now())
	c.JSON(http.StatusOK, resp)
}

// GetStatus handles GET /api/status.
func (h *Handler) GetStatus(c *gin.Context) {
	addrs, err := h.store.GetAddressesWithSubscribers(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "status lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tracked_addresses": len(addrs),
	})
}

// PostSilentRecalc handles POST /api/admin/silent-recalc: the next worker
// tick rebases all hashes without notifying anyone.
func (h *Handler) PostSilentRecalc(c *gin.Context) {
	h.settings.ArmSilentRecalc()
	h.logger.Info("silent hash recalculation armed")
	c.JSON(http.StatusAccepted, gin.H{"armed": true})
}

func splitAddressID(id string) (cityID, streetID, houseID int64, err error) {
	parts := strings.Split(id, "-")
	if len(parts) != 3 {
		return 0, 0, 0, errInvalidAddressID
	}
	if cityID, err = strconv.ParseInt(parts[0], 10, 64); err != nil {
		return 0, 0, 0, err
	}
	if streetID, err = strconv.ParseInt(parts[1], 10, 64); err != nil {
		return 0, 0, 0, err
	}
	if houseID, err = strconv.ParseInt(parts[2], 10, 64); err != nil {
		return 0, 0, 0, err
	}
	return cityID, streetID, houseID, nil
}

var errInvalidAddressID = errors.New("invalid address id")
