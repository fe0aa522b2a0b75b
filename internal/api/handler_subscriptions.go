package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voe-monitor-backend/internal/model"
)

type subscriptionRequest struct {
	UserID   int64  `json:"user_id" binding:"required"`
	CityID   int64  `json:"city_id" binding:"required"`
	StreetID int64  `json:"street_id" binding:"required"`
	HouseID  int64  `json:"house_id" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Kind     string `json:"kind" binding:"required"`
}

type subscriptionResponse struct {
	AddressID string `json:"address_id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
}

// GetSubscriptions handles GET /api/subscriptions?user_id=.
func (h *Handler) GetSubscriptions(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	subs, err := h.store.GetUserSubscriptions(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("subscription lookup failed", zap.Int64("user", userID), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "subscription lookup failed"})
		return
	}

	resp := make([]subscriptionResponse, 0, len(subs))
	for _, s := range subs {
		resp = append(resp, subscriptionResponse{
			AddressID: s.AddressID,
			Name:      s.Address.Name,
			Kind:      string(s.Kind),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// PutSubscription handles PUT /api/subscriptions.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind := model.SubscriptionKind(req.Kind)
	if !kind.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "kind must be 'today' or 'tomorrow'"})
		return
	}

	addr := model.Address{
		ID:       model.AddressID(req.CityID, req.StreetID, req.HouseID),
		CityID:   req.CityID,
		StreetID: req.StreetID,
		HouseID:  req.HouseID,
		Name:     req.Name,
	}

	if err := h.store.AddSubscription(c.Request.Context(), req.UserID, addr, kind); err != nil {
		h.logger.Error("subscription create failed",
			zap.Int64("user", req.UserID), zap.String("address", addr.ID), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "subscription create failed"})
		return
	}

	c.JSON(http.StatusCreated, subscriptionResponse{
		AddressID: addr.ID,
		Name:      addr.Name,
		Kind:      string(kind),
	})
}

// DeleteSubscription handles DELETE /api/subscriptions?user_id=&address_id=&kind=.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	addressID := c.Query("address_id")
	if addressID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "address_id is required"})
		return
	}

	kind := model.SubscriptionKind(c.Query("kind"))
	if !kind.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "kind must be 'today' or 'tomorrow'"})
		return
	}

	if err := h.store.RemoveSubscription(c.Request.Context(), userID, addressID, kind); err != nil {
		h.logger.Error("subscription delete failed",
			zap.Int64("user", userID), zap.String("address", addressID), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "subscription delete failed"})
		return
	}

	c.Status(http.StatusNoContent)
}
