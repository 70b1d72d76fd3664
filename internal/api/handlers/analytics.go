package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justpow98/j3d-backend/internal/api/middleware"
	"github.com/justpow98/j3d-backend/internal/db"
)

type AnalyticsHandler struct{}

func NewAnalyticsHandler() *AnalyticsHandler {
	return &AnalyticsHandler{}
}

func (h *AnalyticsHandler) Summary(c *gin.Context) {
	stats, err := db.Stats.GetBusinessStats(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		abortError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AnalyticsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/analytics/summary", h.Summary)
}
