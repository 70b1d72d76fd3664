package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justpow98/j3d-backend/internal/api/middleware"
	"github.com/justpow98/j3d-backend/internal/db"
)

type ProfileHandler struct{}

func NewProfileHandler() *ProfileHandler {
	return &ProfileHandler{}
}

type UpsertProfileRequest struct {
	EtsyListingID   string `json:"etsy_listing_id" binding:"required"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,gt=0"`
	MaterialType    string `json:"material_type"`
	NozzleTemp      int    `json:"nozzle_temp"`
	BedTemp         int    `json:"bed_temp"`
	PrintSpeed      int    `json:"print_speed"`
}

// UpsertProfile stores per-listing print settings; scheduling falls back to
// defaults for listings without one.
func (h *ProfileHandler) UpsertProfile(c *gin.Context) {
	var req UpsertProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "etsy_listing_id and a positive duration_minutes are required")
		return
	}

	ownerID := middleware.OwnerID(c)
	pp := &db.ProductProfile{
		UserID:          ownerID,
		EtsyListingID:   req.EtsyListingID,
		DurationMinutes: req.DurationMinutes,
		MaterialType:    req.MaterialType,
		NozzleTemp:      req.NozzleTemp,
		BedTemp:         req.BedTemp,
		PrintSpeed:      req.PrintSpeed,
	}
	if err := db.Profiles.UpsertProfile(c.Request.Context(), pp); err != nil {
		abortError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	stored, err := db.Profiles.GetProfile(c.Request.Context(), ownerID, req.EtsyListingID)
	if err != nil {
		abortError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	c.JSON(http.StatusOK, stored)
}

func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	profiles, err := db.Profiles.ListProfiles(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		abortError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	if profiles == nil {
		profiles = []*db.ProductProfile{}
	}
	c.JSON(http.StatusOK, ListEnvelope{Data: profiles, Total: len(profiles), Limit: len(profiles), Offset: 0})
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	listingID := c.Param("listing_id")
	if listingID == "" {
		abortError(c, http.StatusBadRequest, "invalid listing_id")
		return
	}

	pp, err := db.Profiles.GetProfile(c.Request.Context(), middleware.OwnerID(c), listingID)
	if err != nil {
		abortDBError(c, err, "product profile not found")
		return
	}
	c.JSON(http.StatusOK, pp)
}

func (h *ProfileHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.PUT("/profiles", h.UpsertProfile)
	r.GET("/profiles", h.ListProfiles)
	r.GET("/profiles/:listing_id", h.GetProfile)
}
