package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justpow98/j3d-backend/internal/api/middleware"
	"github.com/justpow98/j3d-backend/internal/db"
)

type FilamentHandler struct{}

func NewFilamentHandler() *FilamentHandler {
	return &FilamentHandler{}
}

type CreateFilamentRequest struct {
	Color             string   `json:"color" binding:"required"`
	Material          string   `json:"material" binding:"required"`
	InitialAmount     float64  `json:"initial_amount" binding:"required,gt=0"`
	Unit              string   `json:"unit"`
	CostPerGram       *float64 `json:"cost_per_gram"`
	LowStockThreshold float64  `json:"low_stock_threshold"`
}

type UpdateFilamentRequest struct {
	Color             string   `json:"color" binding:"required"`
	Material          string   `json:"material" binding:"required"`
	InitialAmount     float64  `json:"initial_amount" binding:"required,gt=0"`
	CurrentAmount     *float64 `json:"current_amount" binding:"required"`
	Unit              string   `json:"unit"`
	CostPerGram       *float64 `json:"cost_per_gram"`
	LowStockThreshold float64  `json:"low_stock_threshold"`
}

type RecordUsageRequest struct {
	OrderID     *int64  `json:"order_id"`
	AmountUsed  float64 `json:"amount_used" binding:"required,gt=0"`
	Description string  `json:"description"`
}

// FilamentResponse adds the derived fields clients always want next to the
// raw spool row.
type FilamentResponse struct {
	*db.Filament
	UsedAmount float64 `json:"used_amount"`
	LowStock   bool    `json:"low_stock"`
}

func filamentResponse(f *db.Filament) FilamentResponse {
	return FilamentResponse{Filament: f, UsedAmount: f.UsedAmount(), LowStock: f.LowStock()}
}

func (h *FilamentHandler) CreateFilament(c *gin.Context) {
	var req CreateFilamentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "color, material and a positive initial_amount are required")
		return
	}

	f := &db.Filament{
		UserID:            middleware.OwnerID(c),
		Color:             req.Color,
		Material:          req.Material,
		InitialAmount:     req.InitialAmount,
		CurrentAmount:     req.InitialAmount,
		Unit:              req.Unit,
		CostPerGram:       req.CostPerGram,
		LowStockThreshold: req.LowStockThreshold,
	}
	if err := db.Filaments.CreateFilament(c.Request.Context(), f); err != nil {
		abortError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	c.JSON(http.StatusCreated, filamentResponse(f))
}

func (h *FilamentHandler) ListFilaments(c *gin.Context) {
	filaments, err := db.Filaments.ListFilaments(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		abortError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]FilamentResponse, 0, len(filaments))
	for _, f := range filaments {
		out = append(out, filamentResponse(f))
	}
	c.JSON(http.StatusOK, ListEnvelope{Data: out, Total: len(out), Limit: len(out), Offset: 0})
}

func (h *FilamentHandler) GetFilament(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	f, err := db.Filaments.GetFilamentByID(c.Request.Context(), middleware.OwnerID(c), id)
	if err != nil {
		abortDBError(c, err, "filament not found")
		return
	}
	c.JSON(http.StatusOK, filamentResponse(f))
}

func (h *FilamentHandler) UpdateFilament(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateFilamentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid filament payload")
		return
	}
	if *req.CurrentAmount < 0 || *req.CurrentAmount > req.InitialAmount {
		abortError(c, http.StatusBadRequest, "current_amount must be between 0 and initial_amount")
		return
	}

	ownerID := middleware.OwnerID(c)
	f := &db.Filament{
		ID:                id,
		Color:             req.Color,
		Material:          req.Material,
		InitialAmount:     req.InitialAmount,
		CurrentAmount:     *req.CurrentAmount,
		Unit:              req.Unit,
		CostPerGram:       req.CostPerGram,
		LowStockThreshold: req.LowStockThreshold,
	}
	if f.Unit == "" {
		f.Unit = "g"
	}
	if err := db.Filaments.UpdateFilament(c.Request.Context(), ownerID, f); err != nil {
		abortDBError(c, err, "filament not found")
		return
	}

	updated, err := db.Filaments.GetFilamentByID(c.Request.Context(), ownerID, id)
	if err != nil {
		abortDBError(c, err, "filament not found")
		return
	}
	c.JSON(http.StatusOK, filamentResponse(updated))
}

func (h *FilamentHandler) DeleteFilament(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := db.Filaments.DeleteFilament(c.Request.Context(), middleware.OwnerID(c), id); err != nil {
		abortDBError(c, err, "filament not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "filament deleted"})
}

func (h *FilamentHandler) RecordUsage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req RecordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "a positive amount_used is required")
		return
	}

	ownerID := middleware.OwnerID(c)
	usage := &db.FilamentUsage{
		FilamentID:  id,
		OrderID:     req.OrderID,
		AmountUsed:  req.AmountUsed,
		Description: req.Description,
	}
	if err := db.Filaments.RecordUsage(c.Request.Context(), ownerID, usage); err != nil {
		abortDBError(c, err, "filament or order not found")
		return
	}

	f, err := db.Filaments.GetFilamentByID(c.Request.Context(), ownerID, id)
	if err != nil {
		abortDBError(c, err, "filament not found")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"usage": usage, "filament": filamentResponse(f)})
}

func (h *FilamentHandler) ListOrderUsage(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	usages, err := db.Filaments.ListUsageForOrder(c.Request.Context(), middleware.OwnerID(c), orderID)
	if err != nil {
		abortError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	if usages == nil {
		usages = []*db.FilamentUsage{}
	}
	c.JSON(http.StatusOK, ListEnvelope{Data: usages, Total: len(usages), Limit: len(usages), Offset: 0})
}

func (h *FilamentHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/filaments", h.CreateFilament)
	r.GET("/filaments", h.ListFilaments)
	r.GET("/filaments/:id", h.GetFilament)
	r.PUT("/filaments/:id", h.UpdateFilament)
	r.DELETE("/filaments/:id", h.DeleteFilament)
	r.POST("/filaments/:id/usage", h.RecordUsage)
	r.GET("/orders/:id/filament-usage", h.ListOrderUsage)
}
