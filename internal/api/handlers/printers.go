package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justpow98/j3d-backend/internal/api/middleware"
	"github.com/justpow98/j3d-backend/internal/bambu"
	"github.com/justpow98/j3d-backend/internal/db"
)

const maxMaterialSlots = 8

type PrinterHandler struct {
	status *bambu.StatusClient
}

func NewPrinterHandler(status *bambu.StatusClient) *PrinterHandler {
	return &PrinterHandler{status: status}
}

type CreatePrinterRequest struct {
	Name           string `json:"name" binding:"required"`
	ConnectionType string `json:"connection_type" binding:"required"`
	SerialNumber   string `json:"serial_number"`
	AccessCode     string `json:"access_code"`
	IPAddress      string `json:"ip_address"`
}

type LoadedMaterialRequest struct {
	SlotIndex    *int     `json:"slot_index" binding:"required"`
	MaterialType string   `json:"material_type" binding:"required"`
	Color        string   `json:"color"`
	WeightGrams  float64  `json:"weight_grams" binding:"required,gt=0"`
	RemainingPct float64  `json:"remaining_pct"`
	Vendor       string   `json:"vendor"`
	CostPerKg    *float64 `json:"cost_per_kg"`
}

// LoadedMaterialResponse carries the derived remaining weight alongside the
// stored slot row.
type LoadedMaterialResponse struct {
	*db.LoadedMaterial
	RemainingGrams float64 `json:"remaining_grams"`
}

func materialResponse(m *db.LoadedMaterial) LoadedMaterialResponse {
	return LoadedMaterialResponse{LoadedMaterial: m, RemainingGrams: m.RemainingGrams()}
}

func validConnectionType(t string) bool {
	return t == bambu.ConnectionCloud || t == bambu.ConnectionLAN
}

func (h *PrinterHandler) CreatePrinter(c *gin.Context) {
	var req CreatePrinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "name and connection_type are required")
		return
	}
	if !validConnectionType(req.ConnectionType) {
		abortError(c, http.StatusBadRequest, "connection_type must be cloud or lan")
		return
	}

	p := &db.Printer{
		UserID:         middleware.OwnerID(c),
		Name:           req.Name,
		ConnectionType: req.ConnectionType,
		SerialNumber:   req.SerialNumber,
		AccessCode:     req.AccessCode,
		IPAddress:      req.IPAddress,
	}
	if err := db.Printers.CreatePrinter(c.Request.Context(), p); err != nil {
		abortError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *PrinterHandler) ListPrinters(c *gin.Context) {
	printers, err := db.Printers.ListPrinters(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		abortError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	if printers == nil {
		printers = []*db.Printer{}
	}
	c.JSON(http.StatusOK, ListEnvelope{Data: printers, Total: len(printers), Limit: len(printers), Offset: 0})
}

func (h *PrinterHandler) GetPrinter(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	p, err := db.Printers.GetPrinterByID(c.Request.Context(), middleware.OwnerID(c), id)
	if err != nil {
		abortDBError(c, err, "printer not found")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PrinterHandler) UpdatePrinter(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req CreatePrinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "name and connection_type are required")
		return
	}
	if !validConnectionType(req.ConnectionType) {
		abortError(c, http.StatusBadRequest, "connection_type must be cloud or lan")
		return
	}

	ownerID := middleware.OwnerID(c)
	p := &db.Printer{
		ID:             id,
		Name:           req.Name,
		ConnectionType: req.ConnectionType,
		SerialNumber:   req.SerialNumber,
		AccessCode:     req.AccessCode,
		IPAddress:      req.IPAddress,
	}
	if err := db.Printers.UpdatePrinter(c.Request.Context(), ownerID, p); err != nil {
		abortDBError(c, err, "printer not found")
		return
	}

	updated, err := db.Printers.GetPrinterByID(c.Request.Context(), ownerID, id)
	if err != nil {
		abortDBError(c, err, "printer not found")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *PrinterHandler) DeletePrinter(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := db.Printers.DeletePrinter(c.Request.Context(), middleware.OwnerID(c), id); err != nil {
		abortDBError(c, err, "printer not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "printer deleted"})
}

// RefreshStatus polls the printer's telemetry endpoint and persists the
// collapsed status on the row. Unreachable printers come back as offline,
// not as an error.
func (h *PrinterHandler) RefreshStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	ownerID := middleware.OwnerID(c)
	ctx := c.Request.Context()

	p, err := db.Printers.GetPrinterByID(ctx, ownerID, id)
	if err != nil {
		abortDBError(c, err, "printer not found")
		return
	}

	status, err := h.status.GetStatus(ctx, p)
	if err != nil {
		abortError(c, http.StatusBadGateway, "failed to query printer status")
		return
	}

	if err := db.Printers.UpdatePrinterStatus(ctx, ownerID, id, status.StatusString()); err != nil {
		abortError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"printer_id": id, "status": status.StatusString(), "telemetry": status})
}

func (h *PrinterHandler) UpsertMaterial(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req LoadedMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "slot_index, material_type and a positive weight_grams are required")
		return
	}
	if *req.SlotIndex < 0 || *req.SlotIndex >= maxMaterialSlots {
		abortError(c, http.StatusBadRequest, "slot_index must be between 0 and 7")
		return
	}
	if req.RemainingPct < 0 || req.RemainingPct > 100 {
		abortError(c, http.StatusBadRequest, "remaining_pct must be between 0 and 100")
		return
	}

	m := &db.LoadedMaterial{
		PrinterID:    id,
		SlotIndex:    *req.SlotIndex,
		MaterialType: req.MaterialType,
		Color:        req.Color,
		WeightGrams:  req.WeightGrams,
		RemainingPct: req.RemainingPct,
		Vendor:       req.Vendor,
		CostPerKg:    req.CostPerKg,
	}
	if err := db.Printers.UpsertLoadedMaterial(c.Request.Context(), middleware.OwnerID(c), m); err != nil {
		abortDBError(c, err, "printer not found")
		return
	}
	c.JSON(http.StatusOK, materialResponse(m))
}

func (h *PrinterHandler) ListMaterials(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	ownerID := middleware.OwnerID(c)
	if _, err := db.Printers.GetPrinterByID(c.Request.Context(), ownerID, id); err != nil {
		abortDBError(c, err, "printer not found")
		return
	}

	materials, err := db.Printers.ListLoadedMaterials(c.Request.Context(), ownerID, id)
	if err != nil {
		abortError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]LoadedMaterialResponse, 0, len(materials))
	for _, m := range materials {
		out = append(out, materialResponse(m))
	}
	c.JSON(http.StatusOK, ListEnvelope{Data: out, Total: len(out), Limit: len(out), Offset: 0})
}

func (h *PrinterHandler) DeleteMaterial(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	slot, ok := idParamZero(c, "slot")
	if !ok {
		return
	}
	if slot >= maxMaterialSlots {
		abortError(c, http.StatusBadRequest, "slot must be between 0 and 7")
		return
	}

	if err := db.Printers.DeleteLoadedMaterial(c.Request.Context(), middleware.OwnerID(c), id, int(slot)); err != nil {
		abortDBError(c, err, "material slot not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "material removed"})
}

func (h *PrinterHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/printers", h.CreatePrinter)
	r.GET("/printers", h.ListPrinters)
	r.GET("/printers/:id", h.GetPrinter)
	r.PUT("/printers/:id", h.UpdatePrinter)
	r.DELETE("/printers/:id", h.DeletePrinter)
	r.POST("/printers/:id/status/refresh", h.RefreshStatus)
	r.PUT("/printers/:id/materials", h.UpsertMaterial)
	r.GET("/printers/:id/materials", h.ListMaterials)
	r.DELETE("/printers/:id/materials/:slot", h.DeleteMaterial)
}
