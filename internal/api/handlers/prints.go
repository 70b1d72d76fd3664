package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/justpow98/j3d-backend/internal/api/middleware"
	"github.com/justpow98/j3d-backend/internal/core"
	"github.com/justpow98/j3d-backend/internal/db"
	"github.com/justpow98/j3d-backend/internal/notify"
)

type PrintHandler struct {
	scheduler  *core.Scheduler
	dispatcher *notify.Dispatcher
}

func NewPrintHandler(scheduler *core.Scheduler, dispatcher *notify.Dispatcher) *PrintHandler {
	return &PrintHandler{scheduler: scheduler, dispatcher: dispatcher}
}

type ScheduleOrderRequest struct {
	OrderID            int64  `json:"order_id" binding:"required"`
	PrinterID          int64  `json:"printer_id" binding:"required"`
	MaterialOverride   string `json:"material_override"`
	StartOffsetMinutes int    `json:"start_offset_minutes"`
}

type ListPrintsQuery struct {
	PrinterID int64  `form:"printer_id"`
	OrderID   int64  `form:"order_id"`
	Status    string `form:"status"`
	pageQuery
}

type UpdatePrintRequest struct {
	Status                   string     `json:"status"`
	FailedReason             string     `json:"failed_reason"`
	JobName                  string     `json:"job_name"`
	ScheduledStart           *time.Time `json:"scheduled_start"`
	EstimatedDurationMinutes *int       `json:"estimated_duration_minutes"`
	MaterialType             *string    `json:"material_type"`
	MaterialSlot             *int       `json:"material_slot"`
	NozzleTemp               *int       `json:"nozzle_temp"`
	BedTemp                  *int       `json:"bed_temp"`
	PrintSpeed               *int       `json:"print_speed"`
	Priority                 *int       `json:"priority"`
	Notes                    string     `json:"notes"`
}

// ScheduleOrder expands an order into a chained sequence of print jobs on
// one printer.
func (h *PrintHandler) ScheduleOrder(c *gin.Context) {
	var req ScheduleOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "order_id and printer_id are required")
		return
	}
	if req.StartOffsetMinutes < 0 {
		abortError(c, http.StatusBadRequest, "start_offset_minutes must not be negative")
		return
	}

	prints, err := h.scheduler.ScheduleOrderPrints(c.Request.Context(), core.ScheduleRequest{
		OwnerID:            middleware.OwnerID(c),
		OrderID:            req.OrderID,
		PrinterID:          req.PrinterID,
		MaterialOverride:   req.MaterialOverride,
		StartOffsetMinutes: req.StartOffsetMinutes,
	})
	if err != nil {
		abortDBError(c, err, "order or printer not found")
		return
	}

	c.JSON(http.StatusCreated, ListEnvelope{Data: prints, Total: len(prints), Limit: len(prints), Offset: 0})
}

// GetQueue returns the pending jobs for a printer in execution order.
func (h *PrintHandler) GetQueue(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	ownerID := middleware.OwnerID(c)
	ctx := c.Request.Context()

	if _, err := db.Printers.GetPrinterByID(ctx, ownerID, id); err != nil {
		abortDBError(c, err, "printer not found")
		return
	}

	queue, err := db.Prints.GetQueue(ctx, ownerID, id)
	if err != nil {
		abortError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	if queue == nil {
		queue = []*db.ScheduledPrint{}
	}
	c.JSON(http.StatusOK, ListEnvelope{Data: queue, Total: len(queue), Limit: len(queue), Offset: 0})
}

func (h *PrintHandler) ListPrints(c *gin.Context) {
	var query ListPrintsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortError(c, http.StatusBadRequest, "invalid query parameters")
		return
	}
	query.clamp()

	prints, total, err := db.Prints.ListScheduledPrints(c.Request.Context(), middleware.OwnerID(c), db.PrintFilter{
		PrinterID: query.PrinterID,
		OrderID:   query.OrderID,
		Status:    query.Status,
		Limit:     query.Limit,
		Offset:    query.Offset,
	})
	if err != nil {
		abortError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	if prints == nil {
		prints = []*db.ScheduledPrint{}
	}
	c.JSON(http.StatusOK, ListEnvelope{Data: prints, Total: total, Limit: query.Limit, Offset: query.Offset})
}

func (h *PrintHandler) GetPrint(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	sp, err := db.Prints.GetScheduledPrint(c.Request.Context(), middleware.OwnerID(c), id)
	if err != nil {
		abortDBError(c, err, "scheduled print not found")
		return
	}
	c.JSON(http.StatusOK, sp)
}

// UpdatePrint applies field edits and, when a status is supplied, runs the
// lifecycle transition. Successful started/completed/failed transitions fan
// out to the printer's notification destinations.
func (h *PrintHandler) UpdatePrint(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdatePrintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid print payload")
		return
	}

	ownerID := middleware.OwnerID(c)
	ctx := c.Request.Context()

	sp, err := db.Prints.GetScheduledPrint(ctx, ownerID, id)
	if err != nil {
		abortDBError(c, err, "scheduled print not found")
		return
	}

	if req.JobName != "" {
		sp.JobName = req.JobName
	}
	if req.ScheduledStart != nil {
		sp.ScheduledStart = req.ScheduledStart
	}
	if req.EstimatedDurationMinutes != nil {
		if *req.EstimatedDurationMinutes <= 0 {
			abortError(c, http.StatusBadRequest, "estimated_duration_minutes must be positive")
			return
		}
		sp.EstimatedDurationMinutes = *req.EstimatedDurationMinutes
	}
	if req.MaterialType != nil {
		sp.MaterialType = *req.MaterialType
	}
	if req.MaterialSlot != nil {
		sp.MaterialSlot = req.MaterialSlot
	}
	if req.NozzleTemp != nil {
		sp.NozzleTemp = *req.NozzleTemp
	}
	if req.BedTemp != nil {
		sp.BedTemp = *req.BedTemp
	}
	if req.PrintSpeed != nil {
		sp.PrintSpeed = *req.PrintSpeed
	}
	if req.Priority != nil {
		sp.Priority = *req.Priority
	}
	if req.Notes != "" {
		sp.Notes = req.Notes
	}

	var event notify.Event
	if req.Status != "" {
		to := core.PrintStatus(req.Status)
		if err := core.ApplyStatusChange(sp, to, req.FailedReason, timeNow()); err != nil {
			abortError(c, http.StatusConflict, err.Error())
			return
		}
		switch to {
		case core.StatusStarted:
			event = notify.EventPrintStarted
		case core.StatusCompleted:
			event = notify.EventPrintCompleted
		case core.StatusFailed:
			event = notify.EventPrintFailed
		}
	}

	if err := db.Prints.UpdateScheduledPrint(ctx, ownerID, sp); err != nil {
		abortDBError(c, err, "scheduled print not found")
		return
	}

	if event != "" {
		h.notifyTransition(ctx, ownerID, event, sp)
	}

	c.JSON(http.StatusOK, sp)
}

// notifyTransition looks up the printer and its preference and dispatches.
// Lookup failures are swallowed; a missing preference just means nobody is
// listening.
func (h *PrintHandler) notifyTransition(ctx context.Context, ownerID int64, event notify.Event, sp *db.ScheduledPrint) {
	printer, err := db.Printers.GetPrinterByID(ctx, ownerID, sp.PrinterID)
	if err != nil {
		return
	}
	pref, err := db.Printers.GetNotificationPreference(ctx, ownerID, sp.PrinterID)
	if err != nil {
		return
	}
	h.dispatcher.PrintEvent(ctx, printer, pref, event, sp)
}

func (h *PrintHandler) DeletePrint(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := db.Prints.DeleteScheduledPrint(c.Request.Context(), middleware.OwnerID(c), id); err != nil {
		abortDBError(c, err, "scheduled print not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "scheduled print deleted"})
}

func (h *PrintHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/prints/schedule", h.ScheduleOrder)
	r.GET("/printers/:id/queue", h.GetQueue)
	r.GET("/prints", h.ListPrints)
	r.GET("/prints/:id", h.GetPrint)
	r.PUT("/prints/:id", h.UpdatePrint)
	r.DELETE("/prints/:id", h.DeletePrint)
}
