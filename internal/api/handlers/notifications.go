package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/justpow98/j3d-backend/internal/api/middleware"
	"github.com/justpow98/j3d-backend/internal/db"
	"github.com/justpow98/j3d-backend/internal/notify"
)

type NotificationHandler struct {
	dispatcher *notify.Dispatcher
}

func NewNotificationHandler(dispatcher *notify.Dispatcher) *NotificationHandler {
	return &NotificationHandler{dispatcher: dispatcher}
}

type PreferenceRequest struct {
	NotifyStart          bool   `json:"notify_start"`
	NotifyComplete       bool   `json:"notify_complete"`
	NotifyFail           bool   `json:"notify_fail"`
	NotifyMaterialChange bool   `json:"notify_material_change"`
	NotifyMaintenance    bool   `json:"notify_maintenance"`
	EmailEnabled         bool   `json:"email_enabled"`
	EmailAddress         string `json:"email_address"`
	WebhookURL           string `json:"webhook_url"`
}

// GetPreference returns the stored preference for a printer; a printer with
// nothing configured yet gets an all-off default rather than a 404.
func (h *NotificationHandler) GetPreference(c *gin.Context) {
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

	pref, err := db.Printers.GetNotificationPreference(ctx, ownerID, id)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusOK, &db.NotificationPreference{PrinterID: id})
		return
	}
	if err != nil {
		abortError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	c.JSON(http.StatusOK, pref)
}

func (h *NotificationHandler) PutPreference(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid preference payload")
		return
	}

	if req.WebhookURL != "" {
		if err := notify.ValidateWebhookURL(req.WebhookURL); err != nil {
			abortError(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.EmailEnabled && req.EmailAddress == "" {
		abortError(c, http.StatusBadRequest, "email_address is required when email_enabled is set")
		return
	}

	ownerID := middleware.OwnerID(c)
	pref := &db.NotificationPreference{
		PrinterID:            id,
		NotifyStart:          req.NotifyStart,
		NotifyComplete:       req.NotifyComplete,
		NotifyFail:           req.NotifyFail,
		NotifyMaterialChange: req.NotifyMaterialChange,
		NotifyMaintenance:    req.NotifyMaintenance,
		EmailEnabled:         req.EmailEnabled,
		EmailAddress:         req.EmailAddress,
		WebhookURL:           req.WebhookURL,
	}
	if err := db.Printers.UpsertNotificationPreference(c.Request.Context(), ownerID, pref); err != nil {
		abortDBError(c, err, "printer not found")
		return
	}

	stored, err := db.Printers.GetNotificationPreference(c.Request.Context(), ownerID, id)
	if err != nil {
		abortError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	c.JSON(http.StatusOK, stored)
}

// TestDelivery fires a synthetic maintenance event at the printer's
// configured destinations so the user can verify wiring without waiting for
// a real job transition.
func (h *NotificationHandler) TestDelivery(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	ownerID := middleware.OwnerID(c)
	ctx := c.Request.Context()

	printer, err := db.Printers.GetPrinterByID(ctx, ownerID, id)
	if err != nil {
		abortDBError(c, err, "printer not found")
		return
	}

	pref, err := db.Printers.GetNotificationPreference(ctx, ownerID, id)
	if err != nil {
		abortDBError(c, err, "no notification preference configured for this printer")
		return
	}

	job := &db.ScheduledPrint{
		PrinterID: printer.ID,
		JobName:   "test notification",
		Status:    "test",
		CreatedAt: time.Now(),
	}
	// Force the maintenance flag on a copy so the test fires even when the
	// user has that event class disabled.
	testPref := *pref
	testPref.NotifyMaintenance = true
	h.dispatcher.PrintEvent(ctx, printer, &testPref, notify.EventMaintenance, job)

	c.JSON(http.StatusOK, gin.H{"message": "test notification dispatched"})
}

func (h *NotificationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/printers/:id/notifications", h.GetPreference)
	r.PUT("/printers/:id/notifications", h.PutPreference)
	r.POST("/printers/:id/notifications/test", h.TestDelivery)
}
