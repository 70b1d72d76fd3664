package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justpow98/j3d-backend/internal/config"
	"github.com/justpow98/j3d-backend/internal/core"
	"github.com/justpow98/j3d-backend/internal/db"
	"github.com/justpow98/j3d-backend/internal/notify"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := db.Init(db.Config{Path: ":memory:"}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init test database: %v\n", err)
		os.Exit(1)
	}
	code := m.Run()
	db.Close()
	os.Exit(code)
}

var userSeq int64

func seedUser(t *testing.T) *db.User {
	t.Helper()
	n := atomic.AddInt64(&userSeq, 1)
	u := &db.User{EtsyUserID: fmt.Sprintf("h-%d", n), Username: fmt.Sprintf("h-%d", n), AccessToken: "enc"}
	require.NoError(t, db.Users.CreateUser(context.Background(), u))
	return u
}

// testRouter wires the given register funcs behind a stub auth layer that
// stamps the owner the way RequireAuth does.
func testRouter(user *db.User, register ...func(*gin.RouterGroup)) *gin.Engine {
	router := gin.New()
	group := router.Group("/api", func(c *gin.Context) {
		c.Set("user", user)
		c.Set("owner_id", user.ID)
	})
	for _, r := range register {
		r(group)
	}
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPrintLifecycleOverHTTP(t *testing.T) {
	ctx := context.Background()
	user := seedUser(t)

	printer := &db.Printer{UserID: user.ID, Name: "A1 Mini", ConnectionType: "lan", IPAddress: "10.0.0.9"}
	require.NoError(t, db.Printers.CreatePrinter(ctx, printer))

	prints := []*db.ScheduledPrint{{PrinterID: printer.ID, JobName: "lifecycle job", Status: "queued", Priority: 10}}
	require.NoError(t, db.Prints.CreateBatch(ctx, prints))
	jobID := prints[0].ID

	handler := NewPrintHandler(core.NewScheduler(), notify.NewDispatcher(config.NotifyConfig{Timeout: time.Second}))
	router := testRouter(user, handler.RegisterRoutes)

	w := doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/prints/%d", jobID), `{"status":"started"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var sp db.ScheduledPrint
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sp))
	assert.Equal(t, "started", sp.Status)
	require.NotNil(t, sp.StartedAt)
	firstStart := *sp.StartedAt

	// repeating started is a conflict and leaves the stamp alone
	w = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/prints/%d", jobID), `{"status":"started"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	stored, err := db.Prints.GetScheduledPrint(ctx, user.ID, jobID)
	require.NoError(t, err)
	require.NotNil(t, stored.StartedAt)
	assert.WithinDuration(t, firstStart, *stored.StartedAt, time.Second)

	w = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/prints/%d", jobID), `{"status":"failed","failed_reason":"spaghetti"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sp))
	assert.Equal(t, "failed", sp.Status)
	assert.Equal(t, "spaghetti", sp.FailedReason)
	assert.NotNil(t, sp.CompletedAt)

	// terminal jobs refuse further transitions
	w = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/prints/%d", jobID), `{"status":"started"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdatePrintPatchesJobFields(t *testing.T) {
	ctx := context.Background()
	user := seedUser(t)

	printer := &db.Printer{UserID: user.ID, Name: "A1", ConnectionType: "lan", IPAddress: "10.0.0.12"}
	require.NoError(t, db.Printers.CreatePrinter(ctx, printer))

	prints := []*db.ScheduledPrint{{
		PrinterID:                printer.ID,
		JobName:                  "tweakable job",
		Status:                   "queued",
		Priority:                 10,
		EstimatedDurationMinutes: 60,
		NozzleTemp:               220,
		BedTemp:                  60,
		PrintSpeed:               100,
	}}
	require.NoError(t, db.Prints.CreateBatch(ctx, prints))
	jobID := prints[0].ID

	handler := NewPrintHandler(core.NewScheduler(), notify.NewDispatcher(config.NotifyConfig{Timeout: time.Second}))
	router := testRouter(user, handler.RegisterRoutes)

	w := doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/prints/%d", jobID),
		`{"priority":3,"nozzle_temp":250,"bed_temp":80,"print_speed":50,"estimated_duration_minutes":90,"material_type":"ABS","material_slot":2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := db.Prints.GetScheduledPrint(ctx, user.ID, jobID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Priority)
	assert.Equal(t, 250, stored.NozzleTemp)
	assert.Equal(t, 80, stored.BedTemp)
	assert.Equal(t, 50, stored.PrintSpeed)
	assert.Equal(t, 90, stored.EstimatedDurationMinutes)
	assert.Equal(t, "ABS", stored.MaterialType)
	require.NotNil(t, stored.MaterialSlot)
	assert.Equal(t, 2, *stored.MaterialSlot)

	// untouched fields keep their values, and no status change happened
	assert.Equal(t, "tweakable job", stored.JobName)
	assert.Equal(t, "queued", stored.Status)

	// these fields stay patchable after the job has started
	w = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/prints/%d", jobID), `{"status":"started"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/prints/%d", jobID), `{"priority":7,"notes":"mid-print tweak"}`)
	require.Equal(t, http.StatusOK, w.Code)

	stored, err = db.Prints.GetScheduledPrint(ctx, user.ID, jobID)
	require.NoError(t, err)
	assert.Equal(t, 7, stored.Priority)
	assert.Equal(t, "mid-print tweak", stored.Notes)
	assert.Equal(t, "started", stored.Status)

	// a zero-value patch is rejected rather than silently shrinking the job
	w = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/prints/%d", jobID), `{"estimated_duration_minutes":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPrintForeignOwnerIs404(t *testing.T) {
	ctx := context.Background()
	owner := seedUser(t)
	stranger := seedUser(t)

	printer := &db.Printer{UserID: owner.ID, Name: "P1P", ConnectionType: "lan", IPAddress: "10.0.0.10"}
	require.NoError(t, db.Printers.CreatePrinter(ctx, printer))
	prints := []*db.ScheduledPrint{{PrinterID: printer.ID, JobName: "private", Status: "queued", Priority: 10}}
	require.NoError(t, db.Prints.CreateBatch(ctx, prints))

	handler := NewPrintHandler(core.NewScheduler(), notify.NewDispatcher(config.NotifyConfig{Timeout: time.Second}))
	router := testRouter(stranger, handler.RegisterRoutes)

	w := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/prints/%d", prints[0].ID), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestFilamentUsageOverHTTP(t *testing.T) {
	user := seedUser(t)
	handler := NewFilamentHandler()
	router := testRouter(user, handler.RegisterRoutes)

	w := doJSON(t, router, http.MethodPost, "/api/filaments", `{"color":"black","material":"PLA","initial_amount":1000,"low_stock_threshold":100}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created FilamentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.InDelta(t, 1000, created.CurrentAmount, 0.001)
	assert.False(t, created.LowStock)

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/filaments/%d/usage", created.ID), `{"amount_used":45,"description":"order batch"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"current_amount":955`)

	// zero or negative usage is rejected before it reaches the database
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/filaments/%d/usage", created.ID), `{"amount_used":-5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutPreferenceValidatesWebhook(t *testing.T) {
	ctx := context.Background()
	user := seedUser(t)
	printer := &db.Printer{UserID: user.ID, Name: "X1E", ConnectionType: "cloud", SerialNumber: "SN-1"}
	require.NoError(t, db.Printers.CreatePrinter(ctx, printer))

	handler := NewNotificationHandler(notify.NewDispatcher(config.NotifyConfig{Timeout: time.Second}))
	router := testRouter(user, handler.RegisterRoutes)

	w := doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/printers/%d/notifications", printer.ID),
		`{"notify_complete":true,"webhook_url":"https://evil.example/?x=hooks.slack.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/printers/%d/notifications", printer.ID),
		`{"notify_complete":true,"webhook_url":"https://hooks.slack.com/services/T0/B0/X"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var pref db.NotificationPreference
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pref))
	assert.True(t, pref.NotifyComplete)

	// an unconfigured printer reads back as all-off defaults, not a 404
	printer2 := &db.Printer{UserID: user.ID, Name: "X1E-2", ConnectionType: "cloud", SerialNumber: "SN-2"}
	require.NoError(t, db.Printers.CreatePrinter(ctx, printer2))
	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/printers/%d/notifications", printer2.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pref))
	assert.False(t, pref.NotifyComplete)
}

func TestScheduleOrderOverHTTP(t *testing.T) {
	ctx := context.Background()
	user := seedUser(t)

	printer := &db.Printer{UserID: user.ID, Name: "H2D", ConnectionType: "lan", IPAddress: "10.0.0.11"}
	require.NoError(t, db.Printers.CreatePrinter(ctx, printer))

	now := time.Now().UTC()
	order := &db.Order{UserID: user.ID, EtsyOrderID: "http-order", EtsyShopID: "s", Status: "PAID", CreatedAt: &now, UpdatedAt: &now}
	items := []*db.OrderItem{
		{Title: "Lantern", Quantity: 1, Price: 20},
		{Title: "Hook", Quantity: 4, Price: 3},
	}
	require.NoError(t, db.Orders.CreateOrderWithItems(ctx, order, items))

	handler := NewPrintHandler(core.NewScheduler(), notify.NewDispatcher(config.NotifyConfig{Timeout: time.Second}))
	router := testRouter(user, handler.RegisterRoutes)

	w := doJSON(t, router, http.MethodPost, "/api/prints/schedule",
		fmt.Sprintf(`{"order_id":%d,"printer_id":%d}`, order.ID, printer.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var envelope struct {
		Data  []*db.ScheduledPrint `json:"data"`
		Total int                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, 2, envelope.Total)
	assert.Equal(t, 10, envelope.Data[0].Priority)
	assert.Equal(t, 9, envelope.Data[1].Priority)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/printers/%d/queue", printer.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 2, envelope.Total)
}
