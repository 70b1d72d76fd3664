package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := Init(Config{Path: ":memory:"}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init test database: %v\n", err)
		os.Exit(1)
	}
	code := m.Run()
	Close()
	os.Exit(code)
}

var userSeq int64

func createTestUser(t *testing.T) *User {
	t.Helper()
	n := atomic.AddInt64(&userSeq, 1)
	u := &User{
		EtsyUserID:  fmt.Sprintf("etsy-%d", n),
		Username:    fmt.Sprintf("user-%d", n),
		ShopID:      fmt.Sprintf("shop-%d", n),
		AccessToken: "enc-access",
	}
	require.NoError(t, Users.CreateUser(context.Background(), u))
	return u
}

func createTestOrder(t *testing.T, userID int64) *Order {
	t.Helper()
	n := atomic.AddInt64(&userSeq, 1)
	now := time.Now().UTC()
	order := &Order{
		UserID:      userID,
		EtsyOrderID: fmt.Sprintf("receipt-%d", n),
		EtsyShopID:  "shop-1",
		BuyerName:   "Test Buyer",
		TotalAmount: 42.50,
		Currency:    "USD",
		Status:      "PAID",
		CreatedAt:   &now,
		UpdatedAt:   &now,
	}
	require.NoError(t, Orders.CreateOrderWithItems(context.Background(), order, nil))
	return order
}

func createTestPrinter(t *testing.T, userID int64) *Printer {
	t.Helper()
	p := &Printer{
		UserID:         userID,
		Name:           "X1 Carbon",
		ConnectionType: "lan",
		IPAddress:      "192.168.1.50",
	}
	require.NoError(t, Printers.CreatePrinter(context.Background(), p))
	return p
}

func TestRecordUsageDecrementsSpool(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)
	order := createTestOrder(t, user.ID)

	f := &Filament{UserID: user.ID, Color: "black", Material: "PLA", InitialAmount: 1000, CurrentAmount: 1000}
	require.NoError(t, Filaments.CreateFilament(ctx, f))

	usage := &FilamentUsage{FilamentID: f.ID, OrderID: &order.ID, AmountUsed: 45, Description: "benchy batch"}
	require.NoError(t, Filaments.RecordUsage(ctx, user.ID, usage))
	assert.NotZero(t, usage.ID)

	after, err := Filaments.GetFilamentByID(ctx, user.ID, f.ID)
	require.NoError(t, err)
	assert.InDelta(t, 955, after.CurrentAmount, 0.001)
	assert.InDelta(t, 45, after.UsedAmount(), 0.001)

	updated, err := Orders.GetOrderByID(ctx, user.ID, order.ID)
	require.NoError(t, err)
	assert.True(t, updated.FilamentAssigned)
	assert.InDelta(t, 45, updated.TotalFilamentUsed, 0.001)
}

func TestRecordUsageClampsAtZero(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)

	f := &Filament{UserID: user.ID, Color: "red", Material: "PETG", InitialAmount: 30, CurrentAmount: 30}
	require.NoError(t, Filaments.CreateFilament(ctx, f))

	usage := &FilamentUsage{FilamentID: f.ID, AmountUsed: 45}
	require.NoError(t, Filaments.RecordUsage(ctx, user.ID, usage))

	after, err := Filaments.GetFilamentByID(ctx, user.ID, f.ID)
	require.NoError(t, err)
	assert.Zero(t, after.CurrentAmount)

	// the usage row still records the full amount consumed
	assert.InDelta(t, 45, usage.AmountUsed, 0.001)
}

func TestRecordUsageForeignOwner(t *testing.T) {
	ctx := context.Background()
	owner := createTestUser(t)
	stranger := createTestUser(t)

	f := &Filament{UserID: owner.ID, Color: "white", Material: "PLA", InitialAmount: 500, CurrentAmount: 500}
	require.NoError(t, Filaments.CreateFilament(ctx, f))

	usage := &FilamentUsage{FilamentID: f.ID, AmountUsed: 10}
	err := Filaments.RecordUsage(ctx, stranger.ID, usage)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	after, err := Filaments.GetFilamentByID(ctx, owner.ID, f.ID)
	require.NoError(t, err)
	assert.InDelta(t, 500, after.CurrentAmount, 0.001)
}

func TestLowStockThreshold(t *testing.T) {
	f := &Filament{InitialAmount: 1000, CurrentAmount: 120, LowStockThreshold: 150}
	assert.True(t, f.LowStock())

	f.CurrentAmount = 151
	assert.False(t, f.LowStock())

	f.LowStockThreshold = 0
	f.CurrentAmount = 0
	assert.False(t, f.LowStock())
}

func TestLoadedMaterialRemainingGrams(t *testing.T) {
	m := &LoadedMaterial{WeightGrams: 250, RemainingPct: 82}
	assert.InDelta(t, 205.0, m.RemainingGrams(), 0.001)
}

func TestUpsertLoadedMaterialReplacesSlot(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)
	printer := createTestPrinter(t, user.ID)

	first := &LoadedMaterial{PrinterID: printer.ID, SlotIndex: 0, MaterialType: "PLA", WeightGrams: 1000, RemainingPct: 100}
	require.NoError(t, Printers.UpsertLoadedMaterial(ctx, user.ID, first))

	second := &LoadedMaterial{PrinterID: printer.ID, SlotIndex: 0, MaterialType: "PETG", WeightGrams: 750, RemainingPct: 60}
	require.NoError(t, Printers.UpsertLoadedMaterial(ctx, user.ID, second))

	materials, err := Printers.ListLoadedMaterials(ctx, user.ID, printer.ID)
	require.NoError(t, err)
	require.Len(t, materials, 1)
	assert.Equal(t, "PETG", materials[0].MaterialType)
	assert.InDelta(t, 450, materials[0].RemainingGrams(), 0.001)
}

func TestGetQueueOrdering(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)
	printer := createTestPrinter(t, user.ID)

	later := time.Now().Add(2 * time.Hour).UTC()
	prints := []*ScheduledPrint{
		{PrinterID: printer.ID, JobName: "second", Status: "queued", Priority: 9, ScheduledStart: &later},
		{PrinterID: printer.ID, JobName: "first", Status: "queued", Priority: 10},
		{PrinterID: printer.ID, JobName: "done", Status: "completed", Priority: 10},
	}
	require.NoError(t, Prints.CreateBatch(ctx, prints))

	queue, err := Prints.GetQueue(ctx, user.ID, printer.ID)
	require.NoError(t, err)
	require.Len(t, queue, 2)

	// highest priority first; the unscheduled (run ASAP) job outranks a
	// dated one at equal priority
	assert.Equal(t, "first", queue[0].JobName)
	assert.Nil(t, queue[0].ScheduledStart)
	assert.Equal(t, "second", queue[1].JobName)
}

func TestCreateBatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)
	printer := createTestPrinter(t, user.ID)

	prints := []*ScheduledPrint{
		{PrinterID: printer.ID, JobName: "good", Status: "queued", Priority: 10},
		{PrinterID: 999999, JobName: "bad printer", Status: "queued", Priority: 9},
	}
	err := Prints.CreateBatch(ctx, prints)
	require.Error(t, err)

	queue, err := Prints.GetQueue(ctx, user.ID, printer.ID)
	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestScheduledPrintOwnership(t *testing.T) {
	ctx := context.Background()
	owner := createTestUser(t)
	stranger := createTestUser(t)
	printer := createTestPrinter(t, owner.ID)

	prints := []*ScheduledPrint{{PrinterID: printer.ID, JobName: "mine", Status: "queued", Priority: 10}}
	require.NoError(t, Prints.CreateBatch(ctx, prints))

	_, err := Prints.GetScheduledPrint(ctx, stranger.ID, prints[0].ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	err = Prints.DeleteScheduledPrint(ctx, stranger.ID, prints[0].ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	sp, err := Prints.GetScheduledPrint(ctx, owner.ID, prints[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", sp.JobName)
}

func TestUpdateProductionStatusScopedToOwner(t *testing.T) {
	ctx := context.Background()
	owner := createTestUser(t)
	stranger := createTestUser(t)
	order := createTestOrder(t, owner.ID)

	err := Orders.UpdateProductionStatus(ctx, stranger.ID, order.ID, "printing")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, Orders.UpdateProductionStatus(ctx, owner.ID, order.ID, "printing"))

	updated, err := Orders.GetOrderByID(ctx, owner.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "printing", updated.ProductionStatus)
}

func TestNotificationPreferenceUpsert(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)
	printer := createTestPrinter(t, user.ID)

	_, err := Printers.GetNotificationPreference(ctx, user.ID, printer.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	pref := &NotificationPreference{
		PrinterID:      printer.ID,
		NotifyComplete: true,
		WebhookURL:     "https://ntfy.sh/prints",
	}
	require.NoError(t, Printers.UpsertNotificationPreference(ctx, user.ID, pref))

	pref.NotifyFail = true
	require.NoError(t, Printers.UpsertNotificationPreference(ctx, user.ID, pref))

	stored, err := Printers.GetNotificationPreference(ctx, user.ID, printer.ID)
	require.NoError(t, err)
	assert.True(t, stored.NotifyComplete)
	assert.True(t, stored.NotifyFail)
	assert.False(t, stored.NotifyStart)
	assert.Equal(t, "https://ntfy.sh/prints", stored.WebhookURL)
}

func TestProductProfileUpsert(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)

	pp := &ProductProfile{UserID: user.ID, EtsyListingID: "listing-1", DurationMinutes: 90, MaterialType: "PLA", NozzleTemp: 215, BedTemp: 55, PrintSpeed: 120}
	require.NoError(t, Profiles.UpsertProfile(ctx, pp))

	pp.DurationMinutes = 100
	require.NoError(t, Profiles.UpsertProfile(ctx, pp))

	stored, err := Profiles.GetProfile(ctx, user.ID, "listing-1")
	require.NoError(t, err)
	assert.Equal(t, 100, stored.DurationMinutes)
	assert.Equal(t, "PLA", stored.MaterialType)
}

func TestGetBusinessStats(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)
	order := createTestOrder(t, user.ID)
	createTestOrder(t, user.ID)

	f := &Filament{UserID: user.ID, Color: "blue", Material: "PLA", InitialAmount: 200, CurrentAmount: 200, LowStockThreshold: 250}
	require.NoError(t, Filaments.CreateFilament(ctx, f))
	require.NoError(t, Filaments.RecordUsage(ctx, user.ID, &FilamentUsage{FilamentID: f.ID, OrderID: &order.ID, AmountUsed: 20}))

	stats, err := Stats.GetBusinessStats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalOrders)
	assert.InDelta(t, 85.0, stats.TotalRevenue, 0.001)
	assert.Equal(t, 1, stats.FilamentSpools)
	assert.Equal(t, 1, stats.FilamentLowStock)
	assert.InDelta(t, 20, stats.FilamentConsumedGrams, 0.001)
	assert.Equal(t, 2, stats.OrdersByProduction["pending"])
}
