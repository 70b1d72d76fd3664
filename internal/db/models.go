package db

import (
	"time"
)

type User struct {
	ID             int64      `json:"id"`
	EtsyUserID     string     `json:"etsy_user_id"`
	Username       string     `json:"username"`
	ShopID         string     `json:"shop_id,omitempty"`
	AccessToken    string     `json:"-"`
	RefreshToken   string     `json:"-"`
	TokenExpiresAt *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type Order struct {
	ID                int64      `json:"id"`
	UserID            int64      `json:"user_id"`
	EtsyOrderID       string     `json:"etsy_order_id"`
	EtsyShopID        string     `json:"etsy_shop_id"`
	BuyerEmail        string     `json:"buyer_email"`
	BuyerName         string     `json:"buyer_name"`
	TotalAmount       float64    `json:"total_amount"`
	Currency          string     `json:"currency"`
	Status            string     `json:"status"`
	ProductionStatus  string     `json:"production_status"`
	FilamentAssigned  bool       `json:"filament_assigned"`
	TotalFilamentUsed float64    `json:"total_filament_used"`
	CreatedAt         *time.Time `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at"`
	ShippedAt         *time.Time `json:"shipped_at,omitempty"`
	SyncedAt          time.Time  `json:"synced_at"`
}

type OrderItem struct {
	ID            int64   `json:"id"`
	OrderID       int64   `json:"order_id"`
	EtsyListingID string  `json:"etsy_listing_id"`
	Title         string  `json:"title"`
	Quantity      int     `json:"quantity"`
	Price         float64 `json:"price"`
}

type OrderNote struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderCommunication struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	Channel   string    `json:"channel"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type Filament struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	Color             string    `json:"color"`
	Material          string    `json:"material"`
	InitialAmount     float64   `json:"initial_amount"`
	CurrentAmount     float64   `json:"current_amount"`
	Unit              string    `json:"unit"`
	CostPerGram       *float64  `json:"cost_per_gram,omitempty"`
	LowStockThreshold float64   `json:"low_stock_threshold"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// UsedAmount reports grams consumed since the spool was registered.
func (f *Filament) UsedAmount() float64 {
	return f.InitialAmount - f.CurrentAmount
}

func (f *Filament) LowStock() bool {
	return f.LowStockThreshold > 0 && f.CurrentAmount <= f.LowStockThreshold
}

type FilamentUsage struct {
	ID          int64     `json:"id"`
	FilamentID  int64     `json:"filament_id"`
	OrderID     *int64    `json:"order_id,omitempty"`
	AmountUsed  float64   `json:"amount_used"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Printer struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	Name           string     `json:"name"`
	ConnectionType string     `json:"connection_type"`
	SerialNumber   string     `json:"serial_number,omitempty"`
	AccessCode     string     `json:"-"`
	IPAddress      string     `json:"ip_address,omitempty"`
	Status         string     `json:"status"`
	LastSeenAt     *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type LoadedMaterial struct {
	ID           int64     `json:"id"`
	PrinterID    int64     `json:"printer_id"`
	SlotIndex    int       `json:"slot_index"`
	MaterialType string    `json:"material_type"`
	Color        string    `json:"color,omitempty"`
	WeightGrams  float64   `json:"weight_grams"`
	RemainingPct float64   `json:"remaining_pct"`
	Vendor       string    `json:"vendor,omitempty"`
	CostPerKg    *float64  `json:"cost_per_kg,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RemainingGrams is derived from the two source fields and never stored.
func (m *LoadedMaterial) RemainingGrams() float64 {
	return m.WeightGrams * m.RemainingPct / 100
}

type NotificationPreference struct {
	ID                   int64     `json:"id"`
	PrinterID            int64     `json:"printer_id"`
	NotifyStart          bool      `json:"notify_start"`
	NotifyComplete       bool      `json:"notify_complete"`
	NotifyFail           bool      `json:"notify_fail"`
	NotifyMaterialChange bool      `json:"notify_material_change"`
	NotifyMaintenance    bool      `json:"notify_maintenance"`
	EmailEnabled         bool      `json:"email_enabled"`
	EmailAddress         string    `json:"email_address,omitempty"`
	WebhookURL           string    `json:"webhook_url,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type ScheduledPrint struct {
	ID                       int64      `json:"id"`
	PrinterID                int64      `json:"printer_id"`
	OrderID                  *int64     `json:"order_id,omitempty"`
	JobName                  string     `json:"job_name"`
	FileName                 string     `json:"file_name,omitempty"`
	Status                   string     `json:"status"`
	ScheduledStart           *time.Time `json:"scheduled_start,omitempty"`
	EstimatedDurationMinutes int        `json:"estimated_duration_minutes"`
	MaterialType             string     `json:"material_type,omitempty"`
	MaterialSlot             *int       `json:"material_slot,omitempty"`
	NozzleTemp               int        `json:"nozzle_temp"`
	BedTemp                  int        `json:"bed_temp"`
	PrintSpeed               int        `json:"print_speed"`
	Priority                 int        `json:"priority"`
	StartedAt                *time.Time `json:"started_at,omitempty"`
	CompletedAt              *time.Time `json:"completed_at,omitempty"`
	FailedReason             string     `json:"failed_reason,omitempty"`
	Notes                    string     `json:"notes,omitempty"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

type ProductProfile struct {
	ID              int64  `json:"id"`
	UserID          int64  `json:"user_id"`
	EtsyListingID   string `json:"etsy_listing_id"`
	DurationMinutes int    `json:"duration_minutes"`
	MaterialType    string `json:"material_type,omitempty"`
	NozzleTemp      int    `json:"nozzle_temp"`
	BedTemp         int    `json:"bed_temp"`
	PrintSpeed      int    `json:"print_speed"`
}

type OrderFilter struct {
	Status string
	Limit  int
	Offset int
}

type PrintFilter struct {
	PrinterID int64
	OrderID   int64
	Status    string
	Limit     int
	Offset    int
}
