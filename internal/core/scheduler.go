package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/justpow98/j3d-backend/internal/db"
)

const (
	// BasePriority is the priority assigned to an order's first line item;
	// each subsequent item gets one less, so earlier items win when a
	// printer frees up.
	BasePriority = 10

	// JobBufferMinutes is the fixed gap between consecutive jobs on the
	// same printer, for bed clearing.
	JobBufferMinutes = 15

	// Defaults applied when a line item has no product profile.
	DefaultDurationMinutes = 60
	DefaultNozzleTemp      = 220
	DefaultBedTemp         = 60
	DefaultPrintSpeed      = 100
)

// Scheduler turns an order's line items into a time-chained sequence of
// print jobs on a single printer.
type Scheduler struct {
	now func() time.Time
}

func NewScheduler() *Scheduler {
	return &Scheduler{now: time.Now}
}

type ScheduleRequest struct {
	OwnerID            int64
	OrderID            int64
	PrinterID          int64
	MaterialOverride   string
	StartOffsetMinutes int
}

// ScheduleOrderPrints creates one queued ScheduledPrint per order line item,
// in insertion order, with strictly decreasing priority and start times
// chained past each prior item's duration plus the inter-job buffer. The
// batch is persisted atomically; an order with zero items yields an empty
// result and no error.
func (s *Scheduler) ScheduleOrderPrints(ctx context.Context, req ScheduleRequest) ([]*db.ScheduledPrint, error) {
	order, err := db.Orders.GetOrderByID(ctx, req.OwnerID, req.OrderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	printer, err := db.Printers.GetPrinterByID(ctx, req.OwnerID, req.PrinterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to load printer: %w", err)
	}

	items, err := db.Orders.GetOrderItems(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	if len(items) == 0 {
		return []*db.ScheduledPrint{}, nil
	}

	now := s.now()
	offset := req.StartOffsetMinutes
	priority := BasePriority

	prints := make([]*db.ScheduledPrint, 0, len(items))
	for i, item := range items {
		duration := DefaultDurationMinutes
		materialType := req.MaterialOverride
		nozzle, bed, speed := DefaultNozzleTemp, DefaultBedTemp, DefaultPrintSpeed

		if item.EtsyListingID != "" {
			profile, err := db.Profiles.GetProfile(ctx, req.OwnerID, item.EtsyListingID)
			switch {
			case err == nil:
				duration = profile.DurationMinutes
				if materialType == "" {
					materialType = profile.MaterialType
				}
				if profile.NozzleTemp > 0 {
					nozzle = profile.NozzleTemp
				}
				if profile.BedTemp > 0 {
					bed = profile.BedTemp
				}
				if profile.PrintSpeed > 0 {
					speed = profile.PrintSpeed
				}
			case errors.Is(err, sql.ErrNoRows):
				// no profile for this listing, defaults apply
			default:
				return nil, fmt.Errorf("failed to load product profile: %w", err)
			}
		}

		var scheduledStart *time.Time
		if i == 0 && offset == 0 {
			// nil means "start as soon as possible"
			scheduledStart = nil
		} else {
			t := now.Add(time.Duration(offset) * time.Minute)
			scheduledStart = &t
		}

		orderID := order.ID
		prints = append(prints, &db.ScheduledPrint{
			PrinterID:                printer.ID,
			OrderID:                  &orderID,
			JobName:                  fmt.Sprintf("Order %s - %s", order.EtsyOrderID, item.Title),
			FileName:                 fmt.Sprintf("order-%s-item-%d.3mf", order.EtsyOrderID, i+1),
			Status:                   string(StatusQueued),
			ScheduledStart:           scheduledStart,
			EstimatedDurationMinutes: duration,
			MaterialType:             materialType,
			NozzleTemp:               nozzle,
			BedTemp:                  bed,
			PrintSpeed:               speed,
			Priority:                 priority,
		})

		offset += duration + JobBufferMinutes
		priority--
	}

	if err := db.Prints.CreateBatch(ctx, prints); err != nil {
		return nil, err
	}

	return prints, nil
}
