package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type PrintOperations struct{}

// CreateBatch inserts a set of scheduled prints atomically. Either every row
// lands or none do.
func (o *PrintOperations) CreateBatch(ctx context.Context, prints []*ScheduledPrint) error {
	if len(prints) == 0 {
		return nil
	}

	tx, err := GetDB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, sp := range prints {
		result, err := tx.ExecContext(ctx, InsertScheduledPrint,
			sp.PrinterID, sp.OrderID, sp.JobName, sp.FileName, sp.Status, sp.ScheduledStart,
			sp.EstimatedDurationMinutes, sp.MaterialType, sp.MaterialSlot,
			sp.NozzleTemp, sp.BedTemp, sp.PrintSpeed, sp.Priority, sp.Notes)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to create scheduled print: %w", err)
		}
		if sp.ID, err = result.LastInsertId(); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to get scheduled print id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scheduled prints: %w", err)
	}
	return nil
}

func (o *PrintOperations) GetScheduledPrint(ctx context.Context, ownerID, id int64) (*ScheduledPrint, error) {
	row := GetDB().QueryRowContext(ctx, GetScheduledPrintByID, ownerID, id)
	sp, err := scanPrintFrom(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get scheduled print: %w", err)
	}
	return sp, nil
}

// GetQueue returns the non-terminal jobs for a printer, highest priority
// first, earliest (or unset) start first.
func (o *PrintOperations) GetQueue(ctx context.Context, ownerID, printerID int64) ([]*ScheduledPrint, error) {
	rows, err := GetDB().QueryContext(ctx, GetPrintQueue, ownerID, printerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get print queue: %w", err)
	}
	defer rows.Close()

	return scanPrints(rows)
}

func (o *PrintOperations) ListScheduledPrints(ctx context.Context, ownerID int64, filter PrintFilter) ([]*ScheduledPrint, int, error) {
	conditions := []string{"p.user_id = ?"}
	args := []interface{}{ownerID}

	if filter.PrinterID > 0 {
		conditions = append(conditions, "sp.printer_id = ?")
		args = append(args, filter.PrinterID)
	}
	if filter.OrderID > 0 {
		conditions = append(conditions, "sp.order_id = ?")
		args = append(args, filter.OrderID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "sp.status = ?")
		args = append(args, filter.Status)
	}

	from := " FROM scheduled_prints sp JOIN printers p ON p.id = sp.printer_id WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := GetDB().QueryRowContext(ctx, "SELECT COUNT(*)"+from, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count scheduled prints: %w", err)
	}

	limit := 50
	if filter.Limit > 0 {
		limit = filter.Limit
	}

	query := "SELECT " + printColumns + from + " ORDER BY sp.created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list scheduled prints: %w", err)
	}
	defer rows.Close()

	prints, err := scanPrints(rows)
	if err != nil {
		return nil, 0, err
	}
	return prints, total, nil
}

func (o *PrintOperations) UpdateScheduledPrint(ctx context.Context, ownerID int64, sp *ScheduledPrint) error {
	result, err := GetDB().ExecContext(ctx, UpdateScheduledPrintRow,
		sp.JobName, sp.FileName, sp.Status, sp.ScheduledStart, sp.EstimatedDurationMinutes,
		sp.MaterialType, sp.MaterialSlot, sp.NozzleTemp, sp.BedTemp, sp.PrintSpeed,
		sp.Priority, sp.StartedAt, sp.CompletedAt, sp.FailedReason, sp.Notes,
		sp.ID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to update scheduled print: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (o *PrintOperations) DeleteScheduledPrint(ctx context.Context, ownerID, id int64) error {
	result, err := GetDB().ExecContext(ctx, DeleteScheduledPrint, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete scheduled print: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type printScanner interface {
	Scan(dest ...interface{}) error
}

func scanPrintFrom(s printScanner) (*ScheduledPrint, error) {
	sp := &ScheduledPrint{}
	var fileName, materialType, failedReason, notes sql.NullString
	var nozzle, bed, speed sql.NullInt64
	err := s.Scan(&sp.ID, &sp.PrinterID, &sp.OrderID, &sp.JobName, &fileName, &sp.Status,
		&sp.ScheduledStart, &sp.EstimatedDurationMinutes, &materialType, &sp.MaterialSlot,
		&nozzle, &bed, &speed, &sp.Priority, &sp.StartedAt, &sp.CompletedAt,
		&failedReason, &notes, &sp.CreatedAt, &sp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sp.FileName = fileName.String
	sp.MaterialType = materialType.String
	sp.FailedReason = failedReason.String
	sp.Notes = notes.String
	sp.NozzleTemp = int(nozzle.Int64)
	sp.BedTemp = int(bed.Int64)
	sp.PrintSpeed = int(speed.Int64)
	return sp, nil
}

func scanPrints(rows *sql.Rows) ([]*ScheduledPrint, error) {
	var prints []*ScheduledPrint
	for rows.Next() {
		sp, err := scanPrintFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduled print: %w", err)
		}
		prints = append(prints, sp)
	}
	return prints, rows.Err()
}

type ProfileOperations struct{}

func (o *ProfileOperations) GetProfile(ctx context.Context, ownerID int64, listingID string) (*ProductProfile, error) {
	pp := &ProductProfile{}
	var materialType sql.NullString
	var nozzle, bed, speed sql.NullInt64
	err := GetDB().QueryRowContext(ctx, GetProductProfile, ownerID, listingID).Scan(
		&pp.ID, &pp.UserID, &pp.EtsyListingID, &pp.DurationMinutes, &materialType, &nozzle, &bed, &speed)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get product profile: %w", err)
	}
	pp.MaterialType = materialType.String
	pp.NozzleTemp = int(nozzle.Int64)
	pp.BedTemp = int(bed.Int64)
	pp.PrintSpeed = int(speed.Int64)
	return pp, nil
}

func (o *ProfileOperations) UpsertProfile(ctx context.Context, pp *ProductProfile) error {
	_, err := GetDB().ExecContext(ctx, UpsertProductProfile,
		pp.UserID, pp.EtsyListingID, pp.DurationMinutes, pp.MaterialType, pp.NozzleTemp, pp.BedTemp, pp.PrintSpeed)
	if err != nil {
		return fmt.Errorf("failed to upsert product profile: %w", err)
	}
	return nil
}

func (o *ProfileOperations) ListProfiles(ctx context.Context, ownerID int64) ([]*ProductProfile, error) {
	rows, err := GetDB().QueryContext(ctx, ListProductProfiles, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list product profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*ProductProfile
	for rows.Next() {
		pp := &ProductProfile{}
		var materialType sql.NullString
		var nozzle, bed, speed sql.NullInt64
		if err := rows.Scan(&pp.ID, &pp.UserID, &pp.EtsyListingID, &pp.DurationMinutes,
			&materialType, &nozzle, &bed, &speed); err != nil {
			return nil, fmt.Errorf("failed to scan product profile: %w", err)
		}
		pp.MaterialType = materialType.String
		pp.NozzleTemp = int(nozzle.Int64)
		pp.BedTemp = int(bed.Int64)
		pp.PrintSpeed = int(speed.Int64)
		profiles = append(profiles, pp)
	}
	return profiles, rows.Err()
}
