package db

import (
	"context"
	"database/sql"
	"fmt"
)

type FilamentOperations struct{}

func (o *FilamentOperations) CreateFilament(ctx context.Context, f *Filament) error {
	if f.Unit == "" {
		f.Unit = "g"
	}
	result, err := GetDB().ExecContext(ctx, InsertFilament,
		f.UserID, f.Color, f.Material, f.InitialAmount, f.CurrentAmount, f.Unit, f.CostPerGram, f.LowStockThreshold)
	if err != nil {
		return fmt.Errorf("failed to create filament: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get filament id: %w", err)
	}
	f.ID = id
	return nil
}

func (o *FilamentOperations) GetFilamentByID(ctx context.Context, ownerID, id int64) (*Filament, error) {
	f := &Filament{}
	err := GetDB().QueryRowContext(ctx, GetFilamentByID, id, ownerID).Scan(
		&f.ID, &f.UserID, &f.Color, &f.Material, &f.InitialAmount, &f.CurrentAmount,
		&f.Unit, &f.CostPerGram, &f.LowStockThreshold, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get filament: %w", err)
	}
	return f, nil
}

func (o *FilamentOperations) ListFilaments(ctx context.Context, ownerID int64) ([]*Filament, error) {
	rows, err := GetDB().QueryContext(ctx, ListFilaments, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list filaments: %w", err)
	}
	defer rows.Close()

	var filaments []*Filament
	for rows.Next() {
		f := &Filament{}
		if err := rows.Scan(
			&f.ID, &f.UserID, &f.Color, &f.Material, &f.InitialAmount, &f.CurrentAmount,
			&f.Unit, &f.CostPerGram, &f.LowStockThreshold, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan filament: %w", err)
		}
		filaments = append(filaments, f)
	}
	return filaments, rows.Err()
}

func (o *FilamentOperations) UpdateFilament(ctx context.Context, ownerID int64, f *Filament) error {
	result, err := GetDB().ExecContext(ctx, UpdateFilament,
		f.Color, f.Material, f.InitialAmount, f.CurrentAmount, f.Unit, f.CostPerGram, f.LowStockThreshold,
		f.ID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to update filament: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (o *FilamentOperations) DeleteFilament(ctx context.Context, ownerID, id int64) error {
	result, err := GetDB().ExecContext(ctx, DeleteFilament, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete filament: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RecordUsage appends a usage row and decrements the spool in one transaction.
// The inventory counter floors at zero; usage above remaining stock is still
// recorded at its full amount.
func (o *FilamentOperations) RecordUsage(ctx context.Context, ownerID int64, usage *FilamentUsage) error {
	if _, err := o.GetFilamentByID(ctx, ownerID, usage.FilamentID); err != nil {
		return err
	}
	if usage.OrderID != nil {
		if _, err := Orders.GetOrderByID(ctx, ownerID, *usage.OrderID); err != nil {
			return err
		}
	}

	tx, err := GetDB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	result, err := tx.ExecContext(ctx, InsertFilamentUsage,
		usage.FilamentID, usage.OrderID, usage.AmountUsed, usage.Description)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record usage: %w", err)
	}
	usage.ID, _ = result.LastInsertId()

	if _, err := tx.ExecContext(ctx, DecrementFilamentAmount, usage.AmountUsed, usage.FilamentID, ownerID); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to decrement filament: %w", err)
	}

	if usage.OrderID != nil {
		if _, err := tx.ExecContext(ctx, UpdateOrderFilamentTotals, usage.AmountUsed, *usage.OrderID, ownerID); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to update order totals: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit usage: %w", err)
	}
	return nil
}

func (o *FilamentOperations) ListUsageForOrder(ctx context.Context, ownerID, orderID int64) ([]*FilamentUsage, error) {
	rows, err := GetDB().QueryContext(ctx, GetFilamentUsageForOrder, ownerID, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage: %w", err)
	}
	defer rows.Close()

	var usages []*FilamentUsage
	for rows.Next() {
		u := &FilamentUsage{}
		var desc sql.NullString
		if err := rows.Scan(&u.ID, &u.FilamentID, &u.OrderID, &u.AmountUsed, &desc, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		u.Description = desc.String
		usages = append(usages, u)
	}
	return usages, rows.Err()
}
