package db

import (
	"context"
	"database/sql"
	"fmt"
)

type PrinterOperations struct{}

func (o *PrinterOperations) CreatePrinter(ctx context.Context, p *Printer) error {
	if p.Status == "" {
		p.Status = "unknown"
	}
	result, err := GetDB().ExecContext(ctx, InsertPrinter,
		p.UserID, p.Name, p.ConnectionType, p.SerialNumber, p.AccessCode, p.IPAddress, p.Status)
	if err != nil {
		return fmt.Errorf("failed to create printer: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get printer id: %w", err)
	}
	p.ID = id
	return nil
}

func (o *PrinterOperations) GetPrinterByID(ctx context.Context, ownerID, id int64) (*Printer, error) {
	p := &Printer{}
	var serial, accessCode, ip sql.NullString
	err := GetDB().QueryRowContext(ctx, GetPrinterByID, id, ownerID).Scan(
		&p.ID, &p.UserID, &p.Name, &p.ConnectionType, &serial, &accessCode, &ip,
		&p.Status, &p.LastSeenAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get printer: %w", err)
	}
	p.SerialNumber = serial.String
	p.AccessCode = accessCode.String
	p.IPAddress = ip.String
	return p, nil
}

func (o *PrinterOperations) ListPrinters(ctx context.Context, ownerID int64) ([]*Printer, error) {
	rows, err := GetDB().QueryContext(ctx, ListPrinters, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list printers: %w", err)
	}
	defer rows.Close()

	var printers []*Printer
	for rows.Next() {
		p := &Printer{}
		var serial, accessCode, ip sql.NullString
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Name, &p.ConnectionType, &serial, &accessCode, &ip,
			&p.Status, &p.LastSeenAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan printer: %w", err)
		}
		p.SerialNumber = serial.String
		p.AccessCode = accessCode.String
		p.IPAddress = ip.String
		printers = append(printers, p)
	}
	return printers, rows.Err()
}

func (o *PrinterOperations) UpdatePrinter(ctx context.Context, ownerID int64, p *Printer) error {
	result, err := GetDB().ExecContext(ctx, UpdatePrinter,
		p.Name, p.ConnectionType, p.SerialNumber, p.AccessCode, p.IPAddress, p.ID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to update printer: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (o *PrinterOperations) UpdatePrinterStatus(ctx context.Context, ownerID, id int64, status string) error {
	_, err := GetDB().ExecContext(ctx, UpdatePrinterStatus, status, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to update printer status: %w", err)
	}
	return nil
}

func (o *PrinterOperations) DeletePrinter(ctx context.Context, ownerID, id int64) error {
	result, err := GetDB().ExecContext(ctx, DeletePrinter, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete printer: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (o *PrinterOperations) UpsertLoadedMaterial(ctx context.Context, ownerID int64, m *LoadedMaterial) error {
	if _, err := o.GetPrinterByID(ctx, ownerID, m.PrinterID); err != nil {
		return err
	}
	_, err := GetDB().ExecContext(ctx, UpsertLoadedMaterial,
		m.PrinterID, m.SlotIndex, m.MaterialType, m.Color, m.WeightGrams, m.RemainingPct, m.Vendor, m.CostPerKg)
	if err != nil {
		return fmt.Errorf("failed to upsert loaded material: %w", err)
	}
	return nil
}

func (o *PrinterOperations) ListLoadedMaterials(ctx context.Context, ownerID, printerID int64) ([]*LoadedMaterial, error) {
	rows, err := GetDB().QueryContext(ctx, ListLoadedMaterials, ownerID, printerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list loaded materials: %w", err)
	}
	defer rows.Close()

	var materials []*LoadedMaterial
	for rows.Next() {
		m := &LoadedMaterial{}
		var color, vendor sql.NullString
		if err := rows.Scan(&m.ID, &m.PrinterID, &m.SlotIndex, &m.MaterialType, &color,
			&m.WeightGrams, &m.RemainingPct, &vendor, &m.CostPerKg, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan loaded material: %w", err)
		}
		m.Color = color.String
		m.Vendor = vendor.String
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

func (o *PrinterOperations) DeleteLoadedMaterial(ctx context.Context, ownerID, printerID int64, slotIndex int) error {
	result, err := GetDB().ExecContext(ctx, DeleteLoadedMaterial, printerID, slotIndex, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete loaded material: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (o *PrinterOperations) GetNotificationPreference(ctx context.Context, ownerID, printerID int64) (*NotificationPreference, error) {
	np := &NotificationPreference{}
	var email, webhookURL sql.NullString
	err := GetDB().QueryRowContext(ctx, GetNotificationPreference, ownerID, printerID).Scan(
		&np.ID, &np.PrinterID, &np.NotifyStart, &np.NotifyComplete, &np.NotifyFail,
		&np.NotifyMaterialChange, &np.NotifyMaintenance, &np.EmailEnabled,
		&email, &webhookURL, &np.CreatedAt, &np.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get notification preference: %w", err)
	}
	np.EmailAddress = email.String
	np.WebhookURL = webhookURL.String
	return np, nil
}

func (o *PrinterOperations) UpsertNotificationPreference(ctx context.Context, ownerID int64, np *NotificationPreference) error {
	if _, err := o.GetPrinterByID(ctx, ownerID, np.PrinterID); err != nil {
		return err
	}
	_, err := GetDB().ExecContext(ctx, UpsertNotificationPreference,
		np.PrinterID, np.NotifyStart, np.NotifyComplete, np.NotifyFail, np.NotifyMaterialChange,
		np.NotifyMaintenance, np.EmailEnabled, np.EmailAddress, np.WebhookURL)
	if err != nil {
		return fmt.Errorf("failed to upsert notification preference: %w", err)
	}
	return nil
}
