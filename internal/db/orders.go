package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type OrderOperations struct{}

// CreateOrderWithItems persists an order and its line items in one transaction.
func (o *OrderOperations) CreateOrderWithItems(ctx context.Context, order *Order, items []*OrderItem) error {
	tx, err := GetDB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	result, err := tx.ExecContext(ctx, InsertOrder,
		order.UserID, order.EtsyOrderID, order.EtsyShopID, order.BuyerEmail, order.BuyerName,
		order.TotalAmount, order.Currency, order.Status, order.CreatedAt, order.UpdatedAt, order.ShippedAt)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create order: %w", err)
	}

	orderID, err := result.LastInsertId()
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to get order id: %w", err)
	}
	order.ID = orderID

	for _, item := range items {
		item.OrderID = orderID
		res, err := tx.ExecContext(ctx, InsertOrderItem,
			orderID, item.EtsyListingID, item.Title, item.Quantity, item.Price)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to create order item: %w", err)
		}
		if item.ID, err = res.LastInsertId(); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to get order item id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

func (o *OrderOperations) GetOrderByID(ctx context.Context, ownerID, id int64) (*Order, error) {
	return scanOrder(GetDB().QueryRowContext(ctx, GetOrderByID, id, ownerID))
}

func (o *OrderOperations) GetOrderByEtsyID(ctx context.Context, ownerID int64, etsyOrderID string) (*Order, error) {
	return scanOrder(GetDB().QueryRowContext(ctx, GetOrderByEtsyID, etsyOrderID, ownerID))
}

func (o *OrderOperations) ListOrders(ctx context.Context, ownerID int64, filter OrderFilter) ([]*Order, int, error) {
	conditions := []string{"user_id = ?"}
	args := []interface{}{ownerID}

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := GetDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	limit := 50
	if filter.Limit > 0 {
		limit = filter.Limit
	}

	query := "SELECT " + orderColumns + " FROM orders" + where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		order, err := scanOrderRows(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
	}
	return orders, total, rows.Err()
}

func (o *OrderOperations) GetOrderItems(ctx context.Context, orderID int64) ([]*OrderItem, error) {
	rows, err := GetDB().QueryContext(ctx, GetOrderItems, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	var items []*OrderItem
	for rows.Next() {
		item := &OrderItem{}
		var listingID sql.NullString
		var price sql.NullFloat64
		if err := rows.Scan(&item.ID, &item.OrderID, &listingID, &item.Title, &item.Quantity, &price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		item.EtsyListingID = listingID.String
		item.Price = price.Float64
		items = append(items, item)
	}
	return items, rows.Err()
}

func (o *OrderOperations) UpdateProductionStatus(ctx context.Context, ownerID, id int64, status string) error {
	result, err := GetDB().ExecContext(ctx, UpdateOrderProduction, status, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to update production status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ApplySyncUpdate refreshes the marketplace-owned fields of an existing order.
func (o *OrderOperations) ApplySyncUpdate(ctx context.Context, ownerID, id int64, status string, updatedAt, shippedAt *time.Time) error {
	_, err := GetDB().ExecContext(ctx, UpdateOrderFromSync, status, updatedAt, shippedAt, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to apply sync update: %w", err)
	}
	return nil
}

func (o *OrderOperations) AddNote(ctx context.Context, ownerID int64, note *OrderNote) error {
	if _, err := o.GetOrderByID(ctx, ownerID, note.OrderID); err != nil {
		return err
	}
	result, err := GetDB().ExecContext(ctx, InsertOrderNote, note.OrderID, note.Body)
	if err != nil {
		return fmt.Errorf("failed to add order note: %w", err)
	}
	note.ID, _ = result.LastInsertId()
	note.CreatedAt = time.Now()
	return nil
}

func (o *OrderOperations) ListNotes(ctx context.Context, ownerID, orderID int64) ([]*OrderNote, error) {
	if _, err := o.GetOrderByID(ctx, ownerID, orderID); err != nil {
		return nil, err
	}
	rows, err := GetDB().QueryContext(ctx, GetOrderNotes, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order notes: %w", err)
	}
	defer rows.Close()

	var notes []*OrderNote
	for rows.Next() {
		n := &OrderNote{}
		if err := rows.Scan(&n.ID, &n.OrderID, &n.Body, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (o *OrderOperations) AddCommunication(ctx context.Context, ownerID int64, comm *OrderCommunication) error {
	if _, err := o.GetOrderByID(ctx, ownerID, comm.OrderID); err != nil {
		return err
	}
	result, err := GetDB().ExecContext(ctx, InsertOrderCommunication, comm.OrderID, comm.Channel, comm.Subject, comm.Body)
	if err != nil {
		return fmt.Errorf("failed to add order communication: %w", err)
	}
	comm.ID, _ = result.LastInsertId()
	comm.CreatedAt = time.Now()
	return nil
}

func (o *OrderOperations) ListCommunications(ctx context.Context, ownerID, orderID int64) ([]*OrderCommunication, error) {
	if _, err := o.GetOrderByID(ctx, ownerID, orderID); err != nil {
		return nil, err
	}
	rows, err := GetDB().QueryContext(ctx, GetOrderCommunications, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order communications: %w", err)
	}
	defer rows.Close()

	var comms []*OrderCommunication
	for rows.Next() {
		cm := &OrderCommunication{}
		var subject sql.NullString
		if err := rows.Scan(&cm.ID, &cm.OrderID, &cm.Channel, &subject, &cm.Body, &cm.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order communication: %w", err)
		}
		cm.Subject = subject.String
		comms = append(comms, cm)
	}
	return comms, rows.Err()
}

type orderScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrderFrom(s orderScanner) (*Order, error) {
	order := &Order{}
	var buyerEmail, buyerName, currency, status sql.NullString
	var totalAmount, totalUsed sql.NullFloat64
	err := s.Scan(&order.ID, &order.UserID, &order.EtsyOrderID, &order.EtsyShopID,
		&buyerEmail, &buyerName, &totalAmount, &currency, &status, &order.ProductionStatus,
		&order.FilamentAssigned, &totalUsed, &order.CreatedAt, &order.UpdatedAt,
		&order.ShippedAt, &order.SyncedAt)
	if err != nil {
		return nil, err
	}
	order.BuyerEmail = buyerEmail.String
	order.BuyerName = buyerName.String
	order.TotalAmount = totalAmount.Float64
	order.Currency = currency.String
	order.Status = status.String
	order.TotalFilamentUsed = totalUsed.Float64
	return order, nil
}

func scanOrder(row *sql.Row) (*Order, error) {
	order, err := scanOrderFrom(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

func scanOrderRows(rows *sql.Rows) (*Order, error) {
	order, err := scanOrderFrom(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return order, nil
}
