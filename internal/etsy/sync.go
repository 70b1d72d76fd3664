package etsy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/justpow98/j3d-backend/internal/db"
)

const receiptPageSize = 100

type SyncResult struct {
	Success       bool   `json:"success"`
	TotalReceipts int    `json:"total_receipts"`
	NewOrders     int    `json:"new_orders_saved"`
	UpdatedOrders int    `json:"updated_orders"`
	Message       string `json:"message"`
}

// SyncManager pulls paid receipts from the marketplace and mirrors them into
// local orders and line items.
type SyncManager struct {
	client *Client
	months int
	now    func() time.Time
}

func NewSyncManager(client *Client, months int) *SyncManager {
	if months < 1 {
		months = 6
	}
	return &SyncManager{client: client, months: months, now: time.Now}
}

func (m *SyncManager) SyncOrders(ctx context.Context, ownerID int64, shopID string) (*SyncResult, error) {
	end := m.now().UTC()
	start := end.AddDate(0, 0, -m.months*30)

	var receipts []Receipt
	offset := 0
	for {
		count, page, err := m.client.GetShopReceipts(ctx, shopID, ReceiptParams{
			Limit:      receiptPageSize,
			Offset:     offset,
			MinCreated: start.Unix(),
			MaxCreated: end.Unix(),
			WasPaid:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch receipts: %w", err)
		}
		if len(page) == 0 {
			break
		}
		receipts = append(receipts, page...)
		if len(receipts) >= count {
			break
		}
		offset += receiptPageSize
	}

	result := &SyncResult{Success: true, TotalReceipts: len(receipts)}

	for _, receipt := range receipts {
		receiptID := strconv.FormatInt(receipt.ReceiptID, 10)

		status := "PAID"
		if receipt.WasShipped {
			status = "SHIPPED"
		}

		existing, err := db.Orders.GetOrderByEtsyID(ctx, ownerID, receiptID)
		switch {
		case err == nil:
			updatedAt := unixTime(receipt.UpdateTimestamp)
			shippedAt := unixTime(receipt.ShippedTimestamp)
			if err := db.Orders.ApplySyncUpdate(ctx, ownerID, existing.ID, status, updatedAt, shippedAt); err != nil {
				return nil, err
			}
			result.UpdatedOrders++
		case errors.Is(err, sql.ErrNoRows):
			order := &db.Order{
				UserID:      ownerID,
				EtsyOrderID: receiptID,
				EtsyShopID:  shopID,
				BuyerEmail:  receipt.BuyerEmail,
				BuyerName:   receipt.Name,
				TotalAmount: receipt.Grandtotal.Dollars(),
				Currency:    currencyOrDefault(receipt.Grandtotal.CurrencyCode),
				Status:      status,
				CreatedAt:   unixTime(receipt.CreateTimestamp),
				UpdatedAt:   unixTime(receipt.UpdateTimestamp),
				ShippedAt:   unixTime(receipt.ShippedTimestamp),
			}

			var items []*db.OrderItem
			transactions, err := m.client.GetReceiptTransactions(ctx, shopID, receipt.ReceiptID)
			if err != nil {
				// the receipt still lands, just without line items
				log.Printf("[etsy] failed to fetch transactions for receipt %s: %v", receiptID, err)
			} else {
				for _, tx := range transactions {
					items = append(items, &db.OrderItem{
						EtsyListingID: strconv.FormatInt(tx.ListingID, 10),
						Title:         tx.Title,
						Quantity:      quantityOrDefault(tx.Quantity),
						Price:         tx.Price.Dollars(),
					})
				}
			}

			if err := db.Orders.CreateOrderWithItems(ctx, order, items); err != nil {
				return nil, err
			}
			result.NewOrders++
		default:
			return nil, err
		}
	}

	result.Message = fmt.Sprintf("Successfully synced %d new orders and updated %d existing orders",
		result.NewOrders, result.UpdatedOrders)
	return result, nil
}

func unixTime(ts int64) *time.Time {
	if ts <= 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}

func currencyOrDefault(code string) string {
	if code == "" {
		return "USD"
	}
	return code
}

func quantityOrDefault(q int) int {
	if q < 1 {
		return 1
	}
	return q
}
