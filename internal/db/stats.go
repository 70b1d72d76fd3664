package db

import (
	"context"
	"database/sql"
	"fmt"
)

type StatsOperations struct{}

// BusinessStats is the aggregate snapshot for the dashboard: order volume,
// print throughput and filament stock in one query pass per concern.
type BusinessStats struct {
	TotalOrders           int            `json:"total_orders"`
	TotalRevenue          float64        `json:"total_revenue"`
	OrdersByProduction    map[string]int `json:"orders_by_production_status"`
	PrintsByStatus        map[string]int `json:"prints_by_status"`
	FilamentSpools        int            `json:"filament_spools"`
	FilamentStockGrams    float64        `json:"filament_stock_grams"`
	FilamentLowStock      int            `json:"filament_low_stock"`
	FilamentConsumedGrams float64        `json:"filament_consumed_grams"`
}

func (o *StatsOperations) GetBusinessStats(ctx context.Context, ownerID int64) (*BusinessStats, error) {
	stats := &BusinessStats{
		OrdersByProduction: map[string]int{},
		PrintsByStatus:     map[string]int{},
	}

	if err := GetDB().QueryRowContext(ctx, SumOrderRevenue, ownerID).Scan(&stats.TotalOrders, &stats.TotalRevenue); err != nil {
		return nil, fmt.Errorf("failed to sum order revenue: %w", err)
	}

	rows, err := GetDB().QueryContext(ctx, CountOrdersByProductionStatus, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by production status: %w", err)
	}
	if err := scanStatusCounts(rows, stats.OrdersByProduction); err != nil {
		return nil, err
	}

	rows, err = GetDB().QueryContext(ctx, CountPrintsByStatus, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count prints by status: %w", err)
	}
	if err := scanStatusCounts(rows, stats.PrintsByStatus); err != nil {
		return nil, err
	}

	if err := GetDB().QueryRowContext(ctx, SumFilamentStock, ownerID).Scan(
		&stats.FilamentSpools, &stats.FilamentStockGrams, &stats.FilamentLowStock); err != nil {
		return nil, fmt.Errorf("failed to sum filament stock: %w", err)
	}

	if err := GetDB().QueryRowContext(ctx, SumFilamentConsumed, ownerID).Scan(&stats.FilamentConsumedGrams); err != nil {
		return nil, fmt.Errorf("failed to sum filament consumption: %w", err)
	}

	return stats, nil
}

func scanStatusCounts(rows *sql.Rows, dest map[string]int) error {
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return fmt.Errorf("failed to scan status count: %w", err)
		}
		dest[status] = count
	}
	return rows.Err()
}
