package core

import (
	"context"
	"fmt"
)

// StockLevels returns the live per-key stock positions, optionally filtered
// to one product code. This is the operational view; catalog browsing goes
// through the projection instead.
func (l *Ledger) StockLevels(ctx context.Context, productCode string) ([]StockLevel, error) {
	query := `
		SELECT p.code, p.name, w.code, r.ownership,
		       r.on_hand, r.reserved, r.on_hand - r.reserved AS available,
		       r.pallet_count, r.carton_count
		FROM inventory_records r
		JOIN products p   ON p.id = r.product_id
		JOIN warehouses w ON w.id = r.warehouse_id`

	var args []any
	if productCode != "" {
		args = append(args, productCode)
		query += " WHERE p.code = $1"
	}
	query += " ORDER BY p.code, w.code, r.ownership"

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var sl StockLevel
		if err := rows.Scan(&sl.ProductCode, &sl.ProductName, &sl.WarehouseCode, &sl.Ownership,
			&sl.OnHand, &sl.Reserved, &sl.Available, &sl.PalletCount, &sl.CartonCount); err != nil {
			return nil, fmt.Errorf("failed to scan stock level: %w", err)
		}
		levels = append(levels, sl)
	}
	return levels, rows.Err()
}

// ListWarehouses returns the active warehouses ordered by code.
func (l *Ledger) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, code, name, type, is_active, created_at
		FROM warehouses
		WHERE is_active = true
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query warehouses: %w", err)
	}
	defer rows.Close()

	var warehouses []Warehouse
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.Code, &w.Name, &w.Type, &w.IsActive, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan warehouse: %w", err)
		}
		warehouses = append(warehouses, w)
	}
	return warehouses, rows.Err()
}

// GetWarehouseByCode resolves a warehouse code to its row.
func (l *Ledger) GetWarehouseByCode(ctx context.Context, code string) (*Warehouse, error) {
	var w Warehouse
	err := l.pool.QueryRow(ctx, `
		SELECT id, code, name, type, is_active, created_at
		FROM warehouses WHERE code = $1
	`, code).Scan(&w.ID, &w.Code, &w.Name, &w.Type, &w.IsActive, &w.CreatedAt)
	if err != nil {
		return nil, mapNotFound(err, fmt.Sprintf("warehouse %s", code))
	}
	return &w, nil
}
