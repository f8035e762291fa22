package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

// MergeReport records what a product merge did, including the pre-merge
// record snapshots. Merge has no automatic inverse: re-subtracting the drop
// quantities is only correct if nothing touched either product in between,
// so the snapshot is the caller's rollback reference, not an undo button.
type MergeReport struct {
	KeepProductID      int               `json:"keep_product_id"`
	DropProductID      int               `json:"drop_product_id"`
	KeepBefore         []InventoryRecord `json:"keep_before"`
	DropBefore         []InventoryRecord `json:"drop_before"`
	MovedTransactions  int64             `json:"moved_transactions"`
	MovedOrderItems    int64             `json:"moved_order_items"`
	MovedPurchaseItems int64             `json:"moved_purchase_items"`
}

// Merge collapses the drop product into the keep product: per-key record
// sums, re-pointed transaction and document-line foreign keys, drop records
// deleted, drop product deactivated. One transaction, all or nothing.
//
// This is the reviewed home for what used to be ad-hoc duplicate-fixing
// scripts; callers are expected to run a catalog rebuild afterwards.
func (l *Ledger) Merge(ctx context.Context, keepProductID, dropProductID int) (*MergeReport, error) {
	if keepProductID == dropProductID {
		return nil, fmt.Errorf("cannot merge product %d into itself", keepProductID)
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock both product rows first so concurrent merges and adjustments on
	// either product wait for this one.
	for _, id := range []int{keepProductID, dropProductID} {
		var ok bool
		if err := tx.QueryRow(ctx, "SELECT true FROM products WHERE id = $1 FOR UPDATE", id).Scan(&ok); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
			}
			return nil, fmt.Errorf("failed to lock product %d: %w", id, err)
		}
	}

	report := &MergeReport{KeepProductID: keepProductID, DropProductID: dropProductID}
	if report.KeepBefore, err = recordsForProductTx(ctx, tx, keepProductID); err != nil {
		return nil, err
	}
	if report.DropBefore, err = recordsForProductTx(ctx, tx, dropProductID); err != nil {
		return nil, err
	}

	// Fold drop's records into keep's per (warehouse, ownership) key.
	_, err = tx.Exec(ctx, `
		INSERT INTO inventory_records (product_id, warehouse_id, ownership, on_hand, reserved, pallet_count, carton_count)
		SELECT $1, warehouse_id, ownership, on_hand, reserved, pallet_count, carton_count
		FROM inventory_records
		WHERE product_id = $2
		ON CONFLICT (product_id, warehouse_id, ownership) DO UPDATE SET
			on_hand      = inventory_records.on_hand      + EXCLUDED.on_hand,
			reserved     = inventory_records.reserved     + EXCLUDED.reserved,
			pallet_count = inventory_records.pallet_count + EXCLUDED.pallet_count,
			carton_count = inventory_records.carton_count + EXCLUDED.carton_count,
			updated_at   = NOW()
	`, keepProductID, dropProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to fold inventory records: %w", err)
	}

	// Re-point all historical references so no row still names the drop product.
	ct, err := tx.Exec(ctx, "UPDATE inventory_transactions SET product_id = $1 WHERE product_id = $2", keepProductID, dropProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-point inventory transactions: %w", err)
	}
	report.MovedTransactions = ct.RowsAffected()

	ct, err = tx.Exec(ctx, "UPDATE order_items SET product_id = $1 WHERE product_id = $2", keepProductID, dropProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-point order items: %w", err)
	}
	report.MovedOrderItems = ct.RowsAffected()

	ct, err = tx.Exec(ctx, "UPDATE purchase_order_items SET product_id = $1 WHERE product_id = $2", keepProductID, dropProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-point purchase order items: %w", err)
	}
	report.MovedPurchaseItems = ct.RowsAffected()

	if _, err = tx.Exec(ctx, "DELETE FROM inventory_records WHERE product_id = $1", dropProductID); err != nil {
		return nil, fmt.Errorf("failed to delete drop records: %w", err)
	}
	if _, err = tx.Exec(ctx, "UPDATE products SET is_active = false, updated_at = NOW() WHERE id = $1", dropProductID); err != nil {
		return nil, fmt.Errorf("failed to deactivate drop product: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit merge: %w", err)
	}

	l.log.WithFields(logrus.Fields{
		"keep_product_id":    keepProductID,
		"drop_product_id":    dropProductID,
		"moved_transactions": report.MovedTransactions,
	}).Info("products merged")
	return report, nil
}

func recordsForProductTx(ctx context.Context, tx pgx.Tx, productID int) ([]InventoryRecord, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, product_id, warehouse_id, ownership, on_hand, reserved, pallet_count, carton_count, updated_at
		FROM inventory_records
		WHERE product_id = $1
		ORDER BY warehouse_id, ownership
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records for product %d: %w", productID, err)
	}
	defer rows.Close()

	var recs []InventoryRecord
	for rows.Next() {
		var r InventoryRecord
		if err := rows.Scan(&r.ID, &r.ProductID, &r.WarehouseID, &r.Ownership,
			&r.OnHand, &r.Reserved, &r.PalletCount, &r.CartonCount, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
