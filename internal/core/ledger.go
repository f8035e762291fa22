package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Ledger is the single authoritative mutator of on-hand and reserved
// quantities. Every mutation appends its inventory_transactions row inside
// the same database transaction as the record update, so the log and the
// rolled-up state cannot drift apart.
//
// Concurrent writers on the same (product, warehouse, ownership) key are
// serialized by the row lock taken before each update; there is no
// application-level retry loop.
type Ledger struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

func NewLedger(pool *pgxpool.Pool, log *logrus.Logger) *Ledger {
	return &Ledger{pool: pool, log: log}
}

// AdjustmentInput describes one signed stock movement.
// Quantity is always positive for IN and OUT (the sign comes from the type);
// ADJUSTMENT carries its own sign and must be non-zero.
type AdjustmentInput struct {
	ProductID     int
	WarehouseID   int
	Ownership     OwnershipType
	Type          TransactionType
	Quantity      decimal.Decimal
	Pallets       decimal.Decimal // signed delta for the denormalized pallet count
	Cartons       decimal.Decimal // signed delta for the denormalized carton count
	ReferenceType string
	ReferenceID   string
	CreatedBy     string
}

// signedDelta maps the input to the delta applied to on-hand, enforcing the
// per-type quantity convention.
func (in *AdjustmentInput) signedDelta() (decimal.Decimal, error) {
	switch in.Type {
	case TxIn:
		if !in.Quantity.IsPositive() {
			return decimal.Zero, fmt.Errorf("IN quantity must be positive, got %s: %w", in.Quantity, ErrInvalidQuantity)
		}
		return in.Quantity, nil
	case TxOut:
		if !in.Quantity.IsPositive() {
			return decimal.Zero, fmt.Errorf("OUT quantity must be positive, got %s: %w", in.Quantity, ErrInvalidQuantity)
		}
		return in.Quantity.Neg(), nil
	case TxAdjustment:
		if in.Quantity.IsZero() {
			return decimal.Zero, fmt.Errorf("ADJUSTMENT quantity must be non-zero: %w", ErrInvalidQuantity)
		}
		return in.Quantity, nil
	}
	return decimal.Zero, fmt.Errorf("transaction type %q is not valid for adjust (transfers go through Transfer)", in.Type)
}

// Adjust applies a single movement in its own database transaction.
func (l *Ledger) Adjust(ctx context.Context, in AdjustmentInput) (*InventoryRecord, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := l.AdjustTx(ctx, tx, in)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit adjustment: %w", err)
	}
	return rec, nil
}

// AdjustTx applies a movement within the caller's transaction. Used by
// Transfer for its two legs and by handlers that compose the adjustment with
// other writes.
func (l *Ledger) AdjustTx(ctx context.Context, tx pgx.Tx, in AdjustmentInput) (*InventoryRecord, error) {
	if !ValidOwnership(in.Ownership) {
		return nil, fmt.Errorf("ownership %q is not valid", in.Ownership)
	}
	delta, err := in.signedDelta()
	if err != nil {
		return nil, err
	}
	if err := l.verifyProductAndWarehouse(ctx, tx, in.ProductID, in.WarehouseID); err != nil {
		return nil, err
	}

	rec, err := l.applyDeltaTx(ctx, tx, in.ProductID, in.WarehouseID, in.Ownership, delta, in.Pallets, in.Cartons)
	if err != nil {
		return nil, err
	}

	if err := l.insertTransactionTx(ctx, tx, in.ProductID, in.WarehouseID, in.Type, in.Ownership,
		delta, in.ReferenceType, in.ReferenceID, in.CreatedBy); err != nil {
		return nil, err
	}
	return rec, nil
}

// verifyProductAndWarehouse maps missing references to ErrNotFound before any
// row is touched. The product row is read FOR SHARE so a movement cannot
// slip past a Merge holding the exclusive lock: an adjustment on a product
// being merged waits for the merge to commit.
func (l *Ledger) verifyProductAndWarehouse(ctx context.Context, tx pgx.Tx, productID, warehouseID int) error {
	var ok bool
	if err := tx.QueryRow(ctx, "SELECT true FROM products WHERE id = $1 FOR SHARE", productID).Scan(&ok); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		return fmt.Errorf("failed to verify product: %w", err)
	}
	if err := tx.QueryRow(ctx, "SELECT true FROM warehouses WHERE id = $1", warehouseID).Scan(&ok); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("warehouse %d: %w", warehouseID, ErrNotFound)
		}
		return fmt.Errorf("failed to verify warehouse: %w", err)
	}
	return nil
}

// applyDeltaTx creates the record at a zero baseline if this key has never
// moved stock before, locks it, and applies the signed deltas. A negative
// resulting on-hand is legal (physical counts lag the system during
// corrective reconciliation) but is flagged in the log.
func (l *Ledger) applyDeltaTx(ctx context.Context, tx pgx.Tx, productID, warehouseID int, ownership OwnershipType,
	delta, pallets, cartons decimal.Decimal) (*InventoryRecord, error) {

	var recID int
	err := tx.QueryRow(ctx, `
		INSERT INTO inventory_records (product_id, warehouse_id, ownership, on_hand, reserved, pallet_count, carton_count)
		VALUES ($1, $2, $3, 0, 0, 0, 0)
		ON CONFLICT (product_id, warehouse_id, ownership) DO UPDATE SET updated_at = NOW()
		RETURNING id
	`, productID, warehouseID, ownership).Scan(&recID)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert inventory record: %w", err)
	}

	var rec InventoryRecord
	err = tx.QueryRow(ctx, `
		SELECT id, product_id, warehouse_id, ownership, on_hand, reserved, pallet_count, carton_count, updated_at
		FROM inventory_records WHERE id = $1 FOR UPDATE
	`, recID).Scan(&rec.ID, &rec.ProductID, &rec.WarehouseID, &rec.Ownership,
		&rec.OnHand, &rec.Reserved, &rec.PalletCount, &rec.CartonCount, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to lock inventory record: %w", err)
	}

	rec.OnHand = rec.OnHand.Add(delta)
	rec.PalletCount = rec.PalletCount.Add(pallets)
	rec.CartonCount = rec.CartonCount.Add(cartons)

	if rec.OnHand.IsNegative() {
		l.log.WithFields(logrus.Fields{
			"product_id":   productID,
			"warehouse_id": warehouseID,
			"ownership":    ownership,
			"on_hand":      rec.OnHand.String(),
			"delta":        delta.String(),
		}).Warn("inventory record went negative")
	}

	_, err = tx.Exec(ctx, `
		UPDATE inventory_records
		SET on_hand = $1, pallet_count = $2, carton_count = $3, updated_at = NOW()
		WHERE id = $4
	`, rec.OnHand, rec.PalletCount, rec.CartonCount, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update inventory record: %w", err)
	}
	return &rec, nil
}

func (l *Ledger) insertTransactionTx(ctx context.Context, tx pgx.Tx, productID, warehouseID int,
	txType TransactionType, ownership OwnershipType, quantity decimal.Decimal,
	refType, refID, createdBy string) error {

	_, err := tx.Exec(ctx, `
		INSERT INTO inventory_transactions (product_id, warehouse_id, type, ownership, quantity, reference_type, reference_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, productID, warehouseID, txType, ownership, quantity, refType, refID, createdBy)
	if err != nil {
		return fmt.Errorf("failed to insert inventory transaction: %w", err)
	}
	return nil
}

// Reserve earmarks quantity for a confirmed-but-undelivered order. The total
// on hand does not change; only the reserved split moves. Reserving more than
// is available fails so an order is never confirmed against stock that is
// already promised.
//
// Reservations append no IN/OUT transaction row: the log reconstructs
// on-hand, which reservations do not affect.
func (l *Ledger) Reserve(ctx context.Context, productID, warehouseID int, ownership OwnershipType, qty decimal.Decimal) (*InventoryRecord, error) {
	return l.moveReservation(ctx, productID, warehouseID, ownership, qty, true)
}

// Release returns previously reserved quantity to the available pool, for
// example when a confirmed order is cancelled or delivered. Releasing more
// than is reserved clamps to zero.
func (l *Ledger) Release(ctx context.Context, productID, warehouseID int, ownership OwnershipType, qty decimal.Decimal) (*InventoryRecord, error) {
	return l.moveReservation(ctx, productID, warehouseID, ownership, qty, false)
}

func (l *Ledger) moveReservation(ctx context.Context, productID, warehouseID int, ownership OwnershipType,
	qty decimal.Decimal, reserve bool) (*InventoryRecord, error) {

	if !qty.IsPositive() {
		return nil, fmt.Errorf("reservation quantity must be positive, got %s: %w", qty, ErrInvalidQuantity)
	}
	if !ValidOwnership(ownership) {
		return nil, fmt.Errorf("ownership %q is not valid", ownership)
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var rec InventoryRecord
	err = tx.QueryRow(ctx, `
		SELECT id, product_id, warehouse_id, ownership, on_hand, reserved, pallet_count, carton_count, updated_at
		FROM inventory_records
		WHERE product_id = $1 AND warehouse_id = $2 AND ownership = $3
		FOR UPDATE
	`, productID, warehouseID, ownership).Scan(&rec.ID, &rec.ProductID, &rec.WarehouseID, &rec.Ownership,
		&rec.OnHand, &rec.Reserved, &rec.PalletCount, &rec.CartonCount, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("inventory record for product %d at warehouse %d (%s): %w",
				productID, warehouseID, ownership, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock inventory record: %w", err)
	}

	if reserve {
		if rec.Available().LessThan(qty) {
			return nil, fmt.Errorf("insufficient stock to reserve: available %s, requested %s",
				rec.Available().String(), qty.String())
		}
		rec.Reserved = rec.Reserved.Add(qty)
	} else {
		rec.Reserved = rec.Reserved.Sub(qty)
		if rec.Reserved.IsNegative() {
			rec.Reserved = decimal.Zero
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE inventory_records SET reserved = $1, updated_at = NOW() WHERE id = $2
	`, rec.Reserved, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update reservation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}
	return &rec, nil
}

// TransferInput moves quantity between two warehouses within one ownership
// class. Quantity is always positive.
type TransferInput struct {
	ProductID       int
	FromWarehouseID int
	ToWarehouseID   int
	Ownership       OwnershipType
	Quantity        decimal.Decimal
	Pallets         decimal.Decimal
	Cartons         decimal.Decimal
	CreatedBy       string
}

// TransferResult reports both legs and the correlation reference that links
// their transaction rows.
type TransferResult struct {
	Correlation string           `json:"correlation"`
	From        *InventoryRecord `json:"from"`
	To          *InventoryRecord `json:"to"`
}

// Transfer is two adjustments in one database transaction: OUT at the source,
// IN at the destination, both logged as TRANSFER rows sharing a correlation
// reference. If either leg fails the whole transfer rolls back and no row of
// any kind is left behind.
func (l *Ledger) Transfer(ctx context.Context, in TransferInput) (*TransferResult, error) {
	if !in.Quantity.IsPositive() {
		return nil, fmt.Errorf("transfer quantity must be positive, got %s: %w", in.Quantity, ErrInvalidQuantity)
	}
	if !ValidOwnership(in.Ownership) {
		return nil, fmt.Errorf("ownership %q is not valid", in.Ownership)
	}
	if in.FromWarehouseID == in.ToWarehouseID {
		return nil, fmt.Errorf("transfer source and destination warehouses are the same")
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := l.verifyProductAndWarehouse(ctx, tx, in.ProductID, in.FromWarehouseID); err != nil {
		return nil, err
	}
	if err := l.verifyProductAndWarehouse(ctx, tx, in.ProductID, in.ToWarehouseID); err != nil {
		return nil, err
	}

	correlation := uuid.NewString()

	from, err := l.applyDeltaTx(ctx, tx, in.ProductID, in.FromWarehouseID, in.Ownership,
		in.Quantity.Neg(), in.Pallets.Neg(), in.Cartons.Neg())
	if err != nil {
		return nil, fmt.Errorf("transfer source leg: %w", err)
	}
	if err := l.insertTransactionTx(ctx, tx, in.ProductID, in.FromWarehouseID, TxTransfer, in.Ownership,
		in.Quantity.Neg(), "TRANSFER", correlation, in.CreatedBy); err != nil {
		return nil, err
	}

	to, err := l.applyDeltaTx(ctx, tx, in.ProductID, in.ToWarehouseID, in.Ownership,
		in.Quantity, in.Pallets, in.Cartons)
	if err != nil {
		return nil, fmt.Errorf("transfer destination leg: %w", err)
	}
	if err := l.insertTransactionTx(ctx, tx, in.ProductID, in.ToWarehouseID, TxTransfer, in.Ownership,
		in.Quantity, "TRANSFER", correlation, in.CreatedBy); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transfer: %w", err)
	}
	return &TransferResult{Correlation: correlation, From: from, To: to}, nil
}

// CheckConsistency verifies that, for every key of the product, the sum of
// logged transaction quantities equals the record's on-hand. A mismatch
// should be unreachable given the shared transaction boundary; observing one
// means a bug or out-of-band writes, reported as ErrConsistencyViolation.
func (l *Ledger) CheckConsistency(ctx context.Context, productID int) error {
	rows, err := l.pool.Query(ctx, `
		SELECT warehouse_id, ownership,
		       COALESCE(r.on_hand, 0),
		       COALESCE(t.total, 0)
		FROM (
		    SELECT warehouse_id, ownership, on_hand
		    FROM inventory_records
		    WHERE product_id = $1
		) r
		FULL OUTER JOIN (
		    SELECT warehouse_id, ownership, SUM(quantity) AS total
		    FROM inventory_transactions
		    WHERE product_id = $1
		    GROUP BY warehouse_id, ownership
		) t USING (warehouse_id, ownership)
	`, productID)
	if err != nil {
		return fmt.Errorf("failed to query consistency: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var warehouseID int
		var ownership OwnershipType
		var onHand, logged decimal.Decimal
		if err := rows.Scan(&warehouseID, &ownership, &onHand, &logged); err != nil {
			return fmt.Errorf("failed to scan consistency row: %w", err)
		}
		if !onHand.Equal(logged) {
			return fmt.Errorf("product %d warehouse %d (%s): on-hand %s but transaction sum %s: %w",
				productID, warehouseID, ownership, onHand.String(), logged.String(), ErrConsistencyViolation)
		}
	}
	return rows.Err()
}
