package core_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"tilestock/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Clean and seed test DB. Warehouse 1 is the wholesale depot, warehouse 2
	// the retail showroom. Products 1 and 2 are physical tiles, 3 is a sample
	// sheet, 4 a transport line.
	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE inventory_transactions, inventory_records, order_items,
			purchase_order_items, catalog_products, products, warehouses
			RESTART IDENTITY CASCADE;

		INSERT INTO warehouses (id, code, name, type) VALUES
		(1, 'DEPOT', 'Central Depot', 'WHOLESALE'),
		(2, 'MAG',   'Showroom',      'RETAIL');
		SELECT setval('warehouses_id_seq', 10);

		INSERT INTO products
			(id, code, name, famille, choix, calibre, size,
			 pieces_per_carton, cartons_per_pallet, primary_unit, kind, area_per_piece)
		VALUES
		(1, 'TL-6060',   'Gres Cerame Beige 60x60', 'ATLAS', 'CHOIX 1', 'C1', '60x60', 12, 40, 'PIECE', 'PHYSICAL_GOOD', 0.36),
		(2, 'TL-3060',   'Faience Blanc 30x60',     'ATLAS', 'CHOIX 2', 'C2', '30x60',  6, 32, 'PIECE', 'PHYSICAL_GOOD', 0.18),
		(3, 'FICHE-TL',  'FICHE Gres Cerame',       '', '', '', '', 0, 0, 'PIECE', 'REFERENCE_SHEET', NULL),
		(4, 'TRANSPORT', 'TRANSPORT LIVRAISON',     '', '', '', '', 0, 0, 'PIECE', 'SERVICE', NULL);
		SELECT setval('products_id_seq', 10);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

// getRecord fetches the rolled-up state for one key, failing the test when
// the record does not exist.
func getRecord(t *testing.T, pool *pgxpool.Pool, productID, warehouseID int, ownership core.OwnershipType) (onHand, reserved decimal.Decimal) {
	t.Helper()
	err := pool.QueryRow(context.Background(), `
		SELECT on_hand, reserved FROM inventory_records
		WHERE product_id = $1 AND warehouse_id = $2 AND ownership = $3
	`, productID, warehouseID, ownership).Scan(&onHand, &reserved)
	if err != nil {
		t.Fatalf("Failed to fetch inventory record (%d, %d, %s): %v", productID, warehouseID, ownership, err)
	}
	return onHand, reserved
}

func countTransactions(t *testing.T, pool *pgxpool.Pool, productID int) int {
	t.Helper()
	var n int
	err := pool.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM inventory_transactions WHERE product_id = $1", productID).Scan(&n)
	if err != nil {
		t.Fatalf("Failed to count transactions: %v", err)
	}
	return n
}

func receive(t *testing.T, ledger *core.Ledger, productID, warehouseID int, qty int64) {
	t.Helper()
	_, err := ledger.Adjust(context.Background(), core.AdjustmentInput{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Ownership:   core.OwnershipOwned,
		Type:        core.TxIn,
		Quantity:    decimal.NewFromInt(qty),
		CreatedBy:   "test",
	})
	if err != nil {
		t.Fatalf("Receive of %d pieces failed: %v", qty, err)
	}
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestLedger_ReceiveStock(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ledger := core.NewLedger(pool, testLogger())
	ctx := context.Background()

	rec, err := ledger.Adjust(ctx, core.AdjustmentInput{
		ProductID:   1,
		WarehouseID: 1,
		Ownership:   core.OwnershipOwned,
		Type:        core.TxIn,
		Quantity:    decimal.NewFromInt(480),
		Pallets:     decimal.NewFromInt(1),
		Cartons:     decimal.NewFromInt(40),
		CreatedBy:   "test",
	})
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	if !rec.OnHand.Equal(decimal.NewFromInt(480)) {
		t.Errorf("Expected on_hand=480, got %s", rec.OnHand)
	}
	if !rec.CartonCount.Equal(decimal.NewFromInt(40)) {
		t.Errorf("Expected carton_count=40, got %s", rec.CartonCount)
	}
	if n := countTransactions(t, pool, 1); n != 1 {
		t.Errorf("Expected 1 transaction row, got %d", n)
	}
}

func TestLedger_DeliverBeyondOnHand(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ledger := core.NewLedger(pool, testLogger())
	ctx := context.Background()

	receive(t, ledger, 1, 1, 500)

	// Two pallets of TL-6060 are 960 pieces. The delivery exceeds what the
	// system thinks is on hand; it must still go through, leaving a negative
	// rolled-up position and exactly one OUT row.
	rec, err := ledger.Adjust(ctx, core.AdjustmentInput{
		ProductID:   1,
		WarehouseID: 1,
		Ownership:   core.OwnershipOwned,
		Type:        core.TxOut,
		Quantity:    decimal.NewFromInt(960),
		CreatedBy:   "test",
	})
	if err != nil {
		t.Fatalf("Oversized delivery failed: %v", err)
	}
	if !rec.OnHand.Equal(decimal.NewFromInt(-460)) {
		t.Errorf("Expected on_hand=-460, got %s", rec.OnHand)
	}

	var outQty decimal.Decimal
	err = pool.QueryRow(ctx, `
		SELECT quantity FROM inventory_transactions
		WHERE product_id = 1 AND type = 'OUT'
	`).Scan(&outQty)
	if err != nil {
		t.Fatalf("Expected exactly one OUT row: %v", err)
	}
	if !outQty.Equal(decimal.NewFromInt(-960)) {
		t.Errorf("Expected OUT quantity=-960, got %s", outQty)
	}
}

func TestLedger_InvalidQuantity(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ledger := core.NewLedger(pool, testLogger())
	ctx := context.Background()

	cases := []core.AdjustmentInput{
		{ProductID: 1, WarehouseID: 1, Ownership: core.OwnershipOwned, Type: core.TxIn, Quantity: decimal.Zero},
		{ProductID: 1, WarehouseID: 1, Ownership: core.OwnershipOwned, Type: core.TxOut, Quantity: decimal.NewFromInt(-5)},
		{ProductID: 1, WarehouseID: 1, Ownership: core.OwnershipOwned, Type: core.TxAdjustment, Quantity: decimal.Zero},
	}
	for _, in := range cases {
		if _, err := ledger.Adjust(ctx, in); !errors.Is(err, core.ErrInvalidQuantity) {
			t.Errorf("%s %s: expected ErrInvalidQuantity, got %v", in.Type, in.Quantity, err)
		}
	}
	if n := countTransactions(t, pool, 1); n != 0 {
		t.Errorf("Rejected movements must not log transactions, got %d rows", n)
	}
}

func TestLedger_UnknownReferences(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ledger := core.NewLedger(pool, testLogger())
	ctx := context.Background()

	_, err := ledger.Adjust(ctx, core.AdjustmentInput{
		ProductID: 999, WarehouseID: 1, Ownership: core.OwnershipOwned,
		Type: core.TxIn, Quantity: decimal.NewFromInt(10),
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Unknown product: expected ErrNotFound, got %v", err)
	}

	_, err = ledger.Adjust(ctx, core.AdjustmentInput{
		ProductID: 1, WarehouseID: 999, Ownership: core.OwnershipOwned,
		Type: core.TxIn, Quantity: decimal.NewFromInt(10),
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Unknown warehouse: expected ErrNotFound, got %v", err)
	}
}

func TestLedger_ReserveAndRelease(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ledger := core.NewLedger(pool, testLogger())
	ctx := context.Background()

	receive(t, ledger, 1, 1, 100)

	rec, err := ledger.Reserve(ctx, 1, 1, core.OwnershipOwned, decimal.NewFromInt(60))
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if !rec.Reserved.Equal(decimal.NewFromInt(60)) {
		t.Errorf("Expected reserved=60, got %s", rec.Reserved)
	}
	if !rec.Available().Equal(decimal.NewFromInt(40)) {
		t.Errorf("Expected available=40, got %s", rec.Available())
	}

	// Only 40 are still available; reserving 50 must fail and leave the
	// split untouched.
	if _, err := ledger.Reserve(ctx, 1, 1, core.OwnershipOwned, decimal.NewFromInt(50)); err == nil {
		t.Error("Expected over-reservation to fail")
	}
	_, reserved := getRecord(t, pool, 1, 1, core.OwnershipOwned)
	if !reserved.Equal(decimal.NewFromInt(60)) {
		t.Errorf("Expected reserved unchanged at 60, got %s", reserved)
	}

	// Releasing more than is reserved clamps to zero.
	rec, err = ledger.Release(ctx, 1, 1, core.OwnershipOwned, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if !rec.Reserved.IsZero() {
		t.Errorf("Expected reserved clamped to 0, got %s", rec.Reserved)
	}

	// Reservations do not touch on-hand and append no log rows.
	onHand, _ := getRecord(t, pool, 1, 1, core.OwnershipOwned)
	if !onHand.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected on_hand unchanged at 100, got %s", onHand)
	}
	if n := countTransactions(t, pool, 1); n != 1 {
		t.Errorf("Expected only the IN row in the log, got %d rows", n)
	}

	// No record for this key yet.
	if _, err := ledger.Reserve(ctx, 2, 2, core.OwnershipOwned, decimal.NewFromInt(1)); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Reserve on missing record: expected ErrNotFound, got %v", err)
	}
}

func TestLedger_TransferConservation(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ledger := core.NewLedger(pool, testLogger())
	ctx := context.Background()

	receive(t, ledger, 1, 1, 960)

	result, err := ledger.Transfer(ctx, core.TransferInput{
		ProductID:       1,
		FromWarehouseID: 1,
		ToWarehouseID:   2,
		Ownership:       core.OwnershipOwned,
		Quantity:        decimal.NewFromInt(400),
		CreatedBy:       "test",
	})
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if !result.From.OnHand.Equal(decimal.NewFromInt(560)) {
		t.Errorf("Expected source on_hand=560, got %s", result.From.OnHand)
	}
	if !result.To.OnHand.Equal(decimal.NewFromInt(400)) {
		t.Errorf("Expected destination on_hand=400, got %s", result.To.OnHand)
	}

	// Total on hand across warehouses is conserved.
	var total decimal.Decimal
	err = pool.QueryRow(ctx,
		"SELECT SUM(on_hand) FROM inventory_records WHERE product_id = 1").Scan(&total)
	if err != nil {
		t.Fatalf("Failed to sum on_hand: %v", err)
	}
	if !total.Equal(decimal.NewFromInt(960)) {
		t.Errorf("Expected total on_hand=960 after transfer, got %s", total)
	}

	// Both legs share the correlation reference and net to zero.
	var legs int
	var net decimal.Decimal
	err = pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(quantity), 0)
		FROM inventory_transactions
		WHERE type = 'TRANSFER' AND reference_id = $1
	`, result.Correlation).Scan(&legs, &net)
	if err != nil {
		t.Fatalf("Failed to query transfer legs: %v", err)
	}
	if legs != 2 {
		t.Errorf("Expected 2 correlated TRANSFER rows, got %d", legs)
	}
	if !net.IsZero() {
		t.Errorf("Expected transfer legs to net to zero, got %s", net)
	}
}

func TestLedger_TransferAtomicity(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ledger := core.NewLedger(pool, testLogger())
	ctx := context.Background()

	receive(t, ledger, 1, 1, 100)

	// Destination does not exist: the whole transfer must roll back.
	_, err := ledger.Transfer(ctx, core.TransferInput{
		ProductID:       1,
		FromWarehouseID: 1,
		ToWarehouseID:   999,
		Ownership:       core.OwnershipOwned,
		Quantity:        decimal.NewFromInt(40),
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for missing destination, got %v", err)
	}

	onHand, _ := getRecord(t, pool, 1, 1, core.OwnershipOwned)
	if !onHand.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected source on_hand unchanged at 100, got %s", onHand)
	}
	var transferRows int
	if err := pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM inventory_transactions WHERE type = 'TRANSFER'").Scan(&transferRows); err != nil {
		t.Fatalf("Failed to count transfer rows: %v", err)
	}
	if transferRows != 0 {
		t.Errorf("Expected no TRANSFER rows after rollback, got %d", transferRows)
	}

	if _, err := ledger.Transfer(ctx, core.TransferInput{
		ProductID: 1, FromWarehouseID: 1, ToWarehouseID: 1,
		Ownership: core.OwnershipOwned, Quantity: decimal.NewFromInt(10),
	}); err == nil {
		t.Error("Expected same-warehouse transfer to fail")
	}
}

// A transfer whose transaction dies after the first leg has been applied must
// leave nothing behind: the record delta and the log row of the completed leg
// vanish with the rollback.
func TestLedger_TransferRollbackAfterFirstLeg(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ledger := core.NewLedger(pool, testLogger())
	ctx := context.Background()

	receive(t, ledger, 1, 1, 100)

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	// The source leg as Transfer applies it, then the storage transaction
	// fails before the destination leg.
	rec, err := ledger.AdjustTx(ctx, tx, core.AdjustmentInput{
		ProductID:   1,
		WarehouseID: 1,
		Ownership:   core.OwnershipOwned,
		Type:        core.TxAdjustment,
		Quantity:    decimal.NewFromInt(-40),
		CreatedBy:   "test",
	})
	if err != nil {
		t.Fatalf("First leg failed: %v", err)
	}
	if !rec.OnHand.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("Expected in-transaction on_hand=60, got %s", rec.OnHand)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	onHand, _ := getRecord(t, pool, 1, 1, core.OwnershipOwned)
	if !onHand.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected on_hand restored to 100 after rollback, got %s", onHand)
	}
	if n := countTransactions(t, pool, 1); n != 1 {
		t.Errorf("Expected only the seed IN row after rollback, got %d", n)
	}

	if err := ledger.CheckConsistency(ctx, 1); err != nil {
		t.Errorf("Expected consistency after rollback, got %v", err)
	}
}

func TestLedger_CheckConsistency(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ledger := core.NewLedger(pool, testLogger())
	ctx := context.Background()

	receive(t, ledger, 1, 1, 480)
	receive(t, ledger, 1, 2, 120)
	if _, err := ledger.Adjust(ctx, core.AdjustmentInput{
		ProductID: 1, WarehouseID: 1, Ownership: core.OwnershipOwned,
		Type: core.TxAdjustment, Quantity: decimal.NewFromInt(-30), CreatedBy: "test",
	}); err != nil {
		t.Fatalf("Adjustment failed: %v", err)
	}

	if err := ledger.CheckConsistency(ctx, 1); err != nil {
		t.Fatalf("Expected consistent ledger, got %v", err)
	}

	// Simulate an out-of-band write: the log no longer explains the record.
	if _, err := pool.Exec(ctx,
		"UPDATE inventory_records SET on_hand = on_hand + 5 WHERE product_id = 1 AND warehouse_id = 1"); err != nil {
		t.Fatalf("Out-of-band update failed: %v", err)
	}
	if err := ledger.CheckConsistency(ctx, 1); !errors.Is(err, core.ErrConsistencyViolation) {
		t.Errorf("Expected ErrConsistencyViolation, got %v", err)
	}
}
