package app

import (
	"context"

	"tilestock/internal/core"
)

// ApplicationService is the single interface all transport adapters (HTTP,
// admin CLI) call. It resolves codes to IDs, runs quantities through the
// unit conversion resolver, and delegates to the ledger and projection
// services. Implementations contain no display logic.
type ApplicationService interface {
	// Catalog serves one page of the catalog projection, through the page
	// cache when one is configured. Results are eventually consistent with
	// the ledger, bounded by the time since the last rebuild.
	Catalog(ctx context.Context, q core.CatalogQuery) (*core.CatalogPage, error)

	// RebuildCatalog recomputes the projection wholesale and invalidates
	// the page cache.
	RebuildCatalog(ctx context.Context) error

	// Transactions serves one page of the movement log.
	Transactions(ctx context.Context, q core.TransactionQuery) (*core.TransactionPage, error)

	// StockLevels returns live per-key stock positions, optionally filtered
	// to one product code.
	StockLevels(ctx context.Context, productCode string) (*StockResult, error)

	// Warehouses returns the active warehouse reference data.
	Warehouses(ctx context.Context) (*WarehouseListResult, error)

	// GetProduct returns one product master record by code.
	GetProduct(ctx context.Context, code string) (*core.Product, error)

	// CreateProduct adds a catalog master record, classifying the line item
	// kind and deriving the area per piece at ingestion.
	CreateProduct(ctx context.Context, in core.ProductInput) (*core.Product, error)

	// UpdateProduct edits a master record; identity changes leave the
	// projection stale until the next rebuild.
	UpdateProduct(ctx context.Context, code string, in core.ProductInput) (*core.Product, error)

	// DeactivateProduct soft-deletes a product, keeping history intact.
	DeactivateProduct(ctx context.Context, code string) error

	// ReceiveStock books an IN movement (goods receipt).
	ReceiveStock(ctx context.Context, req StockMovementRequest) (*MovementResult, error)

	// DeliverStock books an OUT movement (order delivery). Delivering more
	// than is on hand is allowed: the record goes negative with a logged
	// warning, matching the physical reality that counts can lag.
	DeliverStock(ctx context.Context, req StockMovementRequest) (*MovementResult, error)

	// AdjustStock books a signed ADJUSTMENT movement (manual correction).
	AdjustStock(ctx context.Context, req StockMovementRequest) (*MovementResult, error)

	// TransferStock moves quantity between warehouses, all-or-nothing.
	TransferStock(ctx context.Context, req TransferRequest) (*core.TransferResult, error)

	// ReserveStock earmarks available quantity for a confirmed order.
	ReserveStock(ctx context.Context, req ReservationRequest) (*core.InventoryRecord, error)

	// ReleaseStock returns previously reserved quantity to the pool.
	ReleaseStock(ctx context.Context, req ReservationRequest) (*core.InventoryRecord, error)

	// MergeProducts collapses one product into another, re-points all
	// historical references, then rebuilds the projection.
	MergeProducts(ctx context.Context, req MergeRequest) (*core.MergeReport, error)

	// CheckConsistency compares the transaction log against the rolled-up
	// records for one product.
	CheckConsistency(ctx context.Context, productCode string) error

	// Ping reports storage health for the health endpoint.
	Ping(ctx context.Context) error
}
