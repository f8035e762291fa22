package app

import (
	"github.com/shopspring/decimal"

	"tilestock/internal/core"
)

// StockMovementRequest is a single receive/deliver/adjust call. Quantity is
// expressed in Unit and is normalized to pieces through the conversion
// resolver before it reaches the ledger. For ADJUSTMENT movements Quantity
// carries its own sign.
type StockMovementRequest struct {
	ProductCode   string             `json:"product_code"`
	WarehouseCode string             `json:"warehouse_code"`
	Ownership     core.OwnershipType `json:"ownership"`
	Quantity      decimal.Decimal    `json:"quantity"`
	Unit          core.Unit          `json:"unit"`
	ReferenceType string             `json:"reference_type"`
	ReferenceID   string             `json:"reference_id"`
	CreatedBy     string             `json:"created_by"`
}

// TransferRequest moves stock between two warehouses within one ownership
// class.
type TransferRequest struct {
	ProductCode       string             `json:"product_code"`
	FromWarehouseCode string             `json:"from_warehouse_code"`
	ToWarehouseCode   string             `json:"to_warehouse_code"`
	Ownership         core.OwnershipType `json:"ownership"`
	Quantity          decimal.Decimal    `json:"quantity"`
	Unit              core.Unit          `json:"unit"`
	CreatedBy         string             `json:"created_by"`
}

// ReservationRequest earmarks (or returns) stock for a confirmed order.
type ReservationRequest struct {
	ProductCode   string             `json:"product_code"`
	WarehouseCode string             `json:"warehouse_code"`
	Ownership     core.OwnershipType `json:"ownership"`
	Quantity      decimal.Decimal    `json:"quantity"`
	Unit          core.Unit          `json:"unit"`
}

// MergeRequest collapses the drop product into the keep product.
type MergeRequest struct {
	KeepCode string `json:"keep_code"`
	DropCode string `json:"drop_code"`
}
