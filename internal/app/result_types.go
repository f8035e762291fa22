package app

import (
	"github.com/shopspring/decimal"

	"tilestock/internal/core"
)

// MovementResult reports what a movement did: the resolved piece quantity
// with its carton/pallet breakdown, and the record state after the write.
type MovementResult struct {
	Record  *core.InventoryRecord `json:"record"`
	Pieces  decimal.Decimal       `json:"pieces"`
	Cartons decimal.Decimal       `json:"cartons"`
	Pallets decimal.Decimal       `json:"pallets"`
}

// StockResult wraps the live stock level listing.
type StockResult struct {
	Levels []core.StockLevel `json:"levels"`
}

// WarehouseListResult wraps the warehouse reference data listing.
type WarehouseListResult struct {
	Warehouses []core.Warehouse `json:"warehouses"`
}
