package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unit is a packaging unit a quantity can be expressed in.
type Unit string

const (
	UnitPiece  Unit = "PIECE"
	UnitSQM    Unit = "SQM"
	UnitCarton Unit = "CARTON"
	UnitPallet Unit = "PALLET"
)

// ValidUnit reports whether u is one of the supported packaging units.
func ValidUnit(u Unit) bool {
	switch u {
	case UnitPiece, UnitSQM, UnitCarton, UnitPallet:
		return true
	}
	return false
}

// OwnershipType partitions stock into own goods and goods held on
// consignment for a supplier. It is a key of the inventory record,
// not a product attribute.
type OwnershipType string

const (
	OwnershipOwned       OwnershipType = "OWNED"
	OwnershipConsignment OwnershipType = "CONSIGNMENT"
)

func ValidOwnership(o OwnershipType) bool {
	return o == OwnershipOwned || o == OwnershipConsignment
}

// TransactionType classifies a ledger movement.
type TransactionType string

const (
	TxIn         TransactionType = "IN"
	TxOut        TransactionType = "OUT"
	TxTransfer   TransactionType = "TRANSFER"
	TxAdjustment TransactionType = "ADJUSTMENT"
)

// LineItemKind tags how a catalog line behaves in packaging math.
// It is computed once when the product is created or edited, so the
// conversion resolver never has to re-parse naming conventions.
type LineItemKind string

const (
	KindPhysicalGood   LineItemKind = "PHYSICAL_GOOD"
	KindService        LineItemKind = "SERVICE"
	KindReferenceSheet LineItemKind = "REFERENCE_SHEET"
)

// WarehouseType distinguishes the two depot roles. Static reference data.
type WarehouseType string

const (
	WarehouseWholesale WarehouseType = "WHOLESALE"
	WarehouseRetail    WarehouseType = "RETAIL"
)

// Warehouse is a physical storage location.
type Warehouse struct {
	ID        int           `json:"id"`
	Code      string        `json:"code"`
	Name      string        `json:"name"`
	Type      WarehouseType `json:"type"`
	IsActive  bool          `json:"is_active"`
	CreatedAt time.Time     `json:"created_at"`
}

// Product is a catalog master record carrying the packaging metadata the
// conversion resolver works from. Products are soft-deleted (deactivated)
// so historical transactions keep a valid reference.
type Product struct {
	ID               int             `json:"id"`
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	Famille          string          `json:"famille"` // brand/family filter key
	Choix            string          `json:"choix"`   // quality grade
	Calibre          string          `json:"calibre"`
	Size             string          `json:"size"` // e.g. "60x60", cm per side
	PiecesPerCarton  decimal.Decimal `json:"pieces_per_carton"`
	CartonsPerPallet decimal.Decimal `json:"cartons_per_pallet"`
	PrimaryUnit      Unit            `json:"primary_unit"`
	Kind             LineItemKind    `json:"kind"`
	IsActive         bool            `json:"is_active"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Packaging returns the conversion-relevant subset of the product.
func (p *Product) Packaging() Packaging {
	return Packaging{
		PiecesPerCarton:  p.PiecesPerCarton,
		CartonsPerPallet: p.CartonsPerPallet,
		Size:             p.Size,
		Kind:             p.Kind,
	}
}

// InventoryRecord is the rolled-up authoritative stock state for one
// (product, warehouse, ownership) key. At most one record exists per key;
// it is created lazily on the first movement that touches the key.
type InventoryRecord struct {
	ID          int             `json:"id"`
	ProductID   int             `json:"product_id"`
	WarehouseID int             `json:"warehouse_id"`
	Ownership   OwnershipType   `json:"ownership"`
	OnHand      decimal.Decimal `json:"on_hand"`
	Reserved    decimal.Decimal `json:"reserved"`
	PalletCount decimal.Decimal `json:"pallet_count"` // denormalized for display
	CartonCount decimal.Decimal `json:"carton_count"` // denormalized for display
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Available is the quantity not earmarked for confirmed orders.
func (r *InventoryRecord) Available() decimal.Decimal {
	return r.OnHand.Sub(r.Reserved)
}

// InventoryTransaction is one immutable ledger fact. Quantity is signed by
// the convention of the type: positive for IN, negative for OUT, either sign
// for ADJUSTMENT, and −qty/+qty for the two correlated legs of a TRANSFER.
type InventoryTransaction struct {
	ID            int             `json:"id"`
	ProductID     int             `json:"product_id"`
	WarehouseID   int             `json:"warehouse_id"`
	Type          TransactionType `json:"type"`
	Ownership     OwnershipType   `json:"ownership"`
	Quantity      decimal.Decimal `json:"quantity"`
	ReferenceType string          `json:"reference_type"` // ORDER, PURCHASE_ORDER, TRANSFER, MANUAL
	ReferenceID   string          `json:"reference_id"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// StockLevel is a read view of an inventory record joined with product and
// warehouse identity, for the stock listing endpoints.
type StockLevel struct {
	ProductCode   string          `json:"product_code"`
	ProductName   string          `json:"product_name"`
	WarehouseCode string          `json:"warehouse_code"`
	Ownership     OwnershipType   `json:"ownership"`
	OnHand        decimal.Decimal `json:"on_hand"`
	Reserved      decimal.Decimal `json:"reserved"`
	Available     decimal.Decimal `json:"available"` // = OnHand - Reserved
	PalletCount   decimal.Decimal `json:"pallet_count"`
	CartonCount   decimal.Decimal `json:"carton_count"`
}
