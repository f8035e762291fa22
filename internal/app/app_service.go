package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tilestock/internal/cache"
	"tilestock/internal/core"
)

type appService struct {
	pool     *pgxpool.Pool
	ledger   *core.Ledger
	catalog  *core.Catalog
	txlog    *core.TransactionLog
	products core.ProductService
	pages    *cache.PageCache
	log      *logrus.Logger
}

func NewAppService(pool *pgxpool.Pool, ledger *core.Ledger, catalog *core.Catalog,
	txlog *core.TransactionLog, products core.ProductService, pages *cache.PageCache,
	log *logrus.Logger) ApplicationService {

	return &appService{
		pool:     pool,
		ledger:   ledger,
		catalog:  catalog,
		txlog:    txlog,
		products: products,
		pages:    pages,
		log:      log,
	}
}

// ── Catalog ───────────────────────────────────────────────────────────────────

func catalogFingerprint(q core.CatalogQuery) string {
	return strings.Join([]string{
		q.Search, q.Famille, q.Choix, q.Calibre, q.Sort, q.Order,
		strconv.Itoa(q.Page), strconv.Itoa(q.Limit),
	}, "|")
}

func (s *appService) Catalog(ctx context.Context, q core.CatalogQuery) (*core.CatalogPage, error) {
	key := s.pages.Key(ctx, catalogFingerprint(q))
	if payload, ok := s.pages.Get(ctx, key); ok {
		var page core.CatalogPage
		if err := json.Unmarshal(payload, &page); err == nil {
			return &page, nil
		}
		// Corrupt payload: fall through to the database.
	}

	page, err := s.catalog.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(page); err == nil {
		s.pages.Set(ctx, key, payload)
	}
	return page, nil
}

func (s *appService) RebuildCatalog(ctx context.Context) error {
	if err := s.catalog.Rebuild(ctx); err != nil {
		return err
	}
	s.pages.Invalidate(ctx)
	return nil
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *appService) Transactions(ctx context.Context, q core.TransactionQuery) (*core.TransactionPage, error) {
	return s.txlog.List(ctx, q)
}

func (s *appService) StockLevels(ctx context.Context, productCode string) (*StockResult, error) {
	levels, err := s.ledger.StockLevels(ctx, productCode)
	if err != nil {
		return nil, err
	}
	return &StockResult{Levels: levels}, nil
}

func (s *appService) Warehouses(ctx context.Context) (*WarehouseListResult, error) {
	warehouses, err := s.ledger.ListWarehouses(ctx)
	if err != nil {
		return nil, err
	}
	return &WarehouseListResult{Warehouses: warehouses}, nil
}

// ── Products ──────────────────────────────────────────────────────────────────

func (s *appService) GetProduct(ctx context.Context, code string) (*core.Product, error) {
	return s.products.GetByCode(ctx, code)
}

func (s *appService) CreateProduct(ctx context.Context, in core.ProductInput) (*core.Product, error) {
	return s.products.Create(ctx, in)
}

func (s *appService) UpdateProduct(ctx context.Context, code string, in core.ProductInput) (*core.Product, error) {
	return s.products.Update(ctx, code, in)
}

func (s *appService) DeactivateProduct(ctx context.Context, code string) error {
	return s.products.Deactivate(ctx, code)
}

// ── Movements ─────────────────────────────────────────────────────────────────

// resolvedMovement is a movement request normalized to pieces, with the
// display breakdown and the resolved IDs.
type resolvedMovement struct {
	product   *core.Product
	warehouse *core.Warehouse
	pieces    decimal.Decimal // absolute value, normalized to the base unit
	cartons   decimal.Decimal
	pallets   decimal.Decimal
}

// resolveMovement looks up both references and runs the quantity through the
// conversion resolver. qty must already be non-negative.
func (s *appService) resolveMovement(ctx context.Context, productCode, warehouseCode string,
	qty decimal.Decimal, unit core.Unit) (*resolvedMovement, error) {

	product, err := s.products.GetByCode(ctx, productCode)
	if err != nil {
		return nil, err
	}
	warehouse, err := s.ledger.GetWarehouseByCode(ctx, warehouseCode)
	if err != nil {
		return nil, err
	}

	if unit == "" {
		unit = core.UnitPiece
	}
	packaging := product.Packaging()
	pieces, err := packaging.Convert(qty, unit, core.UnitPiece)
	if err != nil {
		return nil, fmt.Errorf("resolving %s %s of %s: %w", qty, unit, productCode, err)
	}
	cartons, pallets := packaging.CartonPalletCounts(pieces)

	return &resolvedMovement{
		product:   product,
		warehouse: warehouse,
		pieces:    pieces,
		cartons:   cartons,
		pallets:   pallets,
	}, nil
}

func (s *appService) move(ctx context.Context, req StockMovementRequest, txType core.TransactionType) (*MovementResult, error) {
	qty := req.Quantity
	sign := decimal.NewFromInt(1)
	if txType == core.TxAdjustment && qty.IsNegative() {
		// Adjustments carry their own sign; the resolver works on the
		// absolute value.
		qty = qty.Abs()
		sign = decimal.NewFromInt(-1)
	}

	rm, err := s.resolveMovement(ctx, req.ProductCode, req.WarehouseCode, qty, req.Unit)
	if err != nil {
		return nil, err
	}

	rec, err := s.ledger.Adjust(ctx, core.AdjustmentInput{
		ProductID:     rm.product.ID,
		WarehouseID:   rm.warehouse.ID,
		Ownership:     req.Ownership,
		Type:          txType,
		Quantity:      rm.pieces.Mul(sign),
		Pallets:       rm.pallets.Mul(sign).Mul(deltaSign(txType)),
		Cartons:       rm.cartons.Mul(sign).Mul(deltaSign(txType)),
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		return nil, err
	}
	return &MovementResult{Record: rec, Pieces: rm.pieces, Cartons: rm.cartons, Pallets: rm.pallets}, nil
}

// deltaSign gives the direction the denormalized counts move for a type.
func deltaSign(txType core.TransactionType) decimal.Decimal {
	if txType == core.TxOut {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

func (s *appService) ReceiveStock(ctx context.Context, req StockMovementRequest) (*MovementResult, error) {
	return s.move(ctx, req, core.TxIn)
}

func (s *appService) DeliverStock(ctx context.Context, req StockMovementRequest) (*MovementResult, error) {
	return s.move(ctx, req, core.TxOut)
}

func (s *appService) AdjustStock(ctx context.Context, req StockMovementRequest) (*MovementResult, error) {
	return s.move(ctx, req, core.TxAdjustment)
}

func (s *appService) TransferStock(ctx context.Context, req TransferRequest) (*core.TransferResult, error) {
	rm, err := s.resolveMovement(ctx, req.ProductCode, req.FromWarehouseCode, req.Quantity, req.Unit)
	if err != nil {
		return nil, err
	}
	to, err := s.ledger.GetWarehouseByCode(ctx, req.ToWarehouseCode)
	if err != nil {
		return nil, err
	}

	return s.ledger.Transfer(ctx, core.TransferInput{
		ProductID:       rm.product.ID,
		FromWarehouseID: rm.warehouse.ID,
		ToWarehouseID:   to.ID,
		Ownership:       req.Ownership,
		Quantity:        rm.pieces,
		Pallets:         rm.pallets,
		Cartons:         rm.cartons,
		CreatedBy:       req.CreatedBy,
	})
}

func (s *appService) ReserveStock(ctx context.Context, req ReservationRequest) (*core.InventoryRecord, error) {
	rm, err := s.resolveMovement(ctx, req.ProductCode, req.WarehouseCode, req.Quantity, req.Unit)
	if err != nil {
		return nil, err
	}
	return s.ledger.Reserve(ctx, rm.product.ID, rm.warehouse.ID, req.Ownership, rm.pieces)
}

func (s *appService) ReleaseStock(ctx context.Context, req ReservationRequest) (*core.InventoryRecord, error) {
	rm, err := s.resolveMovement(ctx, req.ProductCode, req.WarehouseCode, req.Quantity, req.Unit)
	if err != nil {
		return nil, err
	}
	return s.ledger.Release(ctx, rm.product.ID, rm.warehouse.ID, req.Ownership, rm.pieces)
}

// ── Reconciliation ────────────────────────────────────────────────────────────

func (s *appService) MergeProducts(ctx context.Context, req MergeRequest) (*core.MergeReport, error) {
	keep, err := s.products.GetByCode(ctx, req.KeepCode)
	if err != nil {
		return nil, err
	}
	drop, err := s.products.GetByCode(ctx, req.DropCode)
	if err != nil {
		return nil, err
	}

	report, err := s.ledger.Merge(ctx, keep.ID, drop.ID)
	if err != nil {
		return nil, err
	}

	// The merge changed product identity and bulk-moved inventory: rebuild
	// immediately rather than leaving the projection stale.
	if err := s.RebuildCatalog(ctx); err != nil {
		s.log.WithError(err).Warn("catalog rebuild after merge failed; projection is stale")
	}
	return report, nil
}

func (s *appService) CheckConsistency(ctx context.Context, productCode string) error {
	product, err := s.products.GetByCode(ctx, productCode)
	if err != nil {
		return err
	}
	return s.ledger.CheckConsistency(ctx, product.ID)
}

func (s *appService) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
