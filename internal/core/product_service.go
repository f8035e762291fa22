package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ProductInput carries the caller-editable product fields. The line item
// kind and the derived area per piece are computed here at ingestion, never
// re-parsed downstream.
type ProductInput struct {
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	Famille          string          `json:"famille"`
	Choix            string          `json:"choix"`
	Calibre          string          `json:"calibre"`
	Size             string          `json:"size"`
	PiecesPerCarton  decimal.Decimal `json:"pieces_per_carton"`
	CartonsPerPallet decimal.Decimal `json:"cartons_per_pallet"`
	PrimaryUnit      Unit            `json:"primary_unit"`
}

func (in *ProductInput) validate() error {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	if in.Code == "" {
		return errors.New("product code is required")
	}
	if in.Name == "" {
		return errors.New("product name is required")
	}
	if in.PiecesPerCarton.IsNegative() || in.CartonsPerPallet.IsNegative() {
		return fmt.Errorf("packaging ratios cannot be negative: %w", ErrInvalidQuantity)
	}
	if in.PrimaryUnit == "" {
		in.PrimaryUnit = UnitPiece
	}
	if !ValidUnit(in.PrimaryUnit) {
		return fmt.Errorf("primary unit %q is not valid", in.PrimaryUnit)
	}
	return nil
}

// ProductService manages the catalog master data. Products are never hard
// deleted; Deactivate keeps the row so the transaction history stays
// referentially intact. Identity changes are a documented trigger for a
// catalog rebuild.
type ProductService interface {
	Create(ctx context.Context, in ProductInput) (*Product, error)
	Update(ctx context.Context, code string, in ProductInput) (*Product, error)
	Deactivate(ctx context.Context, code string) error
	GetByCode(ctx context.Context, code string) (*Product, error)
}

type productService struct {
	pool *pgxpool.Pool
}

func NewProductService(pool *pgxpool.Pool) ProductService {
	return &productService{pool: pool}
}

const productColumns = `id, code, name, famille, choix, calibre, size,
	pieces_per_carton, cartons_per_pallet, primary_unit, kind, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Famille, &p.Choix, &p.Calibre, &p.Size,
		&p.PiecesPerCarton, &p.CartonsPerPallet, &p.PrimaryUnit, &p.Kind, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// derivedArea returns the stored area per piece, or nil when the size token
// is not parseable (service lines, reference sheets, odd formats).
func derivedArea(in ProductInput, kind LineItemKind) *decimal.Decimal {
	if kind != KindPhysicalGood {
		return nil
	}
	area, ok := ParseArea(in.Size)
	if !ok {
		return nil
	}
	return &area
}

func (s *productService) Create(ctx context.Context, in ProductInput) (*Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	kind := ClassifyLineItem(in.Code, in.Name)

	p, err := scanProduct(s.pool.QueryRow(ctx, `
		INSERT INTO products (code, name, famille, choix, calibre, size,
			pieces_per_carton, cartons_per_pallet, primary_unit, kind, area_per_piece, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, true)
		RETURNING `+productColumns,
		in.Code, in.Name, in.Famille, in.Choix, in.Calibre, in.Size,
		in.PiecesPerCarton, in.CartonsPerPallet, in.PrimaryUnit, kind, derivedArea(in, kind)))
	if err != nil {
		return nil, fmt.Errorf("failed to create product %s: %w", in.Code, err)
	}
	return p, nil
}

func (s *productService) Update(ctx context.Context, code string, in ProductInput) (*Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	kind := ClassifyLineItem(in.Code, in.Name)

	p, err := scanProduct(s.pool.QueryRow(ctx, `
		UPDATE products
		SET code = $1, name = $2, famille = $3, choix = $4, calibre = $5, size = $6,
		    pieces_per_carton = $7, cartons_per_pallet = $8, primary_unit = $9,
		    kind = $10, area_per_piece = $11, updated_at = NOW()
		WHERE code = $12
		RETURNING `+productColumns,
		in.Code, in.Name, in.Famille, in.Choix, in.Calibre, in.Size,
		in.PiecesPerCarton, in.CartonsPerPallet, in.PrimaryUnit, kind, derivedArea(in, kind), code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update product %s: %w", code, err)
	}
	return p, nil
}

func (s *productService) Deactivate(ctx context.Context, code string) error {
	ct, err := s.pool.Exec(ctx,
		"UPDATE products SET is_active = false, updated_at = NOW() WHERE code = $1", code)
	if err != nil {
		return fmt.Errorf("failed to deactivate product %s: %w", code, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", code, ErrNotFound)
	}
	return nil
}

func (s *productService) GetByCode(ctx context.Context, code string) (*Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE code = $1", code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch product %s: %w", code, err)
	}
	return p, nil
}
