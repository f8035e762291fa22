package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CatalogRow is one projected product with its aggregated inventory. Derived,
// never authoritative: Rebuild recomputes it wholesale from the live tables.
type CatalogRow struct {
	ProductID        int              `json:"product_id"`
	Code             string           `json:"code"`
	Name             string           `json:"name"`
	Famille          string           `json:"famille"`
	Choix            string           `json:"choix"`
	Calibre          string           `json:"calibre"`
	Size             string           `json:"size"`
	PrimaryUnit      Unit             `json:"primary_unit"`
	PiecesPerCarton  decimal.Decimal  `json:"pieces_per_carton"`
	CartonsPerPallet decimal.Decimal  `json:"cartons_per_pallet"`
	AreaPerPiece     *decimal.Decimal `json:"area_per_piece,omitempty"`
	TotalQty         decimal.Decimal  `json:"total_qty"`
	NbPalette        decimal.Decimal  `json:"nb_palette"`
	NbColis          decimal.Decimal  `json:"nb_colis"`
	RebuiltAt        time.Time        `json:"rebuilt_at"`
}

// CatalogQuery drives the paginated catalog read API. Sort must be one of
// the whitelisted projection columns; anything else falls back to code.
type CatalogQuery struct {
	Search  string
	Famille string
	Choix   string
	Calibre string
	Sort    string
	Order   string // "asc" or "desc"
	Page    int
	Limit   int
}

type CatalogPage struct {
	Items      []CatalogRow `json:"items"`
	TotalCount int64        `json:"total_count"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
}

// Catalog maintains and serves the denormalized catalog_products projection.
// Reads never touch the live ledger tables; the projection is eventually
// consistent, bounded by the time since the last Rebuild.
type Catalog struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

func NewCatalog(pool *pgxpool.Pool, log *logrus.Logger) *Catalog {
	return &Catalog{pool: pool, log: log}
}

// Rebuild recomputes the whole projection in one transaction: active products
// joined to the per-product sums of their inventory records, with lower-cased
// search columns materialized. Readers keep seeing the previous projection
// until the commit, never a partial one.
//
// Triggered explicitly after merges, bulk imports, and manual fixes, not on
// every ledger transaction.
func (c *Catalog) Rebuild(ctx context.Context) error {
	start := time.Now()

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM catalog_products"); err != nil {
		return fmt.Errorf("failed to clear projection: %w", err)
	}

	ct, err := tx.Exec(ctx, `
		INSERT INTO catalog_products (
			product_id, code, name, famille, choix, calibre, size, primary_unit,
			pieces_per_carton, cartons_per_pallet, area_per_piece,
			total_qty, nb_palette, nb_colis,
			search_code, search_name, rebuilt_at
		)
		SELECT p.id, p.code, p.name, p.famille, p.choix, p.calibre, p.size, p.primary_unit,
		       p.pieces_per_carton, p.cartons_per_pallet, p.area_per_piece,
		       COALESCE(s.total_qty, 0), COALESCE(s.nb_palette, 0), COALESCE(s.nb_colis, 0),
		       LOWER(p.code), LOWER(p.name), NOW()
		FROM products p
		LEFT JOIN (
		    SELECT product_id,
		           SUM(on_hand)      AS total_qty,
		           SUM(pallet_count) AS nb_palette,
		           SUM(carton_count) AS nb_colis
		    FROM inventory_records
		    GROUP BY product_id
		) s ON s.product_id = p.id
		WHERE p.is_active = true
	`)
	if err != nil {
		return fmt.Errorf("failed to rebuild projection: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit rebuild: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"rows":    ct.RowsAffected(),
		"elapsed": time.Since(start).String(),
	}).Info("catalog projection rebuilt")
	return nil
}

// catalogSortColumns whitelists the ORDER BY targets. Never interpolate the
// raw query parameter.
var catalogSortColumns = map[string]string{
	"code":       "code",
	"name":       "name",
	"famille":    "famille",
	"choix":      "choix",
	"calibre":    "calibre",
	"size":       "size",
	"total_qty":  "total_qty",
	"nb_palette": "nb_palette",
	"nb_colis":   "nb_colis",
}

// List serves one catalog page from the projection only.
func (c *Catalog) List(ctx context.Context, q CatalogQuery) (*CatalogPage, error) {
	page, limit := normalizePage(q.Page, q.Limit)

	sortCol, ok := catalogSortColumns[q.Sort]
	if !ok {
		sortCol = "code"
	}
	dir := "ASC"
	if strings.EqualFold(q.Order, "desc") {
		dir = "DESC"
	}

	query := `
		SELECT product_id, code, name, famille, choix, calibre, size, primary_unit,
		       pieces_per_carton, cartons_per_pallet, area_per_piece,
		       total_qty, nb_palette, nb_colis, rebuilt_at,
		       COUNT(*) OVER() AS total_count
		FROM catalog_products
		WHERE 1=1`

	var args []any
	if q.Search != "" {
		args = append(args, "%"+strings.ToLower(q.Search)+"%")
		query += fmt.Sprintf(" AND (search_code LIKE $%d OR search_name LIKE $%d)", len(args), len(args))
	}
	if q.Famille != "" {
		args = append(args, q.Famille)
		query += fmt.Sprintf(" AND famille = $%d", len(args))
	}
	if q.Choix != "" {
		args = append(args, q.Choix)
		query += fmt.Sprintf(" AND choix = $%d", len(args))
	}
	if q.Calibre != "" {
		args = append(args, q.Calibre)
		query += fmt.Sprintf(" AND calibre = $%d", len(args))
	}

	query += fmt.Sprintf(" ORDER BY %s %s, product_id ASC", sortCol, dir)
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, (page-1)*limit)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	result := &CatalogPage{Page: page, Limit: limit}
	for rows.Next() {
		var r CatalogRow
		if err := rows.Scan(&r.ProductID, &r.Code, &r.Name, &r.Famille, &r.Choix, &r.Calibre,
			&r.Size, &r.PrimaryUnit, &r.PiecesPerCarton, &r.CartonsPerPallet, &r.AreaPerPiece,
			&r.TotalQty, &r.NbPalette, &r.NbColis, &r.RebuiltAt, &result.TotalCount); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		result.Items = append(result.Items, r)
	}
	return result, rows.Err()
}
