package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionQuery filters the append-only movement log. Zero values mean
// "no filter". From and To are inclusive YYYY-MM-DD bounds on created_at.
type TransactionQuery struct {
	ProductCode   string
	WarehouseCode string
	Type          TransactionType
	Ownership     OwnershipType
	CreatedBy     string
	From          string
	To            string
	Page          int
	Limit         int
}

// TransactionRow is a log entry joined with product and warehouse identity
// for display.
type TransactionRow struct {
	InventoryTransaction
	ProductCode   string `json:"product_code"`
	WarehouseCode string `json:"warehouse_code"`
}

// TransactionPage is one page of the log plus the total match count for
// pagination metadata.
type TransactionPage struct {
	Items      []TransactionRow `json:"items"`
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
}

// TransactionLog is the read side of the movement log. The log grows without
// bound, so every query is paginated and served off indexed columns.
type TransactionLog struct {
	pool *pgxpool.Pool
}

func NewTransactionLog(pool *pgxpool.Pool) *TransactionLog {
	return &TransactionLog{pool: pool}
}

const defaultPageLimit = 50
const maxPageLimit = 200

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

// List returns movements newest first. The total count rides along via a
// window function so pagination needs no second query.
func (t *TransactionLog) List(ctx context.Context, q TransactionQuery) (*TransactionPage, error) {
	page, limit := normalizePage(q.Page, q.Limit)

	query := `
		SELECT it.id, it.product_id, it.warehouse_id, it.type, it.ownership, it.quantity,
		       it.reference_type, it.reference_id, it.created_by, it.created_at,
		       p.code, w.code,
		       COUNT(*) OVER() AS total_count
		FROM inventory_transactions it
		JOIN products p   ON p.id = it.product_id
		JOIN warehouses w ON w.id = it.warehouse_id
		WHERE 1=1`

	var args []any
	if q.ProductCode != "" {
		args = append(args, q.ProductCode)
		query += fmt.Sprintf(" AND p.code = $%d", len(args))
	}
	if q.WarehouseCode != "" {
		args = append(args, q.WarehouseCode)
		query += fmt.Sprintf(" AND w.code = $%d", len(args))
	}
	if q.Type != "" {
		args = append(args, q.Type)
		query += fmt.Sprintf(" AND it.type = $%d", len(args))
	}
	if q.Ownership != "" {
		args = append(args, q.Ownership)
		query += fmt.Sprintf(" AND it.ownership = $%d", len(args))
	}
	if q.CreatedBy != "" {
		args = append(args, q.CreatedBy)
		query += fmt.Sprintf(" AND it.created_by = $%d", len(args))
	}
	if q.From != "" {
		args = append(args, q.From)
		query += fmt.Sprintf(" AND it.created_at >= $%d::date", len(args))
	}
	if q.To != "" {
		args = append(args, q.To)
		query += fmt.Sprintf(" AND it.created_at < $%d::date + INTERVAL '1 day'", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY it.created_at DESC, it.id DESC LIMIT $%d", len(args))
	args = append(args, (page-1)*limit)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := t.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	result := &TransactionPage{Page: page, Limit: limit}
	for rows.Next() {
		var r TransactionRow
		if err := rows.Scan(&r.ID, &r.ProductID, &r.WarehouseID, &r.Type, &r.Ownership, &r.Quantity,
			&r.ReferenceType, &r.ReferenceID, &r.CreatedBy, &r.CreatedAt,
			&r.ProductCode, &r.WarehouseCode, &result.TotalCount); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		result.Items = append(result.Items, r)
	}
	return result, rows.Err()
}
