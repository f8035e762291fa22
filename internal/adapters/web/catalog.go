package web

import (
	"net/http"
	"time"

	"tilestock/internal/core"
)

// apiCatalog handles GET /api/catalog.
// Query: search, famille, choix, calibre, sort, order, page, limit.
func (h *Handler) apiCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.svc.Catalog(r.Context(), core.CatalogQuery{
		Search:  q.Get("search"),
		Famille: q.Get("famille"),
		Choix:   q.Get("choix"),
		Calibre: q.Get("calibre"),
		Sort:    q.Get("sort"),
		Order:   q.Get("order"),
		Page:    queryInt(r, "page"),
		Limit:   queryInt(r, "limit"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, page)
}

// apiListTransactions handles GET /api/transactions.
// Query: product, warehouse, type, ownership, created_by, from, to, page, limit.
// Dates are YYYY-MM-DD and inclusive on both ends.
func (h *Handler) apiListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	for _, name := range []string{"from", "to"} {
		if v := q.Get(name); v != "" {
			if _, err := time.Parse("2006-01-02", v); err != nil {
				writeError(w, r, "invalid "+name+" date (expected YYYY-MM-DD)", "BAD_REQUEST", http.StatusBadRequest)
				return
			}
		}
	}
	page, err := h.svc.Transactions(r.Context(), core.TransactionQuery{
		ProductCode:   q.Get("product"),
		WarehouseCode: q.Get("warehouse"),
		Type:          core.TransactionType(q.Get("type")),
		Ownership:     core.OwnershipType(q.Get("ownership")),
		CreatedBy:     q.Get("created_by"),
		From:          q.Get("from"),
		To:            q.Get("to"),
		Page:          queryInt(r, "page"),
		Limit:         queryInt(r, "limit"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, page)
}

// apiStockLevels handles GET /api/stock. Query: product (optional code filter).
func (h *Handler) apiStockLevels(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.StockLevels(r.Context(), r.URL.Query().Get("product"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiListWarehouses handles GET /api/warehouses.
func (h *Handler) apiListWarehouses(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Warehouses(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
