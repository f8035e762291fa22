package web

import (
	"net/http"

	"tilestock/internal/core"
)

// apiGetProduct handles GET /api/products/{code}.
func (h *Handler) apiGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.svc.GetProduct(r.Context(), productCode(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, product)
}

// apiCreateProduct handles POST /api/products.
// Body: { code, name, famille?, choix?, calibre?, size?, pieces_per_carton?,
// cartons_per_pallet?, primary_unit? }
func (h *Handler) apiCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in core.ProductInput
	if !decodeJSON(w, r, &in) {
		return
	}

	product, err := h.svc.CreateProduct(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, product)
}

// apiUpdateProduct handles PUT /api/products/{code}.
func (h *Handler) apiUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var in core.ProductInput
	if !decodeJSON(w, r, &in) {
		return
	}

	product, err := h.svc.UpdateProduct(r.Context(), productCode(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, product)
}

// apiDeactivateProduct handles DELETE /api/products/{code}. The product is
// soft-deleted; its movement history stays queryable.
func (h *Handler) apiDeactivateProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeactivateProduct(r.Context(), productCode(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
