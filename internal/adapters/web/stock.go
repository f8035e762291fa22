package web

import (
	"context"
	"net/http"

	"tilestock/internal/app"
	"tilestock/internal/core"
)

// apiReceiveStock handles POST /api/stock/receive.
// Body: { product_code, warehouse_code, ownership, quantity, unit?,
// reference_type?, reference_id?, created_by? }
func (h *Handler) apiReceiveStock(w http.ResponseWriter, r *http.Request) {
	h.movement(w, r, h.svc.ReceiveStock)
}

// apiDeliverStock handles POST /api/stock/deliver. Same body as receive.
func (h *Handler) apiDeliverStock(w http.ResponseWriter, r *http.Request) {
	h.movement(w, r, h.svc.DeliverStock)
}

// apiAdjustStock handles POST /api/stock/adjust. Same body as receive, but
// quantity is signed.
func (h *Handler) apiAdjustStock(w http.ResponseWriter, r *http.Request) {
	h.movement(w, r, h.svc.AdjustStock)
}

func (h *Handler) movement(w http.ResponseWriter, r *http.Request,
	call func(ctx context.Context, req app.StockMovementRequest) (*app.MovementResult, error)) {

	var req app.StockMovementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductCode == "" || req.WarehouseCode == "" {
		writeError(w, r, "product_code and warehouse_code are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	result, err := call(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiTransferStock handles POST /api/stock/transfer.
// Body: { product_code, from_warehouse_code, to_warehouse_code, ownership,
// quantity, unit?, created_by? }
func (h *Handler) apiTransferStock(w http.ResponseWriter, r *http.Request) {
	var req app.TransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductCode == "" || req.FromWarehouseCode == "" || req.ToWarehouseCode == "" {
		writeError(w, r, "product_code, from_warehouse_code and to_warehouse_code are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	result, err := h.svc.TransferStock(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiReserveStock handles POST /api/stock/reserve.
// Body: { product_code, warehouse_code, ownership, quantity, unit? }
func (h *Handler) apiReserveStock(w http.ResponseWriter, r *http.Request) {
	h.reservation(w, r, h.svc.ReserveStock)
}

// apiReleaseStock handles POST /api/stock/release. Same body as reserve.
func (h *Handler) apiReleaseStock(w http.ResponseWriter, r *http.Request) {
	h.reservation(w, r, h.svc.ReleaseStock)
}

func (h *Handler) reservation(w http.ResponseWriter, r *http.Request,
	call func(ctx context.Context, req app.ReservationRequest) (*core.InventoryRecord, error)) {

	var req app.ReservationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductCode == "" || req.WarehouseCode == "" {
		writeError(w, r, "product_code and warehouse_code are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	rec, err := call(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, rec)
}
