package web

import (
	"errors"
	"net/http"

	"tilestock/internal/app"
	"tilestock/internal/core"
)

// apiMergeProducts handles POST /api/admin/merge.
// Body: { keep_code, drop_code }. The merge is irreversible; the response
// includes the pre-merge record snapshots for audit.
func (h *Handler) apiMergeProducts(w http.ResponseWriter, r *http.Request) {
	var req app.MergeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.KeepCode == "" || req.DropCode == "" {
		writeError(w, r, "keep_code and drop_code are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if req.KeepCode == req.DropCode {
		writeError(w, r, "keep_code and drop_code must differ", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	report, err := h.svc.MergeProducts(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, report)
}

// apiRebuildCatalog handles POST /api/admin/rebuild.
func (h *Handler) apiRebuildCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RebuildCatalog(r.Context()); err != nil {
		writeServiceError(w, r, err)
		return
	}

	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "rebuilt"})
}

// apiCheckConsistency handles GET /api/admin/consistency/{code}. Returns 200
// when the transaction log and the rolled-up records agree, 409 when they do
// not.
func (h *Handler) apiCheckConsistency(w http.ResponseWriter, r *http.Request) {
	err := h.svc.CheckConsistency(r.Context(), productCode(r))
	if err != nil && !errors.Is(err, core.ErrConsistencyViolation) {
		writeServiceError(w, r, err)
		return
	}

	type response struct {
		Product    string `json:"product"`
		Consistent bool   `json:"consistent"`
		Detail     string `json:"detail,omitempty"`
	}
	resp := response{Product: productCode(r), Consistent: err == nil}
	if err != nil {
		resp.Detail = err.Error()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
	}
	writeJSON(w, resp)
}
