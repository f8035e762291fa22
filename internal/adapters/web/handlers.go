package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"tilestock/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	router chi.Router
	log    *logrus.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string, log *logrus.Logger) http.Handler {
	h := &Handler{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(allowedOrigins))

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// 1 MB body limit on everything else to prevent unbounded request abuse.
	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// ── Catalog and log reads ─────────────────────────────────────────────
		r.Get("/api/catalog", h.apiCatalog)
		r.Get("/api/transactions", h.apiListTransactions)
		r.Get("/api/stock", h.apiStockLevels)
		r.Get("/api/warehouses", h.apiListWarehouses)

		// ── Product master ────────────────────────────────────────────────────
		r.Get("/api/products/{code}", h.apiGetProduct)
		r.Post("/api/products", h.apiCreateProduct)
		r.Put("/api/products/{code}", h.apiUpdateProduct)
		r.Delete("/api/products/{code}", h.apiDeactivateProduct)

		// ── Stock movements ───────────────────────────────────────────────────
		r.Post("/api/stock/receive", h.apiReceiveStock)
		r.Post("/api/stock/deliver", h.apiDeliverStock)
		r.Post("/api/stock/adjust", h.apiAdjustStock)
		r.Post("/api/stock/transfer", h.apiTransferStock)
		r.Post("/api/stock/reserve", h.apiReserveStock)
		r.Post("/api/stock/release", h.apiReleaseStock)

		// ── Admin / reconciliation ────────────────────────────────────────────
		r.Post("/api/admin/merge", h.apiMergeProducts)
		r.Post("/api/admin/rebuild", h.apiRebuildCatalog)
		r.Get("/api/admin/consistency/{code}", h.apiCheckConsistency)
	})

	h.router = r
	return r
}

// health reports service and storage status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status  string `json:"status"`
		Storage string `json:"storage"`
	}

	storage := "ok"
	if err := h.svc.Ping(r.Context()); err != nil {
		storage = "unavailable"
	}
	writeJSON(w, response{Status: "ok", Storage: storage})
}

// productCode extracts the {code} URL parameter.
func productCode(r *http.Request) string {
	return chi.URLParam(r, "code")
}

// queryInt parses an integer query parameter, returning 0 when absent or
// malformed so the services apply their defaults.
func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
