// Package handler exposes the inventory HTTP endpoints.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/medistock/medistock-backend/internal/inventory/service"
	"github.com/medistock/medistock-backend/pkg/actor"
	"github.com/medistock/medistock-backend/pkg/errors"
	"github.com/medistock/medistock-backend/pkg/httputil"
	"github.com/medistock/medistock-backend/pkg/logger"
)

// MedicineHandler handles medicine CRUD, listings, and quantity adjustments
type MedicineHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewMedicineHandler creates a new medicine handler
func NewMedicineHandler(svc *service.InventoryService, log *logger.Logger) *MedicineHandler {
	return &MedicineHandler{
		service: svc,
		logger:  log,
	}
}

// Create handles POST /medicines
func (h *MedicineHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateMedicineInput
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	medicine, err := h.service.CreateMedicine(r.Context(), req, actorID(r))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, medicine)
}

// List handles GET /medicines, FEFO-ordered
func (h *MedicineHandler) List(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.service.ListMedicines(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, medicines)
}

// Search handles GET /medicines/search?q=
func (h *MedicineHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		httputil.Error(w, errors.Validation(map[string]string{"q": "search text is required"}))
		return
	}

	medicines, err := h.service.SearchMedicines(r.Context(), q)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, medicines)
}

// LowStock handles GET /medicines/low-stock
func (h *MedicineHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.service.ListLowStock(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, medicines)
}

// NearExpiry handles GET /medicines/near-expiry?days=
func (h *MedicineHandler) NearExpiry(w http.ResponseWriter, r *http.Request) {
	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			httputil.Error(w, errors.Validation(map[string]string{"days": "must be a positive integer"}))
			return
		}
		days = parsed
	}

	medicines, err := h.service.ListNearExpiry(r.Context(), days)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, medicines)
}

// Expired handles GET /medicines/expired
func (h *MedicineHandler) Expired(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.service.ListExpired(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, medicines)
}

// Get handles GET /medicines/{id}
func (h *MedicineHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	medicine, err := h.service.GetMedicine(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, medicine)
}

// Update handles PUT /medicines/{id}
func (h *MedicineHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req service.UpdateMedicineInput
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	medicine, err := h.service.UpdateMedicine(r.Context(), id, req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, medicine)
}

// Delete handles DELETE /medicines/{id}
func (h *MedicineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteMedicine(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// AdjustRequest is the payload for a manual quantity adjustment
type AdjustRequest struct {
	Delta  int    `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}

// Adjust handles POST /medicines/{id}/adjust
func (h *MedicineHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req AdjustRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	medicine, err := h.service.AdjustQuantity(r.Context(), id, req.Delta, req.Reason, actorID(r))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, medicine)
}

// History handles GET /medicines/{id}/history
func (h *MedicineHandler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit := queryInt(r, "limit", 100)

	entries, err := h.service.GetHistory(r.Context(), id, limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, entries)
}

// RecentHistory handles GET /inventory/history
func (h *MedicineHandler) RecentHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)

	entries, err := h.service.GetRecentHistory(r.Context(), limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, entries)
}

// actorID returns the authenticated user's ID, or empty for system calls
func actorID(r *http.Request) string {
	if a := actor.FromContext(r.Context()); a != nil {
		return a.ID
	}
	return ""
}

// queryInt parses an integer query parameter with a fallback
func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
