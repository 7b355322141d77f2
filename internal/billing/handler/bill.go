// Package handler exposes the billing HTTP endpoints.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/medistock/medistock-backend/internal/billing/service"
	"github.com/medistock/medistock-backend/pkg/actor"
	"github.com/medistock/medistock-backend/pkg/errors"
	"github.com/medistock/medistock-backend/pkg/httputil"
	"github.com/medistock/medistock-backend/pkg/logger"
)

// BillHandler handles bill endpoints
type BillHandler struct {
	service *service.BillingService
	logger  *logger.Logger
}

// NewBillHandler creates a new bill handler
func NewBillHandler(svc *service.BillingService, log *logger.Logger) *BillHandler {
	return &BillHandler{
		service: svc,
		logger:  log,
	}
}

// Create handles POST /bills
func (h *BillHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateBillInput
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	bill, err := h.service.CreateBill(r.Context(), req, actorID(r))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, bill)
}

// Get handles GET /bills/{id}
func (h *BillHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	bill, err := h.service.GetBill(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, bill)
}

// List handles GET /bills with optional from/to range
func (h *BillHandler) List(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if !from.IsZero() {
		bills, err := h.service.ListBillsByDateRange(r.Context(), from, to)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, bills)
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	bills, err := h.service.ListBills(r.Context(), limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, bills)
}

// ConfirmPaymentRequest optionally supplies an external transaction reference
type ConfirmPaymentRequest struct {
	TransactionID string `json:"transaction_id"`
}

// ConfirmPayment handles POST /bills/{id}/confirm-payment
func (h *BillHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ConfirmPaymentRequest
	if r.ContentLength > 0 {
		if err := httputil.Decode(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
	}

	bill, transactionID, err := h.service.ConfirmPayment(r.Context(), id, req.TransactionID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"bill":           bill,
		"transaction_id": transactionID,
	})
}

// SalesSummary handles GET /bills/summary?period=
func (h *BillHandler) SalesSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetSalesSummary(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, summary)
}

// SalesReport handles GET /bills/report?from=&to=
func (h *BillHandler) SalesReport(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if from.IsZero() {
		httputil.Error(w, errors.Validation(map[string]string{"from": "from and to are required"}))
		return
	}

	report, err := h.service.GetSalesReport(r.Context(), from, to)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, report)
}

// parseDateRange reads optional from/to query parameters as RFC 3339 or
// plain dates. Both must be present or both absent.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if fromStr == "" && toStr == "" {
		return time.Time{}, time.Time{}, nil
	}
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, errors.Validation(map[string]string{
			"from": "from and to must both be provided",
		})
	}

	from, err := parseDate(fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Validation(map[string]string{"from": "invalid date"})
	}
	to, err := parseDate(toStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Validation(map[string]string{"to": "invalid date"})
	}
	return from, to, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// actorID returns the authenticated user's ID, or empty for system calls
func actorID(r *http.Request) string {
	if a := actor.FromContext(r.Context()); a != nil {
		return a.ID
	}
	return ""
}
