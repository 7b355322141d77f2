package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/medistock/medistock-backend/internal/inventory/service"
	"github.com/medistock/medistock-backend/pkg/httputil"
	"github.com/medistock/medistock-backend/pkg/logger"
)

// ReportHandler handles reporting endpoints
type ReportHandler struct {
	service *service.ReportService
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc *service.ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		service: svc,
		logger:  log,
	}
}

// Inventory handles GET /reports/inventory
func (h *ReportHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.GetInventoryReport(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, report)
}

// Movement handles GET /reports/movement
func (h *ReportHandler) Movement(w http.ResponseWriter, r *http.Request) {
	movements, err := h.service.GetStockMovement(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, movements)
}

// Forecast handles GET /reports/forecast/{medicineId}
func (h *ReportHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	medicineID := chi.URLParam(r, "medicineId")

	forecast, err := h.service.GetDemandForecast(r.Context(), medicineID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, forecast)
}

// Recommendations handles GET /reports/recommendations
func (h *ReportHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.GetReorderRecommendations(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, recs)
}

// Dashboard handles GET /reports/dashboard
func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.service.GetDashboard(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, dashboard)
}
