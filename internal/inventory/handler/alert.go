package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/medistock/medistock-backend/internal/inventory/service"
	"github.com/medistock/medistock-backend/pkg/errors"
	"github.com/medistock/medistock-backend/pkg/httputil"
	"github.com/medistock/medistock-backend/pkg/logger"
)

// AlertHandler handles alert endpoints
type AlertHandler struct {
	service *service.AlertService
	logger  *logger.Logger
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(svc *service.AlertService, log *logger.Logger) *AlertHandler {
	return &AlertHandler{
		service: svc,
		logger:  log,
	}
}

// Generate handles POST /alerts/generate, running one sweep
func (h *AlertHandler) Generate(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.service.GenerateAlerts(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, alerts)
}

// List handles GET /alerts?resolved=
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	var resolved *bool
	if v := r.URL.Query().Get("resolved"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			httputil.Error(w, errors.Validation(map[string]string{"resolved": "must be true or false"}))
			return
		}
		resolved = &parsed
	}

	alerts, err := h.service.ListAlerts(r.Context(), resolved)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, alerts)
}

// Critical handles GET /alerts/critical
func (h *AlertHandler) Critical(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.service.ListCriticalAlerts(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, alerts)
}

// Resolve handles PATCH /alerts/{id}/resolve
func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	alert, err := h.service.ResolveAlert(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, alert)
}
