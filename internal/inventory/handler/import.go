package handler

import (
	"net/http"

	"github.com/medistock/medistock-backend/internal/inventory/service"
	"github.com/medistock/medistock-backend/pkg/httputil"
	"github.com/medistock/medistock-backend/pkg/logger"
)

// ImportHandler handles bulk import endpoints
type ImportHandler struct {
	service *service.ImportService
	logger  *logger.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(svc *service.ImportService, log *logger.Logger) *ImportHandler {
	return &ImportHandler{
		service: svc,
		logger:  log,
	}
}

// ImportRequest carries parsed rows from the upload collaborator
type ImportRequest struct {
	FileName string              `json:"file_name"`
	Rows     []service.ImportRow `json:"rows" validate:"required,min=1,dive"`
}

// Import handles POST /inventory/import
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.Import(r.Context(), req.FileName, req.Rows, actorID(r))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// UploadLogs handles GET /inventory/uploads
func (h *ImportHandler) UploadLogs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)

	logs, err := h.service.ListUploadLogs(r.Context(), limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, logs)
}
