package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/buzz-lite/delivery-coordinator/internal/middleware"
	"github.com/buzz-lite/delivery-coordinator/internal/model"
	"github.com/buzz-lite/delivery-coordinator/internal/service"
	"github.com/buzz-lite/delivery-coordinator/internal/store"
	"github.com/buzz-lite/delivery-coordinator/pkg/logger"
)

// BatchHandler handles the operator batch endpoints.
type BatchHandler struct {
	batchService *service.BatchService
	logger       *logger.Logger
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(svc *service.BatchService, log *logger.Logger) *BatchHandler {
	return &BatchHandler{batchService: svc, logger: log}
}

// Create handles POST /api/v1/batches
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidatePhone(req.DispatcherPhone); err != nil {
		writeError(w, http.StatusBadRequest, "dispatcher_phone: "+err.Error())
		return
	}
	for i, d := range req.Deliveries {
		if err := middleware.ValidatePhone(d.RecipientPhone); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("deliveries[%d].recipient_phone: %s", i, err))
			return
		}
	}

	resp, err := h.batchService.CreateBatch(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrEmptyBatch) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create batch")
		writeError(w, http.StatusInternalServerError, "failed to create batch")
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /api/v1/batches?dispatcher=<phone>
func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	dispatcher := r.URL.Query().Get("dispatcher")
	if err := middleware.ValidatePhone(dispatcher); err != nil {
		writeError(w, http.StatusBadRequest, "dispatcher: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.batchService.ListByDispatcher(dispatcher))
}

// Export handles GET /api/v1/batches/{id}/export
func (h *BatchHandler) Export(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "id")
	if batchID == "" {
		writeError(w, http.StatusBadRequest, "batch ID is required")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", batchID+".csv"))
	if err := h.batchService.ExportCSV(w, batchID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			w.Header().Del("Content-Disposition")
			w.Header().Set("Content-Type", "application/json")
			writeError(w, http.StatusNotFound, "batch not found")
			return
		}
		h.logger.Error("failed to export batch")
	}
}
