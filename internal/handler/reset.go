package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/buzz-lite/delivery-coordinator/internal/middleware"
	"github.com/buzz-lite/delivery-coordinator/internal/service"
	"github.com/buzz-lite/delivery-coordinator/internal/store"
	"github.com/buzz-lite/delivery-coordinator/pkg/logger"
)

// ResetHandler handles conversation resets, the only sanctioned override of
// a completed disposition.
type ResetHandler struct {
	webhookService *service.WebhookService
	logger         *logger.Logger
}

// NewResetHandler creates a new reset handler.
func NewResetHandler(svc *service.WebhookService, log *logger.Logger) *ResetHandler {
	return &ResetHandler{webhookService: svc, logger: log}
}

// Reset handles POST /api/v1/conversations/{phone}/reset
func (h *ResetHandler) Reset(w http.ResponseWriter, r *http.Request) {
	rawPhone := chi.URLParam(r, "phone")
	if err := middleware.ValidatePhone(rawPhone); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.webhookService.Reset(r.Context(), rawPhone); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "delivery not found")
			return
		}
		h.logger.Error("failed to reset conversation")
		writeError(w, http.StatusInternalServerError, "failed to reset conversation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
