package handler

import (
	"encoding/json"
	"net/http"

	"github.com/buzz-lite/delivery-coordinator/internal/model"
	"github.com/buzz-lite/delivery-coordinator/internal/service"
	"github.com/buzz-lite/delivery-coordinator/pkg/logger"
)

// WebhookHandler receives provider notifications.
type WebhookHandler struct {
	webhookService *service.WebhookService
	logger         *logger.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(svc *service.WebhookService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{webhookService: svc, logger: log}
}

// Receive handles POST /webhook. The response is always HTTP 200 with a
// stable status tag; anything else would trigger provider retry storms.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var payload model.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusOK, model.WebhookResponse{Status: model.WebhookIgnored})
		return
	}

	status := h.webhookService.HandleInbound(r.Context(), &payload)
	writeJSON(w, http.StatusOK, model.WebhookResponse{Status: status})
}
