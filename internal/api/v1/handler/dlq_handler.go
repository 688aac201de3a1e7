package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/service"

	"github.com/rs/zerolog"
)

// DLQHandler receives Pub/Sub push deliveries from the payment events
// dead-letter subscription and persists them for manual inspection.
type DLQHandler struct {
	dlqService service.DLQService
	logger     zerolog.Logger
}

func NewDLQHandler(dlqService service.DLQService, logger zerolog.Logger) *DLQHandler {
	return &DLQHandler{dlqService: dlqService, logger: logger}
}

func (h *DLQHandler) RegisterRoutes(mux *http.ServeMux, pushAuthMw func(http.Handler) http.Handler) {
	mux.Handle("/dlq", pushAuthMw(http.HandlerFunc(h.handlePush)))
}

func (h *DLQHandler) handlePush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var req dto.PubSubPushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error().Err(err).Msg("Failed to decode Pub/Sub push request")
		// Acknowledge anyway; a malformed push would redeliver forever.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.dlqService.ProcessAndSave(r.Context(), &req); err != nil {
		h.logger.Error().Err(err).Str("message_id", req.Message.MessageID).Msg("Failed to persist dead-letter message")
	}

	// Always ack. The row either landed or the failure is already logged;
	// letting Pub/Sub retry a poison message gains nothing.
	w.WriteHeader(http.StatusNoContent)
}
