package handler

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/service"

	"github.com/rs/zerolog"
)

// WebhookHandler receives payment-provider callbacks. Authentication is a
// shared-secret token, not the user JWT: the provider is the caller here.
type WebhookHandler struct {
	svc    service.WebhookService
	token  string
	logger zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler. token is the pre-shared
// webhook secret resolved at startup.
func NewWebhookHandler(svc service.WebhookService, token string, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{svc: svc, token: token, logger: logger}
}

// RegisterRoutes registers the webhook endpoint. No auth middleware: the
// token check happens inside so the 403/405 contract stays exact.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/webhooks/payment", http.HandlerFunc(h.HandlePayment))
}

// HandlePayment godoc
// @Summary Payment provider webhook
// @Description Reconciles one provider notification into subscription state.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param token query string false "Shared-secret token (alternative to body field)"
// @Success 200 {object} dto.WebhookResponse
// @Failure 400 {object} dto.WebhookResponse "neither CPF nor email usable"
// @Failure 403 {string} string "forbidden"
// @Failure 405 {string} string "method not allowed"
// @Failure 500 {string} string "internal server error"
// @Router /webhooks/payment [post]
func (h *WebhookHandler) HandlePayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Every payload field is optional; an undecodable body is treated as an
	// empty one rather than rejected.
	var payload dto.PaymentWebhook
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Debug().Err(err).Msg("Undecodable webhook body, treating as empty payload")
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		token = payload.Token
	}
	// A missing and a wrong token get the same response so probing reveals
	// nothing. An unconfigured secret denies everything.
	if h.token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.token)) != 1 {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	result, err := h.svc.Process(r.Context(), &payload)
	if err != nil {
		if errors.Is(err, service.ErrMissingIdentity) {
			writeJSON(w, http.StatusBadRequest, dto.WebhookResponse{
				Result: "rejected",
				Reason: "neither cpf nor email provided",
			})
			return
		}
		h.logger.Error().Err(err).Msg("Webhook reconciliation failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	switch result.Outcome {
	case service.OutcomeIgnored:
		writeJSON(w, http.StatusOK, dto.WebhookResponse{Result: "ignored", Reason: "status not approved"})
	case service.OutcomePending:
		writeJSON(w, http.StatusOK, dto.WebhookResponse{
			Result:                "pending",
			Reason:                "no matching user, saved for later reconciliation",
			SubscriptionExpiresAt: result.NewExpiresAt.Format("2006-01-02"),
		})
	case service.OutcomeDuplicate:
		writeJSON(w, http.StatusOK, dto.WebhookResponse{Result: "already_processed"})
	default:
		writeJSON(w, http.StatusOK, dto.WebhookResponse{
			Result:                "ok",
			SubscriptionExpiresAt: result.NewExpiresAt.Format("2006-01-02"),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
