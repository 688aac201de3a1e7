package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

type ReceiptHandler struct {
	receiptService service.ReceiptService
	validate       *validator.Validate
}

func NewReceiptHandler(receiptService service.ReceiptService, v *validator.Validate) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService, validate: v}
}

func (h *ReceiptHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/receipts/upload-url", authMw(http.HandlerFunc(h.uploadURL)))
	mux.Handle("/receipts/extract", authMw(http.HandlerFunc(h.extract)))
}

// uploadURL godoc
// @Summary Get a presigned receipt upload URL
// @Tags receipts
// @Accept json
// @Produce json
// @Success 200 {object} dto.ReceiptUploadURLResponse
// @Router /receipts/upload-url [post]
func (h *ReceiptHandler) uploadURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.ReceiptUploadURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := h.receiptService.InitiateUpload(r.Context(), userID, req.ContentType)
	if err != nil {
		http.Error(w, "Failed to create upload URL: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ReceiptHandler) extract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.ReceiptExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	tx, err := h.receiptService.Extract(r.Context(), userID, req.StoragePath, req.Categories)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExtractionDisabled):
			http.Error(w, "receipt extraction is not available", http.StatusServiceUnavailable)
		case errors.Is(err, service.ErrReceiptForbidden):
			http.Error(w, err.Error(), http.StatusForbidden)
		default:
			http.Error(w, "Failed to extract receipt: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, tx)
}
