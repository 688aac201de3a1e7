package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

type UserHandler struct {
	userService service.UserService
	validate    *validator.Validate
}

func NewUserHandler(userService service.UserService, v *validator.Validate) *UserHandler {
	return &UserHandler{userService: userService, validate: v}
}

// RegisterRoutes mounts v1 user routes
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/users/me", authMw(http.HandlerFunc(h.handleUsers)))
	mux.Handle("/users/me/payments", authMw(http.HandlerFunc(h.getPayments)))
}

func (h *UserHandler) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/users/me":
		h.createUser(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/users/me":
		h.getUser(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *UserHandler) createUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.UserCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	userModel := &model.User{
		ID:    userID,
		Name:  req.Name,
		Email: req.Email,
	}
	createdUser, err := h.userService.Create(r.Context(), userModel, req.CPF)
	if err != nil {
		http.Error(w, "Failed to create user: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := dto.UserResponseDTO{
		UserID:                createdUser.ID,
		Name:                  createdUser.Name,
		Email:                 createdUser.Email,
		Role:                  createdUser.Role,
		Status:                createdUser.Status,
		SubscriptionExpiresAt: createdUser.SubscriptionExpiresAt,
		CreatedAt:             createdUser.CreatedAt,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok {
		http.Error(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}

	user, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	resp := dto.UserResponseDTO{
		UserID:                user.ID,
		Name:                  user.Name,
		Email:                 user.Email,
		Role:                  user.Role,
		Status:                user.Status,
		SubscriptionExpiresAt: user.SubscriptionExpiresAt,
		CreatedAt:             user.CreatedAt,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *UserHandler) getPayments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	limit, offset := parsePagination(r, 10)

	payments, err := h.userService.GetPayments(r.Context(), userID, limit, offset)
	if err != nil {
		http.Error(w, "Failed to retrieve payments: "+err.Error(), http.StatusInternalServerError)
		return
	}

	var paymentDTOs []dto.UserPaymentResponseDTO
	for _, p := range payments {
		paymentDTOs = append(paymentDTOs, dto.UserPaymentResponseDTO{
			Date:          p.Date,
			Provider:      p.Provider,
			Amount:        p.Amount.String(),
			TransactionID: p.TransactionID,
			Product:       p.Product,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(paymentDTOs)
}

func parsePagination(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}
	return limit, offset
}
