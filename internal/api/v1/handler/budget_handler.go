package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type BudgetHandler struct {
	budgetService service.BudgetService
	validate      *validator.Validate
}

func NewBudgetHandler(budgetService service.BudgetService, v *validator.Validate) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService, validate: v}
}

func (h *BudgetHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/budgets", authMw(http.HandlerFunc(h.handleBudgets)))
}

func (h *BudgetHandler) handleBudgets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	// Budgets are keyed by (category, month), so create and update are the
	// same upsert; both verbs are accepted.
	case http.MethodPost, http.MethodPut:
		h.upsertBudget(w, r)
	case http.MethodGet:
		h.listBudgets(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *BudgetHandler) upsertBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.BudgetUpsertDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := decimal.NewFromString(req.Limit)
	if err != nil || limit.IsNegative() {
		http.Error(w, "invalid limit: "+req.Limit, http.StatusBadRequest)
		return
	}

	budget := &model.Budget{
		UserID:   userID,
		Category: req.Category,
		Month:    req.Month,
		Limit:    limit,
	}
	saved, err := h.budgetService.Upsert(r.Context(), budget)
	if err != nil {
		http.Error(w, "Failed to save budget: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, budgetToDTO(saved))
}

func (h *BudgetHandler) listBudgets(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	budgets, err := h.budgetService.List(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to list budgets: "+err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]dto.BudgetResponseDTO, 0, len(budgets))
	for i := range budgets {
		dtos = append(dtos, budgetToDTO(&budgets[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func budgetToDTO(b *model.Budget) dto.BudgetResponseDTO {
	return dto.BudgetResponseDTO{
		ID:       b.ID,
		Category: b.Category,
		Month:    b.Month,
		Limit:    b.Limit.String(),
		Spent:    b.Spent.String(),
	}
}
