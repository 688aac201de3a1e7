package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type ExpenseHandler struct {
	expenseService service.ExpenseService
	validate       *validator.Validate
}

func NewExpenseHandler(expenseService service.ExpenseService, v *validator.Validate) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService, validate: v}
}

func (h *ExpenseHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/expenses", authMw(http.HandlerFunc(h.handleCollection)))
	mux.Handle("/expenses/", authMw(http.HandlerFunc(h.handleItem)))
}

func (h *ExpenseHandler) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createExpense(w, r)
	case http.MethodGet:
		h.listExpenses(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ExpenseHandler) handleItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/expenses/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodPut:
		h.updateExpense(w, r, id)
	case http.MethodDelete:
		h.deleteExpense(w, r, id)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ExpenseHandler) createExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	req, ok := h.decodeExpense(w, r)
	if !ok {
		return
	}

	expense, err := h.expenseToModel(userID, req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	created, err := h.expenseService.Create(r.Context(), expense)
	if err != nil {
		http.Error(w, "Failed to create expense: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, expenseToDTO(created))
}

func (h *ExpenseHandler) listExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	limit, offset := parsePagination(r, 20)

	expenses, err := h.expenseService.List(r.Context(), userID, limit, offset)
	if err != nil {
		http.Error(w, "Failed to list expenses: "+err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]dto.ExpenseResponseDTO, 0, len(expenses))
	for i := range expenses {
		dtos = append(dtos, expenseToDTO(&expenses[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *ExpenseHandler) updateExpense(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	req, ok := h.decodeExpense(w, r)
	if !ok {
		return
	}

	expense, err := h.expenseToModel(userID, req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	expense.ID = id

	updated, err := h.expenseService.Update(r.Context(), userID, expense)
	if err != nil {
		if errors.Is(err, service.ErrExpenseNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to update expense: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, expenseToDTO(updated))
}

func (h *ExpenseHandler) deleteExpense(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	if err := h.expenseService.Delete(r.Context(), userID, id); err != nil {
		if errors.Is(err, service.ErrExpenseNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to delete expense: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ExpenseHandler) decodeExpense(w http.ResponseWriter, r *http.Request) (*dto.ExpenseCreateDTO, bool) {
	var req dto.ExpenseCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

func (h *ExpenseHandler) expenseToModel(userID string, req *dto.ExpenseCreateDTO) (*model.Expense, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, errors.New("invalid amount: " + req.Amount)
	}
	spentAt := time.Now().UTC()
	if req.SpentAt != "" {
		spentAt, err = time.Parse("2006-01-02", req.SpentAt)
		if err != nil {
			return nil, errors.New("invalid spent_at, expected YYYY-MM-DD")
		}
	}
	expense := &model.Expense{
		UserID:      userID,
		Description: req.Description,
		Category:    req.Category,
		Amount:      amount,
		SpentAt:     spentAt,
	}
	if req.ReceiptPath != "" {
		expense.ReceiptPath = &req.ReceiptPath
	}
	return expense, nil
}

func expenseToDTO(e *model.Expense) dto.ExpenseResponseDTO {
	resp := dto.ExpenseResponseDTO{
		ID:          e.ID,
		Description: e.Description,
		Category:    e.Category,
		Amount:      e.Amount.String(),
		SpentAt:     e.SpentAt.Format("2006-01-02"),
		CreatedAt:   e.CreatedAt,
	}
	if e.ReceiptPath != nil {
		resp.ReceiptPath = *e.ReceiptPath
	}
	return resp
}
