package dto

import "time"

type ExpenseCreateDTO struct {
	Description string `json:"description" validate:"required,max=300"`
	Category    string `json:"category" validate:"required,max=60"`
	Amount      string `json:"amount" validate:"required"`
	ReceiptPath string `json:"receipt_path" validate:"omitempty,max=500"`
	SpentAt     string `json:"spent_at" validate:"omitempty,datetime=2006-01-02"`
}

type ExpenseResponseDTO struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Amount      string    `json:"amount"`
	ReceiptPath string    `json:"receipt_path,omitempty"`
	SpentAt     string    `json:"spent_at"`
	CreatedAt   time.Time `json:"created_at"`
}

type LeaderboardEntryDTO struct {
	UserID string `json:"user_id"`
	Points int64  `json:"points"`
}
