package dto

import "time"

type UserCreateDTO struct {
	Name  string `json:"name" validate:"required,min=1,max=120"`
	Email string `json:"email" validate:"required,email"`
	CPF   string `json:"cpf" validate:"omitempty,min=11,max=14"`
}

type UserResponseDTO struct {
	UserID                string     `json:"user_id"`
	Name                  string     `json:"name"`
	Email                 string     `json:"email"`
	Role                  string     `json:"role"`
	Status                string     `json:"status"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

type UserPaymentResponseDTO struct {
	Date          time.Time `json:"date"`
	Provider      string    `json:"provider"`
	Amount        string    `json:"amount"`
	TransactionID string    `json:"transaction_id"`
	Product       string    `json:"product"`
}
