package dto

type BudgetUpsertDTO struct {
	Category string `json:"category" validate:"required,max=60"`
	Month    string `json:"month" validate:"required,datetime=2006-01"`
	Limit    string `json:"limit" validate:"required"`
}

type BudgetResponseDTO struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Month    string `json:"month"`
	Limit    string `json:"limit"`
	Spent    string `json:"spent"`
}
