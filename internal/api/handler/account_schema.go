package handler

import (
	"time"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

type createAccountRequest struct {
	Email     string `json:"email"      validate:"required,email,max=254"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name"  validate:"required,max=100"`
	Role      string `json:"role"       validate:"required,oneof=admin standard"`
	IsActive  bool   `json:"is_active"`
}

type updateAccountRequest struct {
	Email     string `json:"email"      validate:"required,email,max=254"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name"  validate:"required,max=100"`
	IsActive  bool   `json:"is_active"`
}

type setPasswordRequest struct {
	Password         string `json:"password"          validate:"required,max=72"`
	SkipNotification bool   `json:"skip_notification"`
}

type activateRequest struct {
	Token    string `json:"token"    validate:"required"`
	Password string `json:"password" validate:"required,max=72"`
}

// --- Response types ---

type accountResponse struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"is_active"`
	IsActivated bool      `json:"is_activated"`
	CreatedAt   time.Time `json:"created_at"`
}

// createAccountResponse carries a warning when the account was persisted but
// its activation notification was not delivered.
type createAccountResponse struct {
	accountResponse
	NotificationError string `json:"notification_error,omitempty"`
}

type paginationResponse struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

type listAccountsResponse struct {
	Data       []accountResponse  `json:"data"`
	Pagination paginationResponse `json:"pagination"`
}

type countResponse struct {
	Count int64 `json:"count"`
}

// --- Mapping ---

func toAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:          a.ID,
		Email:       a.Email,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Role:        string(a.Role),
		IsActive:    a.IsActive,
		IsActivated: a.IsActivated,
		CreatedAt:   a.CreatedAt.UTC(),
	}
}

func toListResponse(p *ports.AccountPage) listAccountsResponse {
	items := make([]accountResponse, len(p.Items))
	for i, a := range p.Items {
		items[i] = toAccountResponse(a)
	}
	return listAccountsResponse{
		Data: items,
		Pagination: paginationResponse{
			Total:      p.Total,
			Page:       p.Page,
			PageSize:   p.PageSize,
			TotalPages: p.TotalPages,
		},
	}
}
