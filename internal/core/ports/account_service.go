package ports

import (
	"context"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// CreateAccountInput enumerates exactly the writable fields of a new account.
type CreateAccountInput struct {
	Email     string `validate:"required,email,max=254"`
	FirstName string `validate:"required,max=100"`
	LastName  string `validate:"required,max=100"`
	IsActive  bool
}

// UpdateAccountInput overwrites all mutable profile fields of an account.
type UpdateAccountInput struct {
	Email     string `validate:"required,email,max=254"`
	FirstName string `validate:"required,max=100"`
	LastName  string `validate:"required,max=100"`
	IsActive  bool
}

// AccountFilter holds the optional list/count filters. Empty values mean
// "no filter" for that field.
type AccountFilter struct {
	Role      domain.Role
	FirstName string
	LastName  string
	Email     string
}

// AccountPage is a page of accounts together with the unpaged total.
type AccountPage struct {
	Items      []*domain.Account
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

// AccountService is the account lifecycle use-case boundary.
type AccountService interface {
	Retrieve(ctx context.Context, id int64, role domain.Role) (*domain.Account, error)
	RetrieveByEmail(ctx context.Context, email string, role domain.Role) (*domain.Account, error)
	Create(ctx context.Context, input CreateAccountInput, role domain.Role, skipActivationEmail bool) (*domain.Account, error)
	Update(ctx context.Context, id int64, input UpdateAccountInput) (*domain.Account, error)
	SetPassword(ctx context.Context, account *domain.Account, plaintext string, skipNotification bool) (*domain.Account, error)
	Activate(ctx context.Context, account *domain.Account, plaintext string, skipNotification bool) (*domain.Account, error)
	ActivateWithToken(ctx context.Context, token, plaintext string) (*domain.Account, error)
}

// AccountQueryService lists and counts accounts with a shared filter.
type AccountQueryService interface {
	List(ctx context.Context, filter AccountFilter, page, pageSize int) ([]*domain.Account, error)
	Count(ctx context.Context, filter AccountFilter) (int64, error)
	ListPage(ctx context.Context, filter AccountFilter, page, pageSize int) (*AccountPage, error)
}

// AuthService authenticates accounts and issues access tokens.
type AuthService interface {
	Login(ctx context.Context, email, password string) (string, *domain.Account, error)
}
