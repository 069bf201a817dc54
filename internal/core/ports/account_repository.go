package ports

import (
	"context"
	"strings"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// Field names an account attribute a Criterion can test.
type Field string

const (
	FieldRole      Field = "role"
	FieldFirstName Field = "first_name"
	FieldLastName  Field = "last_name"
	FieldEmail     Field = "email"
)

// Operator is the comparison a Criterion applies.
type Operator string

const (
	OpEquals       Operator = "eq"
	OpContainsFold Operator = "icontains"
)

// Criterion is a single predicate over an account. A query matches an
// account only when every criterion matches (logical AND).
type Criterion struct {
	Field    Field
	Operator Operator
	Value    string
}

// Matches evaluates the criterion against an in-memory account. Stores that
// translate criteria to their own query language must keep the same semantics.
func (c Criterion) Matches(a *domain.Account) bool {
	var v string
	switch c.Field {
	case FieldRole:
		v = string(a.Role)
	case FieldFirstName:
		v = a.FirstName
	case FieldLastName:
		v = a.LastName
	case FieldEmail:
		v = a.Email
	default:
		return false
	}

	switch c.Operator {
	case OpEquals:
		return v == c.Value
	case OpContainsFold:
		return strings.Contains(strings.ToLower(v), strings.ToLower(c.Value))
	}
	return false
}

// MatchAll folds criteria with logical AND. An empty list matches everything.
func MatchAll(a *domain.Account, criteria []Criterion) bool {
	for _, c := range criteria {
		if !c.Matches(a) {
			return false
		}
	}
	return true
}

// AccountPatch carries the fields an update may overwrite. Nil fields are
// left untouched. Role and ID are never patchable.
type AccountPatch struct {
	Email            *string
	FirstName        *string
	LastName         *string
	IsActive         *bool
	IsActivated      *bool
	HashedCredential *string
}

// AccountQuery is a filtered, identifier-ordered view over the store.
type AccountQuery interface {
	// Paginate returns the slice [(page-1)*pageSize, page*pageSize).
	Paginate(ctx context.Context, page, pageSize int) ([]*domain.Account, error)
	Count(ctx context.Context) (int64, error)
}

// AccountRepository persists accounts. Every write is a single atomic
// store operation and returns the refreshed record.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	// FindByID and FindByEmail apply the role filter only when role is non-empty.
	FindByID(ctx context.Context, id int64, role domain.Role) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string, role domain.Role) (*domain.Account, error)
	Update(ctx context.Context, id int64, patch AccountPatch) (*domain.Account, error)
	Query(criteria []Criterion) AccountQuery
}
