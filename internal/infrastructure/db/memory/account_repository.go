// Package memory provides a process-local AccountRepository used for local
// development and tests. Every call holds a single mutex, which gives each
// write the same all-or-nothing behaviour as the database-backed stores.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

type AccountRepository struct {
	mu              sync.RWMutex
	accounts        map[int64]*domain.Account
	nextID          int64
	caseInsensitive bool
}

// Option configures an AccountRepository.
type Option func(*AccountRepository)

// WithCaseInsensitiveEmail makes email lookups and uniqueness ignore case.
func WithCaseInsensitiveEmail() Option {
	return func(r *AccountRepository) { r.caseInsensitive = true }
}

func NewAccountRepository(opts ...Option) *AccountRepository {
	r := &AccountRepository{accounts: make(map[int64]*domain.Account)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

func (r *AccountRepository) sameEmail(a, b string) bool {
	if r.caseInsensitive {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// emailTaken must be called with the lock held.
func (r *AccountRepository) emailTaken(email string, exceptID int64) bool {
	for id, a := range r.accounts {
		if id != exceptID && r.sameEmail(a.Email, email) {
			return true
		}
	}
	return false
}

func (r *AccountRepository) Create(_ context.Context, account *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(account.Email, 0) {
		return nil, domain.ErrDuplicateEmail
	}
	r.nextID++
	stored := account.Clone()
	stored.ID = r.nextID
	r.accounts[stored.ID] = stored
	return stored.Clone(), nil
}

func (r *AccountRepository) FindByID(_ context.Context, id int64, role domain.Role) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok || (role != "" && a.Role != role) {
		return nil, domain.ErrAccountNotFound
	}
	return a.Clone(), nil
}

func (r *AccountRepository) FindByEmail(_ context.Context, email string, role domain.Role) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if r.sameEmail(a.Email, email) && (role == "" || a.Role == role) {
			return a.Clone(), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *AccountRepository) Update(_ context.Context, id int64, patch ports.AccountPatch) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if patch.Email != nil && r.emailTaken(*patch.Email, id) {
		return nil, domain.ErrDuplicateEmail
	}

	next := current.Clone()
	if patch.Email != nil {
		next.Email = *patch.Email
	}
	if patch.FirstName != nil {
		next.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		next.LastName = *patch.LastName
	}
	if patch.IsActive != nil {
		next.IsActive = *patch.IsActive
	}
	if patch.IsActivated != nil {
		next.IsActivated = *patch.IsActivated
	}
	if patch.HashedCredential != nil {
		h := *patch.HashedCredential
		next.HashedCredential = &h
	}
	r.accounts[id] = next
	return next.Clone(), nil
}

func (r *AccountRepository) Query(criteria []ports.Criterion) ports.AccountQuery {
	return &accountQuery{repo: r, criteria: criteria}
}

type accountQuery struct {
	repo     *AccountRepository
	criteria []ports.Criterion
}

// matching returns the accounts satisfying every criterion, ordered by ID.
func (q *accountQuery) matching() []*domain.Account {
	q.repo.mu.RLock()
	defer q.repo.mu.RUnlock()

	out := make([]*domain.Account, 0, len(q.repo.accounts))
	for _, a := range q.repo.accounts {
		if ports.MatchAll(a, q.criteria) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (q *accountQuery) Paginate(_ context.Context, page, pageSize int) ([]*domain.Account, error) {
	matched := q.matching()
	start := (page - 1) * pageSize
	if start < 0 || pageSize <= 0 || start >= len(matched) {
		return []*domain.Account{}, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (q *accountQuery) Count(_ context.Context) (int64, error) {
	return int64(len(q.matching())), nil
}
