package service

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

const (
	fallbackPageSize = 20
	fallbackMaxSize  = 100
)

// QueryEngine lists and counts accounts. List and Count build their
// predicates through accountCriteria so the two never diverge.
type QueryEngine struct {
	repo            ports.AccountRepository
	defaultPageSize int
	maxPageSize     int
	log             zerolog.Logger
}

// NewQueryEngine returns a QueryEngine. Non-positive sizes fall back to 20
// (default) and 100 (maximum).
func NewQueryEngine(repo ports.AccountRepository, defaultPageSize, maxPageSize int, log zerolog.Logger) *QueryEngine {
	if maxPageSize <= 0 {
		maxPageSize = fallbackMaxSize
	}
	if defaultPageSize <= 0 {
		defaultPageSize = fallbackPageSize
	}
	if defaultPageSize > maxPageSize {
		defaultPageSize = maxPageSize
	}
	return &QueryEngine{
		repo:            repo,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		log:             log,
	}
}

var _ ports.AccountQueryService = (*QueryEngine)(nil)

// accountCriteria turns a filter into the ordered list of predicates a store
// folds with AND. Role matches exactly; names and email match as
// case-insensitive substrings. Empty values add no predicate.
func accountCriteria(f ports.AccountFilter) []ports.Criterion {
	var criteria []ports.Criterion
	if f.Role != "" {
		criteria = append(criteria, ports.Criterion{Field: ports.FieldRole, Operator: ports.OpEquals, Value: string(f.Role)})
	}
	if f.FirstName != "" {
		criteria = append(criteria, ports.Criterion{Field: ports.FieldFirstName, Operator: ports.OpContainsFold, Value: f.FirstName})
	}
	if f.LastName != "" {
		criteria = append(criteria, ports.Criterion{Field: ports.FieldLastName, Operator: ports.OpContainsFold, Value: f.LastName})
	}
	if f.Email != "" {
		criteria = append(criteria, ports.Criterion{Field: ports.FieldEmail, Operator: ports.OpContainsFold, Value: f.Email})
	}
	return criteria
}

func (q *QueryEngine) query(f ports.AccountFilter) (ports.AccountQuery, error) {
	if f.Role != "" && !f.Role.Valid() {
		return nil, domain.NewValidationError(fmt.Sprintf("role must be one of: %s %s", domain.RoleAdmin, domain.RoleStandard))
	}
	return q.repo.Query(accountCriteria(f)), nil
}

// normalizePage applies defaults: page 0 means 1, pageSize 0 means the
// configured default. Sizes above the maximum are capped.
func (q *QueryEngine) normalizePage(page, pageSize int) (int, int, error) {
	if page < 0 || pageSize < 0 {
		return 0, 0, domain.NewValidationError("page and page_size must not be negative")
	}
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = q.defaultPageSize
	}
	if pageSize > q.maxPageSize {
		pageSize = q.maxPageSize
	}
	return page, pageSize, nil
}

// offsetOverflows reports whether (page-1)*pageSize does not fit in an int.
func offsetOverflows(page, pageSize int) bool {
	return page-1 > math.MaxInt/pageSize
}

// List returns one page of the accounts matching every supplied filter,
// ordered by identifier. A page past the end yields an empty slice.
func (q *QueryEngine) List(ctx context.Context, f ports.AccountFilter, page, pageSize int) ([]*domain.Account, error) {
	page, pageSize, err := q.normalizePage(page, pageSize)
	if err != nil {
		return nil, err
	}
	query, err := q.query(f)
	if err != nil {
		return nil, err
	}
	if offsetOverflows(page, pageSize) {
		// No store can hold that many rows.
		return []*domain.Account{}, nil
	}
	items, err := query.Paginate(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if items == nil {
		items = []*domain.Account{}
	}
	return items, nil
}

// Count returns the number of accounts matching every supplied filter.
func (q *QueryEngine) Count(ctx context.Context, f ports.AccountFilter) (int64, error) {
	query, err := q.query(f)
	if err != nil {
		return 0, err
	}
	n, err := query.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// ListPage combines List and Count for paginated responses.
func (q *QueryEngine) ListPage(ctx context.Context, f ports.AccountFilter, page, pageSize int) (*ports.AccountPage, error) {
	page, pageSize, err := q.normalizePage(page, pageSize)
	if err != nil {
		return nil, err
	}
	items, err := q.List(ctx, f, page, pageSize)
	if err != nil {
		return nil, err
	}
	total, err := q.Count(ctx, f)
	if err != nil {
		return nil, err
	}

	q.log.Debug().Int("page", page).Int("page_size", pageSize).Int64("total", total).Msg("accounts listed")

	return &ports.AccountPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}
