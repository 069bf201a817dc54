package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

const uniqueViolation = "23505"

const accountColumns = `id, email, first_name, last_name, role, hashed_credential, is_active, is_activated, created_at`

// AccountRepository implements ports.AccountRepository on PostgreSQL.
type AccountRepository struct {
	db              DBTX
	caseInsensitive bool
}

func NewAccountRepository(db DBTX, caseInsensitiveEmail bool) *AccountRepository {
	return &AccountRepository{db: db, caseInsensitive: caseInsensitiveEmail}
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		a      domain.Account
		role   string
		hashed sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Email, &a.FirstName, &a.LastName, &role, &hashed, &a.IsActive, &a.IsActivated, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Role = domain.Role(role)
	if hashed.Valid {
		h := hashed.String
		a.HashedCredential = &h
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// EnsureEmailIndex adds a unique index on lower(email) when the store is
// configured for case-insensitive email matching.
func (r *AccountRepository) EnsureEmailIndex(ctx context.Context) error {
	if !r.caseInsensitive {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS accounts_email_lower_key ON accounts (lower(email))`)
	if err != nil {
		return fmt.Errorf("ensure email index: %w", err)
	}
	return nil
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	query := `INSERT INTO accounts (email, first_name, last_name, role, hashed_credential, is_active, is_activated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + accountColumns

	var hashed sql.NullString
	if a.HashedCredential != nil {
		hashed = sql.NullString{String: *a.HashedCredential, Valid: true}
	}

	created, err := scanAccount(r.db.QueryRowContext(ctx, query,
		a.Email, a.FirstName, a.LastName, string(a.Role), hashed, a.IsActive, a.IsActivated, a.CreatedAt.UTC()))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, &domain.StoreError{Op: "insert account", Err: err}
	}
	return created, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id int64, role domain.Role) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	args := []any{id}
	if role != "" {
		query += ` AND role = $2`
		args = append(args, string(role))
	}
	return r.findOne(ctx, query, args...)
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string, role domain.Role) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	if r.caseInsensitive {
		query = `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email) = lower($1)`
	}
	args := []any{email}
	if role != "" {
		query += ` AND role = $2`
		args = append(args, string(role))
	}
	return r.findOne(ctx, query+` ORDER BY id LIMIT 1`, args...)
}

func (r *AccountRepository) findOne(ctx context.Context, query string, args ...any) (*domain.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, &domain.StoreError{Op: "find account", Err: err}
	}
	return a, nil
}

// Update applies the patch with a single UPDATE ... RETURNING statement.
func (r *AccountRepository) Update(ctx context.Context, id int64, p ports.AccountPatch) (*domain.Account, error) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Email != nil {
		set("email", *p.Email)
	}
	if p.FirstName != nil {
		set("first_name", *p.FirstName)
	}
	if p.LastName != nil {
		set("last_name", *p.LastName)
	}
	if p.IsActive != nil {
		set("is_active", *p.IsActive)
	}
	if p.IsActivated != nil {
		set("is_activated", *p.IsActivated)
	}
	if p.HashedCredential != nil {
		set("hashed_credential", *p.HashedCredential)
	}
	if len(sets) == 0 {
		return r.FindByID(ctx, id, "")
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE accounts SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), accountColumns)

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, domain.ErrAccountNotFound
		case isUniqueViolation(err):
			return nil, domain.ErrDuplicateEmail
		}
		return nil, &domain.StoreError{Op: "update account", Err: err}
	}
	return a, nil
}

func (r *AccountRepository) Query(criteria []ports.Criterion) ports.AccountQuery {
	return &accountQuery{db: r.db, criteria: criteria}
}

type accountQuery struct {
	db       DBTX
	criteria []ports.Criterion
}

func (q *accountQuery) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Account, error) {
	if page < 1 || pageSize <= 0 {
		return []*domain.Account{}, nil
	}

	where, args := whereClause(q.criteria, nil)
	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`SELECT %s FROM accounts%s ORDER BY id ASC LIMIT $%d OFFSET $%d`,
		accountColumns, where, len(args)-1, len(args))

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StoreError{Op: "list accounts", Err: err}
	}
	defer rows.Close()

	out := []*domain.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, &domain.StoreError{Op: "scan account", Err: err}
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "list accounts", Err: err}
	}
	return out, nil
}

func (q *accountQuery) Count(ctx context.Context) (int64, error) {
	where, args := whereClause(q.criteria, nil)

	var n int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`+where, args...).Scan(&n); err != nil {
		return 0, &domain.StoreError{Op: "count accounts", Err: err}
	}
	return n, nil
}
