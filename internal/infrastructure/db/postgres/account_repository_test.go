package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

var accountCols = []string{"id", "email", "first_name", "last_name", "role", "hashed_credential", "is_active", "is_activated", "created_at"}

var created = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func newRepoWithMock(t *testing.T, caseInsensitive bool) (*AccountRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewAccountRepository(db, caseInsensitive), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, false)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+accounts\s*\(email,.*\)\s*VALUES\s*\(\$1,.*\$8\)\s*RETURNING\s+id,`
	mock.ExpectQuery(q).
		WithArgs("a@x.com", "Ann", "Lee", "standard", sql.NullString{}, false, false, created).
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow(int64(5), "a@x.com", "Ann", "Lee", "standard", nil, false, false, created))

	got, err := repo.Create(context.Background(), &domain.Account{
		Email: "a@x.com", FirstName: "Ann", LastName: "Lee", Role: domain.RoleStandard, CreatedAt: created,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 5 || got.HashedCredential != nil {
		t.Fatalf("unexpected account: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, false)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+accounts`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), &domain.Account{Email: "a@x.com", Role: domain.RoleStandard})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, false)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+accounts`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &domain.Account{Email: "a@x.com", Role: domain.RoleStandard})
	if !errors.Is(err, domain.ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestFindByID_WithRole(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, false)
	defer db.Close()

	hash := "$2a$hash"
	mock.ExpectQuery(`(?s)FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1\s+AND\s+role\s*=\s*\$2$`).
		WithArgs(int64(5), "admin").
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow(int64(5), "a@x.com", "Ann", "Lee", "admin", hash, true, true, created))

	got, err := repo.FindByID(context.Background(), 5, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if got.HashedCredential == nil || *got.HashedCredential != hash || !got.IsActivated {
		t.Fatalf("unexpected account: %+v", got)
	}
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, false)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs(int64(5)).
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.FindByID(context.Background(), 5, ""); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFindByEmail_CasePolicy(t *testing.T) {
	t.Run("sensitive", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t, false)
		defer db.Close()

		mock.ExpectQuery(`(?s)WHERE\s+email\s*=\s*\$1\s+ORDER\s+BY\s+id\s+LIMIT\s+1$`).
			WithArgs("A@x.com").
			WillReturnRows(sqlmock.NewRows(accountCols).
				AddRow(int64(1), "A@x.com", "A", "B", "standard", nil, false, false, created))

		if _, err := repo.FindByEmail(context.Background(), "A@x.com", ""); err != nil {
			t.Fatalf("FindByEmail error: %v", err)
		}
	})

	t.Run("insensitive", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t, true)
		defer db.Close()

		mock.ExpectQuery(`(?s)WHERE\s+lower\(email\)\s*=\s*lower\(\$1\)\s+AND\s+role\s*=\s*\$2\s+ORDER\s+BY\s+id\s+LIMIT\s+1$`).
			WithArgs("A@x.com", "standard").
			WillReturnRows(sqlmock.NewRows(accountCols).
				AddRow(int64(1), "a@x.com", "A", "B", "standard", nil, false, false, created))

		if _, err := repo.FindByEmail(context.Background(), "A@x.com", domain.RoleStandard); err != nil {
			t.Fatalf("FindByEmail error: %v", err)
		}
	})
}

func TestUpdate_SingleStatement(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, false)
	defer db.Close()

	hash := "h"
	yes := true
	mock.ExpectQuery(`(?s)^UPDATE\s+accounts\s+SET\s+is_active\s*=\s*\$1,\s*is_activated\s*=\s*\$2,\s*hashed_credential\s*=\s*\$3\s+WHERE\s+id\s*=\s*\$4\s+RETURNING`).
		WithArgs(true, true, "h", int64(3)).
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow(int64(3), "a@x.com", "A", "B", "standard", hash, true, true, created))

	got, err := repo.Update(context.Background(), 3, ports.AccountPatch{IsActive: &yes, IsActivated: &yes, HashedCredential: &hash})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if !got.IsActive || !got.IsActivated {
		t.Fatalf("unexpected account: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdate_Errors(t *testing.T) {
	email := "b@x.com"

	t.Run("not found", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t, false)
		defer db.Close()
		mock.ExpectQuery(`(?s)^UPDATE\s+accounts`).WillReturnError(sql.ErrNoRows)

		if _, err := repo.Update(context.Background(), 3, ports.AccountPatch{Email: &email}); !errors.Is(err, domain.ErrAccountNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t, false)
		defer db.Close()
		mock.ExpectQuery(`(?s)^UPDATE\s+accounts`).WillReturnError(&pgconn.PgError{Code: "23505"})

		if _, err := repo.Update(context.Background(), 3, ports.AccountPatch{Email: &email}); !errors.Is(err, domain.ErrDuplicateEmail) {
			t.Fatalf("expected duplicate email, got %v", err)
		}
	})
}

func TestQuery_PaginateAndCount(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, false)
	defer db.Close()

	criteria := []ports.Criterion{
		{Field: ports.FieldRole, Operator: ports.OpEquals, Value: "standard"},
		{Field: ports.FieldLastName, Operator: ports.OpContainsFold, Value: "lee"},
	}
	where := `\s+WHERE\s+role\s*=\s*\$1\s+AND\s+last_name\s+ILIKE\s+\$2\s+ESCAPE\s+'\\'`

	mock.ExpectQuery(`(?s)FROM\s+accounts`+where+`\s+ORDER\s+BY\s+id\s+ASC\s+LIMIT\s+\$3\s+OFFSET\s+\$4$`).
		WithArgs("standard", "%lee%", 2, 2).
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow(int64(8), "c@x.com", "C", "Lee", "standard", nil, false, false, created))
	mock.ExpectQuery(`(?s)^SELECT\s+COUNT\(\*\)\s+FROM\s+accounts` + where + `$`).
		WithArgs("standard", "%lee%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	q := repo.Query(criteria)
	items, err := q.Paginate(context.Background(), 2, 2)
	if err != nil {
		t.Fatalf("Paginate error: %v", err)
	}
	if len(items) != 1 || items[0].ID != 8 {
		t.Fatalf("unexpected page: %+v", items)
	}
	n, err := q.Count(context.Background())
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestQuery_EmptyPageWithoutQuery(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, false)
	defer db.Close()

	items, err := repo.Query(nil).Paginate(context.Background(), 0, 10)
	if err != nil || items == nil || len(items) != 0 {
		t.Fatalf("expected empty page, got %v %v", items, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected queries: %v", err)
	}
}

func TestEnsureEmailIndex(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, true)
	defer db.Close()

	mock.ExpectExec(`CREATE\s+UNIQUE\s+INDEX\s+IF\s+NOT\s+EXISTS\s+accounts_email_lower_key\s+ON\s+accounts\s+\(lower\(email\)\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.EnsureEmailIndex(context.Background()); err != nil {
		t.Fatalf("EnsureEmailIndex error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
