package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/api/handler"
	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/service"
	"github.com/99minutos/identity-service/internal/infrastructure/db/memory"
)

const testSecret = "router-secret"

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "h:" + p, nil }
func (plainHasher) Verify(p, h string) bool       { return h == "h:"+p }

type staticTokens struct{}

func (staticTokens) Issue(email string) (string, error) { return "tok:" + email, nil }
func (staticTokens) Verify(token string) (string, error) {
	if email, ok := strings.CutPrefix(token, "tok:"); ok {
		return email, nil
	}
	return "", domain.ErrInvalidToken
}

type nopNotifier struct{}

func (nopNotifier) SendActivation(context.Context, *domain.Account, string) error { return nil }
func (nopNotifier) SendPasswordResetNotice(context.Context, *domain.Account) error { return nil }

func newTestRouter(t *testing.T, checks map[string]handler.Check) (http.Handler, *memory.AccountRepository) {
	t.Helper()
	log := zerolog.Nop()
	repo := memory.NewAccountRepository()
	accounts := service.NewAccountService(repo, plainHasher{}, staticTokens{}, nopNotifier{}, memory.NewTokenLedger(0), log)
	reg := prometheus.NewRegistry()

	e := NewRouter(Dependencies{
		Accounts:   accounts,
		Queries:    service.NewQueryEngine(repo, 20, 100, log),
		Auth:       service.NewAuthService(repo, plainHasher{}, testSecret, time.Hour, log),
		JWTSecret:  testSecret,
		Checks:     checks,
		Log:        log,
		Registerer: reg,
		Gatherer:   reg,
	})
	return e, repo
}

func bearer(t *testing.T, id int64, role domain.Role) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatInt(id, 10),
		"role": string(role),
		"typ":  service.AccessTokenType,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + s
}

func do(h http.Handler, method, target, auth, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_AccountFlow(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	admin := bearer(t, 99, domain.RoleAdmin)

	rec := do(h, http.MethodPost, "/v1/accounts", admin,
		`{"email":"ann@x.com","first_name":"Ann","last_name":"Lee","role":"standard"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(h, http.MethodPost, "/v1/accounts/activate", "", `{"token":"tok:ann@x.com","password":"pw1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("activate: expected 200, got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(h, http.MethodPost, "/v1/accounts/activate", "", `{"token":"tok:ann@x.com","password":"pw2"}`)
	if rec.Code != http.StatusGone {
		t.Fatalf("replay: expected 410, got %d", rec.Code)
	}

	rec = do(h, http.MethodPost, "/auth/login", "", `{"email":"ann@x.com","password":"pw1"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"token"`) {
		t.Fatalf("login: expected 200 with token, got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(h, http.MethodGet, "/v1/accounts/count?first_name=AN", admin, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":1`) {
		t.Fatalf("count: got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(h, http.MethodGet, "/v1/accounts?page=5", admin, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Fatalf("list past end: got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_Authorization(t *testing.T) {
	h, repo := newTestRouter(t, nil)
	a, _ := repo.Create(context.Background(), &domain.Account{Email: "s@x.com", FirstName: "S", LastName: "T", Role: domain.RoleStandard})
	standard := bearer(t, a.ID, domain.RoleStandard)

	if rec := do(h, http.MethodGet, "/v1/accounts", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list: expected 401, got %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/v1/accounts", standard, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("standard list: expected 403, got %d", rec.Code)
	}
	if rec := do(h, http.MethodPut, "/v1/accounts/"+strconv.FormatInt(a.ID, 10)+"/password", standard, `{"password":"pw"}`); rec.Code != http.StatusOK {
		t.Fatalf("own password: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(h, http.MethodPut, "/v1/accounts/999/password", standard, `{"password":"pw"}`); rec.Code != http.StatusForbidden {
		t.Fatalf("other password: expected 403, got %d", rec.Code)
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	h, _ := newTestRouter(t, map[string]handler.Check{
		"store": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})

	if rec := do(h, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("liveness: expected 200, got %d", rec.Code)
	}
	rec := do(h, http.MethodGet, "/health/ready", "", "")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("readiness: expected 503, got %d %s", rec.Code, rec.Body.String())
	}
	rec = do(h, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "identity_http_requests_total") {
		t.Fatalf("metrics: got %d %s", rec.Code, rec.Body.String())
	}
}
