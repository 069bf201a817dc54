package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/infrastructure/db/memory"
)

func newAuthFixture(t *testing.T) (*AuthService, *AccountService, *memory.AccountRepository) {
	t.Helper()
	repo := memory.NewAccountRepository()
	hasher := &prefixHasher{}
	accounts := NewAccountService(repo, hasher, &stubTokens{}, &recordingNotifier{}, memory.NewTokenLedger(0), discardLogger)
	return NewAuthService(repo, hasher, "secret", time.Hour, discardLogger), accounts, repo
}

func TestAuthService_Login_Success(t *testing.T) {
	ctx := context.Background()
	auth, accounts, _ := newAuthFixture(t)
	a := mustCreate(t, accounts, input("alice@example.com", "Alice", "A"), domain.RoleAdmin)
	if _, err := accounts.Activate(ctx, a, "pass123", true); err != nil {
		t.Fatalf("activate: %v", err)
	}

	token, got, err := auth.Login(ctx, "alice@example.com", "pass123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if got.ID != a.ID {
		t.Fatalf("expected account %d, got %d", a.ID, got.ID)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("failed to parse token: %v", err)
	}
	if claims["role"] != "admin" || claims["typ"] != AccessTokenType {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if sub, _ := claims.GetSubject(); sub != "1" {
		t.Fatalf("expected subject 1, got %q", sub)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		t.Fatalf("missing exp: %v", err)
	}
	if time.Until(exp.Time) > time.Hour+time.Minute {
		t.Fatalf("exp too far in the future: %v", exp.Time)
	}
}

func TestAuthService_Login_Rejections(t *testing.T) {
	ctx := context.Background()
	auth, accounts, _ := newAuthFixture(t)

	// Never credentialed.
	mustCreate(t, accounts, input("new@example.com", "N", "N"), domain.RoleStandard)

	// Credentialed but not active.
	idle := mustCreate(t, accounts, input("idle@example.com", "I", "I"), domain.RoleStandard)
	if _, err := accounts.SetPassword(ctx, idle, "pw", true); err != nil {
		t.Fatalf("set password: %v", err)
	}

	// Active.
	ok := mustCreate(t, accounts, input("ok@example.com", "O", "O"), domain.RoleStandard)
	if _, err := accounts.Activate(ctx, ok, "pw", true); err != nil {
		t.Fatalf("activate: %v", err)
	}

	tests := []struct {
		name, email, password string
	}{
		{"unknown email", "ghost@example.com", "pw"},
		{"no credential", "new@example.com", "pw"},
		{"inactive", "idle@example.com", "pw"},
		{"wrong password", "ok@example.com", "bad"},
		{"empty password", "ok@example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := auth.Login(ctx, tt.email, tt.password)
			if !errors.Is(err, domain.ErrInvalidCredentials) {
				t.Fatalf("expected invalid credentials, got %v", err)
			}
		})
	}
}
