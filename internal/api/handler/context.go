package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/api/middleware"
	"github.com/99minutos/identity-service/internal/core/domain"
)

// ctxClaims extracts the auth claims injected by the Auth middleware and
// performs a fast-fail check before any service call: role and account id
// must both be present (their presence proves the middleware ran).
func ctxClaims(c echo.Context) (accountID int64, role domain.Role, err error) {
	role, _ = c.Get(middleware.ContextRole).(domain.Role)
	accountID, _ = c.Get(middleware.ContextAccountID).(int64)
	if role == "" || accountID == 0 {
		return 0, "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return accountID, role, nil
}
