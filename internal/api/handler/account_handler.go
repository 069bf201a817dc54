package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/api/metrics"
	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// AccountHandler handles HTTP requests for account lifecycle operations.
type AccountHandler struct {
	accounts ports.AccountService
	queries  ports.AccountQueryService
}

func NewAccountHandler(accounts ports.AccountService, queries ports.AccountQueryService) *AccountHandler {
	return &AccountHandler{accounts: accounts, queries: queries}
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid account id")
	}
	return id, nil
}

func bindFilter(c echo.Context) (ports.AccountFilter, error) {
	var f ports.AccountFilter
	var role string
	err := echo.QueryParamsBinder(c).
		String("role", &role).
		String("first_name", &f.FirstName).
		String("last_name", &f.LastName).
		String("email", &f.Email).
		BindError()
	if err != nil {
		return f, echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	f.Role = domain.Role(role)
	return f, nil
}

// Create handles POST /v1/accounts.
//
// @Summary      Create an account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        skip_activation_email  query     bool                  false  "Do not send the activation email"
// @Param        body                   body      createAccountRequest  true   "Account details"
// @Success      201                    {object}  createAccountResponse
// @Failure      400                    {object}  errorResponse
// @Failure      409                    {object}  errorResponse
// @Failure      422                    {object}  errorResponse
// @Router       /v1/accounts [post]
func (h *AccountHandler) Create(c echo.Context) error {
	var req createAccountRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var skip bool
	if err := echo.QueryParamsBinder(c).Bool("skip_activation_email", &skip).BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid skip_activation_email")
	}

	role := domain.Role(req.Role)
	account, err := h.accounts.Create(c.Request().Context(), ports.CreateAccountInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  req.IsActive,
	}, role, skip)

	var notifyErr *domain.NotificationError
	switch {
	case err == nil:
	case account != nil && errors.As(err, &notifyErr):
		metrics.NotificationFailuresTotal.WithLabelValues("create").Inc()
	default:
		return err
	}

	metrics.AccountsCreatedTotal.WithLabelValues(string(role)).Inc()

	resp := createAccountResponse{accountResponse: toAccountResponse(account)}
	if notifyErr != nil {
		resp.NotificationError = "activation email could not be sent"
	}
	return c.JSON(http.StatusCreated, resp)
}

// List handles GET /v1/accounts.
//
// @Summary      List accounts
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        role        query     string  false  "Exact role"
// @Param        first_name  query     string  false  "First name contains (case-insensitive)"
// @Param        last_name   query     string  false  "Last name contains (case-insensitive)"
// @Param        email       query     string  false  "Email contains (case-insensitive)"
// @Param        page        query     int     false  "1-based page"
// @Param        page_size   query     int     false  "Page size"
// @Success      200         {object}  listAccountsResponse
// @Failure      400         {object}  errorResponse
// @Router       /v1/accounts [get]
func (h *AccountHandler) List(c echo.Context) error {
	filter, err := bindFilter(c)
	if err != nil {
		return err
	}
	var page, pageSize int
	if err := echo.QueryParamsBinder(c).Int("page", &page).Int("page_size", &pageSize).BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid pagination parameters")
	}

	result, err := h.queries.ListPage(c.Request().Context(), filter, page, pageSize)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListResponse(result))
}

// Count handles GET /v1/accounts/count.
//
// @Summary      Count accounts
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        role        query     string  false  "Exact role"
// @Param        first_name  query     string  false  "First name contains (case-insensitive)"
// @Param        last_name   query     string  false  "Last name contains (case-insensitive)"
// @Param        email       query     string  false  "Email contains (case-insensitive)"
// @Success      200         {object}  countResponse
// @Router       /v1/accounts/count [get]
func (h *AccountHandler) Count(c echo.Context) error {
	filter, err := bindFilter(c)
	if err != nil {
		return err
	}
	n, err := h.queries.Count(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, countResponse{Count: n})
}

// Get handles GET /v1/accounts/:id.
//
// @Summary      Get an account
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int     true   "Account id"
// @Param        role  query     string  false  "Require this role"
// @Success      200   {object}  accountResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/accounts/{id} [get]
func (h *AccountHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	account, err := h.accounts.Retrieve(c.Request().Context(), id, domain.Role(c.QueryParam("role")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// Update handles PUT /v1/accounts/:id.
//
// @Summary      Update an account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                   true  "Account id"
// @Param        body  body      updateAccountRequest  true  "Profile fields"
// @Success      200   {object}  accountResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/accounts/{id} [put]
func (h *AccountHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req updateAccountRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	account, err := h.accounts.Update(c.Request().Context(), id, ports.UpdateAccountInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// SetPassword handles PUT /v1/accounts/:id/password. Admins may set any
// account's password; other accounts only their own.
//
// @Summary      Set an account password
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                 true  "Account id"
// @Param        body  body      setPasswordRequest  true  "New password"
// @Success      200   {object}  accountResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /v1/accounts/{id}/password [put]
func (h *AccountHandler) SetPassword(c echo.Context) error {
	callerID, role, err := ctxClaims(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if role != domain.RoleAdmin && callerID != id {
		return domain.ErrForbidden
	}

	var req setPasswordRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	account, err := h.accounts.Retrieve(ctx, id, "")
	if err != nil {
		return err
	}
	updated, err := h.accounts.SetPassword(ctx, account, req.Password, req.SkipNotification)
	if updated != nil {
		metrics.PasswordChangesTotal.Inc()
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotificationFailed) {
			metrics.NotificationFailuresTotal.WithLabelValues("set_password").Inc()
		}
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(updated))
}

// Activate handles POST /v1/accounts/activate and redeems an activation token.
//
// @Summary      Activate an account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      activateRequest  true  "Activation token and first password"
// @Success      200   {object}  accountResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      410   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/accounts/activate [post]
func (h *AccountHandler) Activate(c echo.Context) error {
	var req activateRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	account, err := h.accounts.ActivateWithToken(c.Request().Context(), req.Token, req.Password)
	metrics.ActivationsTotal.WithLabelValues(activationResult(account, err)).Inc()
	if err != nil {
		if account != nil && errors.Is(err, domain.ErrNotificationFailed) {
			metrics.NotificationFailuresTotal.WithLabelValues("activate").Inc()
			// Activation itself succeeded; only the notice was lost.
			return c.JSON(http.StatusOK, toAccountResponse(account))
		}
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

func activationResult(account *domain.Account, err error) string {
	switch {
	case err == nil, account != nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, domain.ErrTokenAlreadyUsed):
		return "already_used"
	}
	return "error"
}
