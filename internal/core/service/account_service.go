package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// AccountService implements the account lifecycle: creation, profile
// updates, password changes and activation.
type AccountService struct {
	repo     ports.AccountRepository
	hasher   ports.Hasher
	tokens   ports.TokenService
	notifier ports.Notifier
	ledger   ports.TokenLedger
	log      zerolog.Logger
	now      func() time.Time
}

func NewAccountService(
	repo ports.AccountRepository,
	hasher ports.Hasher,
	tokens ports.TokenService,
	notifier ports.Notifier,
	ledger ports.TokenLedger,
	log zerolog.Logger,
) *AccountService {
	return &AccountService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		notifier: notifier,
		ledger:   ledger,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var _ ports.AccountService = (*AccountService)(nil)

// Retrieve looks an account up by identifier, optionally restricted to role.
func (s *AccountService) Retrieve(ctx context.Context, id int64, role domain.Role) (*domain.Account, error) {
	return s.repo.FindByID(ctx, id, role)
}

// RetrieveByEmail looks an account up by email, optionally restricted to role.
func (s *AccountService) RetrieveByEmail(ctx context.Context, email string, role domain.Role) (*domain.Account, error) {
	return s.repo.FindByEmail(ctx, email, role)
}

// Create persists a new account without a credential. Unless
// skipActivationEmail is set, an activation token is issued and delivered.
// A notification failure is returned together with the persisted account.
func (s *AccountService) Create(ctx context.Context, input ports.CreateAccountInput, role domain.Role, skipActivationEmail bool) (*domain.Account, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, domain.NewValidationError(fmt.Sprintf("role must be one of: %s %s", domain.RoleAdmin, domain.RoleStandard))
	}

	created, err := s.repo.Create(ctx, &domain.Account{
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Role:      role,
		IsActive:  input.IsActive,
		CreatedAt: s.now(),
	})
	if err != nil {
		s.log.Error().Err(err).Str("role", string(role)).Msg("failed to create account")
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.log.Info().Int64("account_id", created.ID).Str("role", string(role)).Msg("account created")

	if skipActivationEmail {
		return created, nil
	}

	token, err := s.tokens.Issue(created.Email)
	if err != nil {
		s.log.Warn().Err(err).Int64("account_id", created.ID).Msg("activation token issuance failed")
		return created, &domain.NotificationError{AccountID: created.ID, Stage: "token", Err: err}
	}
	if err := s.notifier.SendActivation(ctx, created, token); err != nil {
		s.log.Warn().Err(err).Int64("account_id", created.ID).Msg("activation delivery failed")
		return created, &domain.NotificationError{AccountID: created.ID, Stage: "delivery", Err: err}
	}

	return created, nil
}

// Update overwrites the profile fields and login flag of an existing account.
// Enabling login without a credential, or disabling an activated account, is
// rejected.
func (s *AccountService) Update(ctx context.Context, id int64, input ports.UpdateAccountInput) (*domain.Account, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	current, err := s.repo.FindByID(ctx, id, "")
	if err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	if !current.CanSetActive(input.IsActive) {
		if input.IsActive {
			return nil, domain.NewValidationError("is_active cannot be enabled before a password is set")
		}
		return nil, domain.NewValidationError("is_active cannot be disabled on an activated account")
	}

	updated, err := s.repo.Update(ctx, id, ports.AccountPatch{
		Email:     &input.Email,
		FirstName: &input.FirstName,
		LastName:  &input.LastName,
		IsActive:  &input.IsActive,
	})
	if err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}

	s.log.Info().Int64("account_id", id).Bool("is_active", updated.IsActive).Msg("account updated")
	return updated, nil
}

// SetPassword replaces the credential of account. Activation flags are
// left unchanged.
func (s *AccountService) SetPassword(ctx context.Context, account *domain.Account, plaintext string, skipNotification bool) (*domain.Account, error) {
	return s.applyCredential(ctx, account, plaintext, skipNotification, false)
}

// Activate enables login, marks the account activated and assigns its
// credential in one store write. The caller must have verified the
// activation token.
func (s *AccountService) Activate(ctx context.Context, account *domain.Account, plaintext string, skipNotification bool) (*domain.Account, error) {
	return s.applyCredential(ctx, account, plaintext, skipNotification, true)
}

// ActivateWithToken redeems a single-use activation token and activates the
// account it was issued for.
func (s *AccountService) ActivateWithToken(ctx context.Context, token, plaintext string) (*domain.Account, error) {
	if err := validatePlaintext(plaintext); err != nil {
		return nil, err
	}

	email, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	account, err := s.repo.FindByEmail(ctx, email, "")
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			// The subject no longer resolves: treat like a forged token.
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("activate: %w", err)
	}
	if account.IsActivated {
		return nil, domain.ErrTokenAlreadyUsed
	}

	if err := s.ledger.Consume(ctx, token); err != nil {
		return nil, err
	}

	activated, err := s.Activate(ctx, account, plaintext, false)
	if activated == nil && err != nil {
		// Nothing was written; the token stays redeemable.
		if rerr := s.ledger.Release(ctx, token); rerr != nil {
			s.log.Error().Err(rerr).Int64("account_id", account.ID).Msg("release activation token failed")
		}
	}
	return activated, err
}

func (s *AccountService) applyCredential(ctx context.Context, account *domain.Account, plaintext string, skipNotification, activate bool) (*domain.Account, error) {
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	if err := validatePlaintext(plaintext); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}

	patch := ports.AccountPatch{HashedCredential: &hashed}
	op := "password set"
	if activate {
		yes := true
		patch.IsActive = &yes
		patch.IsActivated = &yes
		op = "account activated"
	}

	updated, err := s.repo.Update(ctx, account.ID, patch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info().Int64("account_id", updated.ID).Str("state", string(updated.State())).Msg(op)

	if skipNotification {
		return updated, nil
	}
	if err := s.notifier.SendPasswordResetNotice(ctx, updated); err != nil {
		s.log.Warn().Err(err).Int64("account_id", updated.ID).Msg("password notice delivery failed")
		return updated, &domain.NotificationError{AccountID: updated.ID, Stage: "delivery", Err: err}
	}
	return updated, nil
}
