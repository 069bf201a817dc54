package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// LogNotifier writes notifications to the log instead of delivering them.
// Only for local development. Tokens are logged as a short fingerprint.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notifier").Logger()}
}

func (n *LogNotifier) SendActivation(_ context.Context, account *domain.Account, token string) error {
	n.log.Info().
		Str("kind", KindActivation).
		Int64("account_id", account.ID).
		Str("email", account.Email).
		Str("token_fingerprint", fingerprint(token)).
		Msg("notification")
	return nil
}

func (n *LogNotifier) SendPasswordResetNotice(_ context.Context, account *domain.Account) error {
	n.log.Info().
		Str("kind", KindPasswordReset).
		Int64("account_id", account.ID).
		Str("email", account.Email).
		Msg("notification")
	return nil
}

// fingerprint identifies a token in logs without making it redeemable.
func fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}
