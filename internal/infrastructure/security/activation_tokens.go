package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// ActivationTokenType is the "typ" claim of activation tokens. Access tokens
// use a different value so neither can stand in for the other.
const ActivationTokenType = "activation"

const defaultActivationTTL = 24 * time.Hour

type activationClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// ActivationTokens issues and verifies HS256 activation tokens whose
// subject is the account email.
type ActivationTokens struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewActivationTokens(secret string, ttl time.Duration, issuer string) *ActivationTokens {
	if ttl <= 0 {
		ttl = defaultActivationTTL
	}
	return &ActivationTokens{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

// TTL reports how long issued tokens stay valid.
func (t *ActivationTokens) TTL() time.Duration { return t.ttl }

func (t *ActivationTokens) Issue(subjectEmail string) (string, error) {
	if subjectEmail == "" {
		return "", errors.New("activation token: empty subject")
	}
	jti, err := tokenID()
	if err != nil {
		return "", err
	}

	now := t.now()
	claims := activationClaims{
		Type: ActivationTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   subjectEmail,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("activation token: %w", err)
	}
	return signed, nil
}

func (t *ActivationTokens) Verify(token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	var claims activationClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return "", domain.ErrInvalidToken
	}
	if claims.Type != ActivationTokenType || claims.Subject == "" {
		return "", domain.ErrInvalidToken
	}
	return claims.Subject, nil
}

func tokenID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("activation token id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
