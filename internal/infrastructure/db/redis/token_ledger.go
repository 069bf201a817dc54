package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/identity-service/internal/core/domain"
)

const defaultLedgerTTL = 48 * time.Hour

// TokenLedger remembers redeemed activation tokens so each can be used once.
// Key format: activation:used:<sha256(token)>. Keys expire after ttl, which
// must be at least the token lifetime.
type TokenLedger struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenLedger creates a TokenLedger wrapping the given Redis client.
func NewTokenLedger(client *redis.Client, ttl time.Duration) *TokenLedger {
	if ttl <= 0 {
		ttl = defaultLedgerTTL
	}
	return &TokenLedger{client: client, ttl: ttl}
}

// Consume atomically records the token. A second call for the same token
// returns domain.ErrTokenAlreadyUsed.
func (l *TokenLedger) Consume(ctx context.Context, token string) error {
	ok, err := l.client.SetNX(ctx, l.key(token), "1", l.ttl).Result()
	if err != nil {
		return &domain.StoreError{Op: "consume activation token", Err: err}
	}
	if !ok {
		return domain.ErrTokenAlreadyUsed
	}
	return nil
}

// Release deletes the token's entry.
func (l *TokenLedger) Release(ctx context.Context, token string) error {
	if err := l.client.Del(ctx, l.key(token)).Err(); err != nil {
		return &domain.StoreError{Op: "release activation token", Err: err}
	}
	return nil
}

func (l *TokenLedger) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "activation:used:" + hex.EncodeToString(sum[:])
}
