package memory

import (
	"context"
	"sync"
	"time"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

const defaultLedgerTTL = 48 * time.Hour

// TokenLedger is a process-local single-use ledger for activation tokens.
// Entries are dropped once ttl has elapsed.
type TokenLedger struct {
	mu   sync.Mutex
	used map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewTokenLedger(ttl time.Duration) *TokenLedger {
	if ttl <= 0 {
		ttl = defaultLedgerTTL
	}
	return &TokenLedger{used: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

var _ ports.TokenLedger = (*TokenLedger)(nil)

func (l *TokenLedger) Consume(_ context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, expires := range l.used {
		if now.After(expires) {
			delete(l.used, k)
		}
	}
	if _, ok := l.used[token]; ok {
		return domain.ErrTokenAlreadyUsed
	}
	l.used[token] = now.Add(l.ttl)
	return nil
}

func (l *TokenLedger) Release(_ context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.used, token)
	return nil
}
