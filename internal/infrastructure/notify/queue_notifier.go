// Package notify contains Notifier implementations. Message rendering and
// mail transport live in a separate mailer that consumes the queue.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/identity-service/internal/core/domain"
)

const (
	DefaultQueue = "notifications:outbox"

	KindActivation    = "account_activation"
	KindPasswordReset = "password_reset_notice"
)

// Message is the JSON payload pushed to the outbox list.
type Message struct {
	Kind      string    `json:"kind"`
	AccountID int64     `json:"account_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Token     string    `json:"token,omitempty"`
	QueuedAt  time.Time `json:"queued_at"`
}

// QueueNotifier hands notifications to the mailer through a Redis list.
// A send succeeds once RPUSH has been acknowledged.
type QueueNotifier struct {
	client *redis.Client
	queue  string
	now    func() time.Time
}

func NewQueueNotifier(client *redis.Client, queue string) *QueueNotifier {
	if queue == "" {
		queue = DefaultQueue
	}
	return &QueueNotifier{client: client, queue: queue, now: time.Now}
}

func (n *QueueNotifier) SendActivation(ctx context.Context, account *domain.Account, token string) error {
	return n.push(ctx, newMessage(KindActivation, account, token, n.now()))
}

func (n *QueueNotifier) SendPasswordResetNotice(ctx context.Context, account *domain.Account) error {
	return n.push(ctx, newMessage(KindPasswordReset, account, "", n.now()))
}

func (n *QueueNotifier) push(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Kind, err)
	}
	if err := n.client.RPush(ctx, n.queue, payload).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", msg.Kind, err)
	}
	return nil
}

func newMessage(kind string, a *domain.Account, token string, at time.Time) Message {
	return Message{
		Kind:      kind,
		AccountID: a.ID,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Token:     token,
		QueuedAt:  at.UTC(),
	}
}
