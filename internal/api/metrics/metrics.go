// Package metrics defines and registers the custom Prometheus metrics of the
// identity service. It is the single source of truth for metric names,
// labels, and help strings. Metrics register with the default registry on
// package initialisation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// ── Lifecycle metrics ─────────────────────────────────────────────────────────

// AccountsCreatedTotal counts persisted accounts.
// Label:
//   - role: "admin" or "standard"
var AccountsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accounts_created_total",
		Help:      "Total number of accounts created, by role.",
	},
	[]string{"role"},
)

// ActivationsTotal counts activation attempts.
// Label:
//   - result: "success", "invalid_token", "already_used" or "error"
var ActivationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "account_activations_total",
		Help:      "Total number of account activation attempts, by result.",
	},
	[]string{"result"},
)

// PasswordChangesTotal counts credential replacements outside activation.
var PasswordChangesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_changes_total",
		Help:      "Total number of passwords set on existing accounts.",
	},
)

// NotificationFailuresTotal counts writes that succeeded but whose
// notification did not.
// Label:
//   - operation: "create", "set_password" or "activate"
var NotificationFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Total number of lifecycle notifications that failed after the account write.",
	},
	[]string{"operation"},
)

// LoginAttemptsTotal counts logins.
// Label:
//   - result: "success" or "failure"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)
