package domain

import "time"

// Role is the closed set of roles an account can hold.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStandard Role = "standard"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStandard:
		return true
	}
	return false
}

// AccountState is the lifecycle state derived from the activation flag.
type AccountState string

const (
	StateCreated   AccountState = "created"
	StateActivated AccountState = "activated"
)

// Account is the aggregate root of the identity service.
type Account struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Role             Role      `json:"role"`
	HashedCredential *string   `json:"-"`
	IsActive         bool      `json:"is_active"`
	IsActivated      bool      `json:"is_activated"`
	CreatedAt        time.Time `json:"created_at"`
}

// HasCredential reports whether a password has ever been set.
func (a *Account) HasCredential() bool {
	return a.HashedCredential != nil && *a.HashedCredential != ""
}

// State returns the lifecycle state of the account.
func (a *Account) State() AccountState {
	if a.IsActivated {
		return StateActivated
	}
	return StateCreated
}

// CanSetActive reports whether the login flag may be changed to active
// outside of the activation flow. Enabling requires a credential and an
// activated account can never be disabled.
func (a *Account) CanSetActive(active bool) bool {
	if active {
		return a.IsActive || a.HasCredential()
	}
	return !a.IsActivated
}

// Clone returns a deep copy so stores never share credential pointers.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.HashedCredential != nil {
		h := *a.HashedCredential
		c.HashedCredential = &h
	}
	return &c
}
