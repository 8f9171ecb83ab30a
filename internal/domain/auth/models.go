package auth

import "errors"

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionInvalid     = errors.New("session expired or revoked")
)

// UserContext is the authenticated caller attached to a request.
type UserContext struct {
	UserID    string
	TenantID  string
	RoleID    string
	RoleName  string
	SessionID string
}

type AuthUser struct {
	ID       string
	TenantID string
	RoleID   string
	RoleName string
	Email    string
	Password string
}
