package auth

import (
	"context"
	"fmt"
	"time"
)

const DefaultSessionTTL = 8 * time.Hour

type Service struct {
	store  StoreAPI
	secret string
	ttl    time.Duration
}

func NewService(store StoreAPI, secret string) *Service {
	return &Service{store: store, secret: secret, ttl: DefaultSessionTTL}
}

type LoginResult struct {
	Token string   `json:"token"`
	User  AuthUser `json:"-"`
}

// Login checks the credentials, opens a session and issues its token.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.store.FindActiveUserByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, err
	}
	if err := CheckPassword(user.Password, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	sessionID, err := NewSessionID()
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.store.CreateSession(ctx, user.ID, HashToken(sessionID), time.Now().Add(s.ttl)); err != nil {
		return LoginResult{}, fmt.Errorf("create session: %w", err)
	}
	token, err := GenerateToken(s.secret, Claims{
		UserID:    user.ID,
		TenantID:  user.TenantID,
		RoleID:    user.RoleID,
		RoleName:  user.RoleName,
		SessionID: sessionID,
	}, s.ttl)
	if err != nil {
		return LoginResult{}, err
	}
	// last login is informational
	_ = s.store.UpdateLastLogin(ctx, user.ID)
	return LoginResult{Token: token, User: user}, nil
}

// Refresh rotates the session behind tokenString and issues a new token.
func (s *Service) Refresh(ctx context.Context, tokenString string) (string, error) {
	claims, err := ParseToken(s.secret, tokenString)
	if err != nil {
		return "", ErrSessionInvalid
	}
	ok, err := s.store.SessionValid(ctx, claims.UserID, HashToken(claims.SessionID))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrSessionInvalid
	}

	next, err := NewSessionID()
	if err != nil {
		return "", err
	}
	if err := s.store.RotateSession(ctx, claims.UserID, HashToken(claims.SessionID), HashToken(next), time.Now().Add(s.ttl)); err != nil {
		return "", fmt.Errorf("rotate session: %w", err)
	}
	return GenerateToken(s.secret, Claims{
		UserID:    claims.UserID,
		TenantID:  claims.TenantID,
		RoleID:    claims.RoleID,
		RoleName:  claims.RoleName,
		SessionID: next,
	}, s.ttl)
}

func (s *Service) Logout(ctx context.Context, userID, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.store.RevokeSession(ctx, userID, HashToken(sessionID))
}

func (s *Service) HasPermission(ctx context.Context, roleID, permission string) (bool, error) {
	return s.store.HasPermission(ctx, roleID, permission)
}

// SessionActive reports whether the session behind a token is still open.
func (s *Service) SessionActive(ctx context.Context, userID, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	return s.store.SessionValid(ctx, userID, HashToken(sessionID))
}
