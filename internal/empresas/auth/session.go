// Package auth provides password sign-in, server-side sessions carried by
// JWT cookies, the admin-profile check, the login flow and a gin
// middleware guarding admin routes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	e "github.com/gartstein/empresas/internal/empresas/errors"
	"github.com/gartstein/empresas/internal/empresas/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Store defines the storage the auth layer needs.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (uuid.UUID, string, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	CreateSession(ctx context.Context, userID uuid.UUID, expiresAt time.Time) (uuid.UUID, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
}

// Sessions implements sign-in-with-password, get-current-session and
// sign-out over a Store.
type Sessions struct {
	store  Store
	secret string
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewSessions constructs Sessions signing tokens with secret.
func NewSessions(store Store, secret string, ttl time.Duration, logger *zap.Logger) *Sessions {
	return &Sessions{
		store:  store,
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.Named("sessions"),
	}
}

// SignInWithPassword checks the credentials and opens a session. Unknown
// emails and wrong passwords both yield ErrInvalidCredentials.
func (s *Sessions) SignInWithPassword(ctx context.Context, email, password string) (string, *models.Session, error) {
	userID, hash, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return "", nil, e.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", nil, e.ErrInvalidCredentials
	}

	expiresAt := s.now().Add(s.ttl)
	sessionID, err := s.store.CreateSession(ctx, userID, expiresAt)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}
	token, err := GenerateToken(userID, sessionID, s.secret, expiresAt)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.logger.Info("signed in", zap.String("user_id", userID.String()))
	return token, &models.Session{ID: sessionID, UserID: userID, Email: email, ExpiresAt: expiresAt}, nil
}

// GetSession returns the active session for a token, or ErrNoSession.
func (s *Sessions) GetSession(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, e.ErrNoSession
	}
	userID, sessionID, err := parseSessionToken(token, s.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrNoSession, err)
	}
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, e.ErrNoSession
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session.UserID != userID {
		return nil, fmt.Errorf("%w: token subject mismatch", e.ErrNoSession)
	}
	return session, nil
}

// SignOut revokes the session behind a token. Invalid or already revoked
// tokens are not an error.
func (s *Sessions) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	_, sessionID, err := parseSessionToken(token, s.secret)
	if err != nil {
		return nil
	}
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// RequireAdmin fetches the user's profile. A missing profile yields
// ErrNotFound, a flag that is not true yields ErrForbidden.
func (s *Sessions) RequireAdmin(ctx context.Context, userID uuid.UUID) error {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return e.ErrNotFound
	}
	if !profile.IsAdmin {
		return e.ErrForbidden
	}
	return nil
}

// HashPassword hashes a password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
