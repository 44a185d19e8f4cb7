package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	e "github.com/gartstein/empresas/internal/empresas/errors"
	"github.com/gartstein/empresas/internal/empresas/models"
	"go.uber.org/zap"
)

const (
	// AdminLanding is where a successful login navigates.
	AdminLanding = "/admin"
	// RedirectDelay lets the confirmation be read before navigating.
	RedirectDelay = 500 * time.Millisecond
)

const (
	msgCheckFields    = "Revisa tu usuario y contraseña."
	msgBadCredentials = "Usuario o contraseña incorrectos."
	msgNoProfile      = "No se encontró tu perfil de admin (profiles)."
	msgNotAdmin       = "No tienes permisos de administrador."
	msgAuthorized     = "Acceso autorizado. Redirigiendo..."
)

// LoginResult is the outcome of a login attempt. Token is set only on
// success.
type LoginResult struct {
	Token         string
	Session       *models.Session
	Status        models.Status
	RedirectTo    string
	RedirectAfter time.Duration
}

// LoginFlow validates credentials, signs in and re-checks the admin flag.
type LoginFlow struct {
	sessions *Sessions
	logger   *zap.Logger
}

// NewLoginFlow constructs a LoginFlow.
func NewLoginFlow(sessions *Sessions, logger *zap.Logger) *LoginFlow {
	return &LoginFlow{
		sessions: sessions,
		logger:   logger.Named("login"),
	}
}

// Login runs the whole flow. The returned error is the underlying cause;
// Status always carries a message fit for display.
func (f *LoginFlow) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return &LoginResult{Status: models.Warning(msgCheckFields)}, e.ErrInvalidInput
	}

	token, session, err := f.sessions.SignInWithPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, e.ErrInvalidCredentials) {
			return &LoginResult{Status: models.Error(msgBadCredentials)}, err
		}
		f.logger.Error("sign in failed", zap.Error(err))
		return &LoginResult{Status: models.Error(err.Error())}, err
	}

	if err := f.sessions.RequireAdmin(ctx, session.UserID); err != nil {
		if signOutErr := f.sessions.SignOut(ctx, token); signOutErr != nil {
			f.logger.Warn("failed to sign out rejected user", zap.Error(signOutErr))
		}
		switch {
		case errors.Is(err, e.ErrForbidden):
			return &LoginResult{Status: models.Error(msgNotAdmin)}, err
		default:
			f.logger.Warn("admin profile check failed",
				zap.Error(err),
				zap.String("user_id", session.UserID.String()),
			)
			return &LoginResult{Status: models.Error(msgNoProfile)}, err
		}
	}

	return &LoginResult{
		Token:         token,
		Session:       session,
		Status:        models.Success(msgAuthorized),
		RedirectTo:    AdminLanding,
		RedirectAfter: RedirectDelay,
	}, nil
}
