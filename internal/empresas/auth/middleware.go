package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gartstein/empresas/internal/empresas/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoginPage is where the guard sends unauthenticated browsers.
const LoginPage = "/login"

const principalKey = "principal"

// CookieName derives the session cookie name from the service host label.
func CookieName(hostRef string) string {
	if hostRef == "" {
		return "emp-auth-token"
	}
	return fmt.Sprintf("emp-%s-auth-token", hostRef)
}

// Cookies writes and clears the session cookie. The cookie never carries
// an expiry, so it does not outlive the browser session.
type Cookies struct {
	Name   string
	Secure bool
}

func (c Cookies) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Token reads the session token from the cookie, falling back to a Bearer
// Authorization header for API clients.
func (c Cookies) Token(r *http.Request) string {
	if cookie, err := r.Cookie(c.Name); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	token, err := extractTokenFromHeader(r)
	if err != nil {
		return ""
	}
	return token
}

func extractTokenFromHeader(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if authHeader == "" {
		return "", fmt.Errorf("authorization header required")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", fmt.Errorf("invalid authorization format: missing Bearer prefix")
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if tokenString == "" {
		return "", fmt.Errorf("invalid authorization format: empty token")
	}
	return tokenString, nil
}

// Guard only lets through requests carrying an active session whose
// profile has the admin flag set. Any failure clears the cookie and ends
// the request: browsers are redirected to the login page, API callers get
// 401. Sessions belonging to non-admins are revoked.
func Guard(sessions *Sessions, cookies Cookies, logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("guard")
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		token := cookies.Token(c.Request)

		session, err := sessions.GetSession(ctx, token)
		if err != nil {
			deny(c, cookies)
			return
		}

		if err := sessions.RequireAdmin(ctx, session.UserID); err != nil {
			logger.Warn("admin check failed",
				zap.Error(err),
				zap.String("user_id", session.UserID.String()),
			)
			if err := sessions.SignOut(ctx, token); err != nil {
				logger.Error("failed to sign out", zap.Error(err))
			}
			deny(c, cookies)
			return
		}

		c.Set(principalKey, session)
		c.Next()
	}
}

// Principal returns the session the guard attached to the request.
func Principal(c *gin.Context) (*models.Session, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	session, ok := v.(*models.Session)
	return session, ok
}

func deny(c *gin.Context, cookies Cookies) {
	cookies.Clear(c.Writer)
	if WantsJSON(c.Request) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"status": models.Error("Sesión no válida. Inicia sesión nuevamente."),
		})
		return
	}
	c.Redirect(http.StatusFound, LoginPage)
	c.Abort()
}

// WantsJSON reports whether the caller is an API client rather than a page.
func WantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
