package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/playtube-io/playtube/internal/httpx"
	"github.com/playtube-io/playtube/internal/models"
	"github.com/playtube-io/playtube/internal/tokens"
)

const userContextKey = "user"

// AuthGate protects routes: it resolves the access token to a user record
// and attaches it to the request context. Every failure mode collapses to
// the same 401 so token state is not observable from outside.
type AuthGate struct {
	DB     *gorm.DB
	Tokens *tokens.Service
}

func (g *AuthGate) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := extractToken(c)
		if raw == "" {
			return httpx.NewError(http.StatusUnauthorized, "unauthenticated")
		}

		claims, err := g.Tokens.ParseAccess(raw)
		if err != nil {
			return httpx.NewError(http.StatusUnauthorized, "unauthenticated")
		}

		// a deleted account can still hold a signature-valid token
		var user models.User
		if err := g.DB.WithContext(c.Request().Context()).
			Where("id = ?", claims.Subject).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return httpx.NewError(http.StatusUnauthorized, "unauthenticated")
			}
			return err
		}

		user.PasswordHash = ""
		user.RefreshToken = nil
		c.Set(userContextKey, &user)
		return next(c)
	}
}

// extractToken prefers the cookie and falls back to a bearer header.
func extractToken(c echo.Context) string {
	if cookie, err := c.Cookie("accessToken"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

// CurrentUser returns the identity the gate attached. Handlers behind
// RequireAuth may assume it is present.
func CurrentUser(c echo.Context) *models.User {
	u, _ := c.Get(userContextKey).(*models.User)
	return u
}
