package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crm-backend/internal/access"
	"github.com/iliyamo/crm-backend/internal/apperr"
	"github.com/iliyamo/crm-backend/internal/model"
	"github.com/iliyamo/crm-backend/internal/service"
)

const (
	userKey    = "user"
	sessionKey = "session"
)

// Authenticator resolves a raw bearer token to a session.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*service.Session, error)
}

// Authenticate requires a valid "Authorization: Bearer <token>" header and
// stores the caller and its session in the echo context.
func Authenticate(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := auth.Authenticate(c.Request().Context(), BearerToken(c))
			if err != nil {
				return err
			}
			c.Set(userKey, sess.User)
			c.Set(sessionKey, sess)
			return next(c)
		}
	}
}

// OptionalAuthenticate behaves like Authenticate when a token is present and
// lets anonymous requests through otherwise. Register uses it for the
// bootstrap account.
func OptionalAuthenticate(auth Authenticator) echo.MiddlewareFunc {
	required := Authenticate(auth)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		withAuth := required(next)
		return func(c echo.Context) error {
			if BearerToken(c) == "" {
				return next(c)
			}
			return withAuth(c)
		}
	}
}

// RequireRole rejects callers whose role is not in roles. It must run after
// Authenticate.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u == nil {
				return apperr.Unauthenticated("Authentication required")
			}
			if !access.IsAuthorized(u.Role, roles) {
				return apperr.ErrAccessDenied
			}
			return next(c)
		}
	}
}

// BearerToken returns the token of the Authorization header, or "".
func BearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// CurrentUser returns the authenticated caller, or nil.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(userKey).(*model.User)
	return u
}

// CurrentSession returns the session of the request, or nil.
func CurrentSession(c echo.Context) *service.Session {
	s, _ := c.Get(sessionKey).(*service.Session)
	return s
}
