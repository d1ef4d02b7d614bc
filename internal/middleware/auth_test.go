package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/crm-backend/internal/apperr"
	"github.com/iliyamo/crm-backend/internal/model"
	"github.com/iliyamo/crm-backend/internal/service"
)

type fakeAuth struct {
	sessions map[string]*service.Session
}

func (f fakeAuth) Authenticate(_ context.Context, raw string) (*service.Session, error) {
	if raw == "" {
		return nil, apperr.Unauthenticated("Authentication required")
	}
	s, ok := f.sessions[raw]
	if !ok {
		return nil, apperr.Unauthenticated("Invalid token")
	}
	return s, nil
}

var (
	admin = &model.User{ID: 1, Role: model.RoleSuperAdmin, IsActive: true}
	agent = &model.User{ID: 7, Role: model.RoleSupportAgent, IsActive: true}
	auth  = fakeAuth{sessions: map[string]*service.Session{
		"admin-token": {User: admin, JTI: "j1"},
		"agent-token": {User: agent, JTI: "j2"},
	}}
)

func newContext(method, target, token string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

func TestAuthenticateSetsCaller(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/api/leads", "agent-token")

	var seen *model.User
	err := Authenticate(auth)(func(c echo.Context) error {
		seen = CurrentUser(c)
		assert.Equal(t, "j2", CurrentSession(c).JTI)
		return okHandler(c)
	})(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Same(t, agent, seen)
}

func TestAuthenticateRejects(t *testing.T) {
	for name, header := range map[string]string{
		"missing":    "",
		"not bearer": "Basic abc",
		"unknown":    "Bearer nope",
	} {
		t.Run(name, func(t *testing.T) {
			c, _ := newContext(http.MethodGet, "/", "")
			if header != "" {
				c.Request().Header.Set(echo.HeaderAuthorization, header)
			}
			err := Authenticate(auth)(okHandler)(c)
			assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
			assert.Nil(t, CurrentUser(c))
		})
	}
}

func TestOptionalAuthenticate(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/api/auth/register", "")
	called := false
	err := OptionalAuthenticate(auth)(func(c echo.Context) error {
		called = true
		assert.Nil(t, CurrentUser(c))
		return nil
	})(c)
	require.NoError(t, err)
	assert.True(t, called)

	c, _ = newContext(http.MethodPost, "/api/auth/register", "bad")
	err = OptionalAuthenticate(auth)(okHandler)(c)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err), "a present but invalid token is not anonymous")
}

func TestRequireRole(t *testing.T) {
	chain := func(token string) error {
		c, _ := newContext(http.MethodGet, "/api/users", token)
		return Authenticate(auth)(RequireRole(model.RoleSuperAdmin, model.RoleSubAdmin)(okHandler))(c)
	}

	assert.NoError(t, chain("admin-token"))
	err := chain("agent-token")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Equal(t, "Access denied", apperr.Message(err))

	c, _ := newContext(http.MethodGet, "/", "")
	err = RequireRole(model.RoleSuperAdmin)(okHandler)(c)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestBearerToken(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/", "")
	c.Request().Header.Set(echo.HeaderAuthorization, "bearer  abc ")
	assert.Equal(t, "abc", BearerToken(c))

	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer ")
	assert.Equal(t, "", BearerToken(c))
}
