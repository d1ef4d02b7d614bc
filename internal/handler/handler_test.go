package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/crm-backend/internal/apperr"
	"github.com/iliyamo/crm-backend/internal/middleware"
	"github.com/iliyamo/crm-backend/internal/model"
	"github.com/iliyamo/crm-backend/internal/service"
)

var (
	admin = &model.User{ID: 1, Name: "Root", Email: "root@crm.io", Role: model.RoleSuperAdmin, IsActive: true}
	agent = &model.User{ID: 7, Name: "Agent", Email: "agent@crm.io", Role: model.RoleSupportAgent, IsActive: true}
)

type tokenAuth map[string]*model.User

func (t tokenAuth) Authenticate(_ context.Context, raw string) (*service.Session, error) {
	u, ok := t[raw]
	if !ok {
		return nil, apperr.Unauthenticated("Invalid token")
	}
	return &service.Session{User: u, JTI: "jti-" + raw}, nil
}

var testTokens = tokenAuth{"admin": admin, "agent": agent}

// recorder captures activity entries.
type recorder struct {
	mu      sync.Mutex
	entries []service.AuditEntry
	users   []*model.User
}

func (r *recorder) Record(_ context.Context, u *model.User, e service.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, u)
	r.entries = append(r.entries, e)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(false)
	return e
}

// authed returns the authentication middleware used by the tests.
func authed() echo.MiddlewareFunc { return middleware.Authenticate(testTokens) }

func do(t *testing.T, e *echo.Echo, method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	req.Header.Set("User-Agent", "test-agent")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, e *echo.Echo, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return do(t, e, method, target, token, r, echo.MIMEApplicationJSON)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
