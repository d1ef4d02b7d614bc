package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/crm-backend/internal/apperr"
	"github.com/iliyamo/crm-backend/internal/dto"
	"github.com/iliyamo/crm-backend/internal/middleware"
	"github.com/iliyamo/crm-backend/internal/model"
	"github.com/iliyamo/crm-backend/internal/service"
)

type fakeAuthAPI struct {
	registerCaller *model.User
	loggedOut      []string
}

func (f *fakeAuthAPI) Login(_ context.Context, req dto.LoginRequest) (*service.LoginResult, error) {
	if req.Password != "secret1" {
		return nil, apperr.Unauthenticated("Invalid credentials")
	}
	return &service.LoginResult{Token: "tok", User: admin}, nil
}

func (f *fakeAuthAPI) Register(_ context.Context, caller *model.User, req dto.RegisterRequest) (*model.User, error) {
	f.registerCaller = caller
	return &model.User{ID: 30, Name: req.Name, Email: req.Email, Role: model.Role(req.Role)}, nil
}

func (f *fakeAuthAPI) Logout(_ context.Context, sess *service.Session) error {
	f.loggedOut = append(f.loggedOut, sess.JTI)
	return nil
}

func newAuthEcho(api *fakeAuthAPI, rec *recorder) *echo.Echo {
	e := newTestEcho()
	h := NewAuthHandler(api)
	g := e.Group("/api/auth")
	g.POST("/login", h.Login)
	g.POST("/register", Audited(rec, "auth", h.Register), middleware.OptionalAuthenticate(testTokens))
	g.POST("/logout", Audited(rec, "auth", h.Logout), authed())
	g.GET("/profile", h.Profile, authed())
	return e
}

func TestLoginResponse(t *testing.T) {
	e := newAuthEcho(&fakeAuthAPI{}, &recorder{})

	rec := doJSON(t, e, http.MethodPost, "/api/auth/login", "", `{"email":"root@crm.io","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "tok", body["token"])
	assert.Equal(t, "root@crm.io", body["user"].(map[string]any)["email"])

	rec = doJSON(t, e, http.MethodPost, "/api/auth/login", "", `{"email":"root@crm.io","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, rec.Body.String())
}

func TestRegisterBootstrapAndAuthenticated(t *testing.T) {
	api := &fakeAuthAPI{}
	audit := &recorder{}
	e := newAuthEcho(api, audit)
	payload := `{"name":"First","email":"first@crm.io","password":"secret1","role":"super_admin"}`

	rec := doJSON(t, e, http.MethodPost, "/api/auth/register", "", payload)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, api.registerCaller)
	require.Len(t, audit.users, 1)
	assert.Nil(t, audit.users[0], "anonymous registration has no actor")

	rec = doJSON(t, e, http.MethodPost, "/api/auth/register", "admin", payload)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Same(t, admin, api.registerCaller)
	assert.Equal(t, "User registered successfully", decode(t, rec)["message"])
}

func TestLogoutAndProfile(t *testing.T) {
	api := &fakeAuthAPI{}
	audit := &recorder{}
	e := newAuthEcho(api, audit)

	rec := doJSON(t, e, http.MethodGet, "/api/auth/profile", "agent", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "agent@crm.io", decode(t, rec)["email"])

	rec = doJSON(t, e, http.MethodPost, "/api/auth/logout", "agent", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"jti-agent"}, api.loggedOut)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "auth", audit.entries[0].Entity)

	rec = doJSON(t, e, http.MethodPost, "/api/auth/logout", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthAndDashboard(t *testing.T) {
	e := newTestEcho()
	e.GET("/health", Health)
	h := NewDashboardHandler(dashboardFunc(func(caller *model.User) (*model.DashboardStats, error) {
		return &model.DashboardStats{TotalLeads: 4, AgentPerformance: []model.AgentPerformance{}}, nil
	}))
	e.GET("/api/dashboard/stats", h.Stats, authed())

	rec := doJSON(t, e, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "OK", body["status"])
	_, err := time.Parse(time.RFC3339Nano, body["timestamp"].(string))
	assert.NoError(t, err)

	rec = doJSON(t, e, http.MethodGet, "/api/dashboard/stats", "agent", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4.0, decode(t, rec)["totalLeads"])
}

type dashboardFunc func(caller *model.User) (*model.DashboardStats, error)

func (f dashboardFunc) Stats(_ context.Context, caller *model.User) (*model.DashboardStats, error) {
	return f(caller)
}
