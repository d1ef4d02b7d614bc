package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crm-backend/internal/dto"
	"github.com/iliyamo/crm-backend/internal/middleware"
	"github.com/iliyamo/crm-backend/internal/model"
	"github.com/iliyamo/crm-backend/internal/service"
)

type AuthAPI interface {
	Login(ctx context.Context, req dto.LoginRequest) (*service.LoginResult, error)
	Register(ctx context.Context, caller *model.User, req dto.RegisterRequest) (*model.User, error)
	Logout(ctx context.Context, sess *service.Session) error
}

// AuthHandler serves /api/auth.
type AuthHandler struct {
	auth AuthAPI
}

func NewAuthHandler(auth AuthAPI) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type userResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if _, err := bindJSON(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{Token: res.Token, User: res.User})
}

// Register handles POST /api/auth/register. Without a token it only
// succeeds for the first account.
func (h *AuthHandler) Register(c echo.Context) (*Outcome, error) {
	var req dto.RegisterRequest
	raw, err := bindJSON(c, &req)
	if err != nil {
		return nil, err
	}
	u, err := h.auth.Register(c.Request().Context(), middleware.CurrentUser(c), req)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Status:  http.StatusCreated,
		Body:    userResponse{Message: "User registered successfully", User: u},
		Details: raw,
	}, nil
}

// Logout handles POST /api/auth/logout by revoking the current session.
func (h *AuthHandler) Logout(c echo.Context) (*Outcome, error) {
	if err := h.auth.Logout(c.Request().Context(), middleware.CurrentSession(c)); err != nil {
		return nil, err
	}
	return &Outcome{Status: http.StatusOK, Body: message{Message: "Logged out successfully"}}, nil
}

// Profile handles GET /api/auth/profile.
func (h *AuthHandler) Profile(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.CurrentUser(c))
}
