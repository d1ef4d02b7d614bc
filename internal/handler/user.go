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

type UserAPI interface {
	Create(ctx context.Context, caller *model.User, req dto.CreateUserRequest) (*model.User, error)
	List(ctx context.Context, caller *model.User, role string) ([]model.User, error)
	Update(ctx context.Context, caller *model.User, id uint64, req dto.UpdateUserRequest) (*model.User, error)
	Delete(ctx context.Context, caller *model.User, id uint64) error
	Activity(ctx context.Context, caller *model.User, userID uint64, page, limit int) (service.PageResult[model.ActivityLog], error)
}

// UserHandler serves /api/users.
type UserHandler struct {
	users UserAPI
}

func NewUserHandler(users UserAPI) *UserHandler {
	return &UserHandler{users: users}
}

type createdUser struct {
	ID    uint64     `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

type activityPage struct {
	Activities  []model.ActivityLog `json:"activities"`
	TotalPages  int64               `json:"totalPages"`
	CurrentPage int                 `json:"currentPage"`
}

// Create handles POST /api/users.
func (h *UserHandler) Create(c echo.Context) (*Outcome, error) {
	var req dto.CreateUserRequest
	raw, err := bindJSON(c, &req)
	if err != nil {
		return nil, err
	}
	u, err := h.users.Create(c.Request().Context(), middleware.CurrentUser(c), req)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Status: http.StatusCreated,
		Body: struct {
			Message string      `json:"message"`
			User    createdUser `json:"user"`
		}{"User created successfully", createdUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}},
		Details: raw,
	}, nil
}

// List handles GET /api/users with an optional role filter.
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.users.List(c.Request().Context(), middleware.CurrentUser(c), c.QueryParam("role"))
	if err != nil {
		return err
	}
	if users == nil {
		users = []model.User{}
	}
	return c.JSON(http.StatusOK, users)
}

// Update handles PUT /api/users/:id.
func (h *UserHandler) Update(c echo.Context) (*Outcome, error) {
	id, err := paramID(c, "id", "User")
	if err != nil {
		return nil, err
	}
	var req dto.UpdateUserRequest
	raw, err := bindJSON(c, &req)
	if err != nil {
		return nil, err
	}
	u, err := h.users.Update(c.Request().Context(), middleware.CurrentUser(c), id, req)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Status:  http.StatusOK,
		Body:    userResponse{Message: "User updated successfully", User: u},
		Details: raw,
	}, nil
}

// Delete handles DELETE /api/users/:id.
func (h *UserHandler) Delete(c echo.Context) (*Outcome, error) {
	id, err := paramID(c, "id", "User")
	if err != nil {
		return nil, err
	}
	if err := h.users.Delete(c.Request().Context(), middleware.CurrentUser(c), id); err != nil {
		return nil, err
	}
	return &Outcome{Status: http.StatusOK, Body: message{Message: "User deleted successfully"}}, nil
}

// Activity handles GET /api/users/:userId/activity.
func (h *UserHandler) Activity(c echo.Context) error {
	id, err := paramID(c, "userId", "User")
	if err != nil {
		return err
	}
	page, limit := pageParams(c)
	res, err := h.users.Activity(c.Request().Context(), middleware.CurrentUser(c), id, page, limit)
	if err != nil {
		return err
	}
	items := res.Items
	if items == nil {
		items = []model.ActivityLog{}
	}
	return c.JSON(http.StatusOK, activityPage{Activities: items, TotalPages: res.TotalPages, CurrentPage: res.CurrentPage})
}
