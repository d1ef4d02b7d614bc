package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crm-backend/internal/middleware"
	"github.com/iliyamo/crm-backend/internal/model"
)

type DashboardAPI interface {
	Stats(ctx context.Context, caller *model.User) (*model.DashboardStats, error)
}

// DashboardHandler serves /api/dashboard.
type DashboardHandler struct {
	dashboard DashboardAPI
}

func NewDashboardHandler(d DashboardAPI) *DashboardHandler {
	return &DashboardHandler{dashboard: d}
}

// Stats handles GET /api/dashboard/stats.
func (h *DashboardHandler) Stats(c echo.Context) error {
	stats, err := h.dashboard.Stats(c.Request().Context(), middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// Health is the liveness probe at /health.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"status": "OK", "timestamp": time.Now().UTC()})
}
