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

type TagAPI interface {
	All(ctx context.Context, caller *model.User) ([]model.TagCount, error)
	Update(ctx context.Context, caller *model.User, leadID uint64, req dto.UpdateTagsRequest) (*model.Lead, error)
	LeadsByTag(ctx context.Context, caller *model.User, tag string, page, limit int) (service.PageResult[model.Lead], error)
}

// TagHandler serves /api/tags.
type TagHandler struct {
	tags TagAPI
}

func NewTagHandler(tags TagAPI) *TagHandler {
	return &TagHandler{tags: tags}
}

// All handles GET /api/tags.
func (h *TagHandler) All(c echo.Context) error {
	tags, err := h.tags.All(c.Request().Context(), middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	if tags == nil {
		tags = []model.TagCount{}
	}
	return c.JSON(http.StatusOK, tags)
}

// Update handles PUT /api/tags/:id, where :id is the lead.
func (h *TagHandler) Update(c echo.Context) (*Outcome, error) {
	id, err := paramID(c, "id", "Lead")
	if err != nil {
		return nil, err
	}
	var req dto.UpdateTagsRequest
	raw, err := bindJSON(c, &req)
	if err != nil {
		return nil, err
	}
	l, err := h.tags.Update(c.Request().Context(), middleware.CurrentUser(c), id, req)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Status:  http.StatusOK,
		Body:    leadResponse{Message: "Tags updated successfully", Lead: l},
		Details: raw,
	}, nil
}

// Leads handles GET /api/tags/:tag/leads.
func (h *TagHandler) Leads(c echo.Context) error {
	tag, err := pathParam(c, "tag")
	if err != nil {
		return err
	}
	page, limit := pageParams(c)
	res, err := h.tags.LeadsByTag(c.Request().Context(), middleware.CurrentUser(c), tag, page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newLeadPage(res))
}
