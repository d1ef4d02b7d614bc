package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crm-backend/internal/apperr"
	"github.com/iliyamo/crm-backend/internal/dto"
	"github.com/iliyamo/crm-backend/internal/middleware"
	"github.com/iliyamo/crm-backend/internal/model"
	"github.com/iliyamo/crm-backend/internal/service"
	"github.com/iliyamo/crm-backend/internal/spreadsheet"
)

type LeadAPI interface {
	List(ctx context.Context, caller *model.User, q service.LeadQuery) (service.PageResult[model.Lead], error)
	Get(ctx context.Context, caller *model.User, id uint64) (*model.Lead, error)
	Create(ctx context.Context, caller *model.User, req dto.CreateLeadRequest) (*model.Lead, error)
	Update(ctx context.Context, caller *model.User, id uint64, req dto.UpdateLeadRequest) (*model.Lead, error)
}

type TransferAPI interface {
	Import(ctx context.Context, caller *model.User, r io.Reader) (*service.ImportResult, error)
	Export(ctx context.Context, caller *model.User, q service.ExportQuery, w io.Writer) error
}

// LeadHandler serves /api/leads.
type LeadHandler struct {
	leads    LeadAPI
	transfer TransferAPI
}

func NewLeadHandler(leads LeadAPI, transfer TransferAPI) *LeadHandler {
	return &LeadHandler{leads: leads, transfer: transfer}
}

type leadPage struct {
	Leads       []model.Lead `json:"leads"`
	TotalPages  int64        `json:"totalPages"`
	CurrentPage int          `json:"currentPage"`
	Total       int64        `json:"total"`
}

func newLeadPage(p service.PageResult[model.Lead]) leadPage {
	items := p.Items
	if items == nil {
		items = []model.Lead{}
	}
	return leadPage{Leads: items, TotalPages: p.TotalPages, CurrentPage: p.CurrentPage, Total: p.Total}
}

type leadResponse struct {
	Message string      `json:"message"`
	Lead    *model.Lead `json:"lead"`
}

type importResponse struct {
	Message  string   `json:"message"`
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
}

// List handles GET /api/leads.
func (h *LeadHandler) List(c echo.Context) error {
	q := service.LeadQuery{
		Status: c.QueryParam("status"),
		Tags:   listParam(c, "tags"),
		Search: c.QueryParam("search"),
	}
	q.Page, q.Limit = pageParams(c)
	if err := echo.QueryParamsBinder(c).Uint64("assignedTo", &q.AssignedTo).BindError(); err != nil {
		return err
	}
	var err error
	if q.StartDate, err = dateParam(c, "startDate"); err != nil {
		return err
	}
	if q.EndDate, err = dateParam(c, "endDate"); err != nil {
		return err
	}

	res, err := h.leads.List(c.Request().Context(), middleware.CurrentUser(c), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newLeadPage(res))
}

// Get handles GET /api/leads/:id.
func (h *LeadHandler) Get(c echo.Context) error {
	id, err := paramID(c, "id", "Lead")
	if err != nil {
		return err
	}
	l, err := h.leads.Get(c.Request().Context(), middleware.CurrentUser(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

// Create handles POST /api/leads.
func (h *LeadHandler) Create(c echo.Context) (*Outcome, error) {
	var req dto.CreateLeadRequest
	raw, err := bindJSON(c, &req)
	if err != nil {
		return nil, err
	}
	l, err := h.leads.Create(c.Request().Context(), middleware.CurrentUser(c), req)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Status:  http.StatusCreated,
		Body:    leadResponse{Message: "Lead created successfully", Lead: l},
		Details: raw,
	}, nil
}

// Update handles PUT /api/leads/:id.
func (h *LeadHandler) Update(c echo.Context) (*Outcome, error) {
	id, err := paramID(c, "id", "Lead")
	if err != nil {
		return nil, err
	}
	var req dto.UpdateLeadRequest
	raw, err := bindJSON(c, &req)
	if err != nil {
		return nil, err
	}
	l, err := h.leads.Update(c.Request().Context(), middleware.CurrentUser(c), id, req)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Status:  http.StatusOK,
		Body:    leadResponse{Message: "Lead updated successfully", Lead: l},
		Details: raw,
	}, nil
}

// Import handles POST /api/leads/import with a multipart "file" field.
func (h *LeadHandler) Import(c echo.Context) (*Outcome, error) {
	fh, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, apperr.Invalid("Excel file required")
	}
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apperr.Unexpected("open upload", err)
	}
	defer f.Close()

	res, err := h.transfer.Import(c.Request().Context(), middleware.CurrentUser(c), f)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Status: http.StatusOK,
		Body: importResponse{
			Message:  "Import completed",
			Imported: res.Imported,
			Failed:   res.Failed,
			Errors:   res.Errors,
		},
		Details: map[string]any{"file": fh.Filename, "imported": res.Imported, "failed": res.Failed},
	}, nil
}

// Export handles GET /api/leads/export. tags and fields are comma
// separated.
func (h *LeadHandler) Export(c echo.Context) error {
	q := service.ExportQuery{Tags: listParam(c, "tags"), Fields: listParam(c, "fields")}
	var buf bytes.Buffer
	if err := h.transfer.Export(c.Request().Context(), middleware.CurrentUser(c), q, &buf); err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+spreadsheet.FileName)
	return c.Blob(http.StatusOK, spreadsheet.ContentType, buf.Bytes())
}
