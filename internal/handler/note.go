package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crm-backend/internal/dto"
	"github.com/iliyamo/crm-backend/internal/middleware"
	"github.com/iliyamo/crm-backend/internal/model"
)

type NoteAPI interface {
	Add(ctx context.Context, caller *model.User, leadID uint64, req dto.NoteRequest) ([]model.Note, error)
	Update(ctx context.Context, caller *model.User, leadID, noteID uint64, req dto.NoteRequest) (*model.Note, error)
	Delete(ctx context.Context, caller *model.User, leadID, noteID uint64) error
	List(ctx context.Context, caller *model.User, leadID uint64) ([]model.Note, error)
}

// NoteHandler serves /api/notes/:id/notes, where :id is the lead.
type NoteHandler struct {
	notes NoteAPI
}

func NewNoteHandler(notes NoteAPI) *NoteHandler {
	return &NoteHandler{notes: notes}
}

type notesResponse struct {
	Message string       `json:"message"`
	Notes   []model.Note `json:"notes"`
}

type noteResponse struct {
	Message string      `json:"message"`
	Note    *model.Note `json:"note"`
}

func noteIDs(c echo.Context) (leadID, noteID uint64, err error) {
	if leadID, err = paramID(c, "id", "Lead"); err != nil {
		return 0, 0, err
	}
	if noteID, err = paramID(c, "noteId", "Note"); err != nil {
		return 0, 0, err
	}
	return leadID, noteID, nil
}

// Add handles POST /api/notes/:id/notes.
func (h *NoteHandler) Add(c echo.Context) (*Outcome, error) {
	leadID, err := paramID(c, "id", "Lead")
	if err != nil {
		return nil, err
	}
	var req dto.NoteRequest
	raw, err := bindJSON(c, &req)
	if err != nil {
		return nil, err
	}
	notes, err := h.notes.Add(c.Request().Context(), middleware.CurrentUser(c), leadID, req)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Status:  http.StatusOK,
		Body:    notesResponse{Message: "Note added successfully", Notes: notes},
		Details: raw,
	}, nil
}

// Update handles PUT /api/notes/:id/notes/:noteId.
func (h *NoteHandler) Update(c echo.Context) (*Outcome, error) {
	leadID, noteID, err := noteIDs(c)
	if err != nil {
		return nil, err
	}
	var req dto.NoteRequest
	raw, err := bindJSON(c, &req)
	if err != nil {
		return nil, err
	}
	n, err := h.notes.Update(c.Request().Context(), middleware.CurrentUser(c), leadID, noteID, req)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Status:  http.StatusOK,
		Body:    noteResponse{Message: "Note updated successfully", Note: n},
		Details: raw,
	}, nil
}

// Delete handles DELETE /api/notes/:id/notes/:noteId.
func (h *NoteHandler) Delete(c echo.Context) (*Outcome, error) {
	leadID, noteID, err := noteIDs(c)
	if err != nil {
		return nil, err
	}
	if err := h.notes.Delete(c.Request().Context(), middleware.CurrentUser(c), leadID, noteID); err != nil {
		return nil, err
	}
	return &Outcome{
		Status:  http.StatusOK,
		Body:    message{Message: "Note deleted successfully"},
		Details: map[string]uint64{"noteId": noteID},
	}, nil
}

// List handles GET /api/notes/:id/notes.
func (h *NoteHandler) List(c echo.Context) error {
	leadID, err := paramID(c, "id", "Lead")
	if err != nil {
		return err
	}
	notes, err := h.notes.List(c.Request().Context(), middleware.CurrentUser(c), leadID)
	if err != nil {
		return err
	}
	if notes == nil {
		notes = []model.Note{}
	}
	return c.JSON(http.StatusOK, notes)
}
