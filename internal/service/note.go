package service

import (
	"context"

	"github.com/iliyamo/crm-backend/internal/access"
	"github.com/iliyamo/crm-backend/internal/dto"
	"github.com/iliyamo/crm-backend/internal/model"
)

// NoteService manages the notes of a lead. Every mutation is a single row
// statement, so concurrent edits of one lead do not lose each other.
type NoteService struct {
	leads LeadStore
	notes NoteStore
	now   Clock
}

func NewNoteService(leads LeadStore, notes NoteStore) *NoteService {
	return &NoteService{leads: leads, notes: notes, now: utcNow}
}

// Add appends a note and returns the lead's notes in insertion order.
func (s *NoteService) Add(ctx context.Context, caller *model.User, leadID uint64, req dto.NoteRequest) ([]model.Note, error) {
	if err := access.Authorize(caller, access.AllRoles); err != nil {
		return nil, err
	}
	l, err := s.leads.Find(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if err := access.CanModifyLead(caller, l); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.notes.Add(ctx, leadID, req.Content, caller.ID, s.now()); err != nil {
		return nil, err
	}
	return s.notes.List(ctx, leadID)
}

// Update rewrites a note's content. Only the author or an admin may do so.
func (s *NoteService) Update(ctx context.Context, caller *model.User, leadID, noteID uint64, req dto.NoteRequest) (*model.Note, error) {
	if _, err := s.authorizeNote(ctx, caller, leadID, noteID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.notes.UpdateContent(ctx, leadID, noteID, req.Content, s.now()); err != nil {
		return nil, err
	}
	return s.notes.Get(ctx, leadID, noteID)
}

// Delete removes a note. Only the author or an admin may do so.
func (s *NoteService) Delete(ctx context.Context, caller *model.User, leadID, noteID uint64) error {
	if _, err := s.authorizeNote(ctx, caller, leadID, noteID); err != nil {
		return err
	}
	return s.notes.Delete(ctx, leadID, noteID)
}

// List returns the notes of a lead visible to the caller.
func (s *NoteService) List(ctx context.Context, caller *model.User, leadID uint64) ([]model.Note, error) {
	l, err := s.leads.Find(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if !access.ScopeFor(caller).Allows(l.AssigneeID()) {
		return nil, errLeadNotFound()
	}
	return s.notes.List(ctx, leadID)
}

// authorizeNote resolves lead then note, 404 on either, then checks the
// note ownership.
func (s *NoteService) authorizeNote(ctx context.Context, caller *model.User, leadID, noteID uint64) (*model.Note, error) {
	if _, err := s.leads.Find(ctx, leadID); err != nil {
		return nil, err
	}
	n, err := s.notes.Get(ctx, leadID, noteID)
	if err != nil {
		return nil, err
	}
	if err := access.CanModifyNote(caller, n); err != nil {
		return nil, err
	}
	return n, nil
}
