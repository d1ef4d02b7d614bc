package service

import (
	"context"
	"time"

	"github.com/iliyamo/crm-backend/internal/access"
	"github.com/iliyamo/crm-backend/internal/apperr"
	"github.com/iliyamo/crm-backend/internal/dto"
	"github.com/iliyamo/crm-backend/internal/model"
	"github.com/iliyamo/crm-backend/internal/repository"
)

// LeadQuery holds the filters of a lead listing as parsed from the query
// string. Zero values mean "no condition".
type LeadQuery struct {
	Status     string
	Tags       []string
	AssignedTo uint64
	StartDate  *time.Time
	EndDate    *time.Time
	Search     string
	Page       int
	Limit      int
}

// LeadService implements the lead query engine and lead mutations.
type LeadService struct {
	leads LeadStore
	now   Clock
}

func NewLeadService(leads LeadStore) *LeadService {
	return &LeadService{leads: leads, now: utcNow}
}

// List returns one page of the leads visible to the caller. The role scope
// is always ANDed with the explicit filters, including assignedTo.
func (s *LeadService) List(ctx context.Context, caller *model.User, q LeadQuery) (PageResult[model.Lead], error) {
	f := repository.LeadFilter{
		Scope:      access.ScopeFor(caller),
		Status:     q.Status,
		Tags:       q.Tags,
		AssignedTo: q.AssignedTo,
		StartDate:  q.StartDate,
		EndDate:    q.EndDate,
		Search:     q.Search,
	}
	p := model.NewPage(q.Page, q.Limit, model.DefaultLimit)
	items, total, err := s.leads.List(ctx, f, p)
	if err != nil {
		return PageResult[model.Lead]{}, err
	}
	return newPageResult(items, total, p), nil
}

// Get returns a lead with its tags and notes. Leads outside the caller's
// scope are reported as missing.
func (s *LeadService) Get(ctx context.Context, caller *model.User, id uint64) (*model.Lead, error) {
	l, err := s.leads.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.ScopeFor(caller).Allows(l.AssigneeID()) {
		return nil, errLeadNotFound()
	}
	return l, nil
}

func errLeadNotFound() error { return apperr.NotFound("Lead not found") }

// Create validates and stores a new lead. A support agent's lead is
// assigned to them unless the request names an assignee.
func (s *LeadService) Create(ctx context.Context, caller *model.User, req dto.CreateLeadRequest) (*model.Lead, error) {
	if err := access.Authorize(caller, access.AllRoles); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	in := newLead(req, caller, s.now())
	id, err := s.leads.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.leads.Get(ctx, id)
}

// Update applies the allow-listed patch after the ownership check: a
// missing lead is NotFound, a lead owned by someone else is Forbidden.
func (s *LeadService) Update(ctx context.Context, caller *model.User, id uint64, req dto.UpdateLeadRequest) (*model.Lead, error) {
	if _, err := s.loadForMutation(ctx, caller, id); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.leads.Update(ctx, id, req.Patch(), s.now()); err != nil {
		return nil, err
	}
	return s.leads.Get(ctx, id)
}

// loadForMutation loads the lead and checks that caller may modify it.
func (s *LeadService) loadForMutation(ctx context.Context, caller *model.User, id uint64) (*model.Lead, error) {
	l, err := s.leads.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.CanModifyLead(caller, l); err != nil {
		return nil, err
	}
	return l, nil
}

func newLead(req dto.CreateLeadRequest, caller *model.User, now time.Time) model.NewLead {
	in := model.NewLead{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Source:     req.Source,
		Status:     model.LeadStatus(req.Status),
		Tags:       req.Tags,
		AssignedTo: req.AssignedTo,
		CreatedBy:  caller.ID,
		CreatedAt:  now,
	}
	if in.AssignedTo == nil && caller.Role == model.RoleSupportAgent {
		self := caller.ID
		in.AssignedTo = &self
	}
	return in
}
