package service

import (
	"context"

	"github.com/iliyamo/crm-backend/internal/access"
	"github.com/iliyamo/crm-backend/internal/apperr"
	"github.com/iliyamo/crm-backend/internal/dto"
	"github.com/iliyamo/crm-backend/internal/model"
	"github.com/iliyamo/crm-backend/internal/repository"
)

// TagService implements the tag statistics and tag set updates.
type TagService struct {
	leads LeadStore
	now   Clock
}

func NewTagService(leads LeadStore) *TagService {
	return &TagService{leads: leads, now: utcNow}
}

// All counts tag usage over the leads visible to the caller, most used
// first.
func (s *TagService) All(ctx context.Context, caller *model.User) ([]model.TagCount, error) {
	return s.leads.TagCounts(ctx, access.ScopeFor(caller))
}

// Update adds tags to or removes tags from a lead. add is a set union;
// remove keeps the relative order of the remaining tags.
func (s *TagService) Update(ctx context.Context, caller *model.User, leadID uint64, req dto.UpdateTagsRequest) (*model.Lead, error) {
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

	switch req.TagAction() {
	case model.TagAdd:
		err = s.leads.AddTags(ctx, leadID, req.Tags, s.now())
	case model.TagRemove:
		err = s.leads.RemoveTags(ctx, leadID, req.Tags, s.now())
	default:
		err = apperr.Invalid("action must be add or remove")
	}
	if err != nil {
		return nil, err
	}
	return s.leads.Get(ctx, leadID)
}

// LeadsByTag pages through the visible leads carrying tag. The match is
// exact and case-sensitive.
func (s *TagService) LeadsByTag(ctx context.Context, caller *model.User, tag string, page, limit int) (PageResult[model.Lead], error) {
	f := repository.LeadFilter{Scope: access.ScopeFor(caller), Tags: []string{tag}}
	p := model.NewPage(page, limit, model.DefaultLimit)
	items, total, err := s.leads.List(ctx, f, p)
	if err != nil {
		return PageResult[model.Lead]{}, err
	}
	return newPageResult(items, total, p), nil
}
