package service

import (
	"context"
	"time"

	"github.com/iliyamo/crm-backend/internal/access"
	"github.com/iliyamo/crm-backend/internal/apperr"
	"github.com/iliyamo/crm-backend/internal/dto"
	"github.com/iliyamo/crm-backend/internal/model"
	"github.com/iliyamo/crm-backend/internal/utils"
)

// ActivityPageLimit is the default page size of a user's activity.
const ActivityPageLimit = 50

// UserService is the user administration used by super admins.
type UserService struct {
	users      UserStore
	sessions   SessionStore
	activity   ActivityStore
	bcryptCost int
	now        Clock
}

func NewUserService(users UserStore, sessions SessionStore, activity ActivityStore, bcryptCost int) *UserService {
	return &UserService{users: users, sessions: sessions, activity: activity, bcryptCost: bcryptCost, now: utcNow}
}

// Create adds a sub_admin or support_agent.
func (s *UserService) Create(ctx context.Context, caller *model.User, req dto.CreateUserRequest) (*model.User, error) {
	if err := access.Authorize(caller, access.SuperAdmin); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return createUser(ctx, s.users, s.bcryptCost, s.now(), req.Name, req.Email, req.Password, model.Role(req.Role))
}

// List returns every user, newest first, optionally filtered by role.
func (s *UserService) List(ctx context.Context, caller *model.User, role string) ([]model.User, error) {
	if err := access.Authorize(caller, access.AdminRoles); err != nil {
		return nil, err
	}
	if role != "" && !model.Role(role).Valid() {
		return nil, apperr.Validation(apperr.FieldError{Field: "role", Message: "role must be one of: super_admin, sub_admin, support_agent"})
	}
	return s.users.List(ctx, model.Role(role))
}

// Update applies the name, role and isActive allow-list. Deactivating a
// user revokes their sessions.
func (s *UserService) Update(ctx context.Context, caller *model.User, id uint64, req dto.UpdateUserRequest) (*model.User, error) {
	if err := access.Authorize(caller, access.SuperAdmin); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	u, err := s.users.Update(ctx, id, req.Patch(), s.now())
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		if err := s.sessions.RevokeAllForUser(ctx, u.ID); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// Delete removes a user other than the caller.
func (s *UserService) Delete(ctx context.Context, caller *model.User, id uint64) error {
	if err := access.Authorize(caller, access.SuperAdmin); err != nil {
		return err
	}
	if caller.ID == id {
		return apperr.Invalid("Cannot delete yourself")
	}
	return s.users.Delete(ctx, id)
}

// Activity returns one page of a user's activity, newest first.
func (s *UserService) Activity(ctx context.Context, caller *model.User, userID uint64, page, limit int) (PageResult[model.ActivityLog], error) {
	if err := access.Authorize(caller, access.SuperAdmin); err != nil {
		return PageResult[model.ActivityLog]{}, err
	}
	p := model.NewPage(page, limit, ActivityPageLimit)
	items, total, err := s.activity.ListByUser(ctx, userID, p)
	if err != nil {
		return PageResult[model.ActivityLog]{}, err
	}
	return newPageResult(items, total, p), nil
}

func createUser(ctx context.Context, users UserStore, cost int, now time.Time, name, email, password string, role model.Role) (*model.User, error) {
	if _, err := users.GetByEmail(ctx, email); err == nil {
		return nil, apperr.Duplicate("User already exists", nil)
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return nil, apperr.Unexpected("hash password", err)
	}
	u := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
