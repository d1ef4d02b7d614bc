package dto

import (
	"strings"

	"github.com/iliyamo/crm-backend/internal/model"
)

// CreateUserRequest is the body of POST /api/users. Only the non-root roles
// can be created here.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=sub_admin support_agent"`
}

func (r *CreateUserRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	return check(r)
}

// UpdateUserRequest is the allow-list of PUT /api/users/:id. Email and
// password cannot be changed here; unknown keys are ignored.
type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitnil,min=1,max=100"`
	Role     *string `json:"role" validate:"omitnil,oneof=super_admin sub_admin support_agent"`
	IsActive *bool   `json:"isActive"`
}

func (r *UpdateUserRequest) Validate() error {
	trimPtr(r.Name)
	return check(r)
}

// Patch converts the request into a store patch.
func (r *UpdateUserRequest) Patch() model.UserPatch {
	p := model.UserPatch{Name: r.Name, IsActive: r.IsActive}
	if r.Role != nil {
		role := model.Role(*r.Role)
		p.Role = &role
	}
	return p
}
