// Package access holds the role rules of the CRM. Everything here is a pure
// function of the caller and the loaded resource.
package access

import (
	"github.com/iliyamo/crm-backend/internal/apperr"
	"github.com/iliyamo/crm-backend/internal/model"
)

var (
	AllRoles   = []model.Role{model.RoleSuperAdmin, model.RoleSubAdmin, model.RoleSupportAgent}
	AdminRoles = []model.Role{model.RoleSuperAdmin, model.RoleSubAdmin}
	SuperAdmin = []model.Role{model.RoleSuperAdmin}
)

// IsAuthorized reports whether role is one of allowed.
func IsAuthorized(role model.Role, allowed []model.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// Authorize returns apperr.ErrAccessDenied unless the user's role is allowed.
func Authorize(u *model.User, allowed []model.Role) error {
	if u == nil || !IsAuthorized(u.Role, allowed) {
		return apperr.ErrAccessDenied
	}
	return nil
}

// Scope is the implicit visibility restriction for list and read queries.
// A zero Scope sees every lead.
type Scope struct {
	AssigneeID uint64
}

// Restricted reports whether the scope narrows results to one assignee.
func (s Scope) Restricted() bool { return s.AssigneeID != 0 }

// Allows reports whether a lead assigned to assigneeID is visible.
func (s Scope) Allows(assigneeID uint64) bool {
	return !s.Restricted() || s.AssigneeID == assigneeID
}

// ScopeFor returns the scope of the caller: support agents only see leads
// assigned to them.
func ScopeFor(u *model.User) Scope {
	if u != nil && u.Role == model.RoleSupportAgent {
		return Scope{AssigneeID: u.ID}
	}
	return Scope{}
}

// CanModifyLead checks the ownership of an already loaded lead.
func CanModifyLead(u *model.User, lead *model.Lead) error {
	if u == nil {
		return apperr.ErrAccessDenied
	}
	if u.Role == model.RoleSupportAgent && lead.AssigneeID() != u.ID {
		return apperr.ErrAccessDenied
	}
	return nil
}

// CanModifyNote allows the note author and the admin roles.
func CanModifyNote(u *model.User, note *model.Note) error {
	if u == nil {
		return apperr.ErrAccessDenied
	}
	if (note.AuthorID() != 0 && note.AuthorID() == u.ID) || u.Role.IsAdmin() {
		return nil
	}
	return apperr.ErrAccessDenied
}
