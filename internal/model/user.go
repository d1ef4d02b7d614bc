package model

import "time"

// Role is the access tier of a user.
type Role string

const (
	RoleSuperAdmin   Role = "super_admin"
	RoleSubAdmin     Role = "sub_admin"
	RoleSupportAgent Role = "support_agent"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleSubAdmin, RoleSupportAgent:
		return true
	}
	return false
}

// IsAdmin is true for super_admin and sub_admin.
func (r Role) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleSubAdmin
}

// User mirrors the `users` table. The password hash never leaves the
// process in JSON.
type User struct {
	ID           uint64     `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         Role       `db:"role" json:"role"`
	IsActive     bool       `db:"is_active" json:"isActive"`
	LastLogin    *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// UserRef is the lightweight projection used wherever a user is referenced
// from another record.
type UserRef struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserPatch lists the user fields an administrator may change. Email and
// password are deliberately absent.
type UserPatch struct {
	Name     *string
	Role     *Role
	IsActive *bool
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Role == nil && p.IsActive == nil
}
