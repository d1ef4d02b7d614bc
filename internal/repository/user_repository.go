package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/crm-backend/internal/apperr"
	"github.com/iliyamo/crm-backend/internal/model"
)

const userColumns = "id, name, email, password_hash, role, is_active, last_login, created_at, updated_at"

const (
	msgUserNotFound = "User not found"
	msgUserExists   = "User already exists"
)

type UserRepo struct{ db *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts u and fills its ID. The email is stored lower-cased so
// uniqueness is case-insensitive.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		u.Name, u.Email, u.PasswordHash, u.Role, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return translate(err, msgUserNotFound, msgUserExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperr.Unexpected("database error", err)
	}
	u.ID = uint64(id)
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, "SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id)
	if err != nil {
		return nil, translate(err, msgUserNotFound, msgUserExists)
	}
	return &u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.db.GetContext(ctx, &u, "SELECT "+userColumns+" FROM users WHERE email = ? LIMIT 1", email)
	if err != nil {
		return nil, translate(err, msgUserNotFound, msgUserExists)
	}
	return &u, nil
}

// Count returns the number of users; zero means the bootstrap registration
// is still open.
func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM users"); err != nil {
		return 0, translate(err, msgUserNotFound, msgUserExists)
	}
	return n, nil
}

// List returns users newest first, optionally restricted to one role.
func (r *UserRepo) List(ctx context.Context, role model.Role) ([]model.User, error) {
	q := "SELECT " + userColumns + " FROM users"
	var args []any
	if role != "" {
		q += " WHERE role = ?"
		args = append(args, role)
	}
	q += " ORDER BY created_at DESC, id DESC"

	users := []model.User{}
	if err := r.db.SelectContext(ctx, &users, q, args...); err != nil {
		return nil, translate(err, msgUserNotFound, msgUserExists)
	}
	return users, nil
}

// Update applies the allow-listed patch and returns the stored user.
func (r *UserRepo) Update(ctx context.Context, id uint64, p model.UserPatch, now time.Time) (*model.User, error) {
	sets := []string{"updated_at = ?"}
	args := []any{now}
	if p.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *p.Name)
	}
	if p.Role != nil {
		sets = append(sets, "role = ?")
		args = append(args, *p.Role)
	}
	if p.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *p.IsActive)
	}
	args = append(args, id)

	q := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return nil, translate(err, msgUserNotFound, msgUserExists)
	}
	return r.GetByID(ctx, id)
}

// Delete removes a user. Leads and notes keep their rows with the
// reference cleared.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return translate(err, msgUserNotFound, msgUserExists)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Unexpected("database error", err)
	}
	if n == 0 {
		return apperr.NotFound(msgUserNotFound)
	}
	return nil
}

// TouchLastLogin stamps the login time.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, "UPDATE users SET last_login = ? WHERE id = ?", at, id)
	return translate(err, msgUserNotFound, msgUserExists)
}
