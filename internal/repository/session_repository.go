package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// SessionRepo persists issued access tokens by their jti so logout can
// invalidate a token before it expires.
type SessionRepo struct{ db *sqlx.DB }

func NewSessionRepo(db *sqlx.DB) *SessionRepo { return &SessionRepo{db: db} }

// Store records a newly issued session.
func (r *SessionRepo) Store(ctx context.Context, jti string, userID uint64, exp time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (jti, user_id, expires_at) VALUES (?, ?, ?)",
		jti, userID, exp)
	return translate(err, "Session not found", "Session already exists")
}

// IsActive reports whether the session exists, is not revoked and has not
// expired.
func (r *SessionRepo) IsActive(ctx context.Context, jti string) (bool, error) {
	var row struct {
		ExpiresAt time.Time    `db:"expires_at"`
		RevokedAt sql.NullTime `db:"revoked_at"`
	}
	err := r.db.GetContext(ctx, &row, "SELECT expires_at, revoked_at FROM sessions WHERE jti = ? LIMIT 1", jti)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, translate(err, "Session not found", "Session already exists")
	}
	if row.RevokedAt.Valid {
		return false, nil
	}
	return time.Now().UTC().Before(row.ExpiresAt), nil
}

// Revoke marks one session as revoked.
func (r *SessionRepo) Revoke(ctx context.Context, jti string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET revoked_at = UTC_TIMESTAMP() WHERE jti = ? AND revoked_at IS NULL", jti)
	return translate(err, "Session not found", "Session already exists")
}

// RevokeAllForUser revokes every active session of a user.
func (r *SessionRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET revoked_at = UTC_TIMESTAMP() WHERE user_id = ? AND revoked_at IS NULL", userID)
	return translate(err, "Session not found", "Session already exists")
}
