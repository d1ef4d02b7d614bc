package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/crm-backend/internal/apperr"
	"github.com/iliyamo/crm-backend/internal/model"
)

const activitySelect = `SELECT al.id, al.user_id, u.name AS user_name, u.email AS user_email,
	al.action, al.entity, al.entity_id, al.details, al.ip_address, al.user_agent, al.timestamp
FROM activity_logs al
LEFT JOIN users u ON u.id = al.user_id`

type activityRow struct {
	ID        uint64         `db:"id"`
	UserID    uint64         `db:"user_id"`
	UserName  sql.NullString `db:"user_name"`
	UserEmail sql.NullString `db:"user_email"`
	Action    string         `db:"action"`
	Entity    string         `db:"entity"`
	EntityID  sql.NullString `db:"entity_id"`
	Details   []byte         `db:"details"`
	IPAddress string         `db:"ip_address"`
	UserAgent string         `db:"user_agent"`
	Timestamp time.Time      `db:"timestamp"`
}

func (r activityRow) entry() model.ActivityLog {
	a := model.ActivityLog{
		ID:        r.ID,
		UserID:    r.UserID,
		Action:    r.Action,
		Entity:    r.Entity,
		EntityID:  r.EntityID.String,
		IPAddress: r.IPAddress,
		UserAgent: r.UserAgent,
		Timestamp: r.Timestamp,
	}
	if len(r.Details) > 0 {
		a.Details = json.RawMessage(r.Details)
	}
	if r.UserName.Valid {
		a.User = &model.UserRef{ID: r.UserID, Name: r.UserName.String, Email: r.UserEmail.String}
	}
	return a
}

// ActivityRepo is the append-only store of audit records.
type ActivityRepo struct{ db *sqlx.DB }

func NewActivityRepo(db *sqlx.DB) *ActivityRepo { return &ActivityRepo{db: db} }

// Create appends an entry and fills its ID.
func (r *ActivityRepo) Create(ctx context.Context, a *model.ActivityLog) error {
	var details any
	if len(a.Details) > 0 {
		details = string(a.Details)
	}
	var entityID any
	if a.EntityID != "" {
		entityID = a.EntityID
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO activity_logs (user_id, action, entity, entity_id, details, ip_address, user_agent, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.Action, a.Entity, entityID, details, a.IPAddress, a.UserAgent, a.Timestamp)
	if err != nil {
		return translate(err, "Activity not found", "Activity already exists")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperr.Unexpected("database error", err)
	}
	a.ID = uint64(id)
	return nil
}

// Recent returns the newest entries. A non-zero userID limits them to one
// user.
func (r *ActivityRepo) Recent(ctx context.Context, limit int, userID uint64) ([]model.ActivityLog, error) {
	q := activitySelect
	var args []any
	if userID != 0 {
		q += " WHERE al.user_id = ?"
		args = append(args, userID)
	}
	q += " ORDER BY al.timestamp DESC, al.id DESC LIMIT ?"
	args = append(args, limit)
	return r.query(ctx, q, args...)
}

// ListByUser returns one page of a user's entries, newest first.
func (r *ActivityRepo) ListByUser(ctx context.Context, userID uint64, p model.Page) ([]model.ActivityLog, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM activity_logs WHERE user_id = ?", userID); err != nil {
		return nil, 0, translate(err, "Activity not found", "Activity already exists")
	}
	items, err := r.query(ctx,
		activitySelect+" WHERE al.user_id = ? ORDER BY al.timestamp DESC, al.id DESC LIMIT ? OFFSET ?",
		userID, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *ActivityRepo) query(ctx context.Context, q string, args ...any) ([]model.ActivityLog, error) {
	rows := []activityRow{}
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, translate(err, "Activity not found", "Activity already exists")
	}
	out := make([]model.ActivityLog, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.entry())
	}
	return out, nil
}
