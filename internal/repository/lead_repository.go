package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/crm-backend/internal/apperr"
	"github.com/iliyamo/crm-backend/internal/model"
)

const (
	msgLeadNotFound = "Lead not found"
	msgLeadExists   = "Lead with this email already exists"
)

const leadSelect = `SELECT l.id, l.name, l.email, l.phone, l.source, l.status,
	a.id AS assigned_id, a.name AS assigned_name, a.email AS assigned_email,
	c.id AS creator_id, c.name AS creator_name, c.email AS creator_email,
	l.created_at, l.updated_at
FROM leads l
LEFT JOIN users a ON a.id = l.assigned_to
LEFT JOIN users c ON c.id = l.created_by`

type leadRow struct {
	ID            uint64         `db:"id"`
	Name          string         `db:"name"`
	Email         string         `db:"email"`
	Phone         string         `db:"phone"`
	Source        string         `db:"source"`
	Status        string         `db:"status"`
	AssignedID    sql.NullInt64  `db:"assigned_id"`
	AssignedName  sql.NullString `db:"assigned_name"`
	AssignedEmail sql.NullString `db:"assigned_email"`
	CreatorID     sql.NullInt64  `db:"creator_id"`
	CreatorName   sql.NullString `db:"creator_name"`
	CreatorEmail  sql.NullString `db:"creator_email"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func userRef(id sql.NullInt64, name, email sql.NullString) *model.UserRef {
	if !id.Valid {
		return nil
	}
	return &model.UserRef{ID: uint64(id.Int64), Name: name.String, Email: email.String}
}

func (r leadRow) lead() model.Lead {
	return model.Lead{
		ID:         r.ID,
		Name:       r.Name,
		Email:      r.Email,
		Phone:      r.Phone,
		Source:     r.Source,
		Status:     model.LeadStatus(r.Status),
		Tags:       []string{},
		AssignedTo: userRef(r.AssignedID, r.AssignedName, r.AssignedEmail),
		CreatedBy:  userRef(r.CreatorID, r.CreatorName, r.CreatorEmail),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// LeadRepo encapsulates the queries over leads and their tags.
type LeadRepo struct {
	db    *sqlx.DB
	notes *NoteRepo
}

func NewLeadRepo(db *sqlx.DB) *LeadRepo {
	return &LeadRepo{db: db, notes: NewNoteRepo(db)}
}

// List returns one page of leads matching f, newest first, and the total
// match count.
func (r *LeadRepo) List(ctx context.Context, f LeadFilter, p model.Page) ([]model.Lead, int64, error) {
	where, args, err := f.Where()
	if err != nil {
		return nil, 0, apperr.Unexpected("build filter", err)
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM leads l WHERE "+where, args...); err != nil {
		return nil, 0, translate(err, msgLeadNotFound, msgLeadExists)
	}

	q := leadSelect + " WHERE " + where + " ORDER BY l.created_at DESC, l.id DESC LIMIT ? OFFSET ?"
	rows := []leadRow{}
	if err := r.db.SelectContext(ctx, &rows, q, append(append([]any{}, args...), p.Limit, p.Offset())...); err != nil {
		return nil, 0, translate(err, msgLeadNotFound, msgLeadExists)
	}
	leads, err := r.withTags(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

// ListAll returns every lead matching f, newest first.
func (r *LeadRepo) ListAll(ctx context.Context, f LeadFilter) ([]model.Lead, error) {
	where, args, err := f.Where()
	if err != nil {
		return nil, apperr.Unexpected("build filter", err)
	}
	rows := []leadRow{}
	if err := r.db.SelectContext(ctx, &rows, leadSelect+" WHERE "+where+" ORDER BY l.created_at DESC, l.id DESC", args...); err != nil {
		return nil, translate(err, msgLeadNotFound, msgLeadExists)
	}
	return r.withTags(ctx, rows)
}

// Find loads a lead without its tags and notes.
func (r *LeadRepo) Find(ctx context.Context, id uint64) (*model.Lead, error) {
	var row leadRow
	if err := r.db.GetContext(ctx, &row, leadSelect+" WHERE l.id = ? LIMIT 1", id); err != nil {
		return nil, translate(err, msgLeadNotFound, msgLeadExists)
	}
	l := row.lead()
	return &l, nil
}

// Get loads a lead with its tags and notes.
func (r *LeadRepo) Get(ctx context.Context, id uint64) (*model.Lead, error) {
	l, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	tags, err := r.Tags(ctx, id)
	if err != nil {
		return nil, err
	}
	l.Tags = tags
	notes, err := r.notes.List(ctx, id)
	if err != nil {
		return nil, err
	}
	l.Notes = notes
	return l, nil
}

// Create inserts the lead and its tags in one transaction.
func (r *LeadRepo) Create(ctx context.Context, in model.NewLead) (uint64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, apperr.Unexpected("database error", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO leads (name, email, phone, source, status, assigned_to, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Name, in.Email, in.Phone, in.Source, in.Status, nullableID(in.AssignedTo), in.CreatedBy, in.CreatedAt, in.CreatedAt)
	if err != nil {
		return 0, translate(err, msgLeadNotFound, msgLeadExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperr.Unexpected("database error", err)
	}
	if err := insertTags(ctx, tx, uint64(id), in.Tags); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, apperr.Unexpected("database error", err)
	}
	return uint64(id), nil
}

// Update applies the allow-listed patch and stamps updated_at.
func (r *LeadRepo) Update(ctx context.Context, id uint64, p model.LeadPatch, now time.Time) error {
	sets := []string{"updated_at = ?"}
	args := []any{now}
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.Phone != nil {
		add("phone", *p.Phone)
	}
	if p.Source != nil {
		add("source", *p.Source)
	}
	if p.Status != nil {
		add("status", *p.Status)
	}
	if p.AssignedTo != nil {
		add("assigned_to", nullableID(p.AssignedTo.Value))
	}
	args = append(args, id)

	_, err := r.db.ExecContext(ctx, "UPDATE leads SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	return translate(err, msgLeadNotFound, msgLeadExists)
}

func (r *LeadRepo) withTags(ctx context.Context, rows []leadRow) ([]model.Lead, error) {
	leads := make([]model.Lead, 0, len(rows))
	if len(rows) == 0 {
		return leads, nil
	}
	ids := make([]uint64, 0, len(rows))
	for _, row := range rows {
		leads = append(leads, row.lead())
		ids = append(ids, row.ID)
	}

	q, args, err := sqlx.In("SELECT lead_id, tag FROM lead_tags WHERE lead_id IN (?) ORDER BY id", ids)
	if err != nil {
		return nil, apperr.Unexpected("build tag query", err)
	}
	var tagRows []struct {
		LeadID uint64 `db:"lead_id"`
		Tag    string `db:"tag"`
	}
	if err := r.db.SelectContext(ctx, &tagRows, q, args...); err != nil {
		return nil, translate(err, msgLeadNotFound, msgLeadExists)
	}
	byLead := make(map[uint64][]string, len(leads))
	for _, t := range tagRows {
		byLead[t.LeadID] = append(byLead[t.LeadID], t.Tag)
	}
	for i := range leads {
		if tags, ok := byLead[leads[i].ID]; ok {
			leads[i].Tags = tags
		}
	}
	return leads, nil
}
