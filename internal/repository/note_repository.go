package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/crm-backend/internal/apperr"
	"github.com/iliyamo/crm-backend/internal/model"
)

const msgNoteNotFound = "Note not found"

const noteSelect = `SELECT n.id, n.lead_id, n.content,
	u.id AS author_id, u.name AS author_name, u.email AS author_email,
	n.created_at, n.updated_at
FROM lead_notes n
LEFT JOIN users u ON u.id = n.created_by`

type noteRow struct {
	ID          uint64         `db:"id"`
	LeadID      uint64         `db:"lead_id"`
	Content     string         `db:"content"`
	AuthorID    sql.NullInt64  `db:"author_id"`
	AuthorName  sql.NullString `db:"author_name"`
	AuthorEmail sql.NullString `db:"author_email"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r noteRow) note() model.Note {
	return model.Note{
		ID:        r.ID,
		LeadID:    r.LeadID,
		Content:   r.Content,
		CreatedBy: userRef(r.AuthorID, r.AuthorName, r.AuthorEmail),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// NoteRepo stores the notes of a lead. Each statement touches a single
// note row, so concurrent edits of different notes never overwrite each
// other.
type NoteRepo struct{ db *sqlx.DB }

func NewNoteRepo(db *sqlx.DB) *NoteRepo { return &NoteRepo{db: db} }

// Add appends a note to the lead and returns its id.
func (r *NoteRepo) Add(ctx context.Context, leadID uint64, content string, authorID uint64, now time.Time) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO lead_notes (lead_id, content, created_by, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		leadID, content, authorID, now, now)
	if err != nil {
		return 0, translate(err, msgLeadNotFound, msgNoteNotFound)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperr.Unexpected("database error", err)
	}
	return uint64(id), nil
}

// Get loads one note of a lead.
func (r *NoteRepo) Get(ctx context.Context, leadID, noteID uint64) (*model.Note, error) {
	var row noteRow
	if err := r.db.GetContext(ctx, &row, noteSelect+" WHERE n.lead_id = ? AND n.id = ? LIMIT 1", leadID, noteID); err != nil {
		return nil, translate(err, msgNoteNotFound, msgNoteNotFound)
	}
	n := row.note()
	return &n, nil
}

// List returns the notes of a lead in insertion order.
func (r *NoteRepo) List(ctx context.Context, leadID uint64) ([]model.Note, error) {
	rows := []noteRow{}
	if err := r.db.SelectContext(ctx, &rows, noteSelect+" WHERE n.lead_id = ? ORDER BY n.id", leadID); err != nil {
		return nil, translate(err, msgNoteNotFound, msgNoteNotFound)
	}
	notes := make([]model.Note, 0, len(rows))
	for _, row := range rows {
		notes = append(notes, row.note())
	}
	return notes, nil
}

// UpdateContent rewrites the content of one note and stamps its updated_at.
func (r *NoteRepo) UpdateContent(ctx context.Context, leadID, noteID uint64, content string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE lead_notes SET content = ?, updated_at = ? WHERE lead_id = ? AND id = ?",
		content, now, leadID, noteID)
	return translate(err, msgNoteNotFound, msgNoteNotFound)
}

// Delete removes one note.
func (r *NoteRepo) Delete(ctx context.Context, leadID, noteID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM lead_notes WHERE lead_id = ? AND id = ?", leadID, noteID)
	if err != nil {
		return translate(err, msgNoteNotFound, msgNoteNotFound)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound(msgNoteNotFound)
	}
	return nil
}
