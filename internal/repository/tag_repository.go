package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/crm-backend/internal/access"
	"github.com/iliyamo/crm-backend/internal/apperr"
	"github.com/iliyamo/crm-backend/internal/model"
)

// insertTags adds tags to a lead. INSERT IGNORE against the (lead_id, tag)
// unique key makes this a set union; existing tags keep their position.
func insertTags(ctx context.Context, ex sqlx.ExecerContext, leadID uint64, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	holders := make([]string, 0, len(tags))
	args := make([]any, 0, 2*len(tags))
	for _, t := range tags {
		holders = append(holders, "(?, ?)")
		args = append(args, leadID, t)
	}
	q := "INSERT IGNORE INTO lead_tags (lead_id, tag) VALUES " + strings.Join(holders, ", ")
	_, err := ex.ExecContext(ctx, q, args...)
	return translate(err, msgLeadNotFound, msgLeadExists)
}

// Tags returns the tags of a lead in insertion order.
func (r *LeadRepo) Tags(ctx context.Context, leadID uint64) ([]string, error) {
	tags := []string{}
	if err := r.db.SelectContext(ctx, &tags, "SELECT tag FROM lead_tags WHERE lead_id = ? ORDER BY id", leadID); err != nil {
		return nil, translate(err, msgLeadNotFound, msgLeadExists)
	}
	return tags, nil
}

// AddTags unions tags into the lead's tag set.
func (r *LeadRepo) AddTags(ctx context.Context, leadID uint64, tags []string, now time.Time) error {
	return r.mutateTags(ctx, leadID, now, func(tx *sqlx.Tx) error {
		return insertTags(ctx, tx, leadID, tags)
	})
}

// RemoveTags deletes tags from the lead's tag set; the remaining tags keep
// their relative order.
func (r *LeadRepo) RemoveTags(ctx context.Context, leadID uint64, tags []string, now time.Time) error {
	if len(tags) == 0 {
		return nil
	}
	return r.mutateTags(ctx, leadID, now, func(tx *sqlx.Tx) error {
		q, args, err := sqlx.In("DELETE FROM lead_tags WHERE lead_id = ? AND tag IN (?)", leadID, tags)
		if err != nil {
			return apperr.Unexpected("build tag query", err)
		}
		_, err = tx.ExecContext(ctx, q, args...)
		return translate(err, msgLeadNotFound, msgLeadExists)
	})
}

func (r *LeadRepo) mutateTags(ctx context.Context, leadID uint64, now time.Time, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Unexpected("database error", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE leads SET updated_at = ? WHERE id = ?", now, leadID); err != nil {
		return translate(err, msgLeadNotFound, msgLeadExists)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Unexpected("database error", err)
	}
	return nil
}

// TagCounts counts tag occurrences over the visible leads, most used first.
// Ties are ordered by tag.
func (r *LeadRepo) TagCounts(ctx context.Context, scope access.Scope) ([]model.TagCount, error) {
	where, args := scopeWhere(scope)
	q := `SELECT t.tag AS tag, COUNT(*) AS count
		FROM lead_tags t
		JOIN leads l ON l.id = t.lead_id
		WHERE ` + where + `
		GROUP BY t.tag
		ORDER BY count DESC, t.tag ASC`
	out := []model.TagCount{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, translate(err, msgLeadNotFound, msgLeadExists)
	}
	return out, nil
}
