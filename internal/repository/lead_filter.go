package repository

import (
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/crm-backend/internal/access"
)

// LeadFilter is the set of predicates a lead query may combine. Every
// non-zero field contributes one condition and the conditions are ANDed.
type LeadFilter struct {
	Scope      access.Scope
	Status     string
	Tags       []string // any of
	AssignedTo uint64
	StartDate  *time.Time
	EndDate    *time.Time
	Search     string
}

// Where renders the filter as a SQL condition over the `leads l` alias.
func (f LeadFilter) Where() (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	if f.Scope.Restricted() {
		conds = append(conds, "l.assigned_to = ?")
		args = append(args, f.Scope.AssigneeID)
	}
	if f.Status != "" {
		conds = append(conds, "l.status = ?")
		args = append(args, f.Status)
	}
	if len(f.Tags) > 0 {
		q, a, err := sqlx.In("EXISTS (SELECT 1 FROM lead_tags t WHERE t.lead_id = l.id AND t.tag IN (?))", f.Tags)
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, q)
		args = append(args, a...)
	}
	if f.AssignedTo != 0 {
		conds = append(conds, "l.assigned_to = ?")
		args = append(args, f.AssignedTo)
	}
	if f.StartDate != nil {
		conds = append(conds, "l.created_at >= ?")
		args = append(args, *f.StartDate)
	}
	if f.EndDate != nil {
		conds = append(conds, "l.created_at <= ?")
		args = append(args, *f.EndDate)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + escapeLike(strings.ToLower(s)) + "%"
		conds = append(conds, "(LOWER(l.name) LIKE ? OR LOWER(l.email) LIKE ? OR LOWER(l.phone) LIKE ?)")
		args = append(args, like, like, like)
	}
	if len(conds) == 0 {
		return "1=1", nil, nil
	}
	return strings.Join(conds, " AND "), args, nil
}

// scopeWhere renders only the role scope, for aggregate queries.
func scopeWhere(s access.Scope) (string, []any) {
	if s.Restricted() {
		return "l.assigned_to = ?", []any{s.AssigneeID}
	}
	return "1=1", nil
}
