package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/crm-backend/internal/access"
	"github.com/iliyamo/crm-backend/internal/model"
)

// DashboardRepo runs the grouping queries behind the dashboard.
type DashboardRepo struct{ db *sqlx.DB }

func NewDashboardRepo(db *sqlx.DB) *DashboardRepo { return &DashboardRepo{db: db} }

// StatusDistribution counts visible leads per status.
func (r *DashboardRepo) StatusDistribution(ctx context.Context, scope access.Scope) ([]model.StatusCount, error) {
	where, args := scopeWhere(scope)
	out := []model.StatusCount{}
	err := r.db.SelectContext(ctx, &out,
		"SELECT l.status AS status, COUNT(*) AS count FROM leads l WHERE "+where+" GROUP BY l.status ORDER BY l.status",
		args...)
	return out, translate(err, msgLeadNotFound, msgLeadExists)
}

// AgentPerformance groups assigned leads by agent. Agents without leads
// produce no row. ConversionRate is left for the caller to compute.
func (r *DashboardRepo) AgentPerformance(ctx context.Context) ([]model.AgentPerformance, error) {
	out := []model.AgentPerformance{}
	err := r.db.SelectContext(ctx, &out, `SELECT u.id AS agent_id, u.name AS agent,
			COUNT(*) AS total,
			SUM(CASE WHEN l.status = 'won' THEN 1 ELSE 0 END) AS won
		FROM leads l
		JOIN users u ON u.id = l.assigned_to
		GROUP BY u.id, u.name
		ORDER BY total DESC, u.id ASC`)
	return out, translate(err, msgLeadNotFound, msgLeadExists)
}

// MonthlyGrowth counts visible leads per calendar month of creation,
// collapsing years, ordered by month.
func (r *DashboardRepo) MonthlyGrowth(ctx context.Context, scope access.Scope) ([]model.MonthCount, error) {
	where, args := scopeWhere(scope)
	out := []model.MonthCount{}
	err := r.db.SelectContext(ctx, &out,
		"SELECT MONTH(l.created_at) AS month, COUNT(*) AS count FROM leads l WHERE "+where+" GROUP BY MONTH(l.created_at) ORDER BY month ASC",
		args...)
	return out, translate(err, msgLeadNotFound, msgLeadExists)
}

// CountLeads counts visible leads.
func (r *DashboardRepo) CountLeads(ctx context.Context, scope access.Scope) (int64, error) {
	where, args := scopeWhere(scope)
	var n int64
	err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM leads l WHERE "+where, args...)
	return n, translate(err, msgLeadNotFound, msgLeadExists)
}
