package service

import (
	"context"

	"github.com/iliyamo/crm-backend/internal/access"
	"github.com/iliyamo/crm-backend/internal/model"
)

// RecentActivityLimit is the number of activity entries on the dashboard.
const RecentActivityLimit = 10

// DashboardService aggregates the dashboard statistics.
type DashboardService struct {
	stats    DashboardStore
	activity ActivityStore
}

func NewDashboardService(stats DashboardStore, activity ActivityStore) *DashboardService {
	return &DashboardService{stats: stats, activity: activity}
}

// Stats computes the five dashboard sections under the caller's scope.
// They run one after the other and any failure fails the whole response.
// Agent performance is only computed for admin roles, and a support agent
// only sees their own recent activity.
func (s *DashboardService) Stats(ctx context.Context, caller *model.User) (*model.DashboardStats, error) {
	scope := access.ScopeFor(caller)
	out := &model.DashboardStats{AgentPerformance: []model.AgentPerformance{}}

	var err error
	if out.StatusDistribution, err = s.stats.StatusDistribution(ctx, scope); err != nil {
		return nil, err
	}
	if caller != nil && caller.Role.IsAdmin() {
		perf, err := s.stats.AgentPerformance(ctx)
		if err != nil {
			return nil, err
		}
		out.AgentPerformance = withConversionRates(perf)
	}
	if out.RecentActivities, err = s.activity.Recent(ctx, RecentActivityLimit, scope.AssigneeID); err != nil {
		return nil, err
	}
	if out.MonthlyGrowth, err = s.stats.MonthlyGrowth(ctx, scope); err != nil {
		return nil, err
	}
	if out.TotalLeads, err = s.stats.CountLeads(ctx, scope); err != nil {
		return nil, err
	}
	return out, nil
}

// withConversionRates fills won / total * 100. Rows with no leads are
// dropped rather than divided by zero.
func withConversionRates(rows []model.AgentPerformance) []model.AgentPerformance {
	out := make([]model.AgentPerformance, 0, len(rows))
	for _, r := range rows {
		if r.Total <= 0 {
			continue
		}
		r.ConversionRate = float64(r.Won) / float64(r.Total) * 100
		out = append(out, r)
	}
	return out
}
