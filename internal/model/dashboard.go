package model

// StatusCount is one bucket of the status distribution.
type StatusCount struct {
	Status LeadStatus `db:"status" json:"status"`
	Count  int64      `db:"count" json:"count"`
}

// AgentPerformance summarizes the leads assigned to one agent.
// ConversionRate is won / total * 100.
type AgentPerformance struct {
	AgentID        uint64  `db:"agent_id" json:"agentId"`
	Agent          string  `db:"agent" json:"agent"`
	Total          int64   `db:"total" json:"total"`
	Won            int64   `db:"won" json:"won"`
	ConversionRate float64 `db:"-" json:"conversionRate"`
}

// MonthCount is the number of leads created in a calendar month (1-12),
// across all years.
type MonthCount struct {
	Month int   `db:"month" json:"month"`
	Count int64 `db:"count" json:"count"`
}

// DashboardStats is the aggregate returned by the dashboard endpoint.
type DashboardStats struct {
	StatusDistribution []StatusCount      `json:"statusDistribution"`
	AgentPerformance   []AgentPerformance `json:"agentPerformance"`
	RecentActivities   []ActivityLog      `json:"recentActivities"`
	MonthlyGrowth      []MonthCount       `json:"monthlyGrowth"`
	TotalLeads         int64              `json:"totalLeads"`
}
