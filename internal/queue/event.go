// Package queue carries activity events over RabbitMQ: a publisher used by
// the request path and a consumer that appends them to a log file.
package queue

import "time"

// ActivityQueue is the durable queue activity events are routed to.
const ActivityQueue = "activity.recorded"

// ActivityRecordedEvent is published after an activity log entry has been
// stored. It is self-contained so consumers never query the database.
type ActivityRecordedEvent struct {
	ActivityID uint64    `json:"activity_id"`
	UserID     uint64    `json:"user_id"`
	UserEmail  string    `json:"user_email,omitempty"`
	Action     string    `json:"action"`
	Entity     string    `json:"entity"`
	EntityID   string    `json:"entity_id,omitempty"`
	IPAddress  string    `json:"ip_address"`
	RecordedAt time.Time `json:"recorded_at"`
}
