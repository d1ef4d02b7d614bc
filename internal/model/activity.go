package model

import (
	"encoding/json"
	"time"
)

// ActivityLog is one append-only audit record of a mutating request.
type ActivityLog struct {
	ID        uint64          `json:"id"`
	UserID    uint64          `json:"-"`
	User      *UserRef        `json:"user"`
	Action    string          `json:"action"`
	Entity    string          `json:"entity"`
	EntityID  string          `json:"entityId,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	IPAddress string          `json:"ipAddress"`
	UserAgent string          `json:"userAgent"`
	Timestamp time.Time       `json:"timestamp"`
}
