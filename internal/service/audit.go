package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crm-backend/internal/metrics"
	"github.com/iliyamo/crm-backend/internal/model"
	"github.com/iliyamo/crm-backend/internal/queue"
)

// redactedKeys never reach the activity log.
var redactedKeys = []string{"password"}

// AuditEntry describes one successful mutating request.
type AuditEntry struct {
	Action    string
	Entity    string
	EntityID  string
	Details   any
	IPAddress string
	UserAgent string
}

// Auditor appends activity log entries and announces them on the broker.
// Failures are logged and counted, never returned: auditing must not turn
// a successful request into a failed one.
type Auditor struct {
	store   ActivityStore
	pub     EventPublisher
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	now     Clock
	wg      sync.WaitGroup
}

// NewAuditor builds an auditor. pub may be nil when events are disabled.
func NewAuditor(store ActivityStore, pub EventPublisher, m *metrics.Metrics, log logrus.FieldLogger) *Auditor {
	if m == nil {
		m = metrics.Noop()
	}
	return &Auditor{store: store, pub: pub, metrics: m, log: log, now: utcNow}
}

// Record stores the entry for user. The broker event is sent in the
// background.
func (a *Auditor) Record(ctx context.Context, user *model.User, e AuditEntry) {
	if user == nil {
		return
	}
	entry := &model.ActivityLog{
		UserID:    user.ID,
		Action:    e.Action,
		Entity:    e.Entity,
		EntityID:  e.EntityID,
		Details:   redact(e.Details),
		IPAddress: e.IPAddress,
		UserAgent: e.UserAgent,
		Timestamp: a.now(),
	}
	if err := a.store.Create(ctx, entry); err != nil {
		a.metrics.ActivityWrites.WithLabelValues("error").Inc()
		a.log.WithError(err).WithFields(logrus.Fields{"action": e.Action, "entity": e.Entity}).Error("activity log write failed")
		return
	}
	a.metrics.ActivityWrites.WithLabelValues("ok").Inc()

	if a.pub == nil {
		return
	}
	ev := queue.ActivityRecordedEvent{
		ActivityID: entry.ID,
		UserID:     user.ID,
		UserEmail:  user.Email,
		Action:     entry.Action,
		Entity:     entry.Entity,
		EntityID:   entry.EntityID,
		IPAddress:  entry.IPAddress,
		RecordedAt: entry.Timestamp,
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := a.pub.PublishActivity(pctx, ev); err != nil {
			a.metrics.EventsPublished.WithLabelValues("error").Inc()
			a.log.WithError(err).Warn("activity event publish failed")
			return
		}
		a.metrics.EventsPublished.WithLabelValues("ok").Inc()
	}()
}

// Wait blocks until in-flight event publishes finish.
func (a *Auditor) Wait() { a.wg.Wait() }

// redact renders details as JSON with sensitive keys removed. Non-object
// payloads are stored as they are.
func redact(details any) json.RawMessage {
	if details == nil {
		return nil
	}
	b, err := json.Marshal(details)
	if err != nil {
		return nil
	}
	var obj map[string]any
	if json.Unmarshal(b, &obj) != nil {
		return b
	}
	for _, k := range redactedKeys {
		delete(obj, k)
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return nil
	}
	return out
}
