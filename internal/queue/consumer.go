package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// ActivityConsumer drains ActivityQueue into <dir>/activity.log, one line
// per event.
type ActivityConsumer struct {
	url string
	dir string
	log logrus.FieldLogger
}

func NewActivityConsumer(url, dir string, log logrus.FieldLogger) *ActivityConsumer {
	if dir == "" {
		dir = "logs"
	}
	return &ActivityConsumer{url: url, dir: dir, log: log.WithField("component", "activity-consumer")}
}

// Run consumes until ctx is cancelled, redialing with exponential backoff
// capped at 30s whenever the broker goes away.
func (c *ActivityConsumer) Run(ctx context.Context) {
	backoff := time.Second
	for ctx.Err() == nil {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		c.log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func (c *ActivityConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.WithError(err).Warn("set QoS failed")
	}
	if _, err := ch.QueueDeclare(ActivityQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(ActivityQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(d.Body); err != nil {
				c.log.WithError(err).Error("handle message failed")
				_ = d.Nack(false, false) // do not requeue, avoids tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *ActivityConsumer) handle(body []byte) error {
	var ev ActivityRecordedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.dir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.dir, "activity.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(ev ActivityRecordedEvent) string {
	entityID := ev.EntityID
	if entityID == "" {
		entityID = "-"
	}
	return fmt.Sprintf("[%s] %s %s | activity_id=%d | user_id=%d | user=%q | entity_id=%s | ip=%s\n",
		ev.RecordedAt.UTC().Format(time.RFC3339), ev.Action, ev.Entity, ev.ActivityID, ev.UserID, ev.UserEmail, entityID, ev.IPAddress)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
