package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crm-backend/internal/config"
)

// DSN builds the MySQL connection string for cfg.
func DSN(cfg config.DBConfig) string {
	auth := cfg.User
	if cfg.Pass != "" {
		auth = fmt.Sprintf("%s:%s", cfg.User, cfg.Pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, cfg.Host, cfg.Port, cfg.Name)
}

// Open connects to MySQL and verifies the connection.
func Open(cfg config.DBConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, err
	}

	maxConns := cfg.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 25
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Pinger is the part of the pool the monitor needs.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Monitor pings the pool every interval until ctx is done. The pool redials
// on its own; the monitor only reports transitions so an outage is visible
// in the logs. Requests issued during an outage fail on their own.
func Monitor(ctx context.Context, db Pinger, interval time.Duration, log logrus.FieldLogger) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	connected := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		pctx, cancel := context.WithTimeout(ctx, interval)
		err := db.PingContext(pctx)
		cancel()
		switch {
		case err != nil && connected:
			connected = false
			log.WithError(err).Warnf("database disconnected, attempting to reconnect every %s", interval)
		case err != nil:
			log.WithError(err).Debug("database still unreachable")
		case !connected:
			connected = true
			log.Info("database reconnected")
		}
	}
}
