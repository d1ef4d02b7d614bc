package repository

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMockDB returns a sqlx handle backed by sqlmock and registers the
// expectations check on cleanup.
func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		raw.Close()
	})
	return sqlx.NewDb(raw, "mysql"), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }
