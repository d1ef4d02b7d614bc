// Package repository holds the MySQL data access layer. Every exported
// method returns *apperr.Error values so handlers never inspect driver
// errors.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/crm-backend/internal/apperr"
)

const (
	mysqlDuplicateEntry   = 1062
	mysqlMissingReference = 1452
)

// translate maps driver errors to the apperr taxonomy. notFound is used for
// sql.ErrNoRows and duplicate for unique key violations.
func translate(err error, notFound, duplicate string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(notFound)
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return apperr.Duplicate(duplicate, err)
		case mysqlMissingReference:
			return &apperr.Error{
				Kind:    apperr.KindValidation,
				Message: "Validation Error",
				Fields:  []apperr.FieldError{{Field: referencedField(me.Message), Message: "referenced user does not exist"}},
				Err:     err,
			}
		}
	}
	return apperr.Unexpected("database error", err)
}

func referencedField(msg string) string {
	switch {
	case strings.Contains(msg, "assigned_to"):
		return "assignedTo"
	case strings.Contains(msg, "created_by"):
		return "createdBy"
	default:
		return "reference"
	}
}

// escapeLike escapes the LIKE wildcards so search terms match literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func nullableID(id *uint64) any {
	if id == nil || *id == 0 {
		return nil
	}
	return *id
}
