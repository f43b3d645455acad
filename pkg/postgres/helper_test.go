package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestSQLStateHelpers(t *testing.T) {
	fk := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"})
	check := &pgconn.PgError{Code: "23514"}

	if !IsForeignKeyViolation(fk) {
		t.Error("wrapped 23503 must be a foreign key violation")
	}
	if IsForeignKeyViolation(check) || !IsCheckViolation(check) {
		t.Error("23514 must only be a check violation")
	}
	if IsForeignKeyViolation(nil) || IsCheckViolation(errors.New("plain")) {
		t.Error("non-postgres errors must not match")
	}
}
