package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ItemsAvailableCountCheck guards the stock balance against going negative.
const ItemsAvailableCountCheck = "items_available_count_check"

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// IsUniqueViolation reports whether err is a unique constraint failure. When
// constraintName is provided the failing constraint must match it.
func IsUniqueViolation(err error, constraintName string) bool {
	return matchesViolation(err, pgUniqueViolation, constraintName, "duplicate key value", "UNIQUE constraint failed")
}

// IsCheckViolation reports whether err is a CHECK constraint failure.
func IsCheckViolation(err error, constraintName string) bool {
	return matchesViolation(err, pgCheckViolation, constraintName, "violates check constraint", "CHECK constraint failed")
}

func matchesViolation(err error, code, constraintName string, fallbacks ...string) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) && pgxErr.Code == code {
		return constraintName == "" || pgxErr.ConstraintName == constraintName
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == code {
		return constraintName == "" || pqErr.Constraint == constraintName
	}

	msg := err.Error()
	if constraintName != "" && !strings.Contains(msg, constraintName) {
		return false
	}
	for _, marker := range fallbacks {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
