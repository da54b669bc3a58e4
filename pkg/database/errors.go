package database

import (
	"errors"

	"github.com/lib/pq"
)

// ErrUniqueViolation marks inserts rejected by a unique constraint.
var ErrUniqueViolation = errors.New("unique constraint violation")

const uniqueViolationCode = pq.ErrorCode("23505")

// IsUniqueViolation reports whether err is (or wraps) a Postgres unique violation.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUniqueViolation) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}
	return false
}

// ConstraintName returns the violated constraint, when the driver reports one.
func ConstraintName(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}
