package database

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/apperrors"
)

// Postgres SQLSTATE codes the store turns into caller errors
const (
	pqForeignKeyViolation pq.ErrorCode = "23503"
	pqUniqueViolation     pq.ErrorCode = "23505"
	pqCheckViolation      pq.ErrorCode = "23514"
)

// classify maps constraint violations to apperrors kinds so callers can tell a bad
// reference from a failing database. Anything else is wrapped as "failed to <op>".
func classify(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqForeignKeyViolation:
			return apperrors.NotFound("failed to %s: referenced record does not exist (%s)", op, pqErr.Constraint)
		case pqUniqueViolation:
			return apperrors.Conflict("failed to %s: duplicate record (%s)", op, pqErr.Constraint)
		case pqCheckViolation:
			return apperrors.Validation("failed to %s: invalid value (%s)", op, pqErr.Constraint)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
