package storage

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/model"
)

const (
	pgExclusionViolation  = "23P01"
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	// Raised when a malformed id is compared against a uuid column.
	pgInvalidTextRepresentation = "22P02"
)

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == pgExclusionViolation || pgErr.Code == pgUniqueViolation)
}

func IsNotFound(err error) bool {
	var pgErr *pgconn.PgError
	return errors.Is(err, pgx.ErrNoRows) || (errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextRepresentation)
}

// mapErr translates driver errors into the model taxonomy.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	switch {
	case IsNotFound(err):
		return fmt.Errorf("%s: %w", op, model.ErrNotFound)
	case IsConflict(err):
		return fmt.Errorf("%s: %w", op, model.ErrConflict)
	case errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation:
		return model.Invalid("", "%s references an unknown record", op)
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrConflict), model.IsValidation(err):
		return err
	default:
		return model.Unavailable(op, err)
	}
}
