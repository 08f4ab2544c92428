package storage

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// translate maps driver errors onto the model error taxonomy. what names the
// row involved and ends up in the message.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", model.ErrNotFound, what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			if pgErr.ConstraintName == slotHolderIndex {
				return fmt.Errorf("%w: %s: %w", model.ErrSlotUnavailable, what, err)
			}
			return fmt.Errorf("%w: %s: %w", model.ErrConflict, what, err)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s: %w", model.ErrConflict, what, err)
		case pgCheckViolation:
			return fmt.Errorf("%w: %s: %w", model.ErrInvalidInput, what, err)
		}
	}
	return err
}
