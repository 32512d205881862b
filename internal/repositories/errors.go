package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
	// ErrInvalid indicates the database rejected a value as malformed or out of range.
	ErrInvalid = errors.New("record invalid")
)

const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgInvalidTextRepresent = "22P02"
)

// translatePgError maps constraint failures onto repository sentinels. It
// returns nil when err carries no code we care about.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return ErrConflict
	case pgForeignKeyViolation:
		return ErrNotFound
	case pgCheckViolation, pgInvalidTextRepresent:
		return ErrInvalid
	}
	return nil
}
