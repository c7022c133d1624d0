package data

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/unevent/unevent-api/internal/errors"
)

// Shared sentinel errors for data-layer repositories.
var (
	ErrListingNotFound = errors.New("listing not found")
	ErrMediaNotFound   = errors.New("media not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrProfileNotFound = errors.New("profile not found")
	// ErrJobNotFound is returned when a job is not found.
	ErrJobNotFound = errors.New("job not found")
)

// isInvalidID reports whether err is Postgres rejecting a malformed uuid literal.
// Lookups treat such ids as missing rows.
func isInvalidID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation
}

// notFound wraps a sentinel so callers can match it with errors.Is or apperrors.IsNotFound.
func notFound(sentinel error) error {
	return apperrors.Wrap(sentinel, apperrors.ErrCodeNotFound, sentinel.Error())
}
