package errors

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// keyList matches the column list of a unique violation detail such as
// "Key (collection, slug)=(locations, sala-mare) already exists.".
var keyList = regexp.MustCompile(`Key \(([^)]+)\)=`)

// sentinels are checked in order before any driver error.
var sentinels = []struct {
	target error
	code   ErrorCode
	msg    string
}{
	{context.DeadlineExceeded, ErrCodeTimeout, "Request timed out. Please try again."},
	{context.Canceled, ErrCodeCanceled, "Request was canceled."},
	{pgx.ErrNoRows, ErrCodeNotFound, "Resource not found"},
}

// MapDBError turns driver and context errors into *AppError. No rows is
// NotFound, a unique violation is Conflict on the offending column, and
// constraint violations are Validation. Anything else is returned as is.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	for _, s := range sentinels {
		if errors.Is(err, s.target) {
			return Wrap(err, s.code, s.msg)
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fromPgError(pgErr)
	}
	return err
}

func fromPgError(pgErr *pgconn.PgError) *AppError {
	out := &AppError{Cause: pgErr}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		out.Code, out.Field = ErrCodeConflict, conflictField(pgErr)
		out.Message = "This value already exists. Please choose a different one."
	case pgerrcode.ForeignKeyViolation:
		out.Code = ErrCodeValidation
		out.Message = "Cannot complete operation because a referenced " + referencedThing(pgErr.TableName) + " does not exist."
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		out.Code, out.Field = ErrCodeValidation, pgErr.ColumnName
		out.Message = "This field has an invalid value."
	default:
		out.Code = ErrCodeInternal
		out.Message = "A database error occurred. Please try again."
	}
	return out
}

func referencedThing(table string) string {
	if table == "" {
		return "record"
	}
	return strings.TrimSuffix(table, "s")
}

// conflictField tries the column name, then the last key of the detail, then
// the middle of a "<table>_<column>_key" constraint.
func conflictField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if m := keyList.FindStringSubmatch(pgErr.Detail); m != nil {
		i := strings.LastIndexByte(m[1], ',')
		return strings.TrimSpace(m[1][i+1:])
	}
	if parts := strings.Split(pgErr.ConstraintName, "_"); len(parts) == 3 {
		return parts[1]
	}
	return ""
}
