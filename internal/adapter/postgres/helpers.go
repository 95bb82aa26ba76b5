package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Strob0t/Boardroom/internal/domain"
)

const (
	pgUniqueViolation = "23505"
	// pgInvalidText is raised when a uuid argument does not parse, e.g. a
	// path id of "abc".
	pgInvalidText = "22P02"
)

// scannable is satisfied by pgx.Row and pgx.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// nullIfEmpty maps "" to NULL for optional uuid columns such as parent_id.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s != nil {
		return *s
	}
	return ""
}

// nullTime maps the zero time to NULL, e.g. executions.published_at.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// pgUUIDArray keeps uuid[] columns NOT NULL when the slice is nil.
func pgUUIDArray(ids []string) []string {
	return orEmpty(ids)
}

// orEmpty turns a nil slice into an empty one so JSON encodes [] not null.
func orEmpty[T any](items []T) []T {
	if items != nil {
		return items
	}
	return []T{}
}

// wrapf prefixes err with a formatted operation label. An id that is not a
// uuid names no row, so it becomes domain.ErrNotFound.
func wrapf(err error, format string, args ...any) error {
	if hasCode(err, pgInvalidText) {
		err = domain.ErrNotFound
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// notFoundWrap labels err, turning pgx.ErrNoRows into domain.ErrNotFound.
func notFoundWrap(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		err = domain.ErrNotFound
	}
	return wrapf(err, format, args...)
}

// execExpectOne treats an UPDATE or DELETE that touched no row as not found.
func execExpectOne(tag pgconn.CommandTag, err error, format string, args ...any) error {
	switch {
	case err != nil:
		return wrapf(err, format, args...)
	case tag.RowsAffected() == 0:
		return wrapf(domain.ErrNotFound, format, args...)
	}
	return nil
}

// insertedOne checks an INSERT ... ON CONFLICT DO NOTHING. A skipped row
// and a unique violation both mean the vote or comment already exists.
func insertedOne(tag pgconn.CommandTag, err error, format string, args ...any) error {
	switch {
	case err != nil && isUniqueViolation(err):
		return wrapf(domain.ErrConstraintViolation, format, args...)
	case err != nil:
		return wrapf(err, format, args...)
	case tag.RowsAffected() == 0:
		return wrapf(domain.ErrConstraintViolation, format, args...)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return hasCode(err, pgUniqueViolation)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
