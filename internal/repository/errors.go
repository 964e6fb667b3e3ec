// Package repository holds the MySQL-backed stores for tours, users and
// reviews. Driver errors are translated into the sentinels below so the
// layers above never inspect MySQL error numbers themselves.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when no row matches the requested identity.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is matched (via errors.Is) by every *DuplicateError.
var ErrDuplicate = errors.New("duplicate")

// ErrBadReference is returned when a foreign key points at a missing row,
// e.g. a review for a tour that does not exist.
var ErrBadReference = errors.New("referenced record does not exist")

// DuplicateError reports a unique-constraint violation. Value is the
// offending value as reported by MySQL.
type DuplicateError struct {
	Value string
	Key   string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate value %q for key %s", e.Value, e.Key)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

const (
	errDupEntry      = 1062
	errNoReferenced  = 1452
	dupEntryPrefix   = "Duplicate entry '"
	dupEntryKeyInfix = "' for key '"
)

// translate maps driver errors to repository sentinels. Unknown errors are
// returned unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case errDupEntry:
		return parseDuplicate(me.Message)
	case errNoReferenced:
		return fmt.Errorf("%w: %s", ErrBadReference, me.Message)
	}
	return err
}

// parseDuplicate extracts value and key from
// "Duplicate entry 'x' for key 'tours.uq_tours_name'".
func parseDuplicate(msg string) *DuplicateError {
	d := &DuplicateError{}
	rest, ok := strings.CutPrefix(msg, dupEntryPrefix)
	if !ok {
		d.Value = msg
		return d
	}
	i := strings.LastIndex(rest, dupEntryKeyInfix)
	if i < 0 {
		d.Value = rest
		return d
	}
	d.Value = rest[:i]
	d.Key = strings.TrimSuffix(rest[i+len(dupEntryKeyInfix):], "'")
	return d
}

// notFoundIfNone turns a zero RowsAffected into ErrNotFound.
func notFoundIfNone(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// placeholders returns "?,?,?" for n values.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
