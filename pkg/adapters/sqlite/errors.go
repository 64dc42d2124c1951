package sqlite

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/leapstack-labs/gsql/pkg/core"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	codeSuffixRe   = regexp.MustCompile(`\s*\(\d+\)(\s*\(SQLITE_BUSY\))?$`)
	constraintRe   = regexp.MustCompile(`(UNIQUE|NOT NULL|FOREIGN KEY|CHECK) constraint failed(?::\s*([^\s,()]+))?`)
	driverPrefixes = []string{"SQL logic error: ", "constraint failed: "}
)

// Classify maps a modernc.org/sqlite error onto the core error taxonomy.
// Errors from other sources are returned unchanged.
func (a *Adapter) Classify(err error) error {
	if err == nil {
		return nil
	}
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	msg := cleanMessage(se.Error())

	switch se.Code() & 0xff {
	case sqlite3.SQLITE_CONSTRAINT:
		return constraintError(se.Code(), msg, err)
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return &core.ExecutionError{Message: msg, Locked: true, Err: err}
	case sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_NOTADB:
		return &core.StorageError{Op: "read", Err: fmt.Errorf("%w: %w", core.ErrCorrupt, err)}
	}
	return &core.ExecutionError{Message: msg, Err: err}
}

// IsCorrupt reports whether err says the file is damaged or not a database.
func IsCorrupt(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code() & 0xff
		return code == sqlite3.SQLITE_CORRUPT || code == sqlite3.SQLITE_NOTADB
	}
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database")
}

func cleanMessage(msg string) string {
	msg = codeSuffixRe.ReplaceAllString(msg, "")
	for _, p := range driverPrefixes {
		msg = strings.TrimPrefix(msg, p)
	}
	return msg
}

func constraintError(code int, msg string, err error) *core.ConstraintViolationError {
	out := &core.ConstraintViolationError{Message: msg, Err: err}

	var label string
	if m := constraintRe.FindStringSubmatch(msg); m != nil {
		label = m[1]
		if table, column, ok := strings.Cut(m[2], "."); ok {
			out.Table, out.Column = table, column
		} else {
			out.Table = m[2]
		}
	}

	switch {
	case code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		out.Kind = core.ViolationPrimaryKey
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, label == "UNIQUE":
		out.Kind = core.ViolationUnique
	case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, label == "FOREIGN KEY":
		out.Kind = core.ViolationForeignKey
	case code == sqlite3.SQLITE_CONSTRAINT_NOTNULL, label == "NOT NULL":
		out.Kind = core.ViolationNotNull
	default:
		out.Kind = core.ViolationCheck
	}
	return out
}
