package sqlite

import (
	"database/sql"
	"errors"
	"strings"
)

// isNoRows reports whether the error is sql.ErrNoRows.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation reports whether the error is a SQLite unique constraint
// violation. modernc.org/sqlite surfaces these as plain errors carrying the
// SQLITE_CONSTRAINT_UNIQUE message text.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}

// isSingleAdminViolation reports whether a unique violation came from the
// single-admin index rather than the username column. SQLite names the
// violated index's columns in the message.
func isSingleAdminViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "users.role")
}
