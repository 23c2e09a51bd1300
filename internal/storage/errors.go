package storage

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrConnection      = errors.New("storage: cannot connect")
	ErrSchemaExists    = errors.New("storage: schema already exists")
	ErrSchemaNotFound  = errors.New("storage: schema not found")
	ErrNotFound        = errors.New("storage: not found")
	ErrUniqueViolation = errors.New("storage: uniqueness violation")
)

// isUniqueViolation reports whether err is SQLite rejecting a row on a
// UNIQUE or PRIMARY KEY constraint.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
