package migration

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMigrationFile indicates that a migration file name or body is malformed.
	ErrInvalidMigrationFile = errors.New("migration: invalid migration file")
	// ErrDuplicateVersion indicates that two migration files share a version.
	ErrDuplicateVersion = errors.New("migration: duplicate version")
)

// MigrationError wraps a failure with the migration it belongs to.
type MigrationError struct {
	Version   string
	File      string
	Operation string
	Err       error
}

func (e *MigrationError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("migration %s (%s): %s: %v", e.Version, e.File, e.Operation, e.Err)
	}
	return fmt.Sprintf("migration (%s): %s: %v", e.File, e.Operation, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}
