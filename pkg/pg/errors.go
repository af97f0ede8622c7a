package pg

import "errors"

var (
	ErrFailedToParseDBConfig    = errors.New("failed to parse database config")
	ErrFailedToOpenDBConnection = errors.New("failed to open database connection")
	ErrDBNotReady               = errors.New("database is not ready")

	ErrFailedToApplyMigrations  = errors.New("failed to apply database migrations")
	ErrMigrationPathNotProvided = errors.New("migrations path is not provided")
	ErrMigrationsDirNotFound    = errors.New("migrations directory not found")
)
