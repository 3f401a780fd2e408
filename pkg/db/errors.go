package db

import "errors"

var (
	ErrFailedToParseDBConfig    = errors.New("db: failed to parse database configuration")
	ErrFailedToOpenDBConnection = errors.New("db: failed to open database connection")
	ErrAcquireConn              = errors.New("db: failed to acquire connection")
	ErrAcquireTimeout           = errors.New("db: timed out waiting for a free connection")
	ErrHealthcheckFailed        = errors.New("db: healthcheck failed")
	ErrShutdownTimeout          = errors.New("db: pool did not close before the shutdown deadline")
	ErrMigrationSource          = errors.New("db migrator: invalid migration source")
	ErrApplyMigrations          = errors.New("db migrator: failed to apply migrations")
)
