package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("job not found")
	ErrDuplicateJob       = errors.New("job already exists")
	ErrJobFinalized       = errors.New("job already reached a terminal status")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidCallbackURL = errors.New("invalid callback url")
	ErrWorkerActive       = errors.New("a worker is already running for this job")
	ErrSupervisorClosed   = errors.New("worker supervisor is shut down")
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
