package repository

import (
	"time"

	"prismabox-scraper/internal/domain/model"
)

// JobUpdate is a partial mutation applied to a job record. Nil fields are
// left untouched.
type JobUpdate struct {
	Status   *model.JobStatus
	Progress *string
}

// JobStore is the durable, sole source of truth for job lifecycle state.
// Implementations must serialize mutations per job and flush every mutation
// to persistent storage before returning.
type JobStore interface {
	// Create registers a new job. Returns domain.ErrDuplicateJob when the id
	// is already taken.
	Create(id, callbackURL string) (*model.Job, error)

	// Update merges the given fields into the job and bumps UpdatedAt. When
	// the id is unknown and the store's auto-create policy is enabled, a
	// placeholder job is created instead of failing.
	Update(id string, upd JobUpdate) (*model.Job, error)

	// AppendLog appends one entry to the job's ordered log, auto-creating
	// the job under the same policy as Update.
	AppendLog(id, message string, level model.LogLevel) error

	// Complete transitions the job to completed and attaches the result.
	// Returns domain.ErrJobFinalized when the job is already terminal.
	Complete(id string, result *model.ScrapeResult) error

	// Fail transitions the job to failed and records the error message.
	// Returns domain.ErrJobFinalized when the job is already terminal.
	Fail(id, errMsg string) error

	Get(id string) (*model.Job, error)
	List() []*model.Job

	// PurgeOlderThan removes terminal jobs created before now-maxAge and
	// reports how many were removed. Pending and running jobs are retained
	// regardless of age.
	PurgeOlderThan(maxAge time.Duration) (int, error)

	// Close flushes pending state and releases the backing file.
	Close() error
}
