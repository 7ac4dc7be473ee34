package model

import "time"

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogEntry is one line of a job's human-readable trace.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
}

// Job is one tracked request to run an extraction batch. The store owns the
// canonical copy; workers read it and issue mutations through the store.
type Job struct {
	ID          string        `json:"job_id"`
	CallbackURL string        `json:"callback_url"`
	Status      JobStatus     `json:"status"`
	Progress    string        `json:"progress"`
	Logs        []LogEntry    `json:"logs"`
	Result      *ScrapeResult `json:"result,omitempty"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func NewJob(id, callbackURL string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          id,
		CallbackURL: callbackURL,
		Status:      JobStatusPending,
		Progress:    "job created, waiting for worker",
		Logs:        []LogEntry{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// JobView is the caller-facing projection of a Job. The callback target is
// write-once at creation and never exposed to untrusted readers.
type JobView struct {
	ID        string        `json:"job_id"`
	Status    JobStatus     `json:"status"`
	Progress  string        `json:"progress"`
	Logs      []LogEntry    `json:"logs"`
	Result    *ScrapeResult `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (j *Job) View() *JobView {
	return &JobView{
		ID:        j.ID,
		Status:    j.Status,
		Progress:  j.Progress,
		Logs:      j.Logs,
		Result:    j.Result,
		Error:     j.Error,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

type UnitStatus string

const (
	UnitStatusSuccess UnitStatus = "success"
	UnitStatusFailed  UnitStatus = "failed"
)

// UnitReport records the outcome of one unit within a batch. It only lives as
// part of the job's final result.
type UnitReport struct {
	UnitID    string     `json:"unit_id"`
	UnitName  string     `json:"unit_name"`
	Status    UnitStatus `json:"status"`
	BoxCount  int        `json:"box_count"`
	Attempts  int        `json:"attempts"`
	ElapsedMS int64      `json:"elapsed_ms"`
	Error     string     `json:"error,omitempty"`
}

// ScrapeResult is the final payload attached to a completed job.
type ScrapeResult struct {
	Summary         string       `json:"summary"`
	TotalBoxes      int          `json:"totalBoxes"`
	UnitsProcessed  int          `json:"unitsProcessed"`
	SuccessfulUnits int          `json:"successfulUnits"`
	FailedUnits     []UnitReport `json:"failedUnits"`
	Reports         []UnitReport `json:"reports"`
	ProcessingTime  int          `json:"processingTime"` // seconds
	ExtractedAt     time.Time    `json:"extractedAt"`
}
