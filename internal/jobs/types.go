package jobs

import (
	"context"
	"errors"
	"time"
)

// ErrJobNotFound is returned by a JobStore for an unknown job id.
var ErrJobNotFound = errors.New("job not found")

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// Trigger records what started a sync.
type Trigger string

const (
	TriggerCLI   Trigger = "cli"
	TriggerHTTP  Trigger = "http"
	TriggerQueue Trigger = "queue"
)

// LoadResult is the outcome of loading one table.
type LoadResult struct {
	Destination string `json:"destination"`
	Status      string `json:"status"`
	Rows        uint64 `json:"rows"`
	Columns     int    `json:"columns"`
	ArchiveURI  string `json:"archive_uri,omitempty"`
	Error       string `json:"error,omitempty"`
}

// SyncJob is one run of the extract-and-load pipeline.
type SyncJob struct {
	// JobID is the unique identifier for this run.
	JobID string `json:"job_id"`

	Trigger Trigger   `json:"trigger"`
	Status  JobStatus `json:"status"`

	// RunDate names date-suffixed tables such as the forecast output.
	RunDate time.Time `json:"run_date"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the run failed.
	Error string `json:"error,omitempty"`

	// Loads holds one entry per attempted table load, in load order.
	Loads []LoadResult `json:"loads,omitempty"`

	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed. Zero disables retries.
	MaxRetries int `json:"max_retries"`
}

// Clone returns a copy that shares no slices with j.
func (j *SyncJob) Clone() *SyncJob {
	c := *j
	if j.Loads != nil {
		c.Loads = append([]LoadResult(nil), j.Loads...)
	}
	return &c
}

// Publisher enqueues sync jobs.
type Publisher interface {
	PublishSync(ctx context.Context, job *SyncJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error marks the attempt failed and
// triggers a retry while retries remain.
type JobHandler func(ctx context.Context, job *SyncJob) error

// JobStore stores and retrieves run state.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *SyncJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*SyncJob, error)

	// ListJobs retrieves jobs newest first with optional filtering.
	ListJobs(ctx context.Context, filter JobFilter) ([]*SyncJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	Trigger Trigger

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
