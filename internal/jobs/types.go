package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/smart-finance/internal/domain"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeParseImage extracts transactions from a screenshot.
	JobTypeParseImage JobType = "parse_image"
)

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
	// JobStatusConfirmed indicates the extracted drafts were saved.
	JobStatusConfirmed JobStatus = "confirmed"
)

// ErrJobNotFound is returned when no job has the requested ID.
var ErrJobNotFound = errors.New("job not found")

// ParseImageJob is a screenshot waiting to be turned into drafts.
type ParseImageJob struct {
	JobID string `json:"job_id"`

	// MIMEType and Image hold the uploaded screenshot. The bytes are not
	// serialised; they are dropped once the job finishes.
	MIMEType string `json:"mime_type"`
	Image    []byte `json:"-"`

	Status JobStatus `json:"status"`

	// Drafts are the transactions the model found. Empty until the job
	// completes, and empty if it fails.
	Drafts []domain.Draft `json:"drafts"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`
}

// Job is a generic interface for all job types.
type Job interface {
	// GetID returns the unique job identifier.
	GetID() string

	// GetType returns the job type.
	GetType() JobType

	// GetStatus returns the current job status.
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ParseImageJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *ParseImageJob) GetType() JobType {
	return JobTypeParseImage
}

// GetStatus implements the Job interface.
func (j *ParseImageJob) GetStatus() JobStatus {
	return j.Status
}

// Confirmable reports whether the drafts can be saved.
func (j *ParseImageJob) Confirmable() bool {
	return j.Status == JobStatusCompleted && len(j.Drafts) > 0
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishParseImage publishes a screenshot parsing job.
	PublishParseImage(ctx context.Context, job *ParseImageJob) error

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

// JobHandler is a function that processes a job.
// It should return an error if the job failed.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ParseImageJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ParseImageJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ParseImageJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
