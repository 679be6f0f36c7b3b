package job

import "time"

// Event is a domain event raised by a job transition. Events are
// buffered on the job and drained by the owning service after the
// transition has been persisted.
type Event interface {
	Kind() string
	OccurredAt() time.Time
}

// CreatedEvent is raised when a job is created.
type CreatedEvent struct {
	JobID   string
	JobKind Kind
	At      time.Time
}

func (e CreatedEvent) Kind() string          { return "job.created" }
func (e CreatedEvent) OccurredAt() time.Time { return e.At }

// StartedEvent is raised when processing begins.
type StartedEvent struct {
	JobID   string
	JobKind Kind
	At      time.Time
}

func (e StartedEvent) Kind() string          { return "job.started" }
func (e StartedEvent) OccurredAt() time.Time { return e.At }

// CompletedEvent is raised when processing finishes successfully.
type CompletedEvent struct {
	JobID    string
	JobKind  Kind
	Duration time.Duration
	At       time.Time
}

func (e CompletedEvent) Kind() string          { return "job.completed" }
func (e CompletedEvent) OccurredAt() time.Time { return e.At }

// FailedEvent is raised when processing finishes unsuccessfully.
type FailedEvent struct {
	JobID        string
	JobKind      Kind
	ErrorMessage string
	ErrorKind    string
	RetryCount   int
	At           time.Time
}

func (e FailedEvent) Kind() string          { return "job.failed" }
func (e FailedEvent) OccurredAt() time.Time { return e.At }

// RetriedEvent is raised when a failed job returns to pending.
type RetriedEvent struct {
	JobID      string
	JobKind    Kind
	RetryCount int
	MaxRetries int
	At         time.Time
}

func (e RetriedEvent) Kind() string          { return "job.retried" }
func (e RetriedEvent) OccurredAt() time.Time { return e.At }

// CancelledEvent is raised when a job is cancelled.
type CancelledEvent struct {
	JobID   string
	JobKind Kind
	Reason  string
	At      time.Time
}

func (e CancelledEvent) Kind() string          { return "job.cancelled" }
func (e CancelledEvent) OccurredAt() time.Time { return e.At }

// InputUpdatedEvent is raised when a pending job's input is replaced.
type InputUpdatedEvent struct {
	JobID   string
	JobKind Kind
	At      time.Time
}

func (e InputUpdatedEvent) Kind() string          { return "job.input_updated" }
func (e InputUpdatedEvent) OccurredAt() time.Time { return e.At }

// ConfigUpdatedEvent is raised when a pending job's config is replaced.
type ConfigUpdatedEvent struct {
	JobID   string
	JobKind Kind
	At      time.Time
}

func (e ConfigUpdatedEvent) Kind() string          { return "job.config_updated" }
func (e ConfigUpdatedEvent) OccurredAt() time.Time { return e.At }
