// Package job holds the generic async unit-of-work state machine.
//
// One Job governs one long-running unit of work (AI inference, media
// conversion, segmentation). The lifecycle is
//
//	Pending -> Processing -> Completed | Failed
//	Failed  -> Pending (retry, while retries remain)
//	Pending | Processing -> Cancelled
//
// Input and config are type parameters so every job kind shares the
// same retry/cancel/failure semantics without untyped payloads. A job
// is owned by exactly one in-flight operation at a time; the state
// machine itself does no locking.
package job

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxRetries is the retry budget when none is given.
const DefaultMaxRetries = 3

// ErrCannotRetry signals a retry on a non-failed job or an exhausted
// retry budget.
var ErrCannotRetry = errors.New("cannot retry processing")

// InvalidTransitionError reports a transition attempted from a status
// that does not allow it.
type InvalidTransitionError struct {
	Op      string
	Current Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s when job status is %s", e.Op, e.Current)
}

// Result is the outcome of one processing attempt.
type Result struct {
	Success      bool
	Output       string
	ErrorMessage string
	ErrorKind    string
}

// Succeeded creates a successful result.
func Succeeded(output string) Result {
	return Result{Success: true, Output: output}
}

// FailedWith creates an unsuccessful result.
func FailedWith(message, errorKind string) Result {
	return Result{ErrorMessage: message, ErrorKind: errorKind}
}

// Job is the processing job aggregate.
type Job[I, C any] struct {
	id          string
	kind        Kind
	status      Status
	input       I
	config      C
	result      *Result
	retryCount  int
	maxRetries  int
	createdAt   time.Time
	startedAt   *time.Time
	completedAt *time.Time
	props       map[string]string
	events      []Event
}

// New creates a pending job and raises Created. maxRetries <= 0 falls
// back to DefaultMaxRetries.
func New[I, C any](kind Kind, input I, config C, maxRetries int) *Job[I, C] {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	j := &Job[I, C]{
		id:         uuid.NewString(),
		kind:       kind,
		status:     Pending,
		input:      input,
		config:     config,
		maxRetries: maxRetries,
		createdAt:  time.Now().UTC(),
	}
	j.raise(CreatedEvent{JobID: j.id, JobKind: kind, At: j.createdAt})
	return j
}

// Restore rebuilds a job from persisted state without raising events.
func Restore[I, C any](
	id string, kind Kind, status Status,
	input I, config C, result *Result,
	retryCount, maxRetries int,
	createdAt time.Time, startedAt, completedAt *time.Time,
	props map[string]string,
) *Job[I, C] {
	return &Job[I, C]{
		id:          id,
		kind:        kind,
		status:      status,
		input:       input,
		config:      config,
		result:      result,
		retryCount:  retryCount,
		maxRetries:  maxRetries,
		createdAt:   createdAt,
		startedAt:   startedAt,
		completedAt: completedAt,
		props:       props,
	}
}

// ID returns the job identifier.
func (j *Job[I, C]) ID() string { return j.id }

// JobKind returns the unit-of-work kind.
func (j *Job[I, C]) JobKind() Kind { return j.kind }

// Status returns the current lifecycle state.
func (j *Job[I, C]) Status() Status { return j.status }

// Input returns the job input.
func (j *Job[I, C]) Input() I { return j.input }

// Config returns the job config.
func (j *Job[I, C]) Config() C { return j.config }

// Result returns the outcome of the last attempt, nil before completion.
func (j *Job[I, C]) Result() *Result { return j.result }

// RetryCount returns how many retries have been consumed. A completed
// retry never resets the count.
func (j *Job[I, C]) RetryCount() int { return j.retryCount }

// MaxRetries returns the retry budget.
func (j *Job[I, C]) MaxRetries() int { return j.maxRetries }

// CreatedAt returns the creation time.
func (j *Job[I, C]) CreatedAt() time.Time { return j.createdAt }

// StartedAt returns when the current attempt started, nil if pending.
func (j *Job[I, C]) StartedAt() *time.Time { return j.startedAt }

// CompletedAt returns when the job reached a completed, failed, or
// cancelled state, nil while still running.
func (j *Job[I, C]) CompletedAt() *time.Time { return j.completedAt }

// Age returns the time since creation.
func (j *Job[I, C]) Age() time.Duration { return time.Since(j.createdAt) }

// ProcessingDuration returns how long the current or last attempt ran,
// zero if never started.
func (j *Job[I, C]) ProcessingDuration() time.Duration {
	if j.startedAt == nil {
		return 0
	}
	if j.completedAt != nil {
		return j.completedAt.Sub(*j.startedAt)
	}
	return time.Since(*j.startedAt)
}

// CanRetry reports whether RetryProcessing would succeed.
func (j *Job[I, C]) CanRetry() bool {
	return j.status == Failed && j.retryCount < j.maxRetries
}

// StartProcessing moves Pending -> Processing.
func (j *Job[I, C]) StartProcessing() error {
	if j.status != Pending {
		return &InvalidTransitionError{Op: "start processing", Current: j.status}
	}
	now := time.Now().UTC()
	j.startedAt = &now
	j.status = Processing
	j.raise(StartedEvent{JobID: j.id, JobKind: j.kind, At: now})
	return nil
}

// CompleteProcessing moves Processing -> Completed or Failed depending
// on result.Success.
func (j *Job[I, C]) CompleteProcessing(result Result) error {
	if j.status != Processing {
		return &InvalidTransitionError{Op: "complete processing", Current: j.status}
	}
	now := time.Now().UTC()
	j.result = &result
	j.completedAt = &now

	if result.Success {
		j.status = Completed
		j.raise(CompletedEvent{
			JobID:    j.id,
			JobKind:  j.kind,
			Duration: j.ProcessingDuration(),
			At:       now,
		})
		return nil
	}

	j.status = Failed
	j.raise(FailedEvent{
		JobID:        j.id,
		JobKind:      j.kind,
		ErrorMessage: result.ErrorMessage,
		ErrorKind:    result.ErrorKind,
		RetryCount:   j.retryCount,
		At:           now,
	})
	return nil
}

// RetryProcessing moves Failed -> Pending while the retry budget lasts.
// The attempt state is cleared; the retry count only ever grows.
func (j *Job[I, C]) RetryProcessing() error {
	if !j.CanRetry() {
		return fmt.Errorf("%w: status %s, retries %d/%d",
			ErrCannotRetry, j.status, j.retryCount, j.maxRetries)
	}
	j.retryCount++
	j.status = Pending
	j.startedAt = nil
	j.completedAt = nil
	j.result = nil
	j.raise(RetriedEvent{
		JobID:      j.id,
		JobKind:    j.kind,
		RetryCount: j.retryCount,
		MaxRetries: j.maxRetries,
		At:         time.Now().UTC(),
	})
	return nil
}

// CancelProcessing moves Pending or Processing -> Cancelled.
// A non-empty reason is required.
func (j *Job[I, C]) CancelProcessing(reason string) error {
	if j.status != Pending && j.status != Processing {
		return &InvalidTransitionError{Op: "cancel processing", Current: j.status}
	}
	if reason == "" {
		return fmt.Errorf("cancellation reason is required")
	}
	now := time.Now().UTC()
	j.completedAt = &now
	j.status = Cancelled
	j.raise(CancelledEvent{JobID: j.id, JobKind: j.kind, Reason: reason, At: now})
	return nil
}

// UpdateInput replaces the input while the job is still pending.
func (j *Job[I, C]) UpdateInput(input I) error {
	if j.status != Pending {
		return &InvalidTransitionError{Op: "update input", Current: j.status}
	}
	j.input = input
	j.raise(InputUpdatedEvent{JobID: j.id, JobKind: j.kind, At: time.Now().UTC()})
	return nil
}

// UpdateConfig replaces the config while the job is still pending.
func (j *Job[I, C]) UpdateConfig(config C) error {
	if j.status != Pending {
		return &InvalidTransitionError{Op: "update config", Current: j.status}
	}
	j.config = config
	j.raise(ConfigUpdatedEvent{JobID: j.id, JobKind: j.kind, At: time.Now().UTC()})
	return nil
}

// SetProp stores one typed additional property.
func (j *Job[I, C]) SetProp(key, value string) error {
	if key == "" {
		return fmt.Errorf("property key is required")
	}
	if j.props == nil {
		j.props = make(map[string]string)
	}
	j.props[key] = value
	return nil
}

// Prop returns one additional property.
func (j *Job[I, C]) Prop(key string) (string, bool) {
	v, ok := j.props[key]
	return v, ok
}

// Props returns all additional properties.
func (j *Job[I, C]) Props() map[string]string { return j.props }

// Events returns the buffered, undrained events in raise order.
func (j *Job[I, C]) Events() []Event { return j.events }

// DrainEvents returns the buffered events and clears the buffer.
func (j *Job[I, C]) DrainEvents() []Event {
	drained := j.events
	j.events = nil
	return drained
}

func (j *Job[I, C]) raise(e Event) {
	j.events = append(j.events, e)
}
