// Package jobrepo persists processing jobs as JSON values in the
// key-value store, parameterized by the job's input and config types.
package jobrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/msgdex/internal/db"
	"github.com/kailas-cloud/msgdex/internal/domain"
	"github.com/kailas-cloud/msgdex/internal/domain/job"
)

var keyPrefix = domain.KeyPrefix + "job:"

// store is the consumer interface for job persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
}

// Repo stores jobs with input type I and config type C.
type Repo[I, C any] struct {
	store store
}

// New creates a job repository.
func New[I, C any](s store) *Repo[I, C] {
	return &Repo[I, C]{store: s}
}

type jobDTO[I, C any] struct {
	ID          string            `json:"id"`
	Kind        job.Kind          `json:"kind"`
	Status      job.Status        `json:"status"`
	Input       I                 `json:"input"`
	Config      C                 `json:"config"`
	Result      *job.Result       `json:"result,omitempty"`
	RetryCount  int               `json:"retry_count"`
	MaxRetries  int               `json:"max_retries"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Props       map[string]string `json:"props,omitempty"`
}

// Save writes the current job state. It persists state only; draining
// and dispatching the job's events stays with the owning service.
func (r *Repo[I, C]) Save(ctx context.Context, j *job.Job[I, C]) error {
	dto := jobDTO[I, C]{
		ID:          j.ID(),
		Kind:        j.JobKind(),
		Status:      j.Status(),
		Input:       j.Input(),
		Config:      j.Config(),
		Result:      j.Result(),
		RetryCount:  j.RetryCount(),
		MaxRetries:  j.MaxRetries(),
		CreatedAt:   j.CreatedAt(),
		StartedAt:   j.StartedAt(),
		CompletedAt: j.CompletedAt(),
		Props:       j.Props(),
	}
	data, err := json.Marshal(dto)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", j.ID(), err)
	}
	if err := r.store.Set(ctx, keyPrefix+j.ID(), data); err != nil {
		return fmt.Errorf("save job %s: %w", j.ID(), err)
	}
	return nil
}

// Load rebuilds a job from its persisted state.
func (r *Repo[I, C]) Load(ctx context.Context, id string) (*job.Job[I, C], error) {
	data, err := r.store.Get(ctx, keyPrefix+id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}

	var dto jobDTO[I, C]
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", id, err)
	}

	return job.Restore(
		dto.ID, dto.Kind, dto.Status,
		dto.Input, dto.Config, dto.Result,
		dto.RetryCount, dto.MaxRetries,
		dto.CreatedAt, dto.StartedAt, dto.CompletedAt,
		dto.Props,
	), nil
}

// Delete drops a job once its terminal state has been observed.
func (r *Repo[I, C]) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, keyPrefix+id); err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}
