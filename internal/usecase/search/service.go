// Package search orchestrates query execution: it validates and
// optimizes criteria, dispatches to a retrieval backend by strategy,
// and records outcomes on the owning session aggregate.
package search

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/msgdex/internal/domain"
	"github.com/kailas-cloud/msgdex/internal/domain/search/criteria"
	"github.com/kailas-cloud/msgdex/internal/domain/search/result"
	"github.com/kailas-cloud/msgdex/internal/domain/search/session"
	"github.com/kailas-cloud/msgdex/internal/domain/search/strategy"
)

// Validation limits. Warnings flag queries that will work but are
// likely to be slow.
const (
	warnQueryLength = 1000
	warnTakeSize    = 50
)

// ValidationResult carries the outcome of criteria validation. Errors
// block execution; warnings do not.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// IsValid reports whether execution may proceed.
func (v ValidationResult) IsValid() bool { return len(v.Errors) == 0 }

// Service dispatches searches to the retrieval backend.
type Service struct {
	backend Backend
	logger  *zap.Logger
}

// New creates a search orchestrator.
func New(backend Backend, logger *zap.Logger) *Service {
	return &Service{backend: backend, logger: logger}
}

// Validate checks criteria ahead of execution. Validation is returned
// as a value rather than an error so the caller decides how to
// surface it.
func (s *Service) Validate(c *criteria.Criteria) ValidationResult {
	var v ValidationResult
	if c == nil {
		v.Errors = append(v.Errors, "criteria is required")
		return v
	}

	if c.Query().IsEmpty() {
		v.Errors = append(v.Errors, "query must not be empty")
	}
	if c.Take() < 1 || c.Take() > criteria.MaxTake {
		v.Errors = append(v.Errors,
			fmt.Sprintf("take must be between 1 and %d, got %d", criteria.MaxTake, c.Take()))
	}
	if c.Skip() < 0 {
		v.Errors = append(v.Errors, fmt.Sprintf("skip must not be negative, got %d", c.Skip()))
	}
	start, end := c.Filter().StartDate(), c.Filter().EndDate()
	if start != nil && end != nil && start.After(*end) {
		v.Errors = append(v.Errors, "filter start date is after end date")
	}

	if c.Query().Length() > warnQueryLength {
		v.Warnings = append(v.Warnings,
			fmt.Sprintf("query length %d exceeds %d, expect degraded performance",
				c.Query().Length(), warnQueryLength))
	}
	if c.Take() > warnTakeSize {
		v.Warnings = append(v.Warnings,
			fmt.Sprintf("take %d exceeds %d, expect a slow page", c.Take(), warnTakeSize))
	}
	return v
}

// Execute re-validates the session's criteria, dispatches to the
// backend for its strategy, and records the outcome on the session.
// Backend failures are recorded as a session event and returned, never
// swallowed. The session's event buffer is drained and dispatched to
// logs and metrics after the outcome is recorded. When ctx is
// cancelled before the backend returns, nothing is recorded and the
// context error is returned.
func (s *Service) Execute(ctx context.Context, sess *session.Session) (result.Result, error) {
	c := sess.Criteria()
	if v := s.Validate(&c); !v.IsValid() {
		return result.Result{}, fmt.Errorf("%w: %s", domain.ErrInvalidCriteria, v.Errors[0])
	}

	var (
		res result.Result
		err error
	)
	switch c.Strategy() {
	case strategy.InvertedIndex:
		res, err = s.backend.SearchInvertedIndex(ctx, c)
	case strategy.Vector:
		res, err = s.backend.SearchVector(ctx, c)
	case strategy.Syntax:
		res, err = s.backend.SearchSyntax(ctx, c)
	case strategy.Hybrid:
		res, err = s.backend.SearchHybrid(ctx, c)
	default:
		return result.Result{}, fmt.Errorf("%w: %q", domain.ErrStrategyNotSupported, c.Strategy())
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result.Result{}, ctxErr
	}

	if err != nil {
		_ = sess.RecordFailure(err.Error(), errorKind(err))
		s.dispatch(sess.DrainEvents())
		return result.Result{}, fmt.Errorf("search %s: %w", c.Strategy(), err)
	}

	sess.RecordExecution(res)
	s.dispatch(sess.DrainEvents())
	return res, nil
}

// Suggestions returns completion candidates for a query prefix.
func (s *Service) Suggestions(ctx context.Context, prefix string, max int) ([]string, error) {
	if max < 1 {
		return nil, nil
	}
	suggestions, err := s.backend.GetSuggestions(ctx, prefix, max)
	if err != nil {
		return nil, fmt.Errorf("get suggestions: %w", err)
	}
	return suggestions, nil
}

// Statistics returns index-level counters from the backend.
func (s *Service) Statistics(ctx context.Context) (Statistics, error) {
	stats, err := s.backend.GetStatistics(ctx)
	if err != nil {
		return Statistics{}, fmt.Errorf("get statistics: %w", err)
	}
	return stats, nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrBackendUnavailable):
		return "backend_unavailable"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "backend_error"
	}
}
