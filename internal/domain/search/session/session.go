// Package session holds the search session aggregate.
//
// A session owns one criteria, counts executions, and buffers domain
// events. It is created per query invocation, mutated only through its
// methods, and discarded once the caller has drained its events. One
// session belongs to one in-flight operation; it is not safe for
// concurrent mutation.
package session

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/msgdex/internal/domain/search/criteria"
	"github.com/kailas-cloud/msgdex/internal/domain/search/filter"
	"github.com/kailas-cloud/msgdex/internal/domain/search/query"
	"github.com/kailas-cloud/msgdex/internal/domain/search/result"
)

// Session is the search session aggregate.
type Session struct {
	criteria       criteria.Criteria
	createdAt      time.Time
	lastExecutedAt *time.Time
	executionCount int
	lastResult     *result.Result
	events         []Event
}

// New creates a session for one query invocation and raises Started.
func New(c criteria.Criteria) *Session {
	s := &Session{
		criteria:  c,
		createdAt: time.Now().UTC(),
	}
	s.raise(Started{
		SessionID: c.ID(),
		Query:     c.Query(),
		Strategy:  c.Strategy(),
		At:        s.createdAt,
	})
	return s
}

// ID returns the session identifier (shared with its criteria).
func (s *Session) ID() string { return s.criteria.ID() }

// Criteria returns the current criteria.
func (s *Session) Criteria() criteria.Criteria { return s.criteria }

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// LastExecutedAt returns when the last execution finished, nil if never.
func (s *Session) LastExecutedAt() *time.Time { return s.lastExecutedAt }

// ExecutionCount returns how many executions (success or failure) ran.
func (s *Session) ExecutionCount() int { return s.executionCount }

// LastResult returns the most recent successful result, nil if none.
func (s *Session) LastResult() *result.Result { return s.lastResult }

// RecordExecution records a successful backend execution.
func (s *Session) RecordExecution(r result.Result) {
	now := time.Now().UTC()
	s.lastResult = &r
	s.lastExecutedAt = &now
	s.executionCount++
	s.raise(Executed{
		SessionID:    s.ID(),
		Strategy:     s.criteria.Strategy(),
		TotalResults: r.TotalResults(),
		Returned:     r.Count(),
		At:           now,
	})
}

// RecordFailure records a failed backend execution. The error itself
// still propagates to the caller; the event is the observability side.
func (s *Session) RecordFailure(message, errorKind string) error {
	if message == "" {
		return fmt.Errorf("failure message is required")
	}
	now := time.Now().UTC()
	s.lastExecutedAt = &now
	s.executionCount++
	s.raise(Failed{
		SessionID:    s.ID(),
		Strategy:     s.criteria.Strategy(),
		ErrorMessage: message,
		ErrorKind:    errorKind,
		At:           now,
	})
	return nil
}

// UpdateQuery replaces the query and resets execution state.
// A no-op when the new query is relevance-equal to the current one.
func (s *Session) UpdateQuery(q query.Query) {
	if s.criteria.Query().Equal(q) {
		return
	}
	s.criteria = s.criteria.WithQuery(q)
	s.resetExecutionState()
}

// UpdateFilter replaces the filter, raises FilterUpdated, and resets
// execution state.
func (s *Session) UpdateFilter(f filter.Filter) {
	old := s.criteria.Filter()
	s.criteria = s.criteria.WithFilter(f)
	s.raise(FilterUpdated{
		SessionID: s.ID(),
		OldFilter: old,
		NewFilter: f,
		At:        time.Now().UTC(),
	})
	s.resetExecutionState()
}

// GoToPage jumps to a 1-based page number.
func (s *Session) GoToPage(page int) error {
	if page < 1 {
		return fmt.Errorf("page number must be positive, got %d", page)
	}
	oldSkip := s.criteria.Skip()
	s.criteria = s.criteria.WithPagination((page-1)*s.criteria.Take(), s.criteria.Take())
	s.raisePaged(oldSkip)
	return nil
}

// NextPage advances one page.
func (s *Session) NextPage() {
	oldSkip := s.criteria.Skip()
	s.criteria = s.criteria.NextPage()
	s.raisePaged(oldSkip)
}

// PreviousPage moves back one page. A no-op on the first page.
func (s *Session) PreviousPage() {
	if !s.criteria.HasPreviousPage() {
		return
	}
	oldSkip := s.criteria.Skip()
	s.criteria = s.criteria.PreviousPage()
	s.raisePaged(oldSkip)
}

// Events returns the buffered, undrained events in raise order.
func (s *Session) Events() []Event { return s.events }

// DrainEvents returns the buffered events and clears the buffer.
// The caller dispatches them after persisting the outcome.
func (s *Session) DrainEvents() []Event {
	drained := s.events
	s.events = nil
	return drained
}

func (s *Session) resetExecutionState() {
	s.lastResult = nil
	s.lastExecutedAt = nil
	s.executionCount = 0
}

func (s *Session) raisePaged(oldSkip int) {
	s.raise(Paged{
		SessionID: s.ID(),
		OldSkip:   oldSkip,
		NewSkip:   s.criteria.Skip(),
		PageSize:  s.criteria.Take(),
		At:        time.Now().UTC(),
	})
}

func (s *Session) raise(e Event) {
	s.events = append(s.events, e)
}
