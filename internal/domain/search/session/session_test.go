package session

import (
	"testing"

	"github.com/kailas-cloud/msgdex/internal/domain/search/criteria"
	"github.com/kailas-cloud/msgdex/internal/domain/search/filter"
	"github.com/kailas-cloud/msgdex/internal/domain/search/query"
	"github.com/kailas-cloud/msgdex/internal/domain/search/result"
	"github.com/kailas-cloud/msgdex/internal/domain/search/strategy"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	c := criteria.New(query.New("hello"), strategy.Hybrid, filter.Empty(), 0, 10, false, false)
	return New(c)
}

func TestNewRaisesStarted(t *testing.T) {
	s := newSession(t)
	events := s.Events()
	if len(events) != 1 {
		t.Fatalf("len(Events()) = %d, want 1", len(events))
	}
	if events[0].Kind() != "search.session_started" {
		t.Errorf("Kind() = %q, want %q", events[0].Kind(), "search.session_started")
	}
}

func TestRecordExecution(t *testing.T) {
	s := newSession(t)
	s.DrainEvents()

	r := result.New(nil, 42, 0, 10, strategy.Hybrid)
	s.RecordExecution(r)

	if s.ExecutionCount() != 1 {
		t.Errorf("ExecutionCount() = %d, want 1", s.ExecutionCount())
	}
	if s.LastExecutedAt() == nil {
		t.Error("LastExecutedAt() = nil, want set")
	}
	if s.LastResult() == nil || s.LastResult().TotalResults() != 42 {
		t.Errorf("LastResult() = %v, want total 42", s.LastResult())
	}

	events := s.DrainEvents()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	exec, ok := events[0].(Executed)
	if !ok {
		t.Fatalf("event type = %T, want Executed", events[0])
	}
	if exec.TotalResults != 42 {
		t.Errorf("TotalResults = %d, want 42", exec.TotalResults)
	}
	if exec.Strategy != strategy.Hybrid {
		t.Errorf("Strategy = %q, want %q", exec.Strategy, strategy.Hybrid)
	}
}

func TestRecordFailure(t *testing.T) {
	s := newSession(t)
	s.DrainEvents()

	if err := s.RecordFailure("backend down", "BackendError"); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if s.ExecutionCount() != 1 {
		t.Errorf("ExecutionCount() = %d, want 1", s.ExecutionCount())
	}

	events := s.DrainEvents()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	failed, ok := events[0].(Failed)
	if !ok {
		t.Fatalf("event type = %T, want Failed", events[0])
	}
	if failed.ErrorMessage != "backend down" || failed.ErrorKind != "BackendError" {
		t.Errorf("Failed = %+v, want message/kind preserved", failed)
	}
	if failed.Strategy != strategy.Hybrid {
		t.Errorf("Strategy = %q, want %q", failed.Strategy, strategy.Hybrid)
	}
}

func TestRecordFailureRequiresMessage(t *testing.T) {
	s := newSession(t)
	if err := s.RecordFailure("", "X"); err == nil {
		t.Error("RecordFailure(\"\"): err = nil, want error")
	}
}

func TestDrainEventsClearsBuffer(t *testing.T) {
	s := newSession(t)
	if got := len(s.DrainEvents()); got != 1 {
		t.Fatalf("first drain: %d events, want 1", got)
	}
	if got := len(s.DrainEvents()); got != 0 {
		t.Errorf("second drain: %d events, want 0", got)
	}
}

func TestUpdateQueryResetsExecutionState(t *testing.T) {
	s := newSession(t)
	s.RecordExecution(result.New(nil, 1, 0, 10, strategy.Hybrid))

	s.UpdateQuery(query.New("different topic"))
	if s.ExecutionCount() != 0 {
		t.Errorf("ExecutionCount() = %d, want 0 after query change", s.ExecutionCount())
	}
	if s.LastResult() != nil {
		t.Error("LastResult() != nil after query change")
	}
}

func TestUpdateQueryEqualIsNoOp(t *testing.T) {
	s := newSession(t)
	s.RecordExecution(result.New(nil, 1, 0, 10, strategy.Hybrid))

	// Same normalized query: no reset.
	s.UpdateQuery(query.New("  HELLO  "))
	if s.ExecutionCount() != 1 {
		t.Errorf("ExecutionCount() = %d, want 1 (no-op update)", s.ExecutionCount())
	}
}

func TestPaging(t *testing.T) {
	s := newSession(t)
	s.DrainEvents()

	s.NextPage()
	if s.Criteria().Skip() != 10 {
		t.Errorf("Skip() = %d, want 10", s.Criteria().Skip())
	}

	s.PreviousPage()
	if s.Criteria().Skip() != 0 {
		t.Errorf("Skip() = %d, want 0", s.Criteria().Skip())
	}

	// First page: no event, no movement.
	s.PreviousPage()
	if s.Criteria().Skip() != 0 {
		t.Errorf("Skip() = %d, want 0", s.Criteria().Skip())
	}

	if err := s.GoToPage(3); err != nil {
		t.Fatalf("GoToPage(3): %v", err)
	}
	if s.Criteria().Skip() != 20 {
		t.Errorf("Skip() = %d, want 20", s.Criteria().Skip())
	}
	if err := s.GoToPage(0); err == nil {
		t.Error("GoToPage(0): err = nil, want error")
	}

	events := s.DrainEvents()
	if len(events) != 3 {
		t.Errorf("len(events) = %d, want 3 (next, previous, goto)", len(events))
	}
	for _, e := range events {
		if e.Kind() != "search.paged" {
			t.Errorf("Kind() = %q, want %q", e.Kind(), "search.paged")
		}
	}
}

func TestUpdateFilterRaisesEventAndResets(t *testing.T) {
	s := newSession(t)
	s.RecordExecution(result.New(nil, 1, 0, 10, strategy.Hybrid))
	s.DrainEvents()

	s.UpdateFilter(filter.Empty().WithAuthor(9))

	if s.ExecutionCount() != 0 {
		t.Errorf("ExecutionCount() = %d, want 0 after filter change", s.ExecutionCount())
	}
	events := s.DrainEvents()
	if len(events) != 1 || events[0].Kind() != "search.filter_updated" {
		t.Errorf("events = %v, want one search.filter_updated", events)
	}
}
