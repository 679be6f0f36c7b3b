package session

import (
	"time"

	"github.com/kailas-cloud/msgdex/internal/domain/search/filter"
	"github.com/kailas-cloud/msgdex/internal/domain/search/query"
	"github.com/kailas-cloud/msgdex/internal/domain/search/strategy"
)

// Event is a domain event raised by a session. The set of variants is
// closed: every implementation lives in this package.
type Event interface {
	// Kind returns a stable event name for dispatching and logging.
	Kind() string
	// OccurredAt returns when the event was raised.
	OccurredAt() time.Time
}

// Started is raised when a session is created.
type Started struct {
	SessionID string
	Query     query.Query
	Strategy  strategy.Strategy
	At        time.Time
}

func (e Started) Kind() string          { return "search.session_started" }
func (e Started) OccurredAt() time.Time { return e.At }

// Executed is raised after a backend call succeeds.
type Executed struct {
	SessionID    string
	Strategy     strategy.Strategy
	TotalResults int
	Returned     int
	At           time.Time
}

func (e Executed) Kind() string          { return "search.executed" }
func (e Executed) OccurredAt() time.Time { return e.At }

// Failed is raised after a backend call fails. The failure is also
// returned to the caller; the event exists for observability only.
type Failed struct {
	SessionID    string
	Strategy     strategy.Strategy
	ErrorMessage string
	ErrorKind    string
	At           time.Time
}

func (e Failed) Kind() string          { return "search.failed" }
func (e Failed) OccurredAt() time.Time { return e.At }

// Paged is raised when the session moves to another page.
type Paged struct {
	SessionID string
	OldSkip   int
	NewSkip   int
	PageSize  int
	At        time.Time
}

func (e Paged) Kind() string          { return "search.paged" }
func (e Paged) OccurredAt() time.Time { return e.At }

// FilterUpdated is raised when the session filter is replaced.
type FilterUpdated struct {
	SessionID string
	OldFilter filter.Filter
	NewFilter filter.Filter
	At        time.Time
}

func (e FilterUpdated) Kind() string          { return "search.filter_updated" }
func (e FilterUpdated) OccurredAt() time.Time { return e.At }
