// Package criteria defines the full parameter set of one search.
package criteria

import (
	"github.com/google/uuid"

	"github.com/kailas-cloud/msgdex/internal/domain/search/filter"
	"github.com/kailas-cloud/msgdex/internal/domain/search/query"
	"github.com/kailas-cloud/msgdex/internal/domain/search/strategy"
)

// Pagination defaults.
const (
	DefaultTake = 20
	MaxTake     = 100
)

// Criteria bundles a query with its strategy, filter, and pagination.
// Construction does not validate: an out-of-range instance can exist
// transiently and is rejected by the orchestrator's Validate before
// any backend is touched.
type Criteria struct {
	id                string
	query             query.Query
	searchStrategy    strategy.Strategy
	filter            filter.Filter
	skip              int
	take              int
	includeExtensions bool
	includeVectors    bool
}

// New creates criteria with a fresh id. All values are kept as given,
// including a zero take; callers wanting a page-size fallback apply
// DefaultTake themselves before construction.
func New(
	q query.Query,
	s strategy.Strategy,
	f filter.Filter,
	skip, take int,
	includeExtensions, includeVectors bool,
) Criteria {
	return Criteria{
		id:                uuid.NewString(),
		query:             q,
		searchStrategy:    s,
		filter:            f,
		skip:              skip,
		take:              take,
		includeExtensions: includeExtensions,
		includeVectors:    includeVectors,
	}
}

// ID returns the criteria identifier.
func (c Criteria) ID() string { return c.id }

// Query returns the search query.
func (c Criteria) Query() query.Query { return c.query }

// Strategy returns the retrieval strategy.
func (c Criteria) Strategy() strategy.Strategy { return c.searchStrategy }

// Filter returns the search filter.
func (c Criteria) Filter() filter.Filter { return c.filter }

// Skip returns the pagination offset.
func (c Criteria) Skip() int { return c.skip }

// Take returns the page size.
func (c Criteria) Take() int { return c.take }

// IncludeExtensions reports whether extension payloads are requested.
func (c Criteria) IncludeExtensions() bool { return c.includeExtensions }

// IncludeVectors reports whether embedding vectors are requested.
func (c Criteria) IncludeVectors() bool { return c.includeVectors }

// WithQuery returns a copy with the query replaced.
func (c Criteria) WithQuery(q query.Query) Criteria {
	c.query = q
	return c
}

// WithStrategy returns a copy with the strategy replaced.
func (c Criteria) WithStrategy(s strategy.Strategy) Criteria {
	c.searchStrategy = s
	return c
}

// WithFilter returns a copy with the filter replaced.
func (c Criteria) WithFilter(f filter.Filter) Criteria {
	c.filter = f
	return c
}

// WithPagination returns a copy with skip/take replaced.
func (c Criteria) WithPagination(skip, take int) Criteria {
	c.skip = skip
	c.take = take
	return c
}

// NextPage returns a copy advanced by one page.
func (c Criteria) NextPage() Criteria {
	c.skip += c.take
	return c
}

// PreviousPage returns a copy moved back one page, clamped at 0.
func (c Criteria) PreviousPage() Criteria {
	c.skip -= c.take
	if c.skip < 0 {
		c.skip = 0
	}
	return c
}

// HasPreviousPage reports whether the criteria is past the first page.
func (c Criteria) HasPreviousPage() bool { return c.skip > 0 }
