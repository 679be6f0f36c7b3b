package search

import (
	"context"

	"github.com/kailas-cloud/msgdex/internal/domain/search/criteria"
	"github.com/kailas-cloud/msgdex/internal/domain/search/result"
)

// Statistics describes the state of the retrieval index.
type Statistics struct {
	TotalDocuments int64
	TotalTerms     int64
	IndexSizeBytes int64
}

// Backend is the retrieval-strategy port. All four search methods take
// the same criteria shape and return the same result shape, so the
// strategies stay interchangeable from the orchestrator's point of
// view.
type Backend interface {
	SearchInvertedIndex(ctx context.Context, c criteria.Criteria) (result.Result, error)
	SearchVector(ctx context.Context, c criteria.Criteria) (result.Result, error)
	SearchSyntax(ctx context.Context, c criteria.Criteria) (result.Result, error)
	SearchHybrid(ctx context.Context, c criteria.Criteria) (result.Result, error)

	GetSuggestions(ctx context.Context, prefix string, max int) ([]string, error)
	GetStatistics(ctx context.Context) (Statistics, error)
}
