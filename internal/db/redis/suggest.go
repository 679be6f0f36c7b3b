package redis

import (
	"context"
	"strconv"

	"github.com/kailas-cloud/msgdex/internal/db"
)

// SuggestAdd inserts a term into a suggestion dictionary, incrementing
// its score when the term already exists.
func (s *Store) SuggestAdd(ctx context.Context, dict, term string, score float64) error {
	cmd := s.b().Arbitrary("FT.SUGADD").
		Args(dict, term, strconv.FormatFloat(score, 'f', -1, 64), "INCR").
		Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpSuggestAdd, Err: err}
	}
	return nil
}

// Suggest returns up to max completions for a prefix, best-scored
// first.
func (s *Store) Suggest(ctx context.Context, dict, prefix string, max int) ([]string, error) {
	cmd := s.b().Arbitrary("FT.SUGGET").
		Args(dict, prefix, "MAX", strconv.Itoa(max)).
		Build()
	terms, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpSuggest, Err: err}
	}
	return terms, nil
}
