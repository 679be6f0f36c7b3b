// Package searchrepo implements the retrieval-strategy port over the
// FT index: full-text, vector, raw-syntax and hybrid search plus
// suggestions and index statistics.
package searchrepo

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/msgdex/internal/db"
	"github.com/kailas-cloud/msgdex/internal/domain"
	"github.com/kailas-cloud/msgdex/internal/domain/search/criteria"
	"github.com/kailas-cloud/msgdex/internal/domain/search/result"
	"github.com/kailas-cloud/msgdex/internal/domain/search/strategy"
	"github.com/kailas-cloud/msgdex/internal/domain/segment"
	"github.com/kailas-cloud/msgdex/internal/usecase/ranking"
	"github.com/kailas-cloud/msgdex/internal/usecase/search"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from
// Cormack et al. 2009).
const rrfK = 60

// store is the consumer interface for index operations (ISP).
type store interface {
	db.Searcher
	db.Suggester
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	IndexInfo(ctx context.Context, name string) (db.IndexInfo, error)
}

// Compile-time check: Repo implements the orchestrator's backend port.
var _ search.Backend = (*Repo)(nil)

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo is the FT-index retrieval backend.
type Repo struct {
	store  store
	embed  domain.Embedder
	ranker *ranking.Service
	hnsw   HNSWConfig
	logger *zap.Logger
}

// New creates a search backend repository. A nil embed is allowed for
// text-only deployments; vector and hybrid searches then report the
// backend as unavailable.
func New(s store, embed domain.Embedder, ranker *ranking.Service, logger *zap.Logger) *Repo {
	return &Repo{
		store: s, embed: embed, ranker: ranker,
		hnsw:   HNSWConfig{M: 32, EFConstruct: 400},
		logger: logger,
	}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// EnsureIndex creates the message index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context, vectorDim int) error {
	exists, err := r.store.IndexExists(ctx, IndexName)
	if err != nil {
		return fmt.Errorf("probe index: %w", err)
	}
	if exists {
		return nil
	}
	if err := r.store.CreateIndex(ctx, MessageIndex(vectorDim, r.hnsw)); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	r.logger.Info("Created message index", zap.String("index", IndexName))
	return nil
}

// IndexMessages writes messages into the index in one pipelined
// round-trip.
func (r *Repo) IndexMessages(ctx context.Context, msgs []IndexedMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, len(msgs))
	for i, m := range msgs {
		items[i] = db.HashSetItem{
			Key:    messageKey(m.ConversationID, m.ID),
			Fields: messageFields(m),
		}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("index messages: %w", err)
	}
	return nil
}

// IndexSegment writes every message of a segment into the index.
// vectors holds one embedding per message, in message order; a nil
// vectors indexes without vector fields.
func (r *Repo) IndexSegment(ctx context.Context, seg segment.Segment, vectors [][]float32) error {
	msgs := seg.Messages()
	if vectors != nil && len(vectors) != len(msgs) {
		return fmt.Errorf("vector count %d does not match message count %d", len(vectors), len(msgs))
	}

	rows := make([]IndexedMessage, len(msgs))
	for i, m := range msgs {
		rows[i] = IndexedMessage{
			ID:             m.ID,
			ConversationID: seg.ConversationID(),
			AuthorID:       m.AuthorID,
			Timestamp:      m.Timestamp,
			Content:        m.Content,
			Summary:        seg.ContentSummary(),
			Tags:           seg.TopicKeywords(),
		}
		if vectors != nil {
			rows[i].Vector = vectors[i]
		}
	}
	return r.IndexMessages(ctx, rows)
}

// SearchInvertedIndex runs a BM25 full-text search.
func (r *Repo) SearchInvertedIndex(ctx context.Context, c criteria.Criteria) (result.Result, error) {
	sr, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName:    IndexName,
		Query:        c.Query().Normalized(),
		Filter:       buildFilter(c.Filter()),
		Offset:       c.Skip(),
		TopK:         c.Take(),
		ReturnFields: returnFields,
	})
	if err != nil {
		return result.Result{}, fmt.Errorf("text search: %w", err)
	}

	items := make([]result.Item, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		items = append(items, entryToItem(e, e.Score))
	}
	return result.New(items, sr.Total, c.Skip(), c.Take(), strategy.InvertedIndex), nil
}

// SearchSyntax passes the raw query through to the engine untouched,
// for callers that write index syntax themselves.
func (r *Repo) SearchSyntax(ctx context.Context, c criteria.Criteria) (result.Result, error) {
	sr, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName:    IndexName,
		Query:        c.Query().Value(),
		Filter:       buildFilter(c.Filter()),
		Raw:          true,
		Offset:       c.Skip(),
		TopK:         c.Take(),
		ReturnFields: returnFields,
	})
	if err != nil {
		return result.Result{}, fmt.Errorf("syntax search: %w", err)
	}

	items := make([]result.Item, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		items = append(items, entryToItem(e, e.Score))
	}
	return result.New(items, sr.Total, c.Skip(), c.Take(), strategy.Syntax), nil
}

// SearchVector embeds the query, runs KNN and scores survivors through
// the ranking pipeline.
func (r *Repo) SearchVector(ctx context.Context, c criteria.Criteria) (result.Result, error) {
	items, total, err := r.searchVector(ctx, c, c.Skip()+c.Take())
	if err != nil {
		return result.Result{}, err
	}
	items = page(items, c.Skip(), c.Take())
	return result.New(items, total, c.Skip(), c.Take(), strategy.Vector), nil
}

// SearchHybrid runs full-text and vector search in sequence and merges
// them via Reciprocal Rank Fusion.
func (r *Repo) SearchHybrid(ctx context.Context, c criteria.Criteria) (result.Result, error) {
	fetch := c.Skip() + c.Take()

	textRes, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName:    IndexName,
		Query:        c.Query().Normalized(),
		Filter:       buildFilter(c.Filter()),
		TopK:         fetch,
		ReturnFields: returnFields,
	})
	if err != nil {
		return result.Result{}, fmt.Errorf("text search: %w", err)
	}
	textItems := make([]result.Item, 0, len(textRes.Entries))
	for _, e := range textRes.Entries {
		textItems = append(textItems, entryToItem(e, e.Score))
	}

	vectorItems, vectorTotal, err := r.searchVector(ctx, c, fetch)
	if err != nil {
		return result.Result{}, err
	}

	total := textRes.Total
	if vectorTotal > total {
		total = vectorTotal
	}

	fused := fuseRRF(vectorItems, textItems)
	fused = page(fused, c.Skip(), c.Take())
	return result.New(fused, total, c.Skip(), c.Take(), strategy.Hybrid), nil
}

// GetSuggestions returns prefix completions from the suggestion
// dictionary.
func (r *Repo) GetSuggestions(ctx context.Context, prefix string, max int) ([]string, error) {
	terms, err := r.store.Suggest(ctx, SuggestDict, prefix, max)
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}
	return terms, nil
}

// AddSuggestions feeds terms into the suggestion dictionary.
func (r *Repo) AddSuggestions(ctx context.Context, terms []string) error {
	for _, term := range terms {
		if err := r.store.SuggestAdd(ctx, SuggestDict, term, 1); err != nil {
			return fmt.Errorf("suggest add %q: %w", term, err)
		}
	}
	return nil
}

// GetStatistics exposes index-level counters.
func (r *Repo) GetStatistics(ctx context.Context) (search.Statistics, error) {
	info, err := r.store.IndexInfo(ctx, IndexName)
	if err != nil {
		return search.Statistics{}, fmt.Errorf("index info: %w", err)
	}
	return search.Statistics{
		TotalDocuments: info.NumDocs,
		TotalTerms:     info.NumTerms,
		IndexSizeBytes: info.IndexSizeBytes,
	}, nil
}

func (r *Repo) searchVector(
	ctx context.Context, c criteria.Criteria, k int,
) ([]result.Item, int, error) {
	if r.embed == nil {
		return nil, 0, fmt.Errorf("%w: no embedding provider configured", domain.ErrBackendUnavailable)
	}
	emb, err := r.embed.Embed(ctx, c.Query().Normalized())
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrEmbeddingProviderError, err)
	}

	fields := returnFields
	if !c.IncludeVectors() {
		fields = append([]string{"__vector_score"}, fields...)
	} else {
		fields = append([]string{"__vector_score", fieldVector}, fields...)
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    IndexName,
		Filter:       buildFilter(c.Filter()),
		Vector:       emb.Embedding,
		K:            k,
		ReturnFields: fields,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("knn search: %w", err)
	}

	hits := make([]result.Hit, 0, len(sr.Entries))
	meta := make(map[int64]result.Metadata, len(sr.Entries))
	byID := make(map[int64]db.SearchEntry, len(sr.Entries))
	for _, e := range sr.Entries {
		item := entryToItem(e, 0)
		summary := e.Fields[fieldSummary]
		if summary == "" {
			summary = e.Fields[fieldContent]
		}
		hits = append(hits, result.Hit{ID: item.ID(), RawScore: e.Score})
		meta[item.ID()] = result.Metadata{
			EntityID:       item.ID(),
			ConversationID: item.ConversationID(),
			ContentSummary: summary,
		}
		byID[item.ID()] = e
	}

	ranked := r.ranker.Rank(hits, meta, c.Query().Normalized())
	items := make([]result.Item, 0, len(ranked))
	for i := range ranked {
		entry, ok := byID[ranked[i].Hit().ID]
		if !ok {
			continue
		}
		items = append(items, entryToItem(entry, ranked[i].RelevanceScore()))
	}
	return items, sr.Total, nil
}

// fuseRRF merges two ranked lists: score(d) = sum of 1/(k + rank_i(d))
// over each list where d appears. When a message shows up in both, the
// vector-side item is kept.
func fuseRRF(vector, text []result.Item) []result.Item {
	type scored struct {
		item  result.Item
		score float64
	}

	merged := make(map[int64]*scored)
	for rank := range vector {
		merged[vector[rank].ID()] = &scored{
			item:  vector[rank],
			score: 1.0 / float64(rrfK+rank+1),
		}
	}
	for rank := range text {
		s := 1.0 / float64(rrfK+rank+1)
		if existing, ok := merged[text[rank].ID()]; ok {
			existing.score += s
			continue
		}
		merged[text[rank].ID()] = &scored{item: text[rank], score: s}
	}

	fused := make([]result.Item, 0, len(merged))
	for _, s := range merged {
		i := s.item
		fused = append(fused, result.NewItem(
			i.ID(), i.ConversationID(), i.Content(), i.Timestamp(),
			i.AuthorID(), i.ReplyToID(), s.score, i.Highlights(), i.AttachmentTypes(),
		))
	}
	sort.Slice(fused, func(i, j int) bool {
		return fused[i].Score() > fused[j].Score()
	})
	return fused
}

func page(items []result.Item, skip, take int) []result.Item {
	if skip >= len(items) {
		return nil
	}
	items = items[skip:]
	if len(items) > take {
		items = items[:take]
	}
	return items
}
