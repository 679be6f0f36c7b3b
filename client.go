// Package msgdex is the embedded client for the message archive:
// conversation segmentation, indexing and multi-strategy retrieval
// over a Valkey or Redis store, without running the HTTP server.
package msgdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/msgdex/internal/db"
	dbRedis "github.com/kailas-cloud/msgdex/internal/db/redis"
	"github.com/kailas-cloud/msgdex/internal/domain/segment"
	"github.com/kailas-cloud/msgdex/internal/repository/jobrepo"
	"github.com/kailas-cloud/msgdex/internal/repository/searchrepo"
	"github.com/kailas-cloud/msgdex/internal/repository/segmentrepo"
	jobsuc "github.com/kailas-cloud/msgdex/internal/usecase/jobs"
	"github.com/kailas-cloud/msgdex/internal/usecase/ranking"
	searchuc "github.com/kailas-cloud/msgdex/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultVectorDimensions = 1536
)

// Client is the msgdex SDK entry point.
type Client struct {
	store  db.Store
	search *searchuc.Service
	jobs   *jobsuc.Service
}

// New creates a msgdex Client and connects to the database.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		vectorDimensions: defaultVectorDimensions,
		readinessTimeout: defaultReadinessTimeout,
		logger:           zap.NewNop(),
	}
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("msgdex: database address required (use WithValkey or WithRedis)")
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("msgdex: database not ready: %w", err)
	}

	return wireClient(ctx, store, cfg)
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	// Valkey is wire-compatible with Redis; one client serves both.
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Username: cfg.username,
			Password: cfg.password,
			DB:       cfg.db,
		})
		if err != nil {
			return nil, fmt.Errorf("msgdex: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("msgdex: unknown driver %q", cfg.driver)
	}
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig) (*Client, error) {
	ranker := ranking.New(ranking.Config{
		VectorWeight:  cfg.vectorWeight,
		KeywordWeight: cfg.keywordWeight,
		Deduplicate:   !cfg.noDedup,
	})

	searchRepo := searchrepo.New(store, cfg.embedder, ranker, cfg.logger)
	if cfg.hnswM > 0 || cfg.hnswEFConstruct > 0 {
		searchRepo = searchRepo.WithHNSW(searchrepo.HNSWConfig{
			M:           cfg.hnswM,
			EFConstruct: cfg.hnswEFConstruct,
		})
	}
	if err := searchRepo.EnsureIndex(ctx, cfg.vectorDimensions); err != nil {
		store.Close()
		return nil, fmt.Errorf("msgdex: ensure index: %w", err)
	}

	segmentRepo := segmentrepo.New(store)
	jobRepo := jobrepo.New[jobsuc.SegmentationInput, jobsuc.SegmentationConfig](store)

	return &Client{
		store:  store,
		search: searchuc.New(searchRepo, cfg.logger),
		jobs:   jobsuc.New(jobRepo, segmentRepo, searchRepo, cfg.embedder, cfg.logger),
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// SegmentConversation creates a segmentation job for the messages and
// runs it immediately. The returned snapshot reflects the outcome; a
// failed run also returns the processing error.
func (c *Client) SegmentConversation(ctx context.Context, conversationID int64, msgs []Message) (JobInfo, error) {
	id, err := c.jobs.Create(ctx, jobsuc.SegmentationInput{
		ConversationID: conversationID,
		Messages:       toDomainMessages(msgs),
	}, jobsuc.SegmentationConfig{}, 0)
	if err != nil {
		return JobInfo{}, err
	}

	runErr := c.jobs.Run(ctx, id)

	j, err := c.jobs.Get(ctx, id)
	if err != nil {
		return JobInfo{}, err
	}
	return toJobInfo(j), runErr
}

// Job returns a snapshot of a segmentation job.
func (c *Client) Job(ctx context.Context, id string) (JobInfo, error) {
	j, err := c.jobs.Get(ctx, id)
	if err != nil {
		return JobInfo{}, err
	}
	return toJobInfo(j), nil
}

// RetryJob moves a failed job back to pending and runs it again.
func (c *Client) RetryJob(ctx context.Context, id string) (JobInfo, error) {
	if err := c.jobs.Retry(ctx, id); err != nil {
		return JobInfo{}, err
	}

	runErr := c.jobs.Run(ctx, id)

	j, err := c.jobs.Get(ctx, id)
	if err != nil {
		return JobInfo{}, err
	}
	return toJobInfo(j), runErr
}

// CancelJob cancels a pending or processing job.
func (c *Client) CancelJob(ctx context.Context, id, reason string) (JobInfo, error) {
	if err := c.jobs.Cancel(ctx, id, reason); err != nil {
		return JobInfo{}, err
	}
	j, err := c.jobs.Get(ctx, id)
	if err != nil {
		return JobInfo{}, err
	}
	return toJobInfo(j), nil
}

// Suggest returns completion candidates for a query prefix.
func (c *Client) Suggest(ctx context.Context, prefix string, max int) ([]string, error) {
	return c.search.Suggestions(ctx, prefix, max)
}

// Stats returns index-level counters.
func (c *Client) Stats(ctx context.Context) (IndexStats, error) {
	stats, err := c.search.Statistics(ctx)
	if err != nil {
		return IndexStats{}, err
	}
	return IndexStats{
		TotalDocuments: stats.TotalDocuments,
		TotalTerms:     stats.TotalTerms,
		IndexSizeBytes: stats.IndexSizeBytes,
	}, nil
}

func toDomainMessages(msgs []Message) []segment.Message {
	out := make([]segment.Message, len(msgs))
	for i, m := range msgs {
		out[i] = segment.Message{
			ID:        m.ID,
			AuthorID:  m.AuthorID,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		}
	}
	return out
}

func toJobInfo(j *jobsuc.SegmentationJob) JobInfo {
	info := JobInfo{
		ID:          j.ID(),
		Status:      j.Status().String(),
		RetryCount:  j.RetryCount(),
		MaxRetries:  j.MaxRetries(),
		CanRetry:    j.CanRetry(),
		CreatedAt:   j.CreatedAt(),
		StartedAt:   j.StartedAt(),
		CompletedAt: j.CompletedAt(),
	}
	if res := j.Result(); res != nil {
		info.Output = res.Output
		info.ErrorMessage = res.ErrorMessage
		info.ErrorKind = res.ErrorKind
	}
	return info
}
