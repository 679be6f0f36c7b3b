// Package jobs drives the processing-job lifecycle: creation,
// execution, retry and cancellation, with persistence after every
// transition. The only job kind executed here is conversation
// segmentation; the state machine itself lives in domain/job.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/msgdex/internal/domain"
	"github.com/kailas-cloud/msgdex/internal/domain/job"
	"github.com/kailas-cloud/msgdex/internal/domain/segment"
	"github.com/kailas-cloud/msgdex/internal/metrics"
	"github.com/kailas-cloud/msgdex/internal/usecase/segmenter"
)

// SegmentationInput is the payload of a segmentation job.
type SegmentationInput struct {
	ConversationID int64             `json:"conversation_id"`
	Messages       []segment.Message `json:"messages"`
}

// SegmentationConfig tunes one segmentation run.
type SegmentationConfig = segmenter.Config

// SegmentationJob is the concrete job type this service executes.
type SegmentationJob = job.Job[SegmentationInput, SegmentationConfig]

// Service executes segmentation jobs.
type Service struct {
	store        JobStore
	segments     SegmentWriter
	index        MessageIndexer
	embed        domain.Embedder
	newSegmenter func(SegmentationConfig) Segmenter
	defaults     SegmentationConfig
	maxRetries   int
	logger       *zap.Logger
}

// New creates a job service. embed may be nil: segments are then
// indexed without vectors and only text search covers them.
func New(
	store JobStore, segments SegmentWriter, index MessageIndexer,
	embed domain.Embedder, logger *zap.Logger,
) *Service {
	return &Service{
		store:    store,
		segments: segments,
		index:    index,
		embed:    embed,
		newSegmenter: func(cfg SegmentationConfig) Segmenter {
			return segmenter.New(cfg)
		},
		logger: logger,
	}
}

// WithDefaults installs fallback values applied to jobs that omit
// segmentation settings or a retry budget.
func (s *Service) WithDefaults(cfg SegmentationConfig, maxRetries int) *Service {
	s.defaults = cfg
	s.maxRetries = maxRetries
	return s
}

// Create registers a pending segmentation job and returns its id.
func (s *Service) Create(
	ctx context.Context, input SegmentationInput, cfg SegmentationConfig, maxRetries int,
) (string, error) {
	if input.ConversationID <= 0 {
		return "", fmt.Errorf("conversation id is required: %w", domain.ErrInvalidInput)
	}
	if len(input.Messages) == 0 {
		return "", fmt.Errorf("messages are required: %w", domain.ErrInvalidInput)
	}

	cfg = mergeConfig(s.defaults, cfg)
	if maxRetries == 0 {
		maxRetries = s.maxRetries
	}

	j := job.New[SegmentationInput, SegmentationConfig](job.KindSegmentation, input, cfg, maxRetries)
	if err := s.save(ctx, j); err != nil {
		return "", err
	}
	return j.ID(), nil
}

// Get loads a job by id.
func (s *Service) Get(ctx context.Context, id string) (*SegmentationJob, error) {
	j, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	return j, nil
}

// Run executes one attempt of a pending job: segment, embed, persist,
// index. The outcome is recorded on the job either way; the processing
// error is also returned to the caller.
func (s *Service) Run(ctx context.Context, id string) error {
	j, err := s.store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("load job %s: %w", id, err)
	}

	if err := j.StartProcessing(); err != nil {
		return err
	}
	if err := s.save(ctx, j); err != nil {
		return err
	}

	produced, covered, runErr := s.processSegments(ctx, j.Input(), j.Config())

	var res job.Result
	if runErr != nil {
		res = job.FailedWith(runErr.Error(), errorKind(runErr))
	} else {
		res = job.Succeeded(fmt.Sprintf("segments=%d messages=%d", produced, covered))
	}

	if err := j.CompleteProcessing(res); err != nil {
		return err
	}
	if err := s.save(ctx, j); err != nil {
		return err
	}

	if runErr != nil {
		return fmt.Errorf("segmentation job %s: %w", id, runErr)
	}
	return nil
}

// Retry returns a failed job to pending while its budget lasts.
func (s *Service) Retry(ctx context.Context, id string) error {
	j, err := s.store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("load job %s: %w", id, err)
	}
	if err := j.RetryProcessing(); err != nil {
		return err
	}
	return s.save(ctx, j)
}

// Cancel stops a pending or running job.
func (s *Service) Cancel(ctx context.Context, id, reason string) error {
	j, err := s.store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("load job %s: %w", id, err)
	}
	if err := j.CancelProcessing(reason); err != nil {
		return err
	}
	return s.save(ctx, j)
}

// processSegments runs the segmentation pipeline for one job attempt.
// Already-processed spans are skipped, so a retry after a partial
// failure redoes only the remaining segments.
func (s *Service) processSegments(
	ctx context.Context, input SegmentationInput, cfg SegmentationConfig,
) (produced, covered int, err error) {
	for _, sg := range s.newSegmenter(cfg).Segment(input.ConversationID, input.Messages) {
		done, err := s.segments.IsSpanProcessed(ctx, sg.ConversationID(), sg.Messages())
		if err != nil {
			return produced, covered, fmt.Errorf("probe span: %w", err)
		}
		if done {
			continue
		}

		vectors, err := s.embedMessages(ctx, sg.Messages())
		if err != nil {
			return produced, covered, fmt.Errorf("embed segment: %w", err)
		}

		if err := s.segments.Save(ctx, sg); err != nil {
			return produced, covered, fmt.Errorf("save segment: %w", err)
		}
		if err := s.index.IndexSegment(ctx, sg, vectors); err != nil {
			return produced, covered, fmt.Errorf("index segment: %w", err)
		}
		if err := s.index.AddSuggestions(ctx, sg.TopicKeywords()); err != nil {
			s.logger.Warn("Failed to feed suggestions",
				zap.Int64("conversation_id", sg.ConversationID()),
				zap.Error(err))
		}

		metrics.SegmentsProducedTotal.Inc()
		metrics.SegmentedMessagesTotal.Add(float64(sg.MessageCount()))
		produced++
		covered += sg.MessageCount()
	}
	return produced, covered, nil
}

// embedMessages vectorizes message contents, preferring the provider's
// native batch endpoint.
func (s *Service) embedMessages(ctx context.Context, msgs []segment.Message) ([][]float32, error) {
	if s.embed == nil {
		return nil, nil
	}

	texts := make([]string, len(msgs))
	for i, m := range msgs {
		texts[i] = m.Content
	}

	var (
		res domain.BatchEmbeddingResult
		err error
	)
	if be, ok := s.embed.(domain.BatchEmbedder); ok {
		res, err = be.BatchEmbed(ctx, texts)
	} else {
		res, err = domain.BatchFallback(ctx, s.embed, texts)
	}
	if err != nil {
		return nil, err
	}
	return res.Embeddings, nil
}

// save persists the job and dispatches its buffered events.
func (s *Service) save(ctx context.Context, j *SegmentationJob) error {
	if err := s.store.Save(ctx, j); err != nil {
		return fmt.Errorf("save job %s: %w", j.ID(), err)
	}
	s.dispatch(j.DrainEvents())
	return nil
}

// mergeConfig fills zero-valued job settings from the service
// defaults. Fields still zero after the merge fall back to the
// segmenter's own defaults.
func mergeConfig(defaults, cfg SegmentationConfig) SegmentationConfig {
	if cfg.MinMessagesPerSegment == 0 {
		cfg.MinMessagesPerSegment = defaults.MinMessagesPerSegment
	}
	if cfg.MaxMessagesPerSegment == 0 {
		cfg.MaxMessagesPerSegment = defaults.MaxMessagesPerSegment
	}
	if cfg.MaxTimeGap == 0 {
		cfg.MaxTimeGap = defaults.MaxTimeGap
	}
	if cfg.MaxSegmentLengthChars == 0 {
		cfg.MaxSegmentLengthChars = defaults.MaxSegmentLengthChars
	}
	if cfg.TopicSimilarityThreshold == 0 {
		cfg.TopicSimilarityThreshold = defaults.TopicSimilarityThreshold
	}
	return cfg
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		return "embedding_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "storage_error"
	}
}
