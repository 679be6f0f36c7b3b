package jobs

import (
	"context"

	"github.com/kailas-cloud/msgdex/internal/domain/job"
	"github.com/kailas-cloud/msgdex/internal/domain/segment"
)

// JobStore persists segmentation job state between attempts.
type JobStore interface {
	Save(ctx context.Context, j *job.Job[SegmentationInput, SegmentationConfig]) error
	Load(ctx context.Context, id string) (*job.Job[SegmentationInput, SegmentationConfig], error)
}

// Segmenter cuts an ordered message stream into topic-coherent segments.
type Segmenter interface {
	Segment(conversationID int64, messages []segment.Message) []segment.Segment
}

// SegmentWriter persists produced segments and tracks processed spans.
type SegmentWriter interface {
	Save(ctx context.Context, seg segment.Segment) error
	IsSpanProcessed(ctx context.Context, conversationID int64, messages []segment.Message) (bool, error)
}

// MessageIndexer writes segment messages into the search index.
type MessageIndexer interface {
	IndexSegment(ctx context.Context, seg segment.Segment, vectors [][]float32) error
	AddSuggestions(ctx context.Context, terms []string) error
}
