// Package segmentrepo persists conversation segments and tracks which
// message spans were already segmented, so re-running a batch is
// idempotent.
package segmentrepo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/msgdex/internal/db"
	"github.com/kailas-cloud/msgdex/internal/domain"
	"github.com/kailas-cloud/msgdex/internal/domain/segment"
)

var (
	keyPrefix    = domain.KeyPrefix + "segment:"
	cachedPrefix = domain.KeyPrefix + "segmented:"
)

// cacheTTL bounds how long a processed-span marker is kept. Spans are
// re-segmentable after expiry, which is safe because indexing is
// idempotent per message key.
const cacheTTL = 30 * 24 * time.Hour

// store is the consumer interface for segment persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Repo stores segments as JSON values in the key-value store.
type Repo struct {
	store store
}

// New creates a segment repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

type messageDTO struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"author_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type segmentDTO struct {
	ConversationID int64        `json:"conversation_id"`
	Messages       []messageDTO `json:"messages"`
	TopicKeywords  []string     `json:"topic_keywords,omitempty"`
	FullContent    string       `json:"full_content"`
	ContentSummary string       `json:"content_summary"`
}

// Key identifies a segment by conversation and message span.
func Key(conversationID, firstMessageID, lastMessageID int64) string {
	return fmt.Sprintf("%s%d:%d:%d", keyPrefix, conversationID, firstMessageID, lastMessageID)
}

// Save persists one segment and marks its span as processed.
func (r *Repo) Save(ctx context.Context, seg segment.Segment) error {
	msgs := make([]messageDTO, len(seg.Messages()))
	for i, m := range seg.Messages() {
		msgs[i] = messageDTO{
			ID:        m.ID,
			AuthorID:  m.AuthorID,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		}
	}
	dto := segmentDTO{
		ConversationID: seg.ConversationID(),
		Messages:       msgs,
		TopicKeywords:  seg.TopicKeywords(),
		FullContent:    seg.FullContent(),
		ContentSummary: seg.ContentSummary(),
	}

	data, err := json.Marshal(dto)
	if err != nil {
		return fmt.Errorf("marshal segment: %w", err)
	}

	key := Key(seg.ConversationID(), seg.FirstMessageID(), seg.LastMessageID())
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("save segment %s: %w", key, err)
	}
	return r.Cache(ctx, spanCacheKey(seg))
}

// Load rebuilds a segment from its persisted form.
func (r *Repo) Load(ctx context.Context, conversationID, firstMessageID, lastMessageID int64) (segment.Segment, error) {
	key := Key(conversationID, firstMessageID, lastMessageID)
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return segment.Segment{}, fmt.Errorf("segment %s: %w", key, domain.ErrNotFound)
		}
		return segment.Segment{}, fmt.Errorf("load segment %s: %w", key, err)
	}

	var dto segmentDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return segment.Segment{}, fmt.Errorf("unmarshal segment %s: %w", key, err)
	}

	msgs := make([]segment.Message, len(dto.Messages))
	for i, m := range dto.Messages {
		msgs[i] = segment.Message{
			ID:        m.ID,
			AuthorID:  m.AuthorID,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		}
	}
	return segment.New(
		dto.ConversationID, msgs, dto.TopicKeywords,
		dto.FullContent, dto.ContentSummary,
	), nil
}

// IsCached reports whether a processed-span marker exists for the key.
func (r *Repo) IsCached(ctx context.Context, key string) (bool, error) {
	ok, err := r.store.Exists(ctx, cachedPrefix+key)
	if err != nil {
		return false, fmt.Errorf("probe cache %s: %w", key, err)
	}
	return ok, nil
}

// Cache writes a processed-span marker.
func (r *Repo) Cache(ctx context.Context, key string) error {
	if err := r.store.SetWithTTL(ctx, cachedPrefix+key, []byte("1"), cacheTTL); err != nil {
		return fmt.Errorf("cache %s: %w", key, err)
	}
	return nil
}

// IsSpanProcessed reports whether this exact message span has already
// been segmented and persisted.
func (r *Repo) IsSpanProcessed(ctx context.Context, conversationID int64, messages []segment.Message) (bool, error) {
	return r.IsCached(ctx, SpanKey(conversationID, messages))
}

// SpanKey derives the idempotency key for a batch of messages about to
// be segmented: conversation plus a digest of the message ids.
func SpanKey(conversationID int64, messages []segment.Message) string {
	h := sha256.New()
	for _, m := range messages {
		fmt.Fprintf(h, "%d:", m.ID)
	}
	return fmt.Sprintf("%d:%s", conversationID, hex.EncodeToString(h.Sum(nil)[:8]))
}

func spanCacheKey(seg segment.Segment) string {
	return SpanKey(seg.ConversationID(), seg.Messages())
}
