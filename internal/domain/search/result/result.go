// Package result defines search hit and result-set types.
package result

import (
	"time"

	"github.com/kailas-cloud/msgdex/internal/domain/search/strategy"
)

// Item is one retrieved message. Items are built fresh per query and
// never mutated after construction.
type Item struct {
	id              int64
	conversationID  int64
	content         string
	timestamp       time.Time
	authorID        int64
	replyToID       *int64
	score           float64
	highlights      []string
	attachmentTypes []string
}

// NewItem creates a search hit.
func NewItem(
	id, conversationID int64, content string, timestamp time.Time,
	authorID int64, replyToID *int64, score float64,
	highlights, attachmentTypes []string,
) Item {
	return Item{
		id:              id,
		conversationID:  conversationID,
		content:         content,
		timestamp:       timestamp,
		authorID:        authorID,
		replyToID:       replyToID,
		score:           score,
		highlights:      highlights,
		attachmentTypes: attachmentTypes,
	}
}

// ID returns the message identifier.
func (i *Item) ID() int64 { return i.id }

// ConversationID returns the owning conversation.
func (i *Item) ConversationID() int64 { return i.conversationID }

// Content returns the message text.
func (i *Item) Content() string { return i.content }

// Timestamp returns when the message was sent.
func (i *Item) Timestamp() time.Time { return i.timestamp }

// AuthorID returns the sender.
func (i *Item) AuthorID() int64 { return i.authorID }

// ReplyToID returns the replied-to message id, nil if none.
func (i *Item) ReplyToID() *int64 { return i.replyToID }

// Score returns the backend similarity or relevance score.
func (i *Item) Score() float64 { return i.score }

// Highlights returns highlighted content fragments.
func (i *Item) Highlights() []string { return i.highlights }

// AttachmentTypes returns the attachment type set.
func (i *Item) AttachmentTypes() []string { return i.attachmentTypes }

// Result is one page of search hits. All four strategies return this
// same shape, which keeps them interchangeable for the orchestrator.
type Result struct {
	items        []Item
	totalResults int
	skip         int
	take         int
	searchStrat  strategy.Strategy
}

// New creates a result page.
func New(items []Item, totalResults, skip, take int, s strategy.Strategy) Result {
	return Result{
		items:        items,
		totalResults: totalResults,
		skip:         skip,
		take:         take,
		searchStrat:  s,
	}
}

// Items returns the hits on this page.
func (r *Result) Items() []Item { return r.items }

// TotalResults returns the total match count across pages.
func (r *Result) TotalResults() int { return r.totalResults }

// Skip returns the page offset.
func (r *Result) Skip() int { return r.skip }

// Take returns the page size.
func (r *Result) Take() int { return r.take }

// Strategy returns the strategy that produced this result.
func (r *Result) Strategy() strategy.Strategy { return r.searchStrat }

// Count returns the number of hits on this page.
func (r *Result) Count() int { return len(r.items) }

// IsEmpty reports whether the page has no hits.
func (r *Result) IsEmpty() bool { return len(r.items) == 0 }
