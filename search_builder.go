package msgdex

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/msgdex/internal/domain/search/criteria"
	"github.com/kailas-cloud/msgdex/internal/domain/search/filter"
	"github.com/kailas-cloud/msgdex/internal/domain/search/query"
	"github.com/kailas-cloud/msgdex/internal/domain/search/session"
	"github.com/kailas-cloud/msgdex/internal/domain/search/strategy"
)

// SearchBuilder is a fluent builder for archive queries.
type SearchBuilder struct {
	c *Client

	query string
	mode  Mode

	conversationID *int64
	authorID       *int64
	since          *time.Time
	until          *time.Time
	hasReply       bool

	attachments   []string
	noAttachments []string
	tags          []string
	noTags        []string

	skip int
	take int
}

// Search starts a query against the message archive.
func (c *Client) Search(q string) *SearchBuilder {
	return &SearchBuilder{c: c, query: q, mode: ModeKeyword}
}

// Mode selects the retrieval strategy.
func (b *SearchBuilder) Mode(m Mode) *SearchBuilder {
	b.mode = m
	return b
}

// In restricts hits to one conversation.
func (b *SearchBuilder) In(conversationID int64) *SearchBuilder {
	b.conversationID = &conversationID
	return b
}

// By restricts hits to one author.
func (b *SearchBuilder) By(authorID int64) *SearchBuilder {
	b.authorID = &authorID
	return b
}

// Since keeps only messages sent at or after t.
func (b *SearchBuilder) Since(t time.Time) *SearchBuilder {
	b.since = &t
	return b
}

// Until keeps only messages sent at or before t.
func (b *SearchBuilder) Until(t time.Time) *SearchBuilder {
	b.until = &t
	return b
}

// HasReply keeps only messages that reply to another message.
func (b *SearchBuilder) HasReply() *SearchBuilder {
	b.hasReply = true
	return b
}

// WithAttachments keeps only messages carrying one of the given
// attachment types.
func (b *SearchBuilder) WithAttachments(types ...string) *SearchBuilder {
	b.attachments = append(b.attachments, types...)
	return b
}

// WithoutAttachments drops messages carrying one of the given
// attachment types.
func (b *SearchBuilder) WithoutAttachments(types ...string) *SearchBuilder {
	b.noAttachments = append(b.noAttachments, types...)
	return b
}

// Tagged keeps only messages labeled with all the given tags.
func (b *SearchBuilder) Tagged(tags ...string) *SearchBuilder {
	b.tags = append(b.tags, tags...)
	return b
}

// NotTagged drops messages labeled with any of the given tags.
func (b *SearchBuilder) NotTagged(tags ...string) *SearchBuilder {
	b.noTags = append(b.noTags, tags...)
	return b
}

// Skip sets the result offset.
func (b *SearchBuilder) Skip(n int) *SearchBuilder {
	b.skip = n
	return b
}

// Take sets the page size.
func (b *SearchBuilder) Take(n int) *SearchBuilder {
	b.take = n
	return b
}

func (b *SearchBuilder) buildCriteria() (criteria.Criteria, error) {
	f, err := filter.New(
		b.conversationID, b.authorID,
		b.since, b.until,
		b.hasReply,
		b.attachments, b.noAttachments,
		b.tags, b.noTags,
	)
	if err != nil {
		return criteria.Criteria{}, fmt.Errorf("msgdex: build filter: %w", err)
	}
	take := b.take
	if take == 0 {
		take = criteria.DefaultTake
	}
	return criteria.New(
		query.New(b.query), strategy.Strategy(b.mode), f,
		b.skip, take, false, false,
	), nil
}

// Do executes the search.
func (b *SearchBuilder) Do(ctx context.Context) (SearchPage, error) {
	c, err := b.buildCriteria()
	if err != nil {
		return SearchPage{}, err
	}

	res, err := b.c.search.Execute(ctx, session.New(c))
	if err != nil {
		return SearchPage{}, err
	}

	hits := make([]Hit, res.Count())
	for i, item := range res.Items() {
		hits[i] = Hit{
			ID:              item.ID(),
			ConversationID:  item.ConversationID(),
			AuthorID:        item.AuthorID(),
			ReplyToID:       item.ReplyToID(),
			Content:         item.Content(),
			Timestamp:       item.Timestamp(),
			Score:           item.Score(),
			Highlights:      item.Highlights(),
			AttachmentTypes: item.AttachmentTypes(),
		}
	}
	return SearchPage{
		Hits:  hits,
		Total: res.TotalResults(),
		Skip:  res.Skip(),
		Take:  res.Take(),
		Mode:  Mode(res.Strategy()),
	}, nil
}
