// Package filter defines optional search constraints.
package filter

import (
	"fmt"
	"time"
)

// Filter narrows a search to a conversation, author, date range,
// reply presence, attachment types, and tags. The zero Filter
// matches everything.
type Filter struct {
	conversationID    *int64
	authorID          *int64
	startDate         *time.Time
	endDate           *time.Time
	hasReply          bool
	includedFileTypes []string
	excludedFileTypes []string
	requiredTags      []string
	excludedTags      []string
}

// Empty returns a filter that matches everything.
func Empty() Filter { return Filter{} }

// New validates and creates a filter. startDate must not be after endDate.
func New(
	conversationID, authorID *int64,
	startDate, endDate *time.Time,
	hasReply bool,
	includedFileTypes, excludedFileTypes, requiredTags, excludedTags []string,
) (Filter, error) {
	if startDate != nil && endDate != nil && startDate.After(*endDate) {
		return Filter{}, fmt.Errorf("start date %s is after end date %s",
			startDate.Format(time.RFC3339), endDate.Format(time.RFC3339))
	}
	return Filter{
		conversationID:    conversationID,
		authorID:          authorID,
		startDate:         startDate,
		endDate:           endDate,
		hasReply:          hasReply,
		includedFileTypes: includedFileTypes,
		excludedFileTypes: excludedFileTypes,
		requiredTags:      requiredTags,
		excludedTags:      excludedTags,
	}, nil
}

// ConversationID returns the conversation constraint, nil if unset.
func (f Filter) ConversationID() *int64 { return f.conversationID }

// AuthorID returns the author constraint, nil if unset.
func (f Filter) AuthorID() *int64 { return f.authorID }

// StartDate returns the lower date bound, nil if unset.
func (f Filter) StartDate() *time.Time { return f.startDate }

// EndDate returns the upper date bound, nil if unset.
func (f Filter) EndDate() *time.Time { return f.endDate }

// HasReply reports whether only messages with replies match.
func (f Filter) HasReply() bool { return f.hasReply }

// IncludedFileTypes returns the attachment types to include.
func (f Filter) IncludedFileTypes() []string { return f.includedFileTypes }

// ExcludedFileTypes returns the attachment types to exclude.
func (f Filter) ExcludedFileTypes() []string { return f.excludedFileTypes }

// RequiredTags returns tags every match must carry.
func (f Filter) RequiredTags() []string { return f.requiredTags }

// ExcludedTags returns tags no match may carry.
func (f Filter) ExcludedTags() []string { return f.excludedTags }

// IsEmpty reports whether the filter has no constraints.
func (f Filter) IsEmpty() bool {
	return f.conversationID == nil &&
		f.authorID == nil &&
		f.startDate == nil &&
		f.endDate == nil &&
		!f.hasReply &&
		len(f.includedFileTypes) == 0 &&
		len(f.excludedFileTypes) == 0 &&
		len(f.requiredTags) == 0 &&
		len(f.excludedTags) == 0
}

// MatchesDate reports whether ts falls inside the configured range.
func (f Filter) MatchesDate(ts time.Time) bool {
	if f.startDate != nil && ts.Before(*f.startDate) {
		return false
	}
	if f.endDate != nil && ts.After(*f.endDate) {
		return false
	}
	return true
}

// WithConversation returns a copy constrained to one conversation.
func (f Filter) WithConversation(id int64) Filter {
	f.conversationID = &id
	return f
}

// WithAuthor returns a copy constrained to one author.
func (f Filter) WithAuthor(id int64) Filter {
	f.authorID = &id
	return f
}

// WithDateRange returns a copy with the date range replaced.
// Returns an error if start is after end.
func (f Filter) WithDateRange(start, end *time.Time) (Filter, error) {
	if start != nil && end != nil && start.After(*end) {
		return Filter{}, fmt.Errorf("start date %s is after end date %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	f.startDate = start
	f.endDate = end
	return f, nil
}

// WithReply returns a copy with the has-reply flag set.
func (f Filter) WithReply(hasReply bool) Filter {
	f.hasReply = hasReply
	return f
}

// WithRequiredTag returns a copy requiring an extra tag.
func (f Filter) WithRequiredTag(tag string) Filter {
	f.requiredTags = append(append([]string(nil), f.requiredTags...), tag)
	return f
}

// WithExcludedTag returns a copy excluding an extra tag.
func (f Filter) WithExcludedTag(tag string) Filter {
	f.excludedTags = append(append([]string(nil), f.excludedTags...), tag)
	return f
}
