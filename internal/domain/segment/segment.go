// Package segment defines conversation messages and topic-coherent
// segments produced by the segmentation pipeline.
package segment

import "time"

// Message is one archived chat message, the segmenter's input unit.
type Message struct {
	ID        int64
	AuthorID  int64
	Content   string
	Timestamp time.Time
}

// Segment is a maximal run of consecutive messages in one conversation
// judged topically and temporally coherent. Built once the segmenter
// decides a boundary; immutable thereafter; persisted downstream for
// embedding.
type Segment struct {
	conversationID   int64
	messages         []Message
	startTime        time.Time
	endTime          time.Time
	firstMessageID   int64
	lastMessageID    int64
	messageCount     int
	participantCount int
	topicKeywords    []string
	fullContent      string
	contentSummary   string
}

// New creates a segment over a non-empty ordered message run.
// Start/end times, boundary message ids, and the participant count are
// derived from the messages.
func New(
	conversationID int64,
	messages []Message,
	topicKeywords []string,
	fullContent, contentSummary string,
) Segment {
	first := messages[0]
	last := messages[len(messages)-1]

	authors := make(map[int64]struct{}, len(messages))
	for _, m := range messages {
		authors[m.AuthorID] = struct{}{}
	}

	return Segment{
		conversationID:   conversationID,
		messages:         messages,
		startTime:        first.Timestamp,
		endTime:          last.Timestamp,
		firstMessageID:   first.ID,
		lastMessageID:    last.ID,
		messageCount:     len(messages),
		participantCount: len(authors),
		topicKeywords:    topicKeywords,
		fullContent:      fullContent,
		contentSummary:   contentSummary,
	}
}

// ConversationID returns the owning conversation.
func (s *Segment) ConversationID() int64 { return s.conversationID }

// Messages returns the ordered message run.
func (s *Segment) Messages() []Message { return s.messages }

// StartTime returns the first message's timestamp.
func (s *Segment) StartTime() time.Time { return s.startTime }

// EndTime returns the last message's timestamp.
func (s *Segment) EndTime() time.Time { return s.endTime }

// FirstMessageID returns the first message id.
func (s *Segment) FirstMessageID() int64 { return s.firstMessageID }

// LastMessageID returns the last message id.
func (s *Segment) LastMessageID() int64 { return s.lastMessageID }

// MessageCount returns the number of messages.
func (s *Segment) MessageCount() int { return s.messageCount }

// ParticipantCount returns the number of distinct authors.
func (s *Segment) ParticipantCount() int { return s.participantCount }

// TopicKeywords returns the top keywords by frequency.
func (s *Segment) TopicKeywords() []string { return s.topicKeywords }

// FullContent returns the newline-joined message content.
func (s *Segment) FullContent() string { return s.fullContent }

// ContentSummary returns the short summary used for scoring.
func (s *Segment) ContentSummary() string { return s.contentSummary }

// Duration returns the time span the segment covers.
func (s *Segment) Duration() time.Duration { return s.endTime.Sub(s.startTime) }
