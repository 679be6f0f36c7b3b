// Package segmenter cuts ordered conversation message streams into
// topic-coherent segments for downstream embedding.
package segmenter

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/msgdex/internal/domain/segment"
)

// Default segmentation parameters.
const (
	DefaultMinMessagesPerSegment = 3
	DefaultMaxMessagesPerSegment = 10
	DefaultMaxTimeGap            = 15 * time.Minute
	DefaultMaxSegmentLengthChars = 2000
	DefaultTopicThreshold        = 0.3

	// Participant churn applies once a segment has this many messages.
	churnMinSegmentSize = 8
	// A new author cuts only if absent from this many trailing messages.
	churnWindow = 5

	summaryMaxLines = 3
	summaryMaxRunes = 100
)

// Config tunes the boundary triggers.
type Config struct {
	MinMessagesPerSegment    int
	MaxMessagesPerSegment    int
	MaxTimeGap               time.Duration
	MaxSegmentLengthChars    int
	TopicSimilarityThreshold float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MinMessagesPerSegment:    DefaultMinMessagesPerSegment,
		MaxMessagesPerSegment:    DefaultMaxMessagesPerSegment,
		MaxTimeGap:               DefaultMaxTimeGap,
		MaxSegmentLengthChars:    DefaultMaxSegmentLengthChars,
		TopicSimilarityThreshold: DefaultTopicThreshold,
	}
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.MinMessagesPerSegment <= 0 {
		c.MinMessagesPerSegment = DefaultMinMessagesPerSegment
	}
	if c.MaxMessagesPerSegment <= 0 {
		c.MaxMessagesPerSegment = DefaultMaxMessagesPerSegment
	}
	if c.MaxTimeGap <= 0 {
		c.MaxTimeGap = DefaultMaxTimeGap
	}
	if c.MaxSegmentLengthChars <= 0 {
		c.MaxSegmentLengthChars = DefaultMaxSegmentLengthChars
	}
	if c.TopicSimilarityThreshold <= 0 {
		c.TopicSimilarityThreshold = DefaultTopicThreshold
	}
}

// Service is the conversation segmenter. It is a pure transformation
// over its input: safe for unlimited parallel invocation.
type Service struct {
	cfg Config
}

// New creates a segmenter.
func New(cfg Config) *Service {
	cfg.ApplyDefaults()
	return &Service{cfg: cfg}
}

// Segment cuts an ordered message stream for one conversation into
// segments. A trailing run shorter than the minimum segment size is
// dropped, never emitted.
func (s *Service) Segment(conversationID int64, messages []segment.Message) []segment.Segment {
	var (
		segments   []segment.Segment
		pending    []segment.Message
		pendingLen int
		keywords   = make(map[string]struct{})
	)

	for _, msg := range messages {
		if s.shouldCut(pending, pendingLen, keywords, msg) &&
			len(pending) >= s.cfg.MinMessagesPerSegment {
			segments = append(segments, s.build(conversationID, pending))
			pending = nil
			pendingLen = 0
			keywords = make(map[string]struct{})
		}

		pending = append(pending, msg)
		pendingLen += utf8.RuneCountInString(msg.Content)
		for _, w := range extractKeywords(msg.Content) {
			keywords[w] = struct{}{}
		}
	}

	if len(pending) >= s.cfg.MinMessagesPerSegment {
		segments = append(segments, s.build(conversationID, pending))
	}

	return segments
}

// shouldCut decides whether to close the accumulator before appending
// msg. Triggers are checked in priority order; any one suffices.
func (s *Service) shouldCut(
	pending []segment.Message, pendingLen int,
	keywords map[string]struct{}, msg segment.Message,
) bool {
	if len(pending) == 0 {
		return false
	}

	// 1. Message count cap.
	if len(pending) >= s.cfg.MaxMessagesPerSegment {
		return true
	}

	// 2. Time gap since the previous message.
	last := pending[len(pending)-1]
	if msg.Timestamp.Sub(last.Timestamp) > s.cfg.MaxTimeGap {
		return true
	}

	// 3. Character cap including the incoming message.
	if pendingLen+utf8.RuneCountInString(msg.Content) > s.cfg.MaxSegmentLengthChars {
		return true
	}

	// 4. Topic drift, once the segment can stand on its own.
	if len(pending) >= s.cfg.MinMessagesPerSegment {
		if jaccard(keywords, extractKeywords(msg.Content)) < s.cfg.TopicSimilarityThreshold {
			return true
		}
	}

	// 5. Explicit topic-transition phrase.
	if hasTransitionMarker(msg.Content) {
		return true
	}

	// 6. Participant churn: a sender absent from the recent window.
	if len(pending) >= churnMinSegmentSize {
		recent := pending[len(pending)-churnWindow:]
		known := false
		for _, m := range recent {
			if m.AuthorID == msg.AuthorID {
				known = true
				break
			}
		}
		if !known {
			return true
		}
	}

	return false
}

func (s *Service) build(conversationID int64, messages []segment.Message) segment.Segment {
	run := make([]segment.Message, len(messages))
	copy(run, messages)

	contents := make([]string, len(run))
	for i, m := range run {
		contents[i] = m.Content
	}
	fullContent := strings.Join(contents, "\n")

	return segment.New(
		conversationID,
		run,
		topKeywords(run, 10),
		fullContent,
		summarize(fullContent),
	)
}

// summarize joins the first lines of content and hard-truncates with
// an ellipsis.
func summarize(fullContent string) string {
	var lines []string
	for _, line := range strings.Split(fullContent, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == summaryMaxLines {
			break
		}
	}

	summary := strings.Join(lines, " ")
	if utf8.RuneCountInString(summary) > summaryMaxRunes {
		runes := []rune(summary)
		summary = string(runes[:summaryMaxRunes]) + "..."
	}
	return summary
}
