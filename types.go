package msgdex

import "time"

// Mode selects the retrieval strategy for a search.
type Mode string

const (
	// ModeKeyword is inverted-index full-text retrieval (default).
	ModeKeyword Mode = "inverted_index"
	// ModeVector is embedding-based semantic retrieval.
	ModeVector Mode = "vector"
	// ModeSyntax parses advanced query operators before retrieval.
	ModeSyntax Mode = "syntax"
	// ModeHybrid fuses keyword and vector scores.
	ModeHybrid Mode = "hybrid"
)

// Message is one conversational message to be segmented and indexed.
type Message struct {
	ID        int64
	AuthorID  int64
	Content   string
	Timestamp time.Time
}

// Hit is a single search result.
type Hit struct {
	ID              int64
	ConversationID  int64
	AuthorID        int64
	ReplyToID       *int64
	Content         string
	Timestamp       time.Time
	Score           float64
	Highlights      []string
	AttachmentTypes []string
}

// SearchPage is one page of search hits.
type SearchPage struct {
	Hits  []Hit
	Total int
	Skip  int
	Take  int
	Mode  Mode
}

// JobInfo is a snapshot of a segmentation job.
type JobInfo struct {
	ID           string
	Status       string
	RetryCount   int
	MaxRetries   int
	CanRetry     bool
	Output       string
	ErrorMessage string
	ErrorKind    string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// IndexStats carries index-level counters.
type IndexStats struct {
	TotalDocuments int64
	TotalTerms     int64
	IndexSizeBytes int64
}
