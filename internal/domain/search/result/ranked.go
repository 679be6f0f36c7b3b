package result

// Hit is a raw backend candidate: an id plus a distance-like score
// (smaller means more similar).
type Hit struct {
	ID       int64
	RawScore float64
}

// Metadata is the side-table entry resolved for a hit id.
type Metadata struct {
	EntityID       int64
	ConversationID int64
	ContentSummary string
}

// Ranked wraps a surviving hit with its derived scores. Created by the
// ranking pipeline and consumed once by the caller; never persisted.
type Ranked struct {
	hit            Hit
	entityID       int64
	conversationID int64
	contentSummary string
	keywordScore   float64
	relevanceScore float64
	contentHash    string
}

// NewRanked creates a ranked result.
func NewRanked(
	hit Hit, meta Metadata,
	keywordScore, relevanceScore float64, contentHash string,
) Ranked {
	return Ranked{
		hit:            hit,
		entityID:       meta.EntityID,
		conversationID: meta.ConversationID,
		contentSummary: meta.ContentSummary,
		keywordScore:   keywordScore,
		relevanceScore: relevanceScore,
		contentHash:    contentHash,
	}
}

// Hit returns the underlying backend hit.
func (r *Ranked) Hit() Hit { return r.hit }

// EntityID returns the referenced message entity.
func (r *Ranked) EntityID() int64 { return r.entityID }

// ConversationID returns the owning conversation.
func (r *Ranked) ConversationID() int64 { return r.conversationID }

// ContentSummary returns the summary the scores were computed against.
func (r *Ranked) ContentSummary() string { return r.contentSummary }

// KeywordScore returns the lexical overlap score in [0,1].
func (r *Ranked) KeywordScore() float64 { return r.keywordScore }

// RelevanceScore returns the fused ranking score.
func (r *Ranked) RelevanceScore() float64 { return r.relevanceScore }

// ContentHash returns the normalized-content digest used for dedup.
func (r *Ranked) ContentHash() string { return r.contentHash }
