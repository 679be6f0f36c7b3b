// Package ranking turns raw backend hits into a deduplicated, ranked
// result list. The pipeline is a pure function of its inputs and is
// safe for unlimited parallel invocation.
package ranking

import (
	"crypto/sha256"
	"encoding/base64"
	"sort"
	"strings"
	"unicode"

	"github.com/kailas-cloud/msgdex/internal/domain/search/result"
)

// Defaults assume a distance-like raw score roughly in [0,2].
const (
	DefaultSimilarityThreshold = 2.0
	DefaultVectorWeight        = 0.7
	DefaultKeywordWeight       = 0.3
)

// Config tunes the scoring pipeline.
type Config struct {
	// SimilarityThreshold drops hits whose raw distance exceeds it.
	SimilarityThreshold float64
	// VectorWeight and KeywordWeight fuse the two scores. They are
	// not required to sum to 1.
	VectorWeight  float64
	KeywordWeight float64
	// Deduplicate keeps only the best-scored member per content hash.
	Deduplicate bool
}

// ApplyDefaults fills zero values with the default pipeline settings.
func (c *Config) ApplyDefaults() {
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if c.VectorWeight == 0 {
		c.VectorWeight = DefaultVectorWeight
	}
	if c.KeywordWeight == 0 {
		c.KeywordWeight = DefaultKeywordWeight
	}
}

// DefaultConfig returns the pipeline settings used in production, with
// deduplication enabled.
func DefaultConfig() Config {
	cfg := Config{Deduplicate: true}
	cfg.ApplyDefaults()
	return cfg
}

// Service scores, deduplicates and ranks backend hits.
type Service struct {
	cfg Config
}

// New creates a ranking service.
func New(cfg Config) *Service {
	cfg.ApplyDefaults()
	return &Service{cfg: cfg}
}

// Rank runs the full pipeline over raw hits: threshold filter, score
// fusion, optional content-hash deduplication, then a stable sort by
// descending relevance. Hits with no metadata entry are treated as
// stale index entries and dropped without error.
func (s *Service) Rank(
	hits []result.Hit,
	metadata map[int64]result.Metadata,
	query string,
) []result.Ranked {
	normalizedQuery := strings.ToLower(strings.TrimSpace(query))
	queryTerms := queryTerms(normalizedQuery)

	ranked := make([]result.Ranked, 0, len(hits))
	for _, hit := range hits {
		if hit.RawScore > s.cfg.SimilarityThreshold {
			continue
		}
		meta, ok := metadata[hit.ID]
		if !ok {
			continue
		}

		keywordScore := keywordScore(normalizedQuery, queryTerms, meta.ContentSummary)
		vectorScore := VectorScore(hit.RawScore)
		relevance := vectorScore*s.cfg.VectorWeight + keywordScore*s.cfg.KeywordWeight

		ranked = append(ranked, result.NewRanked(
			hit, meta, keywordScore, relevance, ContentHash(meta.ContentSummary)))
	}

	if s.cfg.Deduplicate {
		ranked = dedupe(ranked)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore() > ranked[j].RelevanceScore()
	})
	return ranked
}

// VectorScore remaps a distance-like raw score to a [0,1] similarity,
// assuming distances roughly in [0,2].
func VectorScore(rawScore float64) float64 {
	score := 1 - rawScore/2
	if score < 0 {
		return 0
	}
	return score
}

// ContentHash digests content with all whitespace stripped and case
// folded, so trivially reformatted duplicates collapse to one key.
func ContentHash(content string) string {
	var b strings.Builder
	b.Grow(len(content))
	for _, r := range content {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func queryTerms(normalizedQuery string) []string {
	terms := strings.FieldsFunc(normalizedQuery, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	kept := terms[:0]
	for _, t := range terms {
		if len([]rune(t)) >= 2 {
			kept = append(kept, t)
		}
	}
	return kept
}

// keywordScore is 1 when the whole normalized query appears literally
// in the summary, otherwise the fraction of query terms the summary
// contains.
func keywordScore(normalizedQuery string, terms []string, summary string) float64 {
	if normalizedQuery == "" {
		return 0
	}
	lower := strings.ToLower(summary)
	if strings.Contains(lower, normalizedQuery) {
		return 1
	}
	if len(terms) == 0 {
		return 0
	}
	matched := 0
	for _, t := range terms {
		if strings.Contains(lower, t) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// dedupe keeps the highest-relevance member per content hash,
// preserving first-seen order of the survivors.
func dedupe(ranked []result.Ranked) []result.Ranked {
	best := make(map[string]int, len(ranked))
	kept := ranked[:0]
	for _, r := range ranked {
		idx, seen := best[r.ContentHash()]
		if !seen {
			best[r.ContentHash()] = len(kept)
			kept = append(kept, r)
			continue
		}
		if r.RelevanceScore() > kept[idx].RelevanceScore() {
			kept[idx] = r
		}
	}
	return kept
}
