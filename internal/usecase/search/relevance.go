package search

import (
	"math"
	"strings"
	"time"
	"unicode"
)

// Relevance fusion weights. Substring match dominates, keyword overlap
// refines, recency and vector similarity break ties.
const (
	relevanceSubstringWeight = 0.5
	relevanceKeywordWeight   = 0.3
	relevanceRecencyWeight   = 0.1
	relevanceVectorWeight    = 0.1

	recencyHalfLifeDays = 365.0
)

// RelevanceMetadata carries the per-document signals that do not come
// from the text itself.
type RelevanceMetadata struct {
	Timestamp   time.Time
	VectorScore float64
}

// CalculateRelevanceScore fuses lexical, recency and vector signals
// into a [0,1] score. It is independent of any backend and used when a
// backend returns only similarity, not relevance. An absent query or
// content scores 0.
func CalculateRelevanceScore(query, content string, meta RelevanceMetadata) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	c := strings.ToLower(content)
	if q == "" || strings.TrimSpace(content) == "" {
		return 0
	}

	score := 0.0
	if strings.Contains(c, q) {
		score += relevanceSubstringWeight
	}

	terms := strings.FieldsFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	eligible, matched := 0, 0
	for _, t := range terms {
		if len([]rune(t)) < 2 {
			continue
		}
		eligible++
		if strings.Contains(c, t) {
			matched++
		}
	}
	if eligible > 0 {
		score += relevanceKeywordWeight * float64(matched) / float64(eligible)
	}

	if !meta.Timestamp.IsZero() {
		ageDays := time.Since(meta.Timestamp).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		score += relevanceRecencyWeight * math.Exp(-ageDays/recencyHalfLifeDays)
	}

	vector := meta.VectorScore
	if vector < 0 {
		vector = 0
	}
	if vector > 1 {
		vector = 1
	}
	score += relevanceVectorWeight * vector

	if score > 1 {
		return 1
	}
	return score
}
