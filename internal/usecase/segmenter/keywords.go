package segmenter

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/msgdex/internal/domain/segment"
)

// Token length bounds for keyword extraction.
const (
	minKeywordRunes = 2
	maxKeywordRunes = 30
)

// separators covers both CJK and Latin punctuation so mixed-language
// chats tokenize the same way.
const separators = " \n\r\t。，？！、：；“”‘’()[]{}|\\/=+-*&%$#@~`"

// stopWords is the bilingual stop-word list shared by segmentation
// and keyword scoring.
var stopWords = map[string]struct{}{}

func init() {
	words := []string{
		"的", "了", "在", "是", "我", "你", "他", "她", "它", "我们", "你们", "他们",
		"这", "那", "这个", "那个", "什么", "怎么", "为什么", "因为", "所以", "然后", "但是", "而且",
		"可以", "不是", "没有", "就是", "还是", "如果", "会", "要", "去", "来", "到", "有", "很", "也", "都",
		"and", "the", "a", "an", "is", "are", "was", "were", "have", "has", "had",
		"do", "does", "did", "will", "would", "could", "should", "may", "might",
		"but", "or", "not", "if", "when", "where", "how", "why", "what", "who", "which",
		"this", "that", "these", "those", "here", "there", "now", "then", "yes", "no",
	}
	for _, w := range words {
		stopWords[w] = struct{}{}
	}
}

// transitionMarkers is the fixed vocabulary of explicit topic-change
// phrases, in both languages the archive serves.
var transitionMarkers = []string{
	"另外", "顺便", "对了", "换个话题", "说到", "话说",
	"by the way", "btw", "anyway", "speaking of",
}

func isSeparator(r rune) bool {
	return strings.ContainsRune(separators, r)
}

func tokenize(content string) []string {
	return strings.FieldsFunc(content, isSeparator)
}

// extractKeywords tokenizes content, keeps tokens of 2..30 runes that
// are not stop words, lowercases, and deduplicates preserving order.
func extractKeywords(content string) []string {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	var keywords []string
	seen := make(map[string]struct{})
	for _, tok := range tokenize(content) {
		n := utf8.RuneCountInString(tok)
		if n < minKeywordRunes || n > maxKeywordRunes {
			continue
		}
		w := strings.ToLower(tok)
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
	}
	return keywords
}

// hasTransitionMarker reports whether the normalized content contains
// an explicit topic-transition phrase.
func hasTransitionMarker(content string) bool {
	lower := strings.ToLower(content)
	for _, marker := range transitionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// jaccard computes |a ∩ b| / |a ∪ b| over a running keyword set and a
// keyword list. Returns 1 when either side is empty so an empty
// message never triggers a topic cut.
func jaccard(current map[string]struct{}, incoming []string) float64 {
	if len(current) == 0 || len(incoming) == 0 {
		return 1
	}
	union := len(current)
	intersection := 0
	seen := make(map[string]struct{}, len(incoming))
	for _, w := range incoming {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := current[w]; ok {
			intersection++
		} else {
			union++
		}
	}
	return float64(intersection) / float64(union)
}

// topKeywords returns the max most frequent keywords across messages.
// When stop-word filtering leaves nothing, it falls back to the most
// frequent raw tokens, then to time/participant placeholders, so a
// segment is never stored keywordless.
func topKeywords(messages []segment.Message, max int) []string {
	counts := make(map[string]int)
	var order []string
	for _, m := range messages {
		for _, w := range extractKeywords(m.Content) {
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}

	if len(order) == 0 {
		for _, m := range messages {
			for _, tok := range tokenize(m.Content) {
				w := strings.ToLower(tok)
				if utf8.RuneCountInString(w) < 2 {
					continue
				}
				if counts[w] == 0 {
					order = append(order, w)
				}
				counts[w]++
			}
		}
	}

	if len(order) == 0 {
		first := messages[0]
		authors := make(map[int64]struct{})
		for _, m := range messages {
			authors[m.AuthorID] = struct{}{}
		}
		return []string{
			first.Timestamp.Format("2006-01-02"),
			first.Timestamp.Format("15") + "h",
			fmt.Sprintf("%d-party", len(authors)),
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > max {
		order = order[:max]
	}
	return order
}
