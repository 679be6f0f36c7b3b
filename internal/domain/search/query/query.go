// Package query defines the search query value object.
package query

import (
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Query is an immutable search query string.
// Two queries that differ only in casing or surrounding whitespace
// normalize to the same value.
type Query struct {
	value      string
	normalized string
}

// New creates a query from raw user input. Input is trimmed;
// the normalized form collapses inner whitespace and lowercases.
func New(value string) Query {
	trimmed := strings.TrimSpace(value)
	return Query{
		value:      trimmed,
		normalized: normalize(trimmed),
	}
}

// Empty returns the empty query.
func Empty() Query { return Query{} }

// Value returns the trimmed original query text.
func (q Query) Value() string { return q.value }

// Normalized returns the lowercase, whitespace-collapsed form.
func (q Query) Normalized() string { return q.normalized }

// IsEmpty reports whether the query has no content.
func (q Query) IsEmpty() bool { return q.value == "" }

// Length returns the length of the original query text in bytes.
func (q Query) Length() int { return len(q.value) }

// Contains reports whether the normalized query contains text
// (case-insensitive).
func (q Query) Contains(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return strings.Contains(q.normalized, strings.ToLower(text))
}

// Equal reports relevance-equality: same normalized form.
func (q Query) Equal(other Query) bool {
	return q.normalized == other.normalized
}

// WithTerm returns a query with an additional term appended.
func (q Query) WithTerm(term string) Query {
	term = strings.TrimSpace(term)
	if term == "" {
		return q
	}
	if q.IsEmpty() {
		return New(term)
	}
	return New(q.value + " " + term)
}

// WithExcludedTerm returns a query with a "-term" exclusion appended.
func (q Query) WithExcludedTerm(term string) Query {
	term = strings.TrimSpace(term)
	if term == "" {
		return q
	}
	if !strings.HasPrefix(term, "-") {
		term = "-" + term
	}
	return q.WithTerm(term)
}

func (q Query) String() string { return q.value }

func normalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToLower(whitespaceRe.ReplaceAllString(s, " "))
}
