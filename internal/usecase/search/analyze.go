package search

import (
	"regexp"
	"strings"
	"unicode"
)

// Complexity weights. The estimate is a heuristic the caller can use
// to route expensive queries to a slower lane; it is capped at 1.
const (
	complexityLengthNorm   = 200.0
	complexityLengthWeight = 0.3
	complexityOperatorCost = 0.1
	complexityBooleanCost  = 0.2
	complexityFieldCost    = 0.15
)

// operatorChars are the characters that mark advanced query syntax.
const operatorChars = `+-":()*~`

var (
	plusRuns  = regexp.MustCompile(`\++`)
	minusRuns = regexp.MustCompile(`-+`)
)

// Analysis is the structured breakdown of a raw query string.
type Analysis struct {
	OptimizedQuery      string
	Keywords            []string
	ExcludedTerms       []string
	RequiredTerms       []string
	FieldSpecifiers     []string
	HasAdvancedSyntax   bool
	EstimatedComplexity float64
}

// OptimizeQuery collapses runs of whitespace and repeated +/-
// operators. A clean query comes back unchanged.
func OptimizeQuery(raw string) string {
	q := strings.Join(strings.Fields(raw), " ")
	q = plusRuns.ReplaceAllString(q, "+")
	q = minusRuns.ReplaceAllString(q, "-")
	return q
}

// AnalyzeQuery optimizes the query, then extracts keywords, excluded
// and required terms, field specifiers, an advanced-syntax flag, and a
// complexity estimate.
func (s *Service) AnalyzeQuery(raw string) Analysis {
	a := Analysis{OptimizedQuery: OptimizeQuery(raw)}

	seen := make(map[string]struct{})
	addKeyword := func(tok string) {
		word := strings.TrimFunc(tok, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len([]rune(word)) <= 1 {
			return
		}
		if _, dup := seen[word]; dup {
			return
		}
		seen[word] = struct{}{}
		a.Keywords = append(a.Keywords, word)
	}

	booleanKeywords := 0
	for _, tok := range strings.Fields(a.OptimizedQuery) {
		switch {
		case tok == "AND" || tok == "OR" || tok == "NOT":
			booleanKeywords++
		case strings.HasPrefix(tok, "-") && len(tok) > 1:
			a.ExcludedTerms = append(a.ExcludedTerms, strings.TrimPrefix(tok, "-"))
		case strings.HasPrefix(tok, "+") && len(tok) > 1:
			a.RequiredTerms = append(a.RequiredTerms, strings.TrimPrefix(tok, "+"))
		case strings.Contains(tok, ":"):
			name, value, _ := strings.Cut(tok, ":")
			if name != "" {
				a.FieldSpecifiers = append(a.FieldSpecifiers, name)
				addKeyword(name)
			}
			if value != "" {
				addKeyword(value)
			}
		default:
			addKeyword(tok)
		}
	}

	operators := 0
	for _, r := range a.OptimizedQuery {
		if strings.ContainsRune(operatorChars, r) {
			operators++
		}
	}
	a.HasAdvancedSyntax = operators > 0 || booleanKeywords > 0

	length := float64(len(a.OptimizedQuery)) / complexityLengthNorm
	if length > 1 {
		length = 1
	}
	complexity := length*complexityLengthWeight +
		float64(operators)*complexityOperatorCost +
		float64(booleanKeywords)*complexityBooleanCost +
		float64(len(a.FieldSpecifiers))*complexityFieldCost
	if complexity > 1 {
		complexity = 1
	}
	a.EstimatedComplexity = complexity
	return a
}
