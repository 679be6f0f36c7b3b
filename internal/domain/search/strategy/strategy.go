// Package strategy defines the retrieval strategy enum.
package strategy

// Strategy selects the retrieval backend a query is routed to.
type Strategy string

// Supported retrieval strategies.
const (
	// InvertedIndex routes to the full-text inverted index backend.
	InvertedIndex Strategy = "inverted_index"
	// Vector routes to the vector similarity backend.
	Vector Strategy = "vector"
	// Syntax routes the raw query, operators included, to the
	// backend's native query syntax.
	Syntax Strategy = "syntax"
	// Hybrid combines inverted index and vector retrieval.
	Hybrid Strategy = "hybrid"
)

// IsValid reports whether s is a supported strategy.
func (s Strategy) IsValid() bool {
	switch s {
	case InvertedIndex, Vector, Syntax, Hybrid:
		return true
	}
	return false
}

// RequiresVector reports whether s needs query embeddings.
func (s Strategy) RequiresVector() bool {
	return s == Vector || s == Hybrid
}

// RequiresIndex reports whether s needs the inverted index.
func (s Strategy) RequiresIndex() bool {
	return s == InvertedIndex || s == Syntax || s == Hybrid
}

func (s Strategy) String() string { return string(s) }
