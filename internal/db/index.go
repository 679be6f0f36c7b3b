package db

import (
	"errors"
	"strconv"
)

// FieldType enumerates supported FT index field types.
type FieldType int

const (
	// FieldNumeric is a numeric field.
	FieldNumeric FieldType = iota
	// FieldTag is a tag field.
	FieldTag
	// FieldText is a full-text field.
	FieldText
	// FieldVector is an HNSW vector field.
	FieldVector
)

// Field describes a single field in an FT index schema over hashes.
type Field struct {
	Name string
	Type FieldType

	// VECTOR options
	VectorDim         int
	VectorM           int // HNSW max edges per node (default 16)
	VectorEFConstruct int // HNSW build-time dynamic list size (default 200)
}

// IndexDefinition is a complete FT index definition used by FT.CREATE.
// Documents are stored as hashes; vector fields use cosine distance.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []Field
}

// IndexInfo carries the index-level counters exposed to callers.
type IndexInfo struct {
	NumDocs        int64
	NumTerms       int64
	IndexSizeBytes int64
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !isValidIdentifier(idx.Name) {
		return errors.New("index name contains invalid characters")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool)
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		if seen[f.Name] {
			return errors.New("duplicate field name: " + f.Name)
		}
		seen[f.Name] = true

		if f.Type == FieldVector && f.VectorDim <= 0 {
			return errors.New("vector field requires positive DIM")
		}
	}
	return nil
}

// isValidIdentifier reports whether s matches [a-zA-Z0-9_:-]+.
func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == ':' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
