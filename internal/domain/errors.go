package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCriteria signals search criteria that failed validation.
	ErrInvalidCriteria = errors.New("invalid search criteria")
	// ErrInvalidInput signals a malformed job payload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStrategyNotSupported signals an unrecognized search strategy.
	ErrStrategyNotSupported = errors.New("search strategy not supported")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrBackendUnavailable signals that a retrieval backend cannot be reached.
	ErrBackendUnavailable = errors.New("search backend unavailable")
)
