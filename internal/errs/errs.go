package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes that cross component
// boundaries. Callers match with errors.Is.
var (
	// ErrEmbeddingService marks transient failures of the external
	// embedding provider (rate limit, network, malformed response).
	ErrEmbeddingService = errors.New("embedding service failure")

	// ErrStoreUnavailable marks failures to reach or use the vector store.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrChunking marks a chunker invariant violation. Should not occur
	// under well-formed input; fatal for the record it belongs to.
	ErrChunking = errors.New("chunking failure")
)

// ValidationError rejects a single malformed record or argument.
// Batch processing continues past it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func Embedding(err error) error {
	return fmt.Errorf("%w: %w", ErrEmbeddingService, err)
}

func Store(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
