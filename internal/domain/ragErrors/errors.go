package ragErrors

import (
	"errors"
	"fmt"
)

var (
	ErrExtractionFailed     = errors.New("text extraction failed")
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	ErrDimensionMismatch    = errors.New("embedding dimension mismatch")
	ErrIngestionFailed      = errors.New("ingestion failed")
	ErrCompletionFailed     = errors.New("completion failed")

	ErrDocumentTooLarge = errors.New("document too large")
	ErrInvalidRecord    = errors.New("invalid chunk record")
	ErrStoreUnavailable = errors.New("vector store unavailable")
	ErrUnknownTool      = errors.New("unknown tool")
)

type CompletionReason string

const (
	// provider could not be reached, timed out, or failed on its side
	ReasonUnreachable CompletionReason = "unreachable"
	// provider refused the request as malformed or not allowed
	ReasonRejected CompletionReason = "rejected"
)

// CompletionError is returned by completion providers. It matches ErrCompletionFailed.
type CompletionError struct {
	Reason CompletionReason
	Err    error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion failed (%s): %v", e.Reason, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

func (e *CompletionError) Is(target error) bool {
	return target == ErrCompletionFailed
}

func NewCompletionError(reason CompletionReason, err error) *CompletionError {
	return &CompletionError{Reason: reason, Err: err}
}

// DimensionError carries both sides of a dimension mismatch.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: store has %d, got %d", ErrDimensionMismatch, e.Want, e.Got)
}

func (e *DimensionError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

func Dimension(want, got int) error {
	return &DimensionError{Want: want, Got: got}
}

// Unavailable wraps err so that it matches ErrEmbeddingUnavailable and keeps the cause.
func Unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
}
