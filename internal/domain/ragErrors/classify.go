package ragErrors

import (
	"context"
	"errors"
	"net/http"
)

// Classification is how an error is reported to API clients.
type Classification struct {
	Status  int
	Message string
	Reason  string
	Retry   bool
}

func Classify(err error) Classification {
	var ce *CompletionError
	switch {
	case err == nil:
		return Classification{Status: http.StatusOK}
	case errors.As(err, &ce) && ce.Reason == ReasonRejected:
		return Classification{Status: http.StatusBadGateway, Message: "Completion rejected", Reason: string(ReasonRejected)}
	case errors.As(err, &ce):
		return Classification{Status: http.StatusServiceUnavailable, Message: "Completion service unreachable", Reason: string(ReasonUnreachable), Retry: true}
	case errors.Is(err, ErrDocumentTooLarge):
		return Classification{Status: http.StatusRequestEntityTooLarge, Message: "Document too large"}
	case errors.Is(err, ErrUnknownTool):
		return Classification{Status: http.StatusBadRequest, Message: "Unknown tool"}
	case errors.Is(err, ErrDimensionMismatch):
		return Classification{Status: http.StatusInternalServerError, Message: "Embedding dimension does not match the store"}
	case errors.Is(err, ErrExtractionFailed):
		return Classification{Status: http.StatusUnprocessableEntity, Message: "Could not extract text from the document"}
	case errors.Is(err, ErrEmbeddingUnavailable):
		return Classification{Status: http.StatusServiceUnavailable, Message: "Embedding service unavailable", Retry: true}
	case errors.Is(err, ErrStoreUnavailable):
		return Classification{Status: http.StatusServiceUnavailable, Message: "Vector store unavailable", Retry: true}
	case errors.Is(err, context.DeadlineExceeded):
		return Classification{Status: http.StatusGatewayTimeout, Message: "Timed out", Retry: true}
	default:
		return Classification{Status: http.StatusInternalServerError, Message: "Internal Server Error", Retry: true}
	}
}
