package llm

import "context"

// Completer produces the base answer. Errors are *ragErrors.CompletionError.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Refiner rewrites a base answer against the retrieved context. Callers treat
// any error as "keep the base answer".
type Refiner interface {
	Refine(ctx context.Context, baseAnswer string, context string) (string, error)
}
