package customHttpClient

import (
	"net/http"
	"sync"

	"github.com/akolanti/StudyRAG/internal/config"
)

var (
	once   sync.Once
	shared *http.Client
)

func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = config.MaxIdleConns
	t.MaxIdleConnsPerHost = config.MaxIdleConnsPerHost
	t.IdleConnTimeout = config.IdleConnTimeout
	return t
}

// Shared returns the pooled client used by the Gemini and OpenAI adapters so
// the embedding, completion and refinement calls reuse connections.
// Per-call deadlines come from the caller's context, not from the client.
func Shared() *http.Client {
	once.Do(func() {
		shared = &http.Client{Transport: newTransport()}
	})
	return shared
}
