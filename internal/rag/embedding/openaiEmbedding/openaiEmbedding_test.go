package openaiEmbedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akolanti/StudyRAG/internal/domain/ragErrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddingServer(t *testing.T, status int, vector []float64, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"bad","type":"invalid_request_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": vector},
			},
			"usage": map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, url string, dim int, timeout time.Duration) *Client {
	t.Helper()
	c, err := New(Config{
		APIKey:    "sk-test",
		Model:     "text-embedding-3-small",
		Dimension: dim,
		Timeout:   timeout,
		BaseURL:   url + "/",
	})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{Model: "m", Dimension: 3})
	assert.Error(t, err)
}

func TestGetEmbedding(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		vector  []float64
		dim     int
		wantErr bool
	}{
		{"success", http.StatusOK, []float64{0.1, 0.2, 0.3}, 3, false},
		{"wrong dimension", http.StatusOK, []float64{0.1, 0.2}, 3, true},
		{"empty vector", http.StatusOK, []float64{}, 3, true},
		{"provider error", http.StatusBadRequest, nil, 3, true},
		{"server error", http.StatusInternalServerError, nil, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := embeddingServer(t, tt.status, tt.vector, 0)
			c := newTestClient(t, srv.URL, tt.dim, time.Second)

			vec, err := c.GetEmbedding(context.Background(), "what is RAM?")
			if tt.wantErr {
				assert.ErrorIs(t, err, ragErrors.ErrEmbeddingUnavailable)
				return
			}
			require.NoError(t, err)
			assert.Len(t, vec, tt.dim)
			assert.InDelta(t, 0.2, vec[1], 1e-6)
		})
	}
}

func TestGetEmbedding_TimeoutIsUnavailable(t *testing.T) {
	srv := embeddingServer(t, http.StatusOK, []float64{1, 0}, 500*time.Millisecond)
	c := newTestClient(t, srv.URL, 2, 50*time.Millisecond)

	_, err := c.GetEmbedding(context.Background(), "slow")
	assert.ErrorIs(t, err, ragErrors.ErrEmbeddingUnavailable)
}
