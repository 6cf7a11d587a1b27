package customHttpClient

import (
	"net/http"
	"testing"

	"github.com/akolanti/StudyRAG/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShared(t *testing.T) {
	a := Shared()
	b := Shared()
	assert.Same(t, a, b)

	tr, ok := a.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, config.MaxIdleConnsPerHost, tr.MaxIdleConnsPerHost)
	assert.Equal(t, config.IdleConnTimeout, tr.IdleConnTimeout)
	assert.Zero(t, a.Timeout)
}
