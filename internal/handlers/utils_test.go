package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akolanti/StudyRAG/internal/domain/ragErrors"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
	"github.com/stretchr/testify/assert"
)

func TestNewRequestHandler_UsesConfiguredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger_i.InitWithWriter(&buf, "error", true)
	t.Cleanup(func() { logger_i.Init("info", false) })

	NewRequestHandler(nil, nil, Config{})

	rec := httptest.NewRecorder()
	writeClassifiedError(rec, context.Background(), "", ragErrors.ErrStoreUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, buf.String(), `"component":"RequestHandler"`)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)

	buf.Reset()
	writeClassifiedError(httptest.NewRecorder(), context.Background(), "", ragErrors.ErrUnknownTool)
	assert.Empty(t, buf.String(), "warnings are below the configured level")
}
