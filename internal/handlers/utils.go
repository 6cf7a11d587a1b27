package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/akolanti/StudyRAG/internal/adapter"
	"github.com/akolanti/StudyRAG/internal/adapter/utils"
	"github.com/akolanti/StudyRAG/internal/domain/ragErrors"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
)

var logRH = logger_i.NewLogger("RequestHandler")

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// headers are out, nothing left to do but log
		logRH.Error("Error encoding response", "error", err)
	}
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

// writeClassifiedError maps a pipeline error to its status code and reason.
func writeClassifiedError(w http.ResponseWriter, ctx context.Context, id string, err error) {
	c := ragErrors.Classify(err)
	log := logRH.With("traceId", utils.TraceID(ctx))
	if c.Status >= http.StatusInternalServerError {
		log.Error("Request failed", "status", c.Status, "error", err)
	} else {
		log.Warn("Request rejected", "status", c.Status, "error", err)
	}
	writeJsonResponse(w, c.Status, adapter.BadRequestWithReason(id, c.Message, c.Reason, c.Status))
}

func validateContext(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		logRH.Warn("context error", "traceId", utils.TraceID(ctx), "error", err)
		return false
	}
	return true
}

func ensureDirectory(dir string) error {
	return os.MkdirAll(dir, 0750)
}
