package utils

import (
	"context"
	"net/http"

	_ "github.com/akolanti/StudyRAG/cmd/studyrag/docs"
	"github.com/akolanti/StudyRAG/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger"
)

func GetNewUUID() string {
	return uuid.New().String()
}

func GetChiURLParam(request *http.Request, key string) string {
	return chi.URLParam(request, key)
}

// TraceID returns the trace id injected by the middleware, or "".
func TraceID(ctx context.Context) string {
	v, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return v
}

// InitSwagger serves the generated API docs under /swagger.
func InitSwagger(r chi.Router) {
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)
}
