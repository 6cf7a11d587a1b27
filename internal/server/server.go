package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/akolanti/StudyRAG/internal/adapter/utils"
	"github.com/akolanti/StudyRAG/internal/config"
	"github.com/akolanti/StudyRAG/internal/handlers"
	"github.com/akolanti/StudyRAG/internal/middleware"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	server  *http.Server
	_logger = logger_i.NewLogger("Server")
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

func NewRouter(h *handlers.RequestHandler, mw *middleware.Middleware) *chi.Mux {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	utils.InitSwagger(r)

	r.Get("/healthz", mw.Wrap("/healthz", h.Health))
	r.Get("/tools", mw.Wrap("/tools", h.Tools))
	r.Post("/generate", mw.Wrap("/generate", h.Generate))
	r.Get("/status/{id}", mw.Wrap("/status/{id}", h.GetStatus))
	r.Post("/documents", mw.Wrap("/documents", h.PostDocument))
	r.Get("/documents", mw.Wrap("/documents", h.ListDocuments))
	r.Delete("/documents/{name}", mw.Wrap("/documents/{name}", h.DeleteDocument))
	return r
}

// CreateServer blocks until the server stops. It returns nil after a
// graceful shutdown and the listen error otherwise.
func CreateServer(listenAddr string, handler http.Handler) error {
	_logger = logger_i.NewLogger("Server")
	server = &http.Server{
		Addr:         listenAddr,
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err, "addr", listenAddr)
		return err
	}
	return nil
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		if server != nil {
			server.SetKeepAlivesEnabled(false)
			if err := server.Shutdown(ctx); err != nil {
				_logger.Error("Could not shutdown gracefully", "error", err)
			}
		}

		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Shut down gracefully")
	case <-ctx.Done():
		_logger.Warn("Shutdown timed out, forcing exit")
	}
	close(shutdownParams.StopExecution)
}
