package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/StudyRAG/internal/config"
	"github.com/akolanti/StudyRAG/internal/data/store"
	"github.com/akolanti/StudyRAG/internal/domain/jobModel"
	"github.com/akolanti/StudyRAG/internal/handlers"
	"github.com/akolanti/StudyRAG/internal/job"
	"github.com/akolanti/StudyRAG/internal/middleware"
	"github.com/akolanti/StudyRAG/internal/server"
	"github.com/akolanti/StudyRAG/internal/worker"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
	"github.com/spf13/cobra"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the HTTP API with the job queue and worker pool.

Uploads and generation requests are queued as jobs; poll /status/{id} for
progress and results.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen-addr", "", "server listen address (overrides server.listen_addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := logger_i.NewLogger("main")
	cfg := appConfig
	if listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}

	ragSvc, err := ragFor(cmd)
	if err != nil {
		logger.Error("External services failed to initialize", "error", err)
		return err
	}

	jobChannel := make(chan jobModel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel := make(chan bool, 1)
	var workerWaitGroup sync.WaitGroup

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	jobStore, closeJobStore := store.NewJobStore(serviceContext, cfg.Jobs)
	defer closeJobStore()

	logger.Info("Starting job service")
	jobService := job.InitJobService(job.ServiceConfig{
		JobChannel:        jobChannel,
		DispatcherChannel: dispatcherChannel,
		JobStore:          jobStore,
	})

	worker.InitServices(jobService, ragSvc)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	requestHandler := handlers.NewRequestHandler(handlers.NewJobHandler(jobService), ragSvc, handlers.Config{
		UploadDir:        cfg.Ingest.UploadDir,
		MaxDocumentBytes: cfg.Ingest.MaxDocumentBytes,
	})
	router := server.NewRouter(requestHandler, middleware.New(cfg.Server.RateLimit))

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	go server.ShutDownHandler(server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	})
	serverErr := make(chan error, 1)
	go func() { serverErr <- server.CreateServer(cfg.Server.ListenAddr, router) }()

	select {
	case err = <-serverErr:
		if err != nil {
			// unwind workers and services the same way a signal would
			select {
			case gracefulShutdown <- syscall.SIGTERM:
			default:
			}
		}
		<-stopExecution
	case <-stopExecution:
	}
	logger.Info("Server stopped")
	if err != nil {
		return fmt.Errorf("serving on %s: %w", cfg.Server.ListenAddr, err)
	}
	return nil
}
