package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/akolanti/StudyRAG/internal/config"
	"github.com/akolanti/StudyRAG/internal/customHttpClient"
	"github.com/akolanti/StudyRAG/internal/rag"
	"github.com/akolanti/StudyRAG/internal/rag/chunker"
	"github.com/akolanti/StudyRAG/internal/rag/embedding"
	"github.com/akolanti/StudyRAG/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/StudyRAG/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/StudyRAG/internal/rag/ingest"
	"github.com/akolanti/StudyRAG/internal/rag/llm/gemini"
	"github.com/akolanti/StudyRAG/internal/rag/llm/openaiLLM"
	"github.com/akolanti/StudyRAG/internal/rag/vectorDB"
	"github.com/akolanti/StudyRAG/internal/rag/vectorDB/pgvectorDB"
	"github.com/akolanti/StudyRAG/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/StudyRAG/internal/rag/vectorDB/sqliteDB"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
)

// buildRAG connects every external service the pipeline needs. The returned
// func closes the vector store.
func buildRAG(ctx context.Context, cfg *config.AppConfig) (rag.Service, func(), error) {
	logger := logger_i.NewLogger("main")

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding client: %w", err)
	}

	store, err := newVectorStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("vector store: %w", err)
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing vector store", "error", err)
		}
	}

	splitter, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	completer, err := gemini.New(ctx, gemini.Config{
		APIKey:      cfg.GoogleAPIKey,
		Model:       cfg.Completion.Model,
		Temperature: cfg.Completion.Temperature,
		Timeout:     cfg.Completion.Timeout,
		System:      cfg.Completion.System,
		HTTPClient:  customHttpClient.Shared(),
	})
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("completion client: %w", err)
	}

	deps := rag.Dependencies{
		Store:     store,
		Embedder:  embedder,
		Completer: completer,
		TopK:      cfg.Retrieval.TopK,
		Ingestor: ingest.New(ingest.NewExtractor(), splitter, embedder, store, ingest.Options{
			MaxDocumentBytes:   cfg.Ingest.MaxDocumentBytes,
			EmbedRetries:       cfg.Ingest.EmbedRetries,
			RetryBackoff:       cfg.Ingest.RetryBackoff,
			EmbedRatePerSecond: cfg.Ingest.EmbedRatePerSecond,
		}),
	}

	switch {
	case !cfg.Refinement.Enabled:
		logger.Info("Refinement disabled")
	case cfg.OpenAIAPIKey == "":
		logger.Warn("OPENAI_API_KEY not set, answers are returned unrefined")
	default:
		refiner, err := openaiLLM.New(openaiLLM.Config{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.Refinement.Model,
			Temperature: cfg.Refinement.Temperature,
			Timeout:     cfg.Refinement.Timeout,
			BaseURL:     cfg.Refinement.BaseURL,
			HTTPClient:  customHttpClient.Shared(),
		})
		if err != nil {
			closeStore()
			return nil, nil, fmt.Errorf("refinement client: %w", err)
		}
		deps.Refiner = refiner
	}

	logger.Debug("RAG pipeline ready",
		"embedding", cfg.Embedding.Provider,
		"vectorStore", cfg.VectorStore.Backend,
		"refinement", deps.Refiner != nil)
	return rag.NewService(deps), closeStore, nil
}

func newEmbedder(ctx context.Context, cfg *config.AppConfig) (embedding.Embedder, error) {
	switch strings.ToLower(cfg.Embedding.Provider) {
	case "openai":
		model := cfg.Embedding.Model
		if model == "" || model == config.GoogleEmbeddingModel {
			model = config.OpenAIEmbeddingModel
		}
		return openaiEmbedding.New(openaiEmbedding.Config{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      model,
			Dimension:  cfg.Embedding.Dimension,
			Timeout:    cfg.Embedding.Timeout,
			HTTPClient: customHttpClient.Shared(),
		})
	default:
		return googleEmbedding.New(ctx, googleEmbedding.Config{
			APIKey:     cfg.GoogleAPIKey,
			Model:      cfg.Embedding.Model,
			Dimension:  cfg.Embedding.Dimension,
			Timeout:    cfg.Embedding.Timeout,
			HTTPClient: customHttpClient.Shared(),
		})
	}
}

func newVectorStore(ctx context.Context, cfg *config.AppConfig) (vectorDB.DataProcessor, error) {
	vs := cfg.VectorStore
	switch strings.ToLower(vs.Backend) {
	case "qdrant":
		return qdrantDB.New(ctx, qdrantDB.Config{
			Host:       vs.Qdrant.Host,
			Port:       vs.Qdrant.Port,
			APIKey:     vs.Qdrant.APIKey,
			UseTLS:     vs.Qdrant.UseTLS,
			PoolSize:   vs.Qdrant.PoolSize,
			Collection: vs.Qdrant.Collection,
		})
	case "pgvector":
		return pgvectorDB.New(ctx, vs.Postgres.DSN)
	default:
		return sqliteDB.New(ctx, vs.SQLite.Dir)
	}
}
