package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig is built once at startup and handed to every client that needs it.
// Nothing below cmd/ reads the environment.
type AppConfig struct {
	Log         LogConfig         `yaml:"log"`
	Server      ServerConfig      `yaml:"server"`
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Completion  CompletionConfig  `yaml:"completion"`
	Refinement  RefinementConfig  `yaml:"refinement"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Jobs        JobsConfig        `yaml:"jobs"`

	// API keys only come from the environment or a .env file.
	GoogleAPIKey string `yaml:"-"`
	OpenAIAPIKey string `yaml:"-"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	RateLimit  bool   `yaml:"rate_limit"`
}

type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type IngestConfig struct {
	MaxDocumentBytes   int64         `yaml:"max_document_bytes"`
	EmbedRetries       int           `yaml:"embed_retries"`
	RetryBackoff       time.Duration `yaml:"retry_backoff"`
	EmbedRatePerSecond float64       `yaml:"embed_rate_per_second"`
	UploadDir          string        `yaml:"upload_dir"`
}

type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
}

type CompletionConfig struct {
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	System      string        `yaml:"system"`
}

type RefinementConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	BaseURL     string        `yaml:"base_url"`
}

type VectorStoreConfig struct {
	Backend  string         `yaml:"backend"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Qdrant   QdrantConfig   `yaml:"qdrant"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Dir string `yaml:"dir"`
}

type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`
	PoolSize   int    `yaml:"pool_size"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type JobsConfig struct {
	Backend string        `yaml:"backend"`
	Redis   RedisConfig   `yaml:"redis"`
	TTL     time.Duration `yaml:"ttl"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func Default() *AppConfig {
	return &AppConfig{
		Log:      LogConfig{Level: DefaultLogLevel},
		Server:   ServerConfig{ListenAddr: ServerListenAddr, RateLimit: true},
		Chunking: ChunkingConfig{Size: DefaultChunkSize, Overlap: DefaultChunkOverlap},
		Ingest: IngestConfig{
			MaxDocumentBytes:   DefaultMaxDocumentBytes,
			EmbedRetries:       DefaultEmbedRetries,
			RetryBackoff:       DefaultRetryBackoff,
			EmbedRatePerSecond: DefaultEmbedRatePerSecond,
			UploadDir:          filepath.Join(os.TempDir(), "studyrag-uploads"),
		},
		Retrieval: RetrievalConfig{TopK: DefaultTopK},
		Embedding: EmbeddingConfig{
			Provider:  DefaultEmbeddingProvider,
			Model:     GoogleEmbeddingModel,
			Dimension: EmbeddingOutputDimensionality,
			Timeout:   EmbeddingTimeout,
		},
		Completion: CompletionConfig{
			Model:       GeminiModelName,
			Temperature: ModelTemperature,
			Timeout:     CompletionTimeout,
			System:      ModelContext,
		},
		Refinement: RefinementConfig{
			Enabled:     true,
			Model:       OpenAIRefineModel,
			Temperature: RefineTemperature,
			Timeout:     RefineTimeout,
		},
		VectorStore: VectorStoreConfig{
			Backend: DefaultVectorBackend,
			SQLite:  SQLiteConfig{Dir: defaultDataDir()},
			Qdrant: QdrantConfig{
				Host:       QdrantHost,
				Port:       QdrantGrpcPort,
				UseTLS:     QdrantUseTLS,
				Collection: DefaultCollectionName,
				PoolSize:   QdrantPoolSize,
			},
		},
		Jobs: JobsConfig{
			Backend: "memory",
			Redis:   RedisConfig{Addr: RedisAddr, DB: RedisJobStore},
			TTL:     RedisJobStoreTTL,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (a missing
// file is not an error), then .env, then the process environment.
func Load(path string) (*AppConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	// .env is optional; real environment variables win over it
	_ = godotenv.Load()
	applyEnv(cfg, os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig, getenv func(string) string) {
	if v := firstNonEmpty(getenv("GOOGLE_API_KEY"), getenv("GEMINI_API_KEY")); v != "" {
		cfg.GoogleAPIKey = v
	}
	if v := getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := getenv("STUDYRAG_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := getenv("STUDYRAG_DATA_DIR"); v != "" {
		cfg.VectorStore.SQLite.Dir = v
	}
	if v := getenv("QDRANT_HOST"); v != "" {
		cfg.VectorStore.Qdrant.Host = v
	}
	if v, err := strconv.Atoi(getenv("QDRANT_PORT")); err == nil && v > 0 {
		cfg.VectorStore.Qdrant.Port = v
	}
	if v := getenv("QDRANT_API_KEY"); v != "" {
		cfg.VectorStore.Qdrant.APIKey = v
	}
	if v := getenv("POSTGRES_DSN"); v != "" {
		cfg.VectorStore.Postgres.DSN = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		cfg.Jobs.Redis.Addr = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		cfg.Jobs.Redis.Password = v
	}
}

func (c *AppConfig) Validate() error {
	var errs []error
	if c.Chunking.Size <= 0 {
		errs = append(errs, errors.New("chunking.size must be positive"))
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		errs = append(errs, errors.New("chunking.overlap must be in [0, size)"))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, errors.New("retrieval.top_k must be positive"))
	}
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, errors.New("embedding.dimension must be positive"))
	}
	if c.Ingest.MaxDocumentBytes <= 0 {
		errs = append(errs, errors.New("ingest.max_document_bytes must be positive"))
	}
	if c.Ingest.EmbedRetries < 0 {
		errs = append(errs, errors.New("ingest.embed_retries must not be negative"))
	}
	switch strings.ToLower(c.Embedding.Provider) {
	case "gemini", "openai":
	default:
		errs = append(errs, fmt.Errorf("unknown embedding.provider %q", c.Embedding.Provider))
	}
	switch strings.ToLower(c.VectorStore.Backend) {
	case "sqlite", "qdrant":
	case "pgvector":
		if c.VectorStore.Postgres.DSN == "" {
			errs = append(errs, errors.New("vector_store.postgres.dsn is required for the pgvector backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown vector_store.backend %q", c.VectorStore.Backend))
	}
	switch strings.ToLower(c.Jobs.Backend) {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown jobs.backend %q", c.Jobs.Backend))
	}
	return errors.Join(errs...)
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".studyrag"
	}
	return filepath.Join(home, ".studyrag", "data")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
