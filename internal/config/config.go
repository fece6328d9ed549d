// Package config resolves the process-wide configuration surface from
// environment variables (optionally loaded from a .env file), following
// the teacher's FindEnvFile-then-godotenv.Load idiom.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LLM holds the selected LLM provider and its connection details.
type LLM struct {
	Provider string // ollama | openai | anthropic
	APIKey   string
	Model    string
	BaseURL  string
}

// Embedder holds the selected embedding provider and its connection
// details, plus the fixed dimensionality D that drives the vector
// store's index-strategy decision (spec §4.3).
type Embedder struct {
	Provider   string // openai | qwen
	APIKey     string
	Model      string
	BaseURL    string
	Dimensions int
	// TruncateFrom, when nonzero, wraps the embedder with a truncating
	// decorator that slices vectors from TruncateFrom down to
	// Dimensions (Matryoshka-style truncation), grounded on
	// original_source/mem0-server/truncate_embedder.py.
	TruncateFrom int
}

// VectorStore holds the vector store backend selection and DSN.
type VectorStore struct {
	Provider       string // sqlite | postgres | mysql
	SQLitePath     string
	PostgresDSN    string
	MySQLDSN       string
	CollectionName string
}

// ProjectIDMode controls how the MCP Gateway derives the effective
// owner scope for a caller (spec §4.1 point 2).
type ProjectIDMode string

const (
	ProjectIDAuto   ProjectIDMode = "auto"
	ProjectIDManual ProjectIDMode = "manual"
	ProjectIDGlobal ProjectIDMode = "global"
)

// Chunker holds the MCP Gateway's chunking-contract parameters
// (spec §4.1).
type Chunker struct {
	MaxChunkSize int
	OverlapSize  int
}

// TrustWeights holds the configurable weights of the trust-score
// formula (spec §4.4: "exact weights are specified in configuration").
type TrustWeights struct {
	Citation float64
	Recency  float64
	Conflict float64
}

// Projection holds the background graph-projection worker pool sizing
// and retry policy (spec §5).
type Projection struct {
	WorkerCount int
	MaxRetries  int
}

// Config is the fully resolved process configuration.
type Config struct {
	LLM         LLM
	Embedder    Embedder
	VectorStore VectorStore

	GraphStorePath string
	AuthStoreDSN   string
	AdminAPIKey    string

	ProjectIDMode    ProjectIDMode
	ManualProjectID  string
	GlobalProjectID  string
	DefaultUserID    string
	MemoryServiceURL string
	ConnectTimeout   time.Duration

	Chunker      Chunker
	TrustWeights TrustWeights
	Projection   Projection

	RequestTimeout time.Duration

	MCPHost string
	MCPPort int
	APIHost string
	APIPort int
}

// Load resolves configuration from the environment, first attempting to
// locate and load a .env file via FindEnvFile (matching the teacher's
// upward-search behavior), then reading defaulted env vars.
func Load() (*Config, error) {
	if envPath, found := FindEnvFile(); found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	llmProvider := getEnvOrDefault("LLM_PROVIDER", "openai")
	var llmBaseURL, defaultModel string
	switch llmProvider {
	case "ollama":
		llmBaseURL = getEnvOrDefault("OLLAMA_LLM_BASE_URL", "http://localhost:11434")
		defaultModel = "llama3.1:70b"
	case "anthropic":
		llmBaseURL = getEnvOrDefault("ANTHROPIC_LLM_BASE_URL", "https://api.anthropic.com")
		defaultModel = "claude-3-5-sonnet-20240620"
	default:
		llmProvider = "openai"
		llmBaseURL = os.Getenv("OPENAI_LLM_BASE_URL")
		defaultModel = "gpt-4"
	}

	embedderProvider := getEnvOrDefault("EMBEDDING_PROVIDER", "openai")
	embedderModel := os.Getenv("EMBEDDING_MODEL")
	var embedderBaseURL string
	switch embedderProvider {
	case "qwen":
		embedderBaseURL = getEnvOrDefault("QWEN_EMBEDDING_BASE_URL", "https://dashscope.aliyuncs.com/api/v1")
		if embedderModel == "" {
			embedderModel = "text-embedding-v4"
		}
	default:
		embedderProvider = "openai"
		embedderBaseURL = getEnvOrDefault("OPENAI_EMBEDDING_BASE_URL", "https://api.openai.com/v1")
		if embedderModel == "" {
			embedderModel = "text-embedding-3-small"
		}
	}

	dims, err := strconv.Atoi(getEnvOrDefault("EMBEDDING_DIMS", "1536"))
	if err != nil {
		return nil, fmt.Errorf("config: EMBEDDING_DIMS: %w", err)
	}
	truncateFrom, _ := strconv.Atoi(os.Getenv("EMBEDDING_TRUNCATE_FROM"))

	vsProvider := getEnvOrDefault("VECTOR_STORE_PROVIDER", "sqlite")

	maxChunk, err := strconv.Atoi(getEnvOrDefault("CHUNK_MAX_SIZE", "1000"))
	if err != nil {
		return nil, fmt.Errorf("config: CHUNK_MAX_SIZE: %w", err)
	}
	overlap, err := strconv.Atoi(getEnvOrDefault("CHUNK_OVERLAP_SIZE", "150"))
	if err != nil {
		return nil, fmt.Errorf("config: CHUNK_OVERLAP_SIZE: %w", err)
	}

	reqTimeoutSec, err := strconv.Atoi(getEnvOrDefault("REQUEST_TIMEOUT", "180"))
	if err != nil {
		return nil, fmt.Errorf("config: REQUEST_TIMEOUT: %w", err)
	}
	connectTimeoutSec, err := strconv.Atoi(getEnvOrDefault("CONNECT_TIMEOUT", "10"))
	if err != nil {
		return nil, fmt.Errorf("config: CONNECT_TIMEOUT: %w", err)
	}

	workerCount, err := strconv.Atoi(getEnvOrDefault("GRAPH_SYNC_WORKER_COUNT", "4"))
	if err != nil {
		return nil, fmt.Errorf("config: GRAPH_SYNC_WORKER_COUNT: %w", err)
	}
	maxRetries, err := strconv.Atoi(getEnvOrDefault("GRAPH_SYNC_MAX_RETRIES", "7"))
	if err != nil {
		return nil, fmt.Errorf("config: GRAPH_SYNC_MAX_RETRIES: %w", err)
	}

	citationW, _ := strconv.ParseFloat(getEnvOrDefault("TRUST_SCORE_CITATION_WEIGHT", "0.5"), 64)
	recencyW, _ := strconv.ParseFloat(getEnvOrDefault("TRUST_SCORE_RECENCY_WEIGHT", "0.3"), 64)
	conflictW, _ := strconv.ParseFloat(getEnvOrDefault("TRUST_SCORE_CONFLICT_WEIGHT", "0.2"), 64)

	mcpPort, err := strconv.Atoi(getEnvOrDefault("MCP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("config: MCP_PORT: %w", err)
	}
	apiPort, err := strconv.Atoi(getEnvOrDefault("API_PORT", "8000"))
	if err != nil {
		return nil, fmt.Errorf("config: API_PORT: %w", err)
	}

	cfg := &Config{
		LLM: LLM{
			Provider: llmProvider,
			APIKey:   os.Getenv("LLM_API_KEY"),
			Model:    getEnvOrDefault("LLM_MODEL", defaultModel),
			BaseURL:  llmBaseURL,
		},
		Embedder: Embedder{
			Provider:     embedderProvider,
			APIKey:       os.Getenv("EMBEDDING_API_KEY"),
			Model:        embedderModel,
			BaseURL:      embedderBaseURL,
			Dimensions:   dims,
			TruncateFrom: truncateFrom,
		},
		VectorStore: VectorStore{
			Provider:       vsProvider,
			SQLitePath:     getEnvOrDefault("SQLITE_PATH", "./memoryd.db"),
			PostgresDSN:    os.Getenv("POSTGRES_DSN"),
			MySQLDSN:       os.Getenv("MYSQL_DSN"),
			CollectionName: getEnvOrDefault("VECTOR_STORE_COLLECTION", "memories"),
		},
		GraphStorePath:   getEnvOrDefault("GRAPH_STORE_PATH", "./memoryd-graph.db"),
		AuthStoreDSN:     os.Getenv("AUTH_STORE_DSN"),
		AdminAPIKey:      os.Getenv("ADMIN_API_KEY"),
		ProjectIDMode:    ProjectIDMode(getEnvOrDefault("PROJECT_ID_MODE", "auto")),
		ManualProjectID:  getEnvOrDefault("MANUAL_PROJECT_ID", "default_project"),
		GlobalProjectID:  getEnvOrDefault("GLOBAL_PROJECT_ID", "global"),
		DefaultUserID:    getEnvOrDefault("DEFAULT_USER_ID", "default_project"),
		MemoryServiceURL: getEnvOrDefault("MEMORY_SERVICE_URL", "http://localhost:8000"),
		ConnectTimeout:   time.Duration(connectTimeoutSec) * time.Second,
		Chunker: Chunker{
			MaxChunkSize: maxChunk,
			OverlapSize:  overlap,
		},
		TrustWeights: TrustWeights{
			Citation: citationW,
			Recency:  recencyW,
			Conflict: conflictW,
		},
		Projection: Projection{
			WorkerCount: workerCount,
			MaxRetries:  maxRetries,
		},
		RequestTimeout: time.Duration(reqTimeoutSec) * time.Second,
		MCPHost:        getEnvOrDefault("MCP_HOST", "0.0.0.0"),
		MCPPort:        mcpPort,
		APIHost:        getEnvOrDefault("API_HOST", "0.0.0.0"),
		APIPort:        apiPort,
	}

	return cfg, nil
}

// Validate checks that the fields required to boot the process are
// present, matching the teacher's Validate contract but over the wider
// surface this spec requires.
func (c *Config) Validate() error {
	if c.LLM.Provider == "" {
		return fmt.Errorf("config: LLM provider is required")
	}
	if c.Embedder.Provider == "" {
		return fmt.Errorf("config: embedder provider is required")
	}
	if c.Embedder.Dimensions <= 0 {
		return fmt.Errorf("config: EMBEDDING_DIMS must be positive")
	}
	if c.VectorStore.Provider == "" {
		return fmt.Errorf("config: vector store provider is required")
	}
	switch c.ProjectIDMode {
	case ProjectIDAuto, ProjectIDManual, ProjectIDGlobal:
	default:
		return fmt.Errorf("config: invalid PROJECT_ID_MODE %q", c.ProjectIDMode)
	}
	return nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// FindEnvFile searches the current directory and up to 5 parent
// directories for a .env or .env.example file, exactly matching the
// teacher's pkg/core/config.go behavior.
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		examplePath := filepath.Join(dir, ".env.example")
		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(examplePath); err == nil {
			return examplePath, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}
