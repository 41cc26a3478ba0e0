package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// PostgresConfig configures the bun/pgvector store backend.
type PostgresConfig struct {
	DSNEnv string `yaml:"dsn_env"`
	DSN    string `yaml:"dsn"`
	Debug  bool   `yaml:"debug"`
}

// ChromemConfig configures the embedded chromem-go store backend.
type ChromemConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	Backend  string         `yaml:"backend"` // qdrant | chromem | pgvector
	Qdrant   QdrantConfig   `yaml:"qdrant"`
	Postgres PostgresConfig `yaml:"postgres"`
	Chromem  ChromemConfig  `yaml:"chromem"`
}

// CollectionConfig names one collection and sets its chunking parameters.
type CollectionConfig struct {
	Name         string `yaml:"name"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// CollectionsConfig holds the two independently chunked corpora.
type CollectionsConfig struct {
	Cases CollectionConfig `yaml:"cases"`
	Laws  CollectionConfig `yaml:"laws"`
}

// EmbedderConfig selects the embedding provider.
type EmbedderConfig struct {
	Provider  string `yaml:"provider"` // googleai | openai | ollama
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	BatchSize int    `yaml:"batch_size"`
}

// RetrievalConfig bounds query-time retrieval.
type RetrievalConfig struct {
	TopKPerSource   int      `yaml:"top_k_per_source"`
	MaxContextChars int      `yaml:"max_context_chars"`
	SourceOrder     []string `yaml:"source_order"`
}

// ChatConfig configures the generation collaborator.
type ChatConfig struct {
	DefaultModel    string `yaml:"default_model"` // gemini | openai
	GeminiModel     string `yaml:"gemini_model"`
	GoogleAPIKeyEnv string `yaml:"google_api_key_env"`
	OpenAIModel     string `yaml:"openai_model"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	OpenAIKeyEnv    string `yaml:"openai_key_env"`
}

// Config is the root configuration, constructed once at startup and
// passed into components. No component reads ambient global state.
type Config struct {
	Store       StoreConfig       `yaml:"store"`
	Collections CollectionsConfig `yaml:"collections"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Chat        ChatConfig        `yaml:"chat"`
}

// Load reads a config from path. A missing file yields defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "qdrant"
	}
	if cfg.Store.Qdrant.URL == "" {
		if url := os.Getenv("QDRANT_URL"); url != "" {
			cfg.Store.Qdrant.URL = url
		} else {
			cfg.Store.Qdrant.URL = "http://localhost:6333"
		}
	}
	if cfg.Store.Qdrant.APIKeyEnv == "" {
		cfg.Store.Qdrant.APIKeyEnv = "QDRANT_API_KEY"
	}
	if cfg.Store.Qdrant.TimeoutSecs == 0 {
		cfg.Store.Qdrant.TimeoutSecs = 15
	}
	if cfg.Store.Postgres.DSNEnv == "" {
		cfg.Store.Postgres.DSNEnv = "DATABASE_URL"
	}
	if cfg.Store.Chromem.Path == "" {
		cfg.Store.Chromem.Path = "./chromemdb"
	}

	if cfg.Collections.Cases.Name == "" {
		cfg.Collections.Cases.Name = "bd_legal_cases"
	}
	if cfg.Collections.Cases.ChunkSize == 0 {
		cfg.Collections.Cases.ChunkSize = 8000
	}
	if cfg.Collections.Cases.ChunkOverlap == 0 {
		cfg.Collections.Cases.ChunkOverlap = 200
	}
	if cfg.Collections.Laws.Name == "" {
		cfg.Collections.Laws.Name = "bd_law_reference"
	}
	if cfg.Collections.Laws.ChunkSize == 0 {
		cfg.Collections.Laws.ChunkSize = 1000
	}
	if cfg.Collections.Laws.ChunkOverlap == 0 {
		cfg.Collections.Laws.ChunkOverlap = 100
	}

	if cfg.Embedder.Provider == "" {
		cfg.Embedder.Provider = "googleai"
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "gemini-embedding-001"
	}
	if cfg.Embedder.APIKeyEnv == "" {
		switch cfg.Embedder.Provider {
		case "openai":
			cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
		default:
			cfg.Embedder.APIKeyEnv = "GOOGLE_API_KEY"
		}
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 25
	}

	if cfg.Retrieval.TopKPerSource == 0 {
		cfg.Retrieval.TopKPerSource = 3
	}
	if cfg.Retrieval.MaxContextChars == 0 {
		cfg.Retrieval.MaxContextChars = 12000
	}
	if len(cfg.Retrieval.SourceOrder) == 0 {
		cfg.Retrieval.SourceOrder = []string{"cases", "laws"}
	}

	if cfg.Chat.DefaultModel == "" {
		cfg.Chat.DefaultModel = "gemini"
	}
	if cfg.Chat.GeminiModel == "" {
		cfg.Chat.GeminiModel = "gemini-2.0-flash-lite"
	}
	if cfg.Chat.GoogleAPIKeyEnv == "" {
		cfg.Chat.GoogleAPIKeyEnv = "GOOGLE_API_KEY"
	}
	if cfg.Chat.OpenAIModel == "" {
		cfg.Chat.OpenAIModel = "gpt-4o-mini"
	}
	if cfg.Chat.OpenAIKeyEnv == "" {
		cfg.Chat.OpenAIKeyEnv = "OPENAI_API_KEY"
	}
}
