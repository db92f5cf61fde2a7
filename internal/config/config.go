package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"notes-rag/internal/models"
)

// LLMBackend describes one generation backend in fallback order. The
// credential is always read from the environment variable named by
// KeyEnv, never from the config file.
type LLMBackend struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	KeyEnv  string `yaml:"key_env"`
}

type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "ollama" or "openai"
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	KeyEnv    string `yaml:"key_env"`
	Key       string `yaml:"-"`
	Dimension int    `yaml:"dimension"`
}

type IndexConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
	Debug       bool   `yaml:"debug"`
	ChromemPath string `yaml:"chromem_path"`
	Collection  string `yaml:"collection"`
}

type RAGConfig struct {
	ChunkSize      int     `yaml:"chunk_size"`
	ChunkOverlap   int     `yaml:"chunk_overlap"`
	TopK           int     `yaml:"top_k"`
	Temperature    float64 `yaml:"temperature"`
	SystemPrompt   string  `yaml:"system_prompt"`
	PromptTemplate string  `yaml:"prompt_template"`
}

type ChatConfig struct {
	RevealChars  int `yaml:"reveal_chars"`
	RevealPaceMs int `yaml:"reveal_pace_ms"`
}

type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	LLM       []LLMBackend    `yaml:"llm"`
	RAG       RAGConfig       `yaml:"rag"`
	Chat      ChatConfig      `yaml:"chat"`
}

// Load reads the YAML config at path, merges environment overrides and
// fills in defaults. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	mergeWithEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func mergeWithEnv(cfg *Config) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Index.PostgresDSN = dsn
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && cfg.Embedding.Provider != "openai" {
		cfg.Embedding.BaseURL = baseURL
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedding.Model == "" {
		// E5-family model; the passage:/query: prefixes applied by
		// internal/embedding follow its training convention. Changing the
		// model requires a re-index.
		cfg.Embedding.Model = "zylonai/multilingual-e5-large"
	}
	if cfg.Embedding.KeyEnv == "" {
		cfg.Embedding.KeyEnv = "OPENAI_API_KEY"
	}
	cfg.Embedding.Key = os.Getenv(cfg.Embedding.KeyEnv)
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = 1024
	}

	if cfg.Index.ChromemPath == "" {
		cfg.Index.ChromemPath = "./chromem_db"
	}
	if cfg.Index.Collection == "" {
		cfg.Index.Collection = "notes"
	}

	if len(cfg.LLM) == 0 {
		cfg.LLM = []LLMBackend{
			{Name: "groq", BaseURL: "https://api.groq.com/openai/v1", Model: "openai/gpt-oss-120b", KeyEnv: "GROQ_API_KEY"},
			{Name: "openai", BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini", KeyEnv: "OPENAI_API_KEY"},
		}
	}

	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 500
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = 100
	}
	if cfg.RAG.TopK < 1 || cfg.RAG.TopK > 10 {
		cfg.RAG.TopK = 4
	}
	if cfg.RAG.Temperature == 0 {
		cfg.RAG.Temperature = 0.2
	}
	if cfg.RAG.SystemPrompt == "" {
		cfg.RAG.SystemPrompt = models.DefaultSystemPrompt
	}
	if cfg.RAG.PromptTemplate == "" {
		cfg.RAG.PromptTemplate = models.DefaultPromptTemplate
	}

	if cfg.Chat.RevealChars == 0 {
		cfg.Chat.RevealChars = 200
	}
	if cfg.Chat.RevealPaceMs == 0 {
		cfg.Chat.RevealPaceMs = 50
	}
}
