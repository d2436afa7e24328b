package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PathsConfig locates the staging area, the text cache and the index root.
type PathsConfig struct {
	Staging   string `yaml:"staging"`
	TextCache string `yaml:"text_cache"`
	IndexRoot string `yaml:"index_root"`
}

// CategoryConfig maps a document category to its namespace directory.
type CategoryConfig struct {
	Key   string `yaml:"key"`
	Dir   string `yaml:"dir"`
	Label string `yaml:"label"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// HashingEmbedderConfig configures the offline hashing embedder.
type HashingEmbedderConfig struct {
	Dimension int `yaml:"dimension"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type    string                 `yaml:"type"`
	OpenAI  *OpenAIEmbedderConfig  `yaml:"openai,omitempty"`
	Hashing *HashingEmbedderConfig `yaml:"hashing,omitempty"`
}

// SQLiteConfig configures the per-namespace SQLite stores.
type SQLiteConfig struct {
	File     string `yaml:"file"`
	Distance string `yaml:"distance"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
// Each namespace gets the collection CollectionPrefix_<dir>.
type QdrantConfig struct {
	URL              string `yaml:"url"`
	APIKey           string `yaml:"api_key"`
	CollectionPrefix string `yaml:"collection_prefix"`
	Distance         string `yaml:"distance"`
	TimeoutSecs      int    `yaml:"timeout_secs"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	SQLite *SQLiteConfig `yaml:"sqlite,omitempty"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// LLMConfig configures answer generation.
type LLMConfig struct {
	BaseURL       string   `yaml:"base_url"`
	DefaultModel  string   `yaml:"default_model"`
	AllowedModels []string `yaml:"allowed_models"`
	TimeoutSecs   int      `yaml:"timeout_secs"`
	MaxRetries    int      `yaml:"max_retries"`
}

// RetrievalConfig configures the query pipeline.
type RetrievalConfig struct {
	TopK       int    `yaml:"top_k"`
	PromptFile string `yaml:"prompt_file"`
}

// ClearConfig holds the default scope of the clear command.
type ClearConfig struct {
	Scope string `yaml:"scope"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Paths       PathsConfig       `yaml:"paths"`
	Categories  []CategoryConfig  `yaml:"categories"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	LLM         LLMConfig         `yaml:"llm"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Clear       ClearConfig       `yaml:"clear"`
}

// Clear scopes.
const (
	ScopeStaging = "staging"
	ScopeAll     = "all"
)

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/vergirag/config.yaml.
// If neither exists, it writes defaults to ~/.config/vergirag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects unknown component types and an empty category list.
func (c *AppConfig) Validate() error {
	if len(c.Categories) == 0 {
		return errors.New("config: at least one category is required")
	}
	switch c.Embedder.Type {
	case "openai", "hashing":
	default:
		return fmt.Errorf("config: unknown embedder %q", c.Embedder.Type)
	}
	switch c.VectorStore.Type {
	case "sqlite", "memory", "qdrant":
	default:
		return fmt.Errorf("config: unknown vector store %q", c.VectorStore.Type)
	}
	if c.VectorStore.Type == "qdrant" && (c.VectorStore.Qdrant == nil || c.VectorStore.Qdrant.URL == "") {
		return errors.New("config: qdrant url is required")
	}
	switch c.Clear.Scope {
	case ScopeStaging, ScopeAll:
	default:
		return fmt.Errorf("config: unknown clear scope %q", c.Clear.Scope)
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("config: retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "vergirag", "config.yaml"), nil
}

// DefaultCategories are the tax-law categories and their namespace
// directories.
func DefaultCategories() []CategoryConfig {
	return []CategoryConfig{
		{Key: "gelir_vergisi", Dir: "gelir_vergisi", Label: "gelir vergisi"},
		{Key: "katma_deger", Dir: "katma_deger", Label: "katma değer vergisi"},
		{Key: "ozel_tuketim", Dir: "ozel_tuketim", Label: "özel tüketim vergisi"},
		{Key: "kurumlar", Dir: "kurumlar", Label: "kurumlar vergisi"},
		{Key: "motorlu_tasit", Dir: "motorlu_tasit", Label: "motorlu taşıtlar vergisi"},
	}
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Paths:      PathsConfig{Staging: "data", TextCache: filepath.Join("data", "processed_txt"), IndexRoot: "chroma"},
		Categories: DefaultCategories(),
		Embedder: EmbedderConfig{
			Type:   "openai",
			OpenAI: &OpenAIEmbedderConfig{},
		},
		VectorStore: VectorStoreConfig{Type: "sqlite", SQLite: &SQLiteConfig{}},
		Retrieval:   RetrievalConfig{},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Paths.Staging == "" {
		cfg.Paths.Staging = "data"
	}
	if cfg.Paths.TextCache == "" {
		cfg.Paths.TextCache = filepath.Join(cfg.Paths.Staging, "processed_txt")
	}
	if cfg.Paths.IndexRoot == "" {
		cfg.Paths.IndexRoot = "chroma"
	}
	if cfg.Categories == nil {
		cfg.Categories = DefaultCategories()
	}
	for i := range cfg.Categories {
		if cfg.Categories[i].Dir == "" {
			cfg.Categories[i].Dir = cfg.Categories[i].Key
		}
		if cfg.Categories[i].Label == "" {
			cfg.Categories[i].Label = cfg.Categories[i].Key
		}
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "http://localhost:11434/v1"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "nomic-embed-text"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.MaxRetries == 0 {
			cfg.Embedder.OpenAI.MaxRetries = 5
		}
	}
	if cfg.Embedder.Type == "hashing" {
		if cfg.Embedder.Hashing == nil {
			cfg.Embedder.Hashing = &HashingEmbedderConfig{}
		}
		if cfg.Embedder.Hashing.Dimension == 0 {
			cfg.Embedder.Hashing.Dimension = 512
		}
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "sqlite"
	}
	if cfg.VectorStore.Type == "sqlite" {
		if cfg.VectorStore.SQLite == nil {
			cfg.VectorStore.SQLite = &SQLiteConfig{}
		}
		if cfg.VectorStore.SQLite.File == "" {
			cfg.VectorStore.SQLite.File = "index.db"
		}
		if cfg.VectorStore.SQLite.Distance == "" {
			cfg.VectorStore.SQLite.Distance = "cosine"
		}
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant != nil {
		if cfg.VectorStore.Qdrant.CollectionPrefix == "" {
			cfg.VectorStore.Qdrant.CollectionPrefix = "vergirag"
		}
		if cfg.VectorStore.Qdrant.Distance == "" {
			cfg.VectorStore.Qdrant.Distance = "Cosine"
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 15
		}
	}

	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "http://localhost:11434"
	}
	if len(cfg.LLM.AllowedModels) == 0 {
		cfg.LLM.AllowedModels = []string{"gemma2:2b", "gemma2:9b", "mistral:7b"}
	}
	if cfg.LLM.DefaultModel == "" {
		cfg.LLM.DefaultModel = cfg.LLM.AllowedModels[0]
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 120
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 3
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Clear.Scope == "" {
		cfg.Clear.Scope = ScopeStaging
	}
}
