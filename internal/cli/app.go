package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"vergirag/internal/chunker"
	"vergirag/internal/config"
	"vergirag/internal/embedding"
	"vergirag/internal/embedding/hashing"
	"vergirag/internal/embedding/openai"
	"vergirag/internal/extractor"
	"vergirag/internal/llm"
	"vergirag/internal/llm/ollama"
	"vergirag/internal/namespace"
	"vergirag/internal/prompt"
	"vergirag/internal/service"
	"vergirag/internal/staging"
	"vergirag/internal/tui"
	"vergirag/internal/vectorstore"
	"vergirag/internal/vectorstore/memory"
	"vergirag/internal/vectorstore/qdrant"
	"vergirag/internal/vectorstore/sqlite"
)

// app holds the components wired from configuration.
type app struct {
	cfg       *config.AppConfig
	logger    *slog.Logger
	staging   *staging.Area
	router    *namespace.Router
	ingestor  *service.Ingestor
	retriever *service.Retriever
	llmClient *ollama.Client
	template  string
	models    []llm.Model
}

// pingTimeout bounds the model server reachability check.
const pingTimeout = 5 * time.Second

// checkLLM reports an unreachable model server before any question is asked.
func (a *app) checkLLM(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := a.llmClient.Ping(ctx); err != nil {
		return fmt.Errorf("language model server at %s is unreachable: %w", a.cfg.LLM.BaseURL, err)
	}
	return nil
}

func buildApp(cfg *config.AppConfig, logger *slog.Logger) (*app, error) {
	emb, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	open, err := buildOpener(cfg, logger)
	if err != nil {
		return nil, err
	}

	cats := make([]namespace.Category, len(cfg.Categories))
	for i, c := range cfg.Categories {
		cats[i] = namespace.Category{Key: c.Key, Dir: c.Dir, Label: c.Label}
	}
	router, err := namespace.NewRouter(cfg.Paths.IndexRoot, cats, open,
		namespace.WithLogger(logger), namespace.WithStoreKind(cfg.VectorStore.Type))
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}

	models := make([]llm.Model, len(cfg.LLM.AllowedModels))
	for i, name := range cfg.LLM.AllowedModels {
		models[i] = llm.Model(name)
	}
	if _, err := llm.ParseModel(cfg.LLM.DefaultModel, models...); err != nil {
		return nil, fmt.Errorf("llm.default_model: %w", err)
	}

	tpl, err := prompt.Load(cfg.Retrieval.PromptFile)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.LLM.TimeoutSecs) * time.Second
	client := ollama.New(ollama.Config{BaseURL: cfg.LLM.BaseURL, Timeout: timeout})
	gen := llm.WithRetry(
		client,
		llm.RetryMaxAttempts(cfg.LLM.MaxRetries),
		llm.RetryAttemptTimeout(timeout),
		llm.RetryLogger(logger),
	)

	ex := extractor.NewPDFExtractor(extractor.WithTextCache(cfg.Paths.TextCache), extractor.WithLogger(logger))
	retriever := service.NewRetriever(emb, router, gen,
		service.WithLogger(logger),
		service.WithTopK(cfg.Retrieval.TopK),
		service.WithGenerateTimeout(llm.RetryBudget(cfg.LLM.MaxRetries, timeout, llm.DefaultRetryBaseDelay)),
		service.WithModels(models...),
	)
	return &app{
		cfg:       cfg,
		logger:    logger,
		staging:   staging.New(cfg.Paths.Staging),
		router:    router,
		ingestor:  service.NewIngestor(ex, chunker.NewArticleChunker(), emb, router, service.WithLogger(logger)),
		retriever: retriever,
		llmClient: client,
		template:  tpl.String(),
		models:    models,
	}, nil
}

func buildEmbedder(cfg *config.AppConfig) (embedding.Embedder, error) {
	switch cfg.Embedder.Type {
	case "hashing":
		dim := 0
		if cfg.Embedder.Hashing != nil {
			dim = cfg.Embedder.Hashing.Dimension
		}
		return hashing.NewEmbedder(dim), nil
	case "openai", "":
		if cfg.Embedder.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:    cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv:  cfg.Embedder.OpenAI.APIKeyEnv,
			Model:      cfg.Embedder.OpenAI.Model,
			Timeout:    time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Embedder.OpenAI.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}

func buildOpener(cfg *config.AppConfig, logger *slog.Logger) (namespace.OpenFunc, error) {
	switch cfg.VectorStore.Type {
	case "sqlite", "":
		sc := cfg.VectorStore.SQLite
		if sc == nil {
			sc = &config.SQLiteConfig{File: "index.db", Distance: string(sqlite.Cosine)}
		}
		return func(ns namespace.Namespace) (vectorstore.Storage, error) {
			return sqlite.Open(filepath.Join(ns.Path, sc.File),
				sqlite.WithLogger(logger.With("namespace", ns.Dir)),
				sqlite.WithDistance(sqlite.Distance(sc.Distance)))
		}, nil
	case "memory":
		var mu sync.Mutex
		stores := map[string]*memory.Storage{}
		return func(ns namespace.Namespace) (vectorstore.Storage, error) {
			mu.Lock()
			defer mu.Unlock()
			s, ok := stores[ns.Dir]
			if !ok {
				s = memory.NewStorage()
				stores[ns.Dir] = s
			}
			return s, nil
		}, nil
	case "qdrant":
		qc := cfg.VectorStore.Qdrant
		if qc == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return func(ns namespace.Namespace) (vectorstore.Storage, error) {
			return qdrant.NewStorage(qdrant.Config{
				URL:        qc.URL,
				APIKey:     qc.APIKey,
				Collection: qc.CollectionPrefix + "_" + ns.Dir,
				Distance:   qc.Distance,
				Timeout:    time.Duration(qc.TimeoutSecs) * time.Second,
			})
		}, nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}
}

func (a *app) tuiConfig() tui.Config {
	models := make([]string, 0, len(a.models))
	models = append(models, a.cfg.LLM.DefaultModel)
	for _, m := range a.models {
		if string(m) != a.cfg.LLM.DefaultModel {
			models = append(models, string(m))
		}
	}
	cats := make([]tui.Choice, 0, len(a.cfg.Categories))
	for _, c := range a.router.Categories() {
		cats = append(cats, tui.Choice{Key: c.Key, Label: c.Label})
	}
	return tui.Config{Template: a.template, Models: models, Categories: cats}
}
