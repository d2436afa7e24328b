package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"vergirag/internal/domain"
	"vergirag/internal/llm"
	"vergirag/internal/namespace"
	"vergirag/internal/prompt"
)

const (
	DefaultTopK            = 5
	DefaultGenerateTimeout = 120 * time.Second

	// NoContextAnswer is returned without calling the model when the
	// namespace yields no passages.
	NoContextAnswer = "İlgili bağlam bulunamadı."
	// ContextSeparator joins retrieved passages in the prompt context.
	ContextSeparator = "\n\n---\n\n"
	// UnknownSource labels a passage whose chunk has no source path.
	UnknownSource = "Unknown Source"
)

// WithTopK sets how many passages a query retrieves.
func WithTopK(k int) Option {
	return func(o *options) {
		if k > 0 {
			o.topK = k
		}
	}
}

// WithGenerateTimeout bounds each answer generation.
func WithGenerateTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithModels replaces the model allow-list.
func WithModels(models ...llm.Model) Option {
	return func(o *options) { o.models = models }
}

// Retriever answers questions from the passages indexed for a category.
type Retriever struct {
	embedder  domain.Embedder
	router    *namespace.Router
	generator domain.Generator
	opts      options
}

func NewRetriever(em domain.Embedder, router *namespace.Router, gen domain.Generator, opts ...Option) *Retriever {
	return &Retriever{embedder: em, router: router, generator: gen, opts: buildOptions(opts)}
}

// Answer retrieves the best passages for query in category, renders them
// into template and asks model for an answer. Model and template are
// validated before any other work.
func (r *Retriever) Answer(ctx context.Context, query, template, model, category string) (domain.Answer, error) {
	start := time.Now()
	m, err := llm.ParseModel(model, r.opts.models...)
	if err != nil {
		return domain.Answer{}, err
	}
	tpl, err := prompt.Parse(template)
	if err != nil {
		return domain.Answer{}, err
	}

	results, err := r.Search(ctx, query, category)
	if err != nil {
		return domain.Answer{}, err
	}
	if len(results) == 0 {
		r.opts.logger.Info("no context found", "category", category)
		return domain.Answer{
			Text:      NoContextAnswer,
			NoContext: true,
			Model:     m.String(),
			Elapsed:   time.Since(start),
		}, nil
	}

	texts := make([]string, len(results))
	sources := make([]domain.Source, len(results))
	for i, res := range results {
		texts[i] = res.Chunk.Text
		label := res.Chunk.SourcePath
		if label == "" {
			label = UnknownSource
		}
		sources[i] = domain.Source{Content: res.Chunk.Text, Label: label, Score: res.Score}
	}
	rendered := tpl.Render(strings.Join(texts, ContextSeparator), query)

	genCtx, cancel := context.WithTimeout(ctx, r.opts.timeout)
	defer cancel()
	r.opts.logger.Debug("generating answer", "model", m, "passages", len(results), "prompt_bytes", len(rendered))
	text, err := r.generator.Generate(genCtx, rendered, m.String())
	if err != nil {
		return domain.Answer{}, &domain.ModelError{Op: "generate", Model: m.String(), Err: err}
	}

	elapsed := time.Since(start)
	r.opts.logger.Info("answered", "category", category, "model", m, "elapsed", elapsed)
	return domain.Answer{
		Text:    text,
		Sources: sources,
		Model:   m.String(),
		Elapsed: elapsed,
	}, nil
}

// Search returns the top passages for query in category, best first under
// the namespace store's metric. An empty namespace yields no results.
func (r *Retriever) Search(ctx context.Context, query, category string) ([]domain.SearchResult, error) {
	h, err := r.router.Acquire(ctx, category)
	if err != nil {
		return nil, err
	}
	defer h.Release()
	n, err := h.Store().Count(ctx)
	if err != nil {
		return nil, &domain.StoreError{Namespace: h.Namespace().Dir, Op: "count", Err: err}
	}
	if n == 0 {
		return nil, nil
	}
	embedModel := r.embedder.Model()
	if err := h.CheckModel(embedModel); err != nil {
		return nil, err
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &domain.ModelError{Op: "embed", Model: embedModel, Err: err}
	}
	store := h.Store()
	results, err := store.Search(ctx, vec, r.opts.topK)
	if err != nil {
		return nil, &domain.StoreError{Namespace: h.Namespace().Dir, Op: "search", Err: err}
	}
	metric := store.Metric()
	sort.SliceStable(results, func(i, j int) bool {
		return metric.Better(results[i].Score, results[j].Score)
	})
	if len(results) > r.opts.topK {
		results = results[:r.opts.topK]
	}
	return results, nil
}

// FormatElapsed renders d as whole minutes and seconds.
func FormatElapsed(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%d dakika, %d saniye", secs/60, secs%60)
}
