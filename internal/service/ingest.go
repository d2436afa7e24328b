package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"vergirag/internal/chunker"
	"vergirag/internal/domain"
	"vergirag/internal/extractor"
	"vergirag/internal/llm"
	"vergirag/internal/namespace"
)

// Option configures the ingestion and retrieval services.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	topK    int
	timeout time.Duration
	models  []llm.Model
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		topK:    DefaultTopK,
		timeout: DefaultGenerateTimeout,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Ingestor turns staged PDFs into indexed chunks, inserting only chunks
// whose ids the category namespace does not already hold.
type Ingestor struct {
	extractor domain.Extractor
	chunker   domain.Chunker
	embedder  domain.Embedder
	router    *namespace.Router
	logger    *slog.Logger
}

func NewIngestor(ex domain.Extractor, ch domain.Chunker, em domain.Embedder, router *namespace.Router, opts ...Option) *Ingestor {
	o := buildOptions(opts)
	return &Ingestor{extractor: ex, chunker: ch, embedder: em, router: router, logger: o.logger}
}

// IngestDir ingests every PDF in dir. It wraps domain.ErrNoDocuments when
// dir has none.
func (s *Ingestor) IngestDir(ctx context.Context, category, dir string) (domain.IngestReport, error) {
	files, err := extractor.ListPDFs(dir)
	if err != nil {
		return domain.IngestReport{}, fmt.Errorf("list %s: %w", dir, err)
	}
	if len(files) == 0 {
		return domain.IngestReport{}, fmt.Errorf("%s: %w", dir, domain.ErrNoDocuments)
	}
	return s.Ingest(ctx, category, files)
}

// Ingest extracts, segments and indexes files into the namespace for
// category. Unreadable files are reported in IngestReport.Skipped and do not
// fail the batch.
func (s *Ingestor) Ingest(ctx context.Context, category string, files []string) (domain.IngestReport, error) {
	start := time.Now()
	report := domain.IngestReport{Files: len(files)}

	var chunks []domain.Chunk
	for _, path := range files {
		// Chunk ids embed the path, so ./data/a.pdf and data/a.pdf must agree.
		path = filepath.Clean(path)
		doc, err := s.extractor.Extract(path)
		if err != nil {
			var exErr *domain.ExtractionError
			if !errors.As(err, &exErr) {
				return report, err
			}
			s.logger.Warn("skipping unreadable file", "path", path, "error", exErr.Err)
			report.Skipped = append(report.Skipped, domain.SkippedFile{Path: path, Err: err})
			continue
		}
		cs, err := s.chunker.Chunk(doc)
		if err != nil {
			return report, fmt.Errorf("segment %s: %w", path, err)
		}
		chunks = append(chunks, cs...)
	}
	chunks = chunker.AssignIDs(chunks, chunker.DefaultPage)
	report.Chunks = len(chunks)

	h, err := s.router.Acquire(ctx, category)
	if err != nil {
		return report, err
	}
	defer h.Release()
	report.Namespace = h.Namespace().Dir

	model := s.embedder.Model()
	if err := h.CheckModel(model); err != nil {
		return report, err
	}

	fresh, err := s.filterNew(ctx, h, chunks, &report)
	if err != nil {
		return report, err
	}
	s.logger.Info("ingestion diff",
		"namespace", report.Namespace,
		"existing", report.Existing,
		"new", len(fresh),
		"duplicates", report.Duplicates)

	if len(fresh) == 0 {
		report.Elapsed = time.Since(start)
		return report, nil
	}

	vectors := make([][]float64, len(fresh))
	for i, c := range fresh {
		vec, err := s.embedder.Embed(ctx, c.Text)
		if err != nil {
			return report, &domain.ModelError{Op: "embed", Model: model, Err: err}
		}
		vectors[i] = vec
	}
	if err := h.Ensure(ctx, model, len(vectors[0])); err != nil {
		return report, err
	}
	if err := h.Store().Insert(ctx, fresh, vectors); err != nil {
		return report, &domain.StoreError{Namespace: report.Namespace, Op: "insert", Err: err}
	}
	if err := h.Touch(ctx); err != nil {
		return report, err
	}
	report.Inserted = len(fresh)
	report.Elapsed = time.Since(start)
	s.logger.Info("ingestion done", "namespace", report.Namespace, "inserted", report.Inserted, "elapsed", report.Elapsed)
	return report, nil
}

// filterNew drops chunks already stored in the namespace and later repeats
// of an id within the batch. The store is always asked, since its contents
// may outlive the local namespace metadata.
func (s *Ingestor) filterNew(ctx context.Context, h *namespace.Handle, chunks []domain.Chunk, report *domain.IngestReport) ([]domain.Chunk, error) {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ChunkID
	}
	existing, err := h.Store().Exists(ctx, ids)
	if err != nil {
		return nil, &domain.StoreError{Namespace: report.Namespace, Op: "exists", Err: err}
	}
	n, err := h.Store().Count(ctx)
	if err != nil {
		return nil, &domain.StoreError{Namespace: report.Namespace, Op: "count", Err: err}
	}
	report.Existing = n

	seen := make(map[string]struct{}, len(chunks))
	fresh := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if _, ok := existing[c.ChunkID]; ok {
			report.Duplicates++
			continue
		}
		if _, ok := seen[c.ChunkID]; ok {
			s.logger.Debug("duplicate chunk id in batch", "id", c.ChunkID)
			report.Duplicates++
			continue
		}
		seen[c.ChunkID] = struct{}{}
		fresh = append(fresh, c)
	}
	return fresh, nil
}
