package domain

import (
	"context"
	"time"
)

// Document represents a single source file after text extraction.
type Document struct {
	ID      string
	Path    string
	Content string
}

// Chunk is one legal article cut out of a document and used for indexing.
type Chunk struct {
	ChunkID    string
	SourcePath string
	PageKey    string
	Index      int
	Text       string
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Metric tells how a store's scores are ordered.
type Metric int

const (
	// MetricSimilarity means a higher score is a better match.
	MetricSimilarity Metric = iota
	// MetricDistance means a lower score is a better match.
	MetricDistance
)

func (m Metric) String() string {
	if m == MetricDistance {
		return "distance"
	}
	return "similarity"
}

// Better reports whether score a ranks ahead of score b under m.
func (m Metric) Better(a, b float64) bool {
	if m == MetricDistance {
		return a < b
	}
	return a > b
}

// Source is one attributed passage returned alongside an answer.
type Source struct {
	Content string  `json:"content"`
	Label   string  `json:"source"`
	Score   float64 `json:"score"`
}

// Answer is the result of a retrieval-augmented query.
type Answer struct {
	Text      string        `json:"text"`
	Sources   []Source      `json:"sources"`
	NoContext bool          `json:"no_context"`
	Model     string        `json:"model"`
	Elapsed   time.Duration `json:"elapsed"`
}

// SkippedFile records a file the ingestion run could not read.
type SkippedFile struct {
	Path string
	Err  error
}

// IngestReport summarizes one ingestion run against a namespace.
type IngestReport struct {
	Namespace  string
	Files      int
	Skipped    []SkippedFile
	Chunks     int
	Existing   int
	Inserted   int
	Duplicates int
	Elapsed    time.Duration
}

// Extractor turns a file on disk into a Document.
type Extractor interface {
	Extract(path string) (Document, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Name() string
	Model() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Generator produces a completion for a prompt with the named model.
type Generator interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
}
