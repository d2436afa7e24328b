package vectorstore

import (
	"context"

	"vergirag/internal/domain"
)

// Storage persists chunk vectors for one namespace and supports similarity
// search. Chunk ids are primary keys: Insert never overwrites an id that
// Exists reports as present. Exists, Search, Count and Clear work before
// Init and see an empty store when nothing was written yet.
type Storage interface {
	Init(ctx context.Context, dimension int) error
	Exists(ctx context.Context, ids []string) (map[string]struct{}, error)
	Insert(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Metric() domain.Metric
	Close() error
}
