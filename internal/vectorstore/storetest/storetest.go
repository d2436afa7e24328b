// Package storetest runs the behaviour every vectorstore.Storage must share.
package storetest

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vergirag/internal/domain"
	"vergirag/internal/vectorstore"
)

// Chunk builds a chunk with a deterministic id for path and ordinal.
func Chunk(path string, ordinal int, text string) domain.Chunk {
	pageKey := path + ":0"
	return domain.Chunk{
		ChunkID:    pageKey + ":" + strconv.Itoa(ordinal),
		SourcePath: path,
		PageKey:    pageKey,
		Index:      ordinal,
		Text:       text,
	}
}

// Run exercises newStore with a fresh, empty store per subtest.
func Run(t *testing.T, newStore func(t *testing.T) vectorstore.Storage) {
	ctx := context.Background()

	t.Run("insert then exists", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Init(ctx, 2))
		chunks := []domain.Chunk{Chunk("a.pdf", 0, "Madde 1"), Chunk("a.pdf", 1, "Madde 2")}
		require.NoError(t, s.Insert(ctx, chunks, [][]float64{{1, 0}, {0, 1}}))

		got, err := s.Exists(ctx, []string{"a.pdf:0:0", "a.pdf:0:1", "b.pdf:0:0"})
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Contains(t, got, "a.pdf:0:0")
		assert.Contains(t, got, "a.pdf:0:1")
		assert.NotContains(t, got, "b.pdf:0:0")

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("exists on empty store", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Init(ctx, 2))
		got, err := s.Exists(ctx, []string{"x"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("search ranks best first", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Init(ctx, 2))
		chunks := []domain.Chunk{
			Chunk("a.pdf", 0, "uzak"),
			Chunk("a.pdf", 1, "yakın"),
			Chunk("a.pdf", 2, "orta"),
		}
		require.NoError(t, s.Insert(ctx, chunks, [][]float64{{0, 1}, {1, 0}, {0.7, 0.7}}))

		res, err := s.Search(ctx, []float64{1, 0}, 2)
		require.NoError(t, err)
		require.Len(t, res, 2)
		assert.Equal(t, "yakın", res[0].Chunk.Text)
		assert.Equal(t, "orta", res[1].Chunk.Text)
		assert.Equal(t, "a.pdf", res[0].Chunk.SourcePath)
		assert.Equal(t, "a.pdf:0:1", res[0].Chunk.ChunkID)
		assert.True(t, s.Metric().Better(res[0].Score, res[1].Score))
	})

	t.Run("search empty store", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Init(ctx, 2))
		res, err := s.Search(ctx, []float64{1, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("clear empties store", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Init(ctx, 2))
		require.NoError(t, s.Insert(ctx, []domain.Chunk{Chunk("a.pdf", 0, "Madde 1")}, [][]float64{{1, 0}}))
		require.NoError(t, s.Clear(ctx))

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		got, err := s.Exists(ctx, []string{"a.pdf:0:0"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("reads before init", func(t *testing.T) {
		s := newStore(t)
		got, err := s.Exists(ctx, []string{"a.pdf:0:0"})
		require.NoError(t, err)
		assert.Empty(t, got)
		res, err := s.Search(ctx, []float64{1, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, res)
		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		require.NoError(t, s.Clear(ctx))
	})

	t.Run("length mismatch", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Init(ctx, 2))
		err := s.Insert(ctx, []domain.Chunk{Chunk("a.pdf", 0, "x")}, nil)
		assert.Error(t, err)
	})
}
