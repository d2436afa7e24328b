package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vergirag/internal/chunker"
	"vergirag/internal/domain"
	"vergirag/internal/embedding/hashing"
	"vergirag/internal/namespace"
	"vergirag/internal/vectorstore"
	"vergirag/internal/vectorstore/memory"
)

const (
	kdvText = `KATMA DEĞER VERGİSİ KANUNU
Madde 1 - Türkiye'de ticari faaliyet çerçevesinde yapılan teslim ve hizmetler vergiye tabidir.
Madde 2 - Teslim, bir mal üzerindeki tasarruf hakkının devridir.
MADDE 3 - Vergiden istisna edilen işlemler şunlardır.`
	gelirText = `Madde 1 - Gerçek kişilerin gelirleri gelir vergisine tabidir.
Madde 2 - Gelire giren kazanç ve iratlar ticari kazançlar ve ücretlerdir.`
)

func newTestIngestor(t *testing.T, ex fakeExtractor, em domain.Embedder) (*Ingestor, *storeSet) {
	t.Helper()
	stores := &storeSet{}
	router := newTestRouter(t, stores)
	return NewIngestor(ex, chunker.NewArticleChunker(), em, router), stores
}

func TestIngest_InsertsOnlyNewChunks(t *testing.T) {
	ctx := context.Background()
	ex := fakeExtractor{docs: map[string]string{"data/kdv.pdf": kdvText, "data/gvk.pdf": gelirText}}
	ing, _ := newTestIngestor(t, ex, hashing.NewEmbedder(64))

	first, err := ing.Ingest(ctx, "kdv", []string{"data/kdv.pdf", "data/gvk.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "katma_deger", first.Namespace)
	assert.Equal(t, 2, first.Files)
	assert.Equal(t, 5, first.Chunks)
	assert.Equal(t, 5, first.Inserted)
	assert.Zero(t, first.Existing)
	assert.Zero(t, first.Duplicates)

	second, err := ing.Ingest(ctx, "kdv", []string{"data/kdv.pdf", "data/gvk.pdf"})
	require.NoError(t, err)
	assert.Zero(t, second.Inserted)
	assert.Equal(t, 5, second.Existing)
	assert.Equal(t, 5, second.Duplicates)
}

func TestIngest_CorruptFileIsSkipped(t *testing.T) {
	ctx := context.Background()
	ex := fakeExtractor{
		docs:   map[string]string{"a.pdf": kdvText, "c.pdf": gelirText},
		broken: map[string]bool{"b.pdf": true},
	}
	ing, _ := newTestIngestor(t, ex, hashing.NewEmbedder(64))

	report, err := ing.Ingest(ctx, "gelir", []string{"a.pdf", "b.pdf", "c.pdf"})
	require.NoError(t, err)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "b.pdf", report.Skipped[0].Path)
	var exErr *domain.ExtractionError
	assert.ErrorAs(t, report.Skipped[0].Err, &exErr)
	assert.Equal(t, 5, report.Inserted)
}

func TestIngest_RepeatedIDsInBatch(t *testing.T) {
	ctx := context.Background()
	ex := fakeExtractor{docs: map[string]string{"a.pdf": kdvText, "b.pdf": gelirText}}
	ing, stores := newTestIngestor(t, ex, hashing.NewEmbedder(64))

	// a.pdf appears twice non-adjacently, so its ordinals restart and collide.
	report, err := ing.Ingest(ctx, "kdv", []string{"a.pdf", "b.pdf", "a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, 8, report.Chunks)
	assert.Equal(t, 5, report.Inserted)
	assert.Equal(t, 3, report.Duplicates)

	n, err := stores.stores["katma_deger"].Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestIngest_NoArticles(t *testing.T) {
	ctx := context.Background()
	ex := fakeExtractor{docs: map[string]string{"a.pdf": "İçindekiler\nÖnsöz"}}
	ing, _ := newTestIngestor(t, ex, hashing.NewEmbedder(64))

	report, err := ing.Ingest(ctx, "kdv", []string{"a.pdf"})
	require.NoError(t, err)
	assert.Zero(t, report.Chunks)
	assert.Zero(t, report.Inserted)
}

func TestIngest_EmbeddingModelMismatch(t *testing.T) {
	ctx := context.Background()
	ex := fakeExtractor{docs: map[string]string{"a.pdf": kdvText}}
	stores := &storeSet{}
	router := newTestRouter(t, stores)

	_, err := NewIngestor(ex, chunker.NewArticleChunker(), hashing.NewEmbedder(64), router).
		Ingest(ctx, "kdv", []string{"a.pdf"})
	require.NoError(t, err)

	_, err = NewIngestor(ex, chunker.NewArticleChunker(), hashing.NewEmbedder(32), router).
		Ingest(ctx, "kdv", []string{"a.pdf"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingModelMismatch)
}

func TestIngest_EmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	ex := fakeExtractor{docs: map[string]string{"a.pdf": kdvText}}
	ing, _ := newTestIngestor(t, ex, failingEmbedder{})

	_, err := ing.Ingest(ctx, "kdv", []string{"a.pdf"})
	var modelErr *domain.ModelError
	require.ErrorAs(t, err, &modelErr)
	assert.Equal(t, "embed", modelErr.Op)
	assert.Equal(t, "failing-1", modelErr.Model)
}

func TestIngest_UnknownCategory(t *testing.T) {
	ex := fakeExtractor{docs: map[string]string{"a.pdf": kdvText}}
	ing, _ := newTestIngestor(t, ex, hashing.NewEmbedder(64))

	_, err := ing.Ingest(context.Background(), "damga", []string{"a.pdf"})
	assert.ErrorIs(t, err, domain.ErrUnknownCategory)
}

func TestIngestDir_NoDocuments(t *testing.T) {
	ing, _ := newTestIngestor(t, fakeExtractor{}, hashing.NewEmbedder(64))

	_, err := ing.IngestDir(context.Background(), "kdv", t.TempDir())
	assert.ErrorIs(t, err, domain.ErrNoDocuments)
}

func TestIngest_AsksStoreWithoutLocalMetadata(t *testing.T) {
	ctx := context.Background()
	ex := fakeExtractor{docs: map[string]string{"data/kdv.pdf": kdvText}}
	em := hashing.NewEmbedder(64)
	shared := memory.NewStorage()
	open := func(namespace.Namespace) (vectorstore.Storage, error) { return shared, nil }

	// Two index roots over one store, as with a remote Qdrant collection
	// reached from a fresh checkout.
	for i, want := range []int{3, 0} {
		router, err := namespace.NewRouter(t.TempDir(), testCategories, open)
		require.NoError(t, err)
		report, err := NewIngestor(ex, chunker.NewArticleChunker(), em, router).
			Ingest(ctx, "kdv", []string{"data/kdv.pdf"})
		require.NoError(t, err, "run %d", i)
		assert.Equal(t, want, report.Inserted, "run %d", i)
		if i == 1 {
			assert.Equal(t, 3, report.Existing)
			assert.Equal(t, 3, report.Duplicates)
		}
	}
	n, err := shared.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestIngest_EquivalentPathsShareIDs(t *testing.T) {
	ctx := context.Background()
	ex := fakeExtractor{docs: map[string]string{"data/kdv.pdf": kdvText}}
	ing, _ := newTestIngestor(t, ex, hashing.NewEmbedder(64))

	first, err := ing.Ingest(ctx, "kdv", []string{"./data/kdv.pdf"})
	require.NoError(t, err)
	assert.Equal(t, 3, first.Inserted)

	second, err := ing.Ingest(ctx, "kdv", []string{"data//kdv.pdf"})
	require.NoError(t, err)
	assert.Zero(t, second.Inserted)
	assert.Equal(t, 3, second.Duplicates)
}
