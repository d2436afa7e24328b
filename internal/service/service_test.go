package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"vergirag/internal/domain"
	"vergirag/internal/namespace"
	"vergirag/internal/vectorstore"
	"vergirag/internal/vectorstore/memory"
)

var testCategories = []namespace.Category{
	{Key: "gelir", Dir: "gelir_vergisi", Label: "gelir vergisi"},
	{Key: "kdv", Dir: "katma_deger", Label: "katma değer vergisi"},
}

// fakeExtractor serves documents from memory; paths in broken fail like a
// corrupt PDF.
type fakeExtractor struct {
	docs   map[string]string
	broken map[string]bool
}

func (f fakeExtractor) Extract(path string) (domain.Document, error) {
	if f.broken[path] {
		return domain.Document{}, &domain.ExtractionError{Path: path, Err: errors.New("malformed xref table")}
	}
	content, ok := f.docs[path]
	if !ok {
		return domain.Document{}, &domain.ExtractionError{Path: path, Err: errors.New("no such file")}
	}
	return domain.Document{ID: path, Path: path, Content: content}, nil
}

// storeSet keeps one store per namespace so state survives Release.
type storeSet struct {
	mu     sync.Mutex
	stores map[string]vectorstore.Storage
	newFn  func() vectorstore.Storage
}

func (s *storeSet) open(ns namespace.Namespace) (vectorstore.Storage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stores == nil {
		s.stores = map[string]vectorstore.Storage{}
	}
	st, ok := s.stores[ns.Dir]
	if !ok {
		if s.newFn != nil {
			st = s.newFn()
		} else {
			st = memory.NewStorage()
		}
		s.stores[ns.Dir] = st
	}
	return st, nil
}

func newTestRouter(t *testing.T, stores *storeSet) *namespace.Router {
	t.Helper()
	if stores == nil {
		stores = &storeSet{}
	}
	r, err := namespace.NewRouter(t.TempDir(), testCategories, stores.open, namespace.WithStoreKind("memory"))
	require.NoError(t, err)
	return r
}

type failingEmbedder struct{}

func (failingEmbedder) Name() string { return "failing" }
func (failingEmbedder) Model() string { return "failing-1" }
func (failingEmbedder) Dimension() int { return 0 }
func (failingEmbedder) Embed(context.Context, string) ([]float64, error) {
	return nil, errors.New("connection refused")
}

type recordingGenerator struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	models  []string
	reply   string
	err     error
}

func (g *recordingGenerator) Generate(_ context.Context, prompt, model string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.prompts = append(g.prompts, prompt)
	g.models = append(g.models, model)
	return g.reply, g.err
}
