// Package namespace maps document categories to isolated index namespaces
// and serializes access to each of them.
package namespace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"vergirag/internal/domain"
	"vergirag/internal/vectorstore"
)

// Category describes one document category and the namespace that holds it.
type Category struct {
	Key   string
	Dir   string
	Label string
}

// Namespace is a resolved category with its on-disk location.
type Namespace struct {
	Category
	Path string
}

// OpenFunc opens the vector store backing a namespace.
type OpenFunc func(ns Namespace) (vectorstore.Storage, error)

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger for namespace lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithStoreKind records the store implementation name in namespace metadata.
func WithStoreKind(kind string) Option {
	return func(r *Router) { r.storeKind = kind }
}

// Router resolves categories to namespaces and hands out exclusive handles.
// Namespaces share no state; each has its own lock.
type Router struct {
	root       string
	categories []Category
	byKey      map[string]Category
	open       OpenFunc
	logger     *slog.Logger
	storeKind  string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRouter creates a router over root. Category keys and directories must
// be unique and directories must be plain names.
func NewRouter(root string, categories []Category, open OpenFunc, opts ...Option) (*Router, error) {
	if len(categories) == 0 {
		return nil, errors.New("no categories configured")
	}
	r := &Router{
		root:   root,
		byKey:  make(map[string]Category, len(categories)),
		open:   open,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		locks:  map[string]*sync.Mutex{},
	}
	dirs := map[string]bool{}
	for _, c := range categories {
		if c.Key == "" || c.Dir == "" {
			return nil, fmt.Errorf("category %q: key and dir are required", c.Key)
		}
		if c.Dir != filepath.Base(c.Dir) || strings.HasPrefix(c.Dir, ".") {
			return nil, fmt.Errorf("category %q: dir %q must be a plain name", c.Key, c.Dir)
		}
		if _, dup := r.byKey[c.Key]; dup {
			return nil, fmt.Errorf("duplicate category %q", c.Key)
		}
		if dirs[c.Dir] {
			return nil, fmt.Errorf("duplicate namespace dir %q", c.Dir)
		}
		dirs[c.Dir] = true
		if c.Label == "" {
			c.Label = c.Key
		}
		r.byKey[c.Key] = c
		r.categories = append(r.categories, c)
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Categories returns the configured categories in configuration order.
func (r *Router) Categories() []Category {
	return append([]Category(nil), r.categories...)
}

// Resolve maps a category key (or its display label) to its namespace.
func (r *Router) Resolve(key string) (Namespace, error) {
	c, ok := r.byKey[key]
	if !ok {
		for _, cand := range r.categories {
			if cand.Label == key {
				c, ok = cand, true
				break
			}
		}
	}
	if !ok {
		return Namespace{}, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, key)
	}
	return Namespace{Category: c, Path: filepath.Join(r.root, c.Dir)}, nil
}

func (r *Router) lock(ns Namespace) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[ns.Dir]
	if !ok {
		l = &sync.Mutex{}
		r.locks[ns.Dir] = l
	}
	return l
}

// Acquire locks the namespace for category and opens its store. The caller
// must Release the handle.
func (r *Router) Acquire(ctx context.Context, category string) (*Handle, error) {
	ns, err := r.Resolve(category)
	if err != nil {
		return nil, err
	}
	l := r.lock(ns)
	l.Lock()
	h, err := r.openHandle(ctx, ns)
	if err != nil {
		l.Unlock()
		return nil, err
	}
	h.unlock = l.Unlock
	return h, nil
}

func (r *Router) openHandle(ctx context.Context, ns Namespace) (*Handle, error) {
	meta, err := loadMeta(ns.Path)
	if err != nil {
		return nil, &domain.StoreError{Namespace: ns.Dir, Op: "read metadata", Err: err}
	}
	if err := os.MkdirAll(ns.Path, 0o755); err != nil {
		return nil, &domain.StoreError{Namespace: ns.Dir, Op: "create", Err: err}
	}
	store, err := r.open(ns)
	if err != nil {
		return nil, &domain.StoreError{Namespace: ns.Dir, Op: "open", Err: err}
	}
	h := &Handle{ns: ns, store: store, meta: meta, router: r}
	if meta != nil {
		if err := store.Init(ctx, meta.Dimension); err != nil {
			_ = store.Close()
			return nil, &domain.StoreError{Namespace: ns.Dir, Op: "init", Err: err}
		}
	}
	return h, nil
}

// Clear wipes the namespace for category and recreates it empty.
func (r *Router) Clear(ctx context.Context, category string) error {
	h, err := r.Acquire(ctx, category)
	if err != nil {
		return err
	}
	ns := h.ns
	if err := h.store.Clear(ctx); err != nil {
		_ = h.Release()
		return &domain.StoreError{Namespace: ns.Dir, Op: "clear", Err: err}
	}
	_ = h.store.Close()
	h.store = nil
	defer h.unlock()

	if err := os.RemoveAll(ns.Path); err != nil {
		return &domain.StoreError{Namespace: ns.Dir, Op: "remove", Err: err}
	}
	if err := os.MkdirAll(ns.Path, 0o755); err != nil {
		return &domain.StoreError{Namespace: ns.Dir, Op: "recreate", Err: err}
	}
	r.logger.Info("namespace cleared", "category", ns.Key, "path", ns.Path)
	return nil
}

// ClearAll clears every configured namespace.
func (r *Router) ClearAll(ctx context.Context) error {
	for _, c := range r.categories {
		if err := r.Clear(ctx, c.Key); err != nil {
			return err
		}
	}
	return nil
}

// Handle is exclusive access to one open namespace.
type Handle struct {
	ns     Namespace
	store  vectorstore.Storage
	meta   *Meta
	router *Router
	unlock func()
}

func (h *Handle) Namespace() Namespace { return h.ns }

func (h *Handle) Store() vectorstore.Storage { return h.store }

func (h *Handle) Meta() *Meta { return h.meta }

// Initialized reports whether the namespace metadata has been written.
func (h *Handle) Initialized() bool { return h.meta != nil }

// CheckModel fails with domain.ErrEmbeddingModelMismatch when the namespace
// was built with a different embedding model.
func (h *Handle) CheckModel(model string) error {
	if h.meta == nil || h.meta.EmbeddingModel == model {
		return nil
	}
	return fmt.Errorf("%w: namespace %s was built with %q, current embedder is %q",
		domain.ErrEmbeddingModelMismatch, h.ns.Dir, h.meta.EmbeddingModel, model)
}

// Ensure records model and dimension on first write and initializes the store.
func (h *Handle) Ensure(ctx context.Context, model string, dimension int) error {
	if err := h.CheckModel(model); err != nil {
		return err
	}
	if h.meta != nil {
		if h.meta.Dimension != dimension {
			return &domain.StoreError{Namespace: h.ns.Dir, Op: "init",
				Err: fmt.Errorf("vector dimension mismatch: namespace has %d, got %d", h.meta.Dimension, dimension)}
		}
		return nil
	}
	if err := h.store.Init(ctx, dimension); err != nil {
		return &domain.StoreError{Namespace: h.ns.Dir, Op: "init", Err: err}
	}
	h.meta = &Meta{
		Version:        1,
		Category:       h.ns.Key,
		Store:          h.router.storeKind,
		EmbeddingModel: model,
		Dimension:      dimension,
	}
	if err := saveMeta(h.ns.Path, h.meta); err != nil {
		return &domain.StoreError{Namespace: h.ns.Dir, Op: "write metadata", Err: err}
	}
	h.router.logger.Info("namespace created", "category", h.ns.Key, "embedding_model", model, "dimension", dimension)
	return nil
}

// Touch refreshes the chunk count in the namespace metadata.
func (h *Handle) Touch(ctx context.Context) error {
	if h.meta == nil {
		return nil
	}
	n, err := h.store.Count(ctx)
	if err != nil {
		return &domain.StoreError{Namespace: h.ns.Dir, Op: "count", Err: err}
	}
	h.meta.Chunks = n
	if err := saveMeta(h.ns.Path, h.meta); err != nil {
		return &domain.StoreError{Namespace: h.ns.Dir, Op: "write metadata", Err: err}
	}
	return nil
}

// Release closes the store and unlocks the namespace.
func (h *Handle) Release() error {
	var err error
	if h.store != nil {
		err = h.store.Close()
		h.store = nil
	}
	if h.unlock != nil {
		h.unlock()
		h.unlock = nil
	}
	return err
}
