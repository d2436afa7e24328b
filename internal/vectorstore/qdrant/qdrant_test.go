package qdrant

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vergirag/internal/domain"
	"vergirag/internal/vectorstore"
	"vergirag/internal/vectorstore/storetest"
)

type fakePoint struct {
	vector  []float64
	payload map[string]any
}

type fakeCollection struct {
	size     int
	distance string
	points   map[string]fakePoint
}

// fakeQdrant implements the subset of the Qdrant REST API the client uses.
type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string]*fakeCollection
	apiKeys     []string
}

func newFakeQdrant(t *testing.T) (*fakeQdrant, *httptest.Server) {
	f := &fakeQdrant{collections: map[string]*fakeCollection{}}
	srv := httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(srv.Close)
	return f, srv
}

func writeJSON(w http.ResponseWriter, v any) { _ = json.NewEncoder(w).Encode(v) }

func (f *fakeQdrant) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/collections/"), "/")
	name := parts[0]
	rest := strings.Join(parts[1:], "/")
	col := f.collections[name]

	if rest == "" {
		switch r.Method {
		case http.MethodGet:
			if col == nil {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			writeJSON(w, map[string]any{"result": map[string]any{"config": map[string]any{"params": map[string]any{"vectors": map[string]any{"size": col.size}}}}})
		case http.MethodPut:
			var body struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.collections[name] = &fakeCollection{size: body.Vectors.Size, distance: body.Vectors.Distance, points: map[string]fakePoint{}}
			writeJSON(w, map[string]any{"result": true})
		case http.MethodDelete:
			if col == nil {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			delete(f.collections, name)
			writeJSON(w, map[string]any{"result": true})
		}
		return
	}
	if col == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case rest == "points" && r.Method == http.MethodPut:
		var body struct {
			Points []struct {
				ID      string         `json:"id"`
				Vector  []float64      `json:"vector"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, p := range body.Points {
			if len(p.Vector) != col.size {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			col.points[p.ID] = fakePoint{vector: p.Vector, payload: p.Payload}
		}
		writeJSON(w, map[string]any{"result": map[string]any{"status": "completed"}})
	case rest == "points" && r.Method == http.MethodPost:
		var body struct {
			IDs []string `json:"ids"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		var out []map[string]any
		for _, id := range body.IDs {
			if p, ok := col.points[id]; ok {
				out = append(out, map[string]any{"id": id, "payload": map[string]any{"chunk_id": p.payload["chunk_id"]}})
			}
		}
		writeJSON(w, map[string]any{"result": out})
	case rest == "points/search":
		var body struct {
			Vector []float64 `json:"vector"`
			Limit  int       `json:"limit"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		type hit struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		}
		var hits []hit
		for _, p := range col.points {
			hits = append(hits, hit{Score: fakeScore(col.distance, body.Vector, p.vector), Payload: p.payload})
		}
		sort.Slice(hits, func(i, j int) bool {
			if col.distance == "Euclid" {
				return hits[i].Score < hits[j].Score
			}
			return hits[i].Score > hits[j].Score
		})
		if len(hits) > body.Limit {
			hits = hits[:body.Limit]
		}
		writeJSON(w, map[string]any{"result": hits})
	case rest == "points/count":
		writeJSON(w, map[string]any{"result": map[string]any{"count": len(col.points)}})
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func fakeScore(distance string, a, b []float64) float64 {
	var dot, na, nb, sq float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
		d := a[i] - b[i]
		sq += d * d
	}
	if distance == "Euclid" {
		return math.Sqrt(sq)
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func newTestStorage(t *testing.T, url, distance string) *Storage {
	t.Helper()
	s, err := NewStorage(Config{URL: url, APIKey: "k", Collection: "vergirag_kurumlar", Distance: distance})
	require.NoError(t, err)
	return s
}

func TestStorage_Cosine(t *testing.T) {
	storetest.Run(t, func(t *testing.T) vectorstore.Storage {
		_, srv := newFakeQdrant(t)
		return newTestStorage(t, srv.URL, "")
	})
}

func TestStorage_Euclid(t *testing.T) {
	storetest.Run(t, func(t *testing.T) vectorstore.Storage {
		_, srv := newFakeQdrant(t)
		return newTestStorage(t, srv.URL, "Euclid")
	})
}

func TestNewStorage_Validates(t *testing.T) {
	_, err := NewStorage(Config{Collection: "c"})
	assert.Error(t, err)
	_, err = NewStorage(Config{URL: "http://x"})
	assert.Error(t, err)
	_, err = NewStorage(Config{URL: "http://x", Collection: "c", Distance: "Dot"})
	assert.Error(t, err)
}

func TestPointID_Deterministic(t *testing.T) {
	a := PointID("data/gvk.pdf:0:3")
	assert.Equal(t, a, PointID("data/gvk.pdf:0:3"))
	assert.NotEqual(t, a, PointID("data/gvk.pdf:0:4"))
	assert.Len(t, a, 36)
}

func TestMissingCollectionReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	_, srv := newFakeQdrant(t)
	s := newTestStorage(t, srv.URL, "")

	got, err := s.Exists(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, got)
	res, err := s.Search(ctx, []float64{1}, 3)
	require.NoError(t, err)
	assert.Empty(t, res)
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInit_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	_, srv := newFakeQdrant(t)
	s := newTestStorage(t, srv.URL, "")
	require.NoError(t, s.Init(ctx, 4))

	other := newTestStorage(t, srv.URL, "")
	assert.Error(t, other.Init(ctx, 8))
}

func TestSendsAPIKey(t *testing.T) {
	f, srv := newFakeQdrant(t)
	s := newTestStorage(t, srv.URL, "")
	require.NoError(t, s.Init(context.Background(), 2))
	require.NoError(t, s.Insert(context.Background(), []domain.Chunk{storetest.Chunk("a.pdf", 0, "x")}, [][]float64{{1, 0}}))

	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.apiKeys)
	for _, k := range f.apiKeys {
		assert.Equal(t, "k", k)
	}
}
