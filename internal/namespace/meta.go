package namespace

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

const metaFile = "namespace.json"

// Meta is persisted next to every namespace's data. Vectors from different
// embedding models are not comparable, so the model recorded on first write
// is enforced on every later write and query.
type Meta struct {
	Version        int    `json:"version"`
	Category       string `json:"category"`
	Store          string `json:"store"`
	EmbeddingModel string `json:"embedding_model"`
	Dimension      int    `json:"dimension"`
	Chunks         int    `json:"chunks"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

func loadMeta(dir string) (*Meta, error) {
	data, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func saveMeta(dir string, m *Meta) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if m.CreatedAt == "" {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, metaFile), data, 0o644)
}
