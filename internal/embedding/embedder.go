package embedding

import "vergirag/internal/domain"

// Embedder converts free text into a numeric vector representation.
// Implementations must produce vectors of a fixed dimension for a given
// model so that vectors written by ingestion and queries stay comparable.
type Embedder = domain.Embedder
