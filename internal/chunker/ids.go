package chunker

import (
	"strconv"

	"vergirag/internal/domain"
)

// DefaultPage is the page component of every page key while extraction
// works on whole-document text.
const DefaultPage = "0"

// PageKey returns "{sourcePath}:{page}".
func PageKey(sourcePath, page string) string {
	return sourcePath + ":" + page
}

// ChunkID returns "{pageKey}:{ordinal}".
func ChunkID(pageKey string, ordinal int) string {
	return pageKey + ":" + strconv.Itoa(ordinal)
}

// AssignIDs sets PageKey, Index and ChunkID on chunks in emission order.
// The ordinal restarts at zero whenever the page key differs from the
// previous chunk's, so ids only depend on (source, page, position).
func AssignIDs(chunks []domain.Chunk, page string) []domain.Chunk {
	if page == "" {
		page = DefaultPage
	}
	lastKey := ""
	ordinal := 0
	for i := range chunks {
		key := PageKey(chunks[i].SourcePath, page)
		if i > 0 && key == lastKey {
			ordinal++
		} else {
			ordinal = 0
		}
		chunks[i].PageKey = key
		chunks[i].Index = ordinal
		chunks[i].ChunkID = ChunkID(key, ordinal)
		lastKey = key
	}
	return chunks
}
