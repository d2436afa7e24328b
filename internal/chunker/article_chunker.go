package chunker

import (
	"strings"

	"vergirag/internal/domain"
)

// Article markers are matched case-sensitively against the start of a
// trimmed line. "madde" or "Madde:" spelled any other way is not a marker.
var articleMarkers = []string{"Madde", "MADDE"}

// ArticleChunker splits legal text into one chunk per article ("Madde N").
// Lines before the first article marker have no article number and are
// dropped.
type ArticleChunker struct{}

func NewArticleChunker() *ArticleChunker { return &ArticleChunker{} }

// IsArticleStart reports whether a trimmed line opens a new article.
func IsArticleStart(line string) bool {
	for _, m := range articleMarkers {
		if strings.HasPrefix(line, m) {
			return true
		}
	}
	return false
}

func (c *ArticleChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	var (
		chunks []domain.Chunk
		open   []string
	)
	emit := func() {
		if len(open) == 0 {
			return
		}
		chunks = append(chunks, domain.Chunk{
			SourcePath: document.Path,
			Text:       strings.Join(open, "\n"),
		})
		open = nil
	}
	for _, raw := range strings.Split(document.Content, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case IsArticleStart(line):
			emit()
			open = []string{line}
		case open != nil:
			open = append(open, line)
		}
	}
	emit()
	return chunks, nil
}
