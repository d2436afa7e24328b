package hashing

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vergirag/internal/domain"
)

// DefaultDimension is the vector size used when none is configured.
const DefaultDimension = 512

var _ domain.Embedder = (*Embedder)(nil)

// Embedder is an offline term-frequency embedder. Tokens are hashed into a
// fixed number of buckets, so vectors do not depend on the corpus and stay
// comparable across ingestion runs. Lowercasing follows Turkish rules
// ("I" -> "ı", "İ" -> "i").
type Embedder struct {
	dimension    int
	tokenPattern *regexp.Regexp
	lang         language.Tag
	stopwords    map[string]struct{}
}

// NewEmbedder creates a hashing embedder with the given dimension.
func NewEmbedder(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{
		dimension:    dimension,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
		lang:         language.Turkish,
		stopwords:    defaultStopwords(),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "hashing" }

// Model encodes the dimension so namespaces built with another size are
// rejected.
func (e *Embedder) Model() string { return fmt.Sprintf("hashing-%d", e.dimension) }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed computes the L2-normalized hashed term-frequency vector of text.
func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, e.dimension)
	tokens := e.Tokenize(text)
	if len(tokens) == 0 {
		return vec, nil
	}
	for _, tok := range tokens {
		vec[e.bucket(tok)]++
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

// Tokenize lowercases text with Turkish casing and drops stopwords.
func (e *Embedder) Tokenize(text string) []string {
	// A Caser keeps state between calls, so each call gets its own.
	raw := e.tokenPattern.FindAllString(cases.Lower(e.lang).String(text), -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (e *Embedder) bucket(token string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum32() % uint32(e.dimension))
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"ve", "veya", "ile", "bu", "şu", "o", "bir", "da", "de", "ki", "mi", "mı", "mu", "mü",
		"için", "gibi", "kadar", "daha", "en", "çok", "her", "ise", "ya", "yani", "olan", "olarak",
		"ne", "nasıl", "neden", "hangi", "nedir", "midir", "mıdır", "göre", "ait", "dair",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
