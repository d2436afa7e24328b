// Package summarizer ranks the sentences of an article, either by overall
// word frequency (short previews) or by overlap with a query (highlighting
// the passage that matched).
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)
	sentenceRe   = regexp.MustCompile(`(?s)[^.!?;:]+(?:[.!?;:]+|$)`)
)

// FrequencySummarizer ranks sentences by word frequency (stopwords filtered).
type FrequencySummarizer struct {
	stopwords map[string]struct{}
}

// NewFrequencySummarizer creates a frequency-based sentence ranker summarizer.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{stopwords: defaultStopwords()}
}

// Sentences splits text into trimmed, non-empty sentences. Newlines inside
// an article are treated as spaces.
func Sentences(text string) []string {
	flat := strings.Join(strings.Fields(text), " ")
	var out []string
	for _, s := range sentenceRe.FindAllString(flat, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Summarize returns the maxSentences highest-ranked sentences of text in
// their original order.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 2
	}
	sentences := Sentences(text)
	if len(sentences) == 0 {
		return strings.TrimSpace(text), nil
	}
	if len(sentences) <= maxSentences {
		return strings.Join(sentences, " "), nil
	}

	freq := map[string]float64{}
	tokenized := make([][]string, len(sentences))
	for i, sent := range sentences {
		tokenized[i] = s.tokens(sent)
		for _, tok := range tokenized[i] {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i, toks := range tokenized {
		sscore := 0.0
		for _, tok := range toks {
			sscore += freq[tok]
		}
		if l := float64(len(toks)); l > 0 {
			sscore /= math.Sqrt(l)
		}
		scores[i] = pair{i, sscore}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " "), nil
}

// BestSentence returns the sentences of text and the index of the one that
// overlaps query the most (Ochiai coefficient over distinct tokens). The
// index is -1 when nothing overlaps.
func (s *FrequencySummarizer) BestSentence(text, query string) ([]string, int) {
	sentences := Sentences(text)
	q := s.tokenSet(query)
	best, bestScore := -1, 0.0
	if len(q) == 0 {
		return sentences, best
	}
	for i, sent := range sentences {
		if score := ochiai(q, s.tokenSet(sent)); score > bestScore {
			best, bestScore = i, score
		}
	}
	return sentences, best
}

func (s *FrequencySummarizer) tokens(text string) []string {
	raw := tokenPattern.FindAllString(cases.Lower(language.Turkish).String(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := s.stopwords[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}

func (s *FrequencySummarizer) tokenSet(text string) map[string]struct{} {
	toks := s.tokens(text)
	m := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		m[t] = struct{}{}
	}
	return m
}

// ochiai is |A∩B| / sqrt(|A||B|).
func ochiai(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range b {
		if _, ok := a[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(a))*float64(len(b)))
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
