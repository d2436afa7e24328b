// Package llm holds the language-model boundary: the closed set of
// generation models, validation of user-selected names, and a retrying
// wrapper around any domain.Generator.
package llm

import (
	"fmt"
	"strings"

	"vergirag/internal/domain"
)

// Model is a generation model from the allow-list.
type Model string

const (
	Gemma2_2B Model = "gemma2:2b"
	Gemma2_9B Model = "gemma2:9b"
	Mistral7B Model = "mistral:7b"
)

// DefaultModel is selected when the caller does not pick one.
const DefaultModel = Gemma2_2B

// Models lists the allow-list in display order.
var Models = []Model{Gemma2_2B, Gemma2_9B, Mistral7B}

func (m Model) String() string { return string(m) }

// ParseModel validates name against allowed, or against Models when
// allowed is empty. An empty name selects DefaultModel.
func ParseModel(name string, allowed ...Model) (Model, error) {
	if len(allowed) == 0 {
		allowed = Models
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = string(allowed[0])
		if contains(allowed, DefaultModel) {
			name = string(DefaultModel)
		}
	}
	for _, m := range allowed {
		if string(m) == name {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q (allowed: %s)", domain.ErrUnsupportedModel, name, joinModels(allowed))
}

func contains(ms []Model, m Model) bool {
	for _, x := range ms {
		if x == m {
			return true
		}
	}
	return false
}

func joinModels(ms []Model) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = string(m)
	}
	return strings.Join(parts, ", ")
}
