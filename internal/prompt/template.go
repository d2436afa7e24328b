// Package prompt renders question-answering prompts from templates with
// {context} and {question} placeholders.
package prompt

import (
	"fmt"
	"os"
	"strings"

	"vergirag/internal/domain"
)

const (
	ContextMarker  = "{context}"
	QuestionMarker = "{question}"
)

// Disclaimer is the sentence the model is asked to end every answer with.
const Disclaimer = "Kesin ve net bilgi için bir vergi uzmanına danışılmalıdır."

// DefaultTemplate asks for a Turkish answer grounded only in the context,
// with article citations and the disclaimer.
const DefaultTemplate = `
Aşağıdaki bağlamdan başka hiçbir bilgiye dayanmadan, soruya Türkçe dilinde doğru, kesin ve bağlama uygun bir cevap ver. Cevabında aşağıdaki kurallara uy:

1. Sorunun bağlamda açıkça yer alan cevabını ver. Eğer bağlamda yoksa "Bağlamda bu bilgi yer almıyor." şeklinde belirt.
2. Cevap net bir şekilde yapılandırılmış olmalı ve gerektiğinde madde işaretleri veya numaralandırma kullanılmalıdır.
3. Cevabı bulduğun madde veya maddelerin numarasını açıkça belirt ve örneğin şu şekilde formatla: "(Kaynak: Madde X)".
4. Eğer bağlamda bulunan bilgiler birden fazla seçeneğe yol açıyorsa, en olası doğru seçeneği belirt ve kısa bir gerekçe ekle.
5. Her cevabın sonunda "` + Disclaimer + `" ifadesini ekle.

---

Bağlam:
{context}

---

Soru:
{question}

---

Cevap:
`

// Template is a validated prompt template.
type Template struct {
	text string
}

// Parse validates that text contains both placeholders.
func Parse(text string) (Template, error) {
	var missing []string
	for _, m := range []string{ContextMarker, QuestionMarker} {
		if !strings.Contains(text, m) {
			missing = append(missing, m)
		}
	}
	if len(missing) > 0 {
		return Template{}, fmt.Errorf("%w: missing %s", domain.ErrInvalidTemplate, strings.Join(missing, ", "))
	}
	return Template{text: text}, nil
}

// Load reads a template file, or returns DefaultTemplate when path is empty.
func Load(path string) (Template, error) {
	if path == "" {
		return Parse(DefaultTemplate)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("read prompt template: %w", err)
	}
	return Parse(string(data))
}

// Render substitutes both placeholders in a single pass, so braces inside
// the context or question are never expanded again.
func (t Template) Render(context, question string) string {
	return strings.NewReplacer(ContextMarker, context, QuestionMarker, question).Replace(t.text)
}

func (t Template) String() string { return t.text }
