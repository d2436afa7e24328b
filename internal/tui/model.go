package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vergirag/internal/domain"
	"vergirag/internal/service"
	"vergirag/internal/summarizer"
)

// AnswerPort is the TUI-facing subset of the retrieval service.
type AnswerPort interface {
	Answer(ctx context.Context, query, template, model, category string) (domain.Answer, error)
}

// Choice is a selectable category.
type Choice struct {
	Key   string
	Label string
}

// Config holds what the user can pick from while querying.
type Config struct {
	Template   string
	Models     []string
	Categories []Choice
}

type answerMsg struct {
	query  string
	answer domain.Answer
	err    error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	service   AnswerPort
	ranker    *summarizer.FrequencySummarizer
	cfg       Config
	model     int
	category  int
	input     textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	answer    *domain.Answer
	status    string
	cursor    int
	ready     bool
	loading   bool
	lastQuery string
}

// New creates a new TUI model instance.
func New(svc AnswerPort, cfg Config) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Sorunuzu yazın ve Enter'a basın"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	vp := viewport.New(0, 0)
	return Model{
		service:  svc,
		ranker:   summarizer.NewFrequencySummarizer(),
		cfg:      cfg,
		input:    ti,
		viewport: vp,
		spinner:  sp,
		status:   "Tab: kategori, Shift+Tab: model, ↑/↓: kaynaklar, Esc: çıkış",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) currentModel() string {
	if len(m.cfg.Models) == 0 {
		return ""
	}
	return m.cfg.Models[m.model]
}

func (m Model) currentCategory() Choice {
	if len(m.cfg.Categories) == 0 {
		return Choice{}
	}
	return m.cfg.Categories[m.category]
}

func (m Model) ask(query string) tea.Cmd {
	tpl, model, category := m.cfg.Template, m.currentModel(), m.currentCategory().Key
	return func() tea.Msg {
		ans, err := m.service.Answer(context.Background(), query, tpl, model, category)
		return answerMsg{query: query, answer: ans, err: err}
	}
}

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2
		totalFooterLines := 1
		reserved := totalHeaderLines + totalFooterLines + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil
	case answerMsg:
		m.loading = false
		if msg.err != nil {
			m.status = "Hata: " + msg.err.Error()
			m.answer = nil
		} else {
			ans := msg.answer
			m.answer = &ans
			m.cursor = 0
			m.lastQuery = msg.query
			m.status = "⏱ İşlem süresi: " + service.FormatElapsed(ans.Elapsed)
		}
		m.viewport.SetContent(m.renderAnswer())
		m.viewport.GotoTop()
		return m, nil
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.loading {
				m.loading = true
				m.status = "Yanıt oluşturuluyor..."
				return m, tea.Batch(m.spinner.Tick, m.ask(q))
			}
			return m, nil
		case "tab":
			if len(m.cfg.Categories) > 0 {
				m.category = (m.category + 1) % len(m.cfg.Categories)
			}
			return m, nil
		case "shift+tab":
			if len(m.cfg.Models) > 0 {
				m.model = (m.model + 1) % len(m.cfg.Models)
			}
			return m, nil
		case "down":
			if m.answer != nil && len(m.answer.Sources) > 0 {
				m.cursor = (m.cursor + 1) % len(m.answer.Sources)
				m.viewport.SetContent(m.renderAnswer())
				return m, nil
			}
		case "up":
			if m.answer != nil && len(m.answer.Sources) > 0 {
				m.cursor = (m.cursor - 1 + len(m.answer.Sources)) % len(m.answer.Sources)
				m.viewport.SetContent(m.renderAnswer())
				return m, nil
			}
		case "pgdown", "pgup":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and current answer.
func (m Model) View() string {
	if !m.ready {
		return "Yükleniyor..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Vergi Mevzuatı Asistanı")
	selection := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(
		fmt.Sprintf("Kategori: %s  |  Model: %s", m.currentCategory().Label, m.currentModel()))
	input := queryBoxStyle.Render(m.input.View())
	status := m.status
	if m.loading {
		status = m.spinner.View() + " " + status
	}
	status = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + selection + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderAnswer() string {
	if m.answer == nil {
		return "Henüz yanıt yok."
	}
	width := max(10, m.viewport.Width-4)
	var b strings.Builder
	b.WriteString(answerStyle.Width(width).Render(m.answer.Text))
	if len(m.answer.Sources) == 0 {
		return b.String()
	}
	src := m.answer.Sources[m.cursor]
	b.WriteString("\n\n")
	b.WriteString(sourceTitleStyle.Render(fmt.Sprintf("Kaynak %d/%d  %s  skor=%.3f",
		m.cursor+1, len(m.answer.Sources), src.Label, src.Score)))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Width(width).Render(m.highlightBestSentence(src.Content)))
	return b.String()
}

func (m Model) highlightBestSentence(text string) string {
	sentences, best := m.ranker.BestSentence(text, m.lastQuery)
	if len(sentences) == 0 {
		return text
	}
	out := make([]string, len(sentences))
	for i, s := range sentences {
		if i == best {
			s = highlightStyle.Render(s)
		}
		out[i] = s
	}
	return strings.Join(out, " ")
}

var (
	resultBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	answerStyle      = lipgloss.NewStyle()
	sourceTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
)
