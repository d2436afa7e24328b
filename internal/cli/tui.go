package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"vergirag/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Ask questions interactively",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	if err := current.checkLLM(cmd.Context()); err != nil {
		return err
	}
	m := tui.New(current.retriever, current.tuiConfig())
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	return err
}
