package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vergirag/internal/domain"
	"vergirag/internal/service"
	"vergirag/internal/summarizer"
)

var (
	queryCategory string
	queryModel    string
	queryJSON     bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question about a tax category",
	Long: `Retrieves the best-matching articles from the category namespace and
asks the selected model to answer from them only. When nothing matches, the
model is not called.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	categoryFlag(queryCmd, &queryCategory)
	queryCmd.Flags().StringVarP(&queryModel, "model", "m", "", "generation model (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	model := queryModel
	if model == "" {
		model = current.cfg.LLM.DefaultModel
	}
	question := strings.Join(args, " ")
	// An empty category still answers without the model, so this only warns.
	if err := current.checkLLM(ctx); err != nil {
		current.logger.Warn("model server check failed", "error", err)
	}

	ans, err := current.retriever.Answer(ctx, question, current.template, model, resolveCategory(queryCategory))
	if err != nil {
		return err
	}
	if queryJSON {
		data, err := json.MarshalIndent(ans, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	printAnswer(cmd, ans)
	return nil
}

func printAnswer(cmd *cobra.Command, ans domain.Answer) {
	cmd.Println(ans.Text)
	cmd.Println()
	if len(ans.Sources) > 0 {
		preview := summarizer.NewFrequencySummarizer()
		cmd.Println("Sources:")
		for i, s := range ans.Sources {
			cmd.Printf("  [%d] %s (%.3f)\n", i+1, s.Label, s.Score)
			if text, err := preview.Summarize(s.Content, 2); err == nil && text != "" {
				cmd.Printf("      %s\n", text)
			}
		}
		cmd.Println()
	}
	cmd.Printf("İşlem süresi: %s (%s)\n", service.FormatElapsed(ans.Elapsed), ans.Model)
}
