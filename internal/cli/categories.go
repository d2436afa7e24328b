package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List tax categories and their namespaces",
	Args:  cobra.NoArgs,
	RunE:  runCategories,
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}

func runCategories(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	for _, c := range current.router.Categories() {
		h, err := current.router.Acquire(ctx, c.Key)
		if err != nil {
			return err
		}
		status := "empty"
		if h.Initialized() {
			m := h.Meta()
			status = fmt.Sprintf("%d articles, %s", m.Chunks, m.EmbeddingModel)
		}
		_ = h.Release()
		cmd.Printf("  %-15s %-28s %s\n", c.Key, c.Label, status)
	}
	return nil
}
