package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"vergirag/internal/config"
)

var clearScope string

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the staging directory or every namespace",
	Long: `Deletes the staging directory and recreates it empty. With
--scope all, every category namespace is wiped as well.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().StringVar(&clearScope, "scope", "", "what to clear: staging or all (default from config)")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	scope := clearScope
	if scope == "" {
		scope = current.cfg.Clear.Scope
	}
	switch scope {
	case config.ScopeStaging, config.ScopeAll:
	default:
		return fmt.Errorf("unknown scope %q (want %s or %s)", scope, config.ScopeStaging, config.ScopeAll)
	}

	if err := current.staging.Clear(); err != nil {
		return fmt.Errorf("clear staging: %w", err)
	}
	cmd.Printf("Cleared %s\n", current.staging.Dir)
	if scope == config.ScopeAll {
		if err := current.router.ClearAll(ctx); err != nil {
			return err
		}
		cmd.Printf("Cleared %d namespaces in %s\n", len(current.router.Categories()), current.cfg.Paths.IndexRoot)
	}
	return nil
}
