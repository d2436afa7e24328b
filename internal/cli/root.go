// Package cli is the command-line surface: cobra commands that wire the
// configured components and drive ingestion, querying and housekeeping.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"vergirag/internal/config"
)

var (
	configPath string
	verbose    bool

	// current is rebuilt from configuration before every command.
	current *app
)

var rootCmd = &cobra.Command{
	Use:   "vergirag",
	Short: "Question answering over Turkish tax law",
	Long: `vergirag indexes Turkish tax-law PDFs article by article ("Madde")
into one namespace per tax category and answers questions from the
retrieved articles with a local language model.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config (default ./config.yaml or ~/.config/vergirag/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	var (
		cfg *config.AppConfig
		err error
	)
	if configPath == "" {
		var path string
		cfg, path, err = config.LoadDefault()
		if err == nil {
			logger.Debug("config loaded", "path", path)
		}
	} else {
		cfg, err = config.Load(configPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	current = a
	return nil
}

// categoryFlag registers a --category/-c flag defaulting to the first
// configured category when left empty.
func categoryFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "category", "c", "", "tax category key or label (default: first configured category)")
}

func resolveCategory(name string) string {
	if name != "" {
		return name
	}
	return current.router.Categories()[0].Key
}
