package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var (
	watchCategory string
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Ingest PDFs as they land in the staging directory",
	Long: `Watches the staging directory and ingests every PDF that is created
or rewritten there into the selected category. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	categoryFlag(watchCmd, &watchCategory)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", time.Second, "quiet period before a changed file is ingested")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := current.staging.Ensure(); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(current.staging.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", current.staging.Dir, err)
	}
	category := resolveCategory(watchCategory)
	cmd.Printf("Watching %s for PDFs (category %s)\n", current.staging.Dir, category)

	ingest := func(path string) {
		report, err := current.ingestor.Ingest(ctx, category, []string{path})
		if err != nil {
			current.logger.Error("ingest failed", "path", path, "error", err)
			return
		}
		printReport(cmd, report)
	}
	return watchPDFs(ctx, w, watchDebounce, ingest)
}

// watchPDFs calls ingest once per .pdf file after it has been quiet for
// debounce. Ingestion runs serially in the watching goroutine.
func watchPDFs(ctx context.Context, w *fsnotify.Watcher, debounce time.Duration, ingest func(string)) error {
	var (
		mu      sync.Mutex
		pending = map[string]*time.Timer{}
	)
	ready := make(chan string, 16)
	defer func() {
		mu.Lock()
		for _, t := range pending {
			t.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-ready:
			ingest(path)
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !strings.HasSuffix(ev.Name, ".pdf") || strings.HasPrefix(filepath.Base(ev.Name), ".") {
				continue
			}
			path := ev.Name
			mu.Lock()
			if t, ok := pending[path]; ok {
				t.Reset(debounce)
			} else {
				pending[path] = time.AfterFunc(debounce, func() {
					mu.Lock()
					delete(pending, path)
					mu.Unlock()
					select {
					case ready <- path:
					case <-ctx.Done():
					}
				})
			}
			mu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher: %w", err)
		}
	}
}
