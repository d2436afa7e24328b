package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"vergirag/internal/domain"
)

var ingestCategory string

var ingestCmd = &cobra.Command{
	Use:   "ingest [file.pdf ...]",
	Short: "Index staged PDFs into a category",
	Long: `Extracts the given PDFs (or every PDF in the staging directory when
none are given), splits them into articles and inserts the articles the
category namespace does not already hold.`,
	RunE: runIngest,
}

func init() {
	categoryFlag(ingestCmd, &ingestCategory)
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	category := resolveCategory(ingestCategory)

	var (
		report domain.IngestReport
		err    error
	)
	if len(args) == 0 {
		report, err = current.ingestor.IngestDir(ctx, category, current.staging.Dir)
	} else {
		report, err = current.ingestor.Ingest(ctx, category, args)
	}
	if errors.Is(err, domain.ErrNoDocuments) {
		cmd.Printf("No PDF documents found in %s.\n", current.staging.Dir)
		return nil
	}
	if err != nil {
		return err
	}
	printReport(cmd, report)
	return nil
}

func printReport(cmd *cobra.Command, r domain.IngestReport) {
	for _, s := range r.Skipped {
		cmd.Printf("Skipped %s: %v\n", s.Path, s.Err)
	}
	cmd.Printf("Number of existing documents in %s: %d\n", r.Namespace, r.Existing)
	if r.Inserted > 0 {
		cmd.Printf("Adding new documents: %d\n", r.Inserted)
	} else {
		cmd.Println("No new documents to add")
	}
	if r.Duplicates > 0 {
		cmd.Printf("Already indexed: %d\n", r.Duplicates)
	}
}
