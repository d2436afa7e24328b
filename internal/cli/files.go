package cli

import (
	"time"

	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List staged files",
	Args:  cobra.NoArgs,
	RunE:  runFilesList,
}

var filesAddCmd = &cobra.Command{
	Use:   "add [file.pdf ...]",
	Short: "Copy PDFs into the staging directory",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFilesAdd,
}

var filesRmCmd = &cobra.Command{
	Use:   "rm [name]",
	Short: "Remove a staged file",
	Args:  cobra.ExactArgs(1),
	RunE:  runFilesRm,
}

func init() {
	filesCmd.AddCommand(filesAddCmd)
	filesCmd.AddCommand(filesRmCmd)
	rootCmd.AddCommand(filesCmd)
}

func runFilesList(cmd *cobra.Command, _ []string) error {
	files, err := current.staging.List()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		cmd.Printf("No files in %s.\n", current.staging.Dir)
		return nil
	}
	for _, f := range files {
		cmd.Printf("  %-40s %10d  %s\n", f.Name, f.Size, time.Unix(f.ModTime, 0).Format("2006-01-02 15:04"))
	}
	return nil
}

func runFilesAdd(cmd *cobra.Command, args []string) error {
	for _, src := range args {
		dst, err := current.staging.Add(src)
		if err != nil {
			return err
		}
		cmd.Printf("Staged %s\n", dst)
	}
	return nil
}

func runFilesRm(cmd *cobra.Command, args []string) error {
	if err := current.staging.Remove(args[0]); err != nil {
		return err
	}
	cmd.Printf("Removed %s\n", args[0])
	return nil
}
