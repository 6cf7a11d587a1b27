package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/akolanti/StudyRAG/internal/rag/ingest"
	"github.com/spf13/cobra"
)

var ingestReplace bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Add documents to the notes store",
	Long: `Extracts, chunks and embeds each file in turn. Chunks whose embedding
fails are skipped and counted; a vector store failure stops the file.

With --replace, records already stored under the same file name are removed
first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestReplace, "replace", "r", false, "replace records stored under the same file name")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	svc, err := ragFor(cmd)
	if err != nil {
		return err
	}

	var failed []error
	for _, path := range args {
		name := filepath.Base(path)
		progress := func(stage ingest.Stage) {
			cmd.Printf("  %s: %s\n", name, stage)
		}

		report, err := svc.IngestFile(cmd.Context(), path, name, progress, ingest.WithReplace(ingestReplace))
		if err != nil {
			cmd.PrintErrf("%s: %v\n", name, err)
			failed = append(failed, fmt.Errorf("%s: %w", name, err))
			continue
		}
		cmd.Printf("%s: %d chunks stored, %d skipped", name, report.ChunksStored, report.ChunksSkipped)
		if report.Replaced > 0 {
			cmd.Printf(", %d replaced", report.Replaced)
		}
		cmd.Println()
	}
	return errors.Join(failed...)
}
