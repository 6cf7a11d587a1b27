package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/akolanti/StudyRAG/internal/mcpServer"
	"github.com/akolanti/StudyRAG/internal/rag/ingest"
	"github.com/akolanti/StudyRAG/internal/watcher"
	"github.com/spf13/cobra"
)

var watchDebounce time.Duration

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Long: `Serves the search_notes, list_documents and generate tools over the
Model Context Protocol so an AI assistant can query your notes.

Example client configuration:
  {
    "mcpServers": {
      "studyrag": {
        "command": "/path/to/studyrag",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest documents dropped into a folder",
	Long: `Watches a folder and ingests every supported file created or changed in
it, one at a time. A changed file replaces its earlier chunks.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period before a file is ingested")
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(watchCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	svc, err := ragFor(cmd)
	if err != nil {
		return err
	}
	srv, err := mcpServer.New(svc)
	if err != nil {
		return err
	}
	return srv.Run(cmd.Context())
}

func runWatch(cmd *cobra.Command, args []string) error {
	svc, err := ragFor(cmd)
	if err != nil {
		return err
	}
	ingestDropped := func(ctx context.Context, path string) error {
		name := filepath.Base(path)
		report, err := svc.IngestFile(ctx, path, name, nil, ingest.WithReplace(true))
		if err != nil {
			return err
		}
		cmd.Printf("%s: %d chunks stored, %d skipped\n", name, report.ChunksStored, report.ChunksSkipped)
		return nil
	}

	w, err := watcher.New(args[0], ingestDropped, watchDebounce)
	if err != nil {
		return err
	}
	cmd.Printf("Watching %s (Ctrl+C to stop)\n", args[0])
	return w.Run(cmd.Context())
}
