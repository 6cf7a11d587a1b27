package main

import (
	"github.com/akolanti/StudyRAG/internal/rag/prompts"
	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage ingested documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runDocsList,
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Remove every chunk of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsDelete,
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the study tools",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, t := range prompts.Tools() {
			cmd.Printf("%-20s %s\n", t.ID, t.Title)
			cmd.Printf("%-20s %s\n", "", t.Description)
		}
		cmd.Printf("\nLevels: %s, %s\n", prompts.LevelAS, prompts.LevelA2)
	},
}

func init() {
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsDeleteCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(toolsCmd)
}

func runDocsList(cmd *cobra.Command, _ []string) error {
	svc, err := ragFor(cmd)
	if err != nil {
		return err
	}
	names, err := svc.ListDocuments(cmd.Context())
	if err != nil {
		return err
	}
	if len(names) == 0 {
		cmd.Println("No documents ingested.")
		return nil
	}
	for _, n := range names {
		cmd.Println(n)
	}
	return nil
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	svc, err := ragFor(cmd)
	if err != nil {
		return err
	}
	n, err := svc.DeleteDocument(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	cmd.Printf("Deleted %d chunks of %s\n", n, args[0])
	return nil
}
