package main

import (
	"github.com/akolanti/StudyRAG/internal/rag/prompts"
	"github.com/spf13/cobra"
)

var (
	askLevel string
	askNotes string

	genTool  string
	genTopic string
	genLevel string
	genNotes string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from your notes",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run a study tool against your notes",
	Long: `Generates revision material for a topic with one of the study tools.
Run "studyrag tools" for the list.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	askCmd.Flags().StringVarP(&askLevel, "level", "l", string(prompts.DefaultLevel), "qualification level (AS Level or A2 Level)")
	askCmd.Flags().StringVar(&askNotes, "notes", "", "extra notes to include")

	generateCmd.Flags().StringVarP(&genTool, "tool", "t", string(prompts.AskQuestion), "study tool id")
	generateCmd.Flags().StringVar(&genTopic, "topic", "", "topic or question")
	generateCmd.Flags().StringVarP(&genLevel, "level", "l", string(prompts.DefaultLevel), "qualification level (AS Level or A2 Level)")
	generateCmd.Flags().StringVar(&genNotes, "notes", "", "extra notes to include")
	_ = generateCmd.MarkFlagRequired("topic")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(generateCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	svc, err := ragFor(cmd)
	if err != nil {
		return err
	}
	answer, err := svc.Answer(cmd.Context(), args[0], askLevel, askNotes)
	if err != nil {
		return err
	}
	cmd.Println(answer)
	return nil
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	tool := prompts.ToolID(genTool)
	if _, err := prompts.Lookup(tool); err != nil {
		return err
	}
	svc, err := ragFor(cmd)
	if err != nil {
		return err
	}
	out, err := svc.Generate(cmd.Context(), tool, genTopic, genLevel, genNotes)
	if err != nil {
		return err
	}
	cmd.Println(out)
	return nil
}
