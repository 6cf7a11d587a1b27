package main

import (
	"errors"

	"github.com/akolanti/StudyRAG/internal/config"
	"github.com/akolanti/StudyRAG/internal/rag"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
	"github.com/spf13/cobra"
)

var (
	configPath string
	appConfig  *config.AppConfig

	// built on first use; tests put a mock here
	ragService rag.Service
	closeRAG   = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "studyrag",
	Short: "Study assistant for A-Level ICT notes",
	Long: `StudyRAG ingests your ICT notes (PDF, Word, OpenDocument, RTF, text),
embeds them into a vector store and answers questions or generates revision
material grounded in what you uploaded.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(*cobra.Command, []string) { closeRAG() },
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "studyrag.yaml", "path to the YAML config file")
}

func loadConfig(_ *cobra.Command, _ []string) error {
	if appConfig != nil {
		return nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger_i.Init(cfg.Log.Level, cfg.Log.JSON)
	appConfig = cfg
	return nil
}

func ragFor(cmd *cobra.Command) (rag.Service, error) {
	if ragService != nil {
		return ragService, nil
	}
	if appConfig == nil {
		return nil, errors.New("configuration not loaded")
	}
	svc, closer, err := buildRAG(cmd.Context(), appConfig)
	if err != nil {
		return nil, err
	}
	ragService, closeRAG = svc, closer
	return svc, nil
}
