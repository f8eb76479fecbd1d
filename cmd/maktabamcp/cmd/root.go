// Package cmd provides the CLI commands for MaktabaMCP.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/maktabalab/maktabamcp/internal/logging"
	"github.com/maktabalab/maktabamcp/pkg/version"
)

var (
	debugMode      bool
	dataDirFlag    string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the maktabamcp CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maktabamcp",
		Short: "Hybrid search MCP server for hadith collections",
		Long: `MaktabaMCP serves multilingual hadith collections to AI assistants
over the Model Context Protocol.

Queries are routed by intent (reference, narrator, phrase, thematic) and
answered with hybrid retrieval: full-text matching fused with semantic
embeddings, scored per signal.

Run 'maktabamcp index' to build the corpus, then 'maktabamcp serve'.`,
		Version:       version.Version,
		// Errors are formatted once, by main.
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			// Default run serves MCP over stdio. Nothing may be written
			// to stdout before the server starts; the protocol owns it.
			return runServe(cmd.Context(), serveOptions{transport: "stdio"})
		},
	}

	cmd.SetVersionTemplate("maktabamcp version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to the data dir")
	cmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Override the data directory")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
