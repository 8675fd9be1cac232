// Package main provides the kb CLI for managing the CT room knowledge base.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/radpushman/ct-knowledge/internal/app"
	"github.com/radpushman/ct-knowledge/internal/config"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "kb",
	Short: "CT room knowledge base tool",
	Long: `CLI for the CT room staff knowledge base.

Documents live in the local data directory (KB_DATA_DIR) and can be
backed up to and restored from a GitHub repository.

Environment variables:
  KB_DATA_DIR     Data directory (default: .)
  GITHUB_TOKEN    GitHub token for backup (optional)
  GITHUB_REPO     Backup repository as owner/name
  OPENAI_API_KEY  OpenAI API key for answers and embeddings (optional)
  QDRANT_HOST     Qdrant hostname for semantic search (optional)`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default: $KB_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		addCmd, listCmd, showCmd, updateCmd, deleteCmd,
		searchCmd, askCmd, statsCmd, seedCmd, importCmd,
		backupCmd, pullCmd, restoreCmd, indexCmd, repoCmd,
	)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// open loads the configuration and wires the knowledge base.
func open(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	return app.New(cmd.Context(), cfg, logger)
}

// withApp runs fn against an opened knowledge base and closes it afterwards.
func withApp(fn func(cmd *cobra.Command, args []string, kb *app.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		kb, err := open(cmd)
		if err != nil {
			return err
		}
		defer kb.Close()
		return fn(cmd, args, kb)
	}
}
