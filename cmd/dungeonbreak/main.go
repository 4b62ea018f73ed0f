// Package main is the entry point for the dungeonbreak CLI
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/dungeonbreak/internal/config"
	"github.com/KirkDiggler/dungeonbreak/internal/content"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
)

var (
	// set by the root command before any subcommand runs
	cfg     *config.Config
	catalog *content.Catalog
)

var rootCmd = &cobra.Command{
	Use:   "dungeonbreak",
	Short: "Deterministic narrative dungeon crawl",
	Long: `dungeonbreak runs the Escape the Dungeon engine: play a run interactively,
replay determinism fixtures, and run balance simulations.

Settings are read from DUNGEONBREAK_* environment variables. Flags override them.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(longRunCmd)
	rootCmd.AddCommand(savesCmd)
}

func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	cfg = loaded
	slog.SetDefault(cfg.NewLogger(cmd.ErrOrStderr()))

	if cfg.ContentDir != "" {
		catalog, err = content.LoadDir(cfg.ContentDir)
	} else {
		catalog, err = content.Default()
	}
	if err != nil {
		return errors.Wrap(err, "failed to load content")
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(errors.GetCode(err).ExitCode())
	}
}
