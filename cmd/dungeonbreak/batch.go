package main

import (
	"github.com/spf13/cobra"

	"github.com/KirkDiggler/dungeonbreak/internal/pkg/clock"
	"github.com/KirkDiggler/dungeonbreak/internal/simulation"
)

var (
	batchSeeds   []int64
	batchTurns   int
	batchWorkers int

	longRunSeeds   []int64
	longRunWindows []int
	longRunBudget  float64
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run a balance batch and print JSON metrics",
	Long: `Batch plays one scripted run per seed in parallel and prints per-run
metrics plus the aggregate. With no seeds the canonical seed is used.`,
	RunE: runBatch,
}

var longRunCmd = &cobra.Command{
	Use:   "longrun",
	Short: "Run the long-run balance suite and print JSON metrics",
	Long: `Longrun plays a batch for every turn window and reports p95 turn time
against the performance budget plus action types no run ever used.`,
	RunE: runLongRun,
}

func init() {
	batchCmd.Flags().Int64SliceVar(&batchSeeds, "seeds", nil, "seeds to run (default canonical seed)")
	batchCmd.Flags().IntVar(&batchTurns, "turns", simulation.DefaultTurns, "turns per run")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "parallel runs (defaults to DUNGEONBREAK_BATCH_WORKERS)")

	longRunCmd.Flags().Int64SliceVar(&longRunSeeds, "seeds", nil, "seeds to run (default canonical seed)")
	longRunCmd.Flags().IntSliceVar(&longRunWindows, "windows", simulation.DefaultWindows, "turn windows")
	longRunCmd.Flags().Float64Var(&longRunBudget, "budget", simulation.DefaultPerformanceBudgetMs, "p95 turn budget in milliseconds")
	longRunCmd.Flags().IntVar(&batchWorkers, "workers", 0, "parallel runs (defaults to DUNGEONBREAK_BATCH_WORKERS)")
}

func newHarness(cmd *cobra.Command) (*simulation.Harness, error) {
	workers := cfg.BatchWorkers
	if cmd.Flags().Changed("workers") {
		workers = batchWorkers
	}
	return simulation.NewHarness(&simulation.Config{
		Catalog: catalog,
		Clock:   clock.New(),
		Workers: workers,
	})
}

func runBatch(cmd *cobra.Command, _ []string) error {
	harness, err := newHarness(cmd)
	if err != nil {
		return err
	}
	metrics, err := harness.Batch(cmd.Context(), batchSeeds, batchTurns)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), metrics)
}

func runLongRun(cmd *cobra.Command, _ []string) error {
	harness, err := newHarness(cmd)
	if err != nil {
		return err
	}
	metrics, err := harness.LongRun(cmd.Context(), longRunSeeds, longRunWindows, longRunBudget)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), metrics)
}
