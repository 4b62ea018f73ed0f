package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/dungeonbreak/internal/errors"
	"github.com/KirkDiggler/dungeonbreak/internal/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay <fixture>...",
	Short: "Replay determinism fixtures and print their snapshot hashes",
	Long: `Replay runs each YAML or JSON fixture on a fresh engine and prints
"<fixture_id> <sha256>". Fixtures that pin expectedSnapshotHash are checked;
any mismatch makes the command exit with status 4 after all fixtures ran.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	runner, err := replay.NewRunner(&replay.Config{Catalog: catalog})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var firstErr error
	for _, path := range args {
		fixture, err := replay.LoadFile(path)
		if err != nil {
			return err
		}

		result, err := runner.Run(cmd.Context(), fixture)
		switch {
		case errors.IsDataLoss(err):
			meta := errors.GetMeta(err)
			fmt.Fprintf(out, "%s %s MISMATCH expected %v\n", result.FixtureID, result.SnapshotHash, meta["expected"])
			slog.Error("Replay hash mismatch",
				"fixture_id", result.FixtureID,
				"expected", meta["expected"],
				"actual", meta["actual"],
			)
			if firstErr == nil {
				firstErr = err
			}
		case err != nil:
			return err
		default:
			fmt.Fprintf(out, "%s %s\n", result.FixtureID, result.SnapshotHash)
		}
	}
	return firstErr
}
