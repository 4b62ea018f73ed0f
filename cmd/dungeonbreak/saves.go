package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/dungeonbreak/internal/errors"
	"github.com/KirkDiggler/dungeonbreak/internal/orchestrators/session"
	"github.com/KirkDiggler/dungeonbreak/internal/redis"
	"github.com/KirkDiggler/dungeonbreak/internal/repositories/saves"
)

var (
	savesPlayer string
	verifyDelete bool
)

var savesCmd = &cobra.Command{
	Use:   "saves",
	Short: "Manage save slots",
	Long:  `Saves lists and deletes stored runs. Saves persist across processes only when DUNGEONBREAK_REDIS_ADDR is set.`,
}

var savesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a player's saves",
	Args:  cobra.NoArgs,
	RunE:  runSavesList,
}

var savesDeleteCmd = &cobra.Command{
	Use:   "delete <save_id>",
	Short: "Delete a save",
	Args:  cobra.ExactArgs(1),
	RunE:  runSavesDelete,
}

var savesVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check every stored save can be resumed",
	Long: `Verify scans the redis save keys, decodes each one and re-hashes its
snapshot. With --delete the failing keys are removed.`,
	Args: cobra.NoArgs,
	RunE: runSavesVerify,
}

func init() {
	savesVerifyCmd.Flags().BoolVar(&verifyDelete, "delete", false, "delete saves that fail verification")
	savesCmd.PersistentFlags().StringVar(&savesPlayer, "player", "", "player name (defaults to DUNGEONBREAK_PLAYER_NAME)")
	savesCmd.AddCommand(savesListCmd)
	savesCmd.AddCommand(savesDeleteCmd)
	savesCmd.AddCommand(savesVerifyCmd)
}

func runSavesList(cmd *cobra.Command, _ []string) error {
	svc, err := newSessionService(cmd.Context())
	if err != nil {
		return err
	}
	out, err := svc.ListSaves(cmd.Context(), &session.ListSavesInput{PlayerName: savesPlayer})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SAVE ID\tTURN\tSEED\tCREATED\tEXPIRES")
	for _, save := range out.Saves {
		expires := "-"
		if save.ExpiresAt != nil {
			expires = save.ExpiresAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
			save.SaveID, save.Turn, save.Seed, save.CreatedAt.Format("2006-01-02 15:04"), expires)
	}
	return w.Flush()
}

func runSavesDelete(cmd *cobra.Command, args []string) error {
	svc, err := newSessionService(cmd.Context())
	if err != nil {
		return err
	}
	if _, err := svc.DeleteSave(cmd.Context(), &session.DeleteSaveInput{SaveID: args[0]}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	return nil
}

func runSavesVerify(cmd *cobra.Command, _ []string) error {
	if cfg.RedisAddr == "" {
		return errors.FailedPrecondition("saves verify needs DUNGEONBREAK_REDIS_ADDR")
	}
	client, err := redis.NewClient(cfg.RedisAddr, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close() // nolint:errcheck // safe to ignore in cleanup
	}()
	if err := redis.Ping(cmd.Context(), client); err != nil {
		return err
	}

	report, err := saves.VerifyRedis(cmd.Context(), client, verifyDelete)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, problem := range report.Problems {
		fmt.Fprintf(out, "%s: %s\n", problem.Key, problem.Reason)
	}
	fmt.Fprintf(out, "checked %d saves, %d failed\n", report.Checked, len(report.Problems))
	if verifyDelete && len(report.Problems) > 0 {
		fmt.Fprintf(out, "deleted %d saves\n", len(report.Problems))
	}
	return nil
}
