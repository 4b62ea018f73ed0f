package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/dungeonbreak/internal/engine"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
	"github.com/KirkDiggler/dungeonbreak/internal/orchestrators/session"
)

const playHelp = `commands:
  look                     describe the room
  status                   show the player's status
  actions                  list actions and why blocked ones are blocked
  <action_type> [k=v ...]  take an action, e.g. move direction=north
  save                     store the run in a new save slot
  load <save_id>           resume a save
  saves                    list your saves
  help                     show this text
  quit                     leave`

var playSeed int64

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a run interactively",
	Long: `Play reads one command per line from stdin.

` + playHelp,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().Int64Var(&playSeed, "seed", 0, "run seed (defaults to DUNGEONBREAK_SEED)")
}

func runPlay(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	seed := cfg.Seed
	if cmd.Flags().Changed("seed") {
		seed = playSeed
	}

	svc, err := newSessionService(ctx)
	if err != nil {
		return err
	}

	started, err := svc.NewGame(ctx, &session.NewGameInput{Seed: seed})
	if err != nil {
		return err
	}

	p := &player{svc: svc, sessionID: started.SessionID, out: cmd.OutOrStdout()}
	fmt.Fprintf(p.out, "seed %d\n%s\n", started.Seed, started.Look)
	return p.loop(ctx, cmd.InOrStdin())
}

// player drives one interactive session.
type player struct {
	svc       session.Service
	sessionID string
	out       io.Writer
}

func (p *player) loop(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(p.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(p.out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return errors.WrapWithCode(err, errors.CodeCanceled, "play interrupted")
		}

		done, err := p.handle(ctx, scanner.Text())
		if err != nil {
			// command errors are shown and the loop keeps going
			fmt.Fprintf(p.out, "error: %v\n", err)
		}
		if done {
			return nil
		}
	}
}

// handle runs one input line and reports whether the session is over.
func (p *player) handle(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintln(p.out, playHelp)
	case "look":
		out, err := p.svc.Look(ctx, &session.LookInput{SessionID: p.sessionID})
		if err != nil {
			return false, err
		}
		fmt.Fprintln(p.out, out.Look)
	case "status":
		out, err := p.svc.Status(ctx, &session.StatusInput{SessionID: p.sessionID})
		if err != nil {
			return false, err
		}
		return false, writeJSON(p.out, out.Status)
	case "actions":
		out, err := p.svc.AvailableActions(ctx, &session.AvailableActionsInput{SessionID: p.sessionID})
		if err != nil {
			return false, err
		}
		printActions(p.out, out.Actions)
	case "save":
		out, err := p.svc.Save(ctx, &session.SaveInput{SessionID: p.sessionID, TTL: cfg.SaveTTL})
		if err != nil {
			return false, err
		}
		fmt.Fprintf(p.out, "saved %s at turn %d\n", out.Save.SaveID, out.Save.Turn)
	case "saves":
		out, err := p.svc.ListSaves(ctx, &session.ListSavesInput{})
		if err != nil {
			return false, err
		}
		for _, save := range out.Saves {
			fmt.Fprintf(p.out, "%s  turn %d  seed %d  %s\n",
				save.SaveID, save.Turn, save.Seed, save.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	case "load":
		if len(fields) != 2 {
			return false, errors.InvalidArgument("usage: load <save_id>")
		}
		out, err := p.svc.Load(ctx, &session.LoadInput{SaveID: fields[1]})
		if err != nil {
			return false, err
		}
		p.sessionID = out.SessionID
		fmt.Fprintf(p.out, "loaded %s at turn %d\n", fields[1], out.Turn)
	default:
		action, err := parseAction(fields)
		if err != nil {
			return false, err
		}
		out, err := p.svc.Dispatch(ctx, &session.DispatchInput{SessionID: p.sessionID, Action: action})
		if err != nil {
			return false, err
		}
		printEvents(p.out, out.Events)
		if out.Escaped {
			fmt.Fprintln(p.out, "You escaped the dungeon.")
			return true, nil
		}
	}
	return false, nil
}

// parseAction reads "<type> k=v ...". Numeric values become numbers. A bare
// word continues the previous value, so "speak intentText=hello there" keeps
// the whole phrase.
func parseAction(fields []string) (engine.PlayerAction, error) {
	action := engine.PlayerAction{ActionType: fields[0], Payload: map[string]any{}}

	lastKey := ""
	for _, field := range fields[1:] {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			if lastKey == "" {
				return action, errors.InvalidArgumentf("expected key=value, got %q", field)
			}
			action.Payload[lastKey] = fmt.Sprintf("%v %s", action.Payload[lastKey], field)
			continue
		}
		if key == "" {
			return action, errors.InvalidArgumentf("missing key in %q", field)
		}
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			action.Payload[key] = n
		} else {
			action.Payload[key] = value
		}
		lastKey = key
	}
	return action, nil
}

func printEvents(w io.Writer, events []engine.GameEvent) {
	for _, ev := range events {
		fmt.Fprintf(w, "[%d] %s: %s\n", ev.TurnIndex, ev.ActorName, ev.Message)
		for _, warning := range ev.Warnings {
			fmt.Fprintf(w, "    ! %s\n", warning)
		}
	}
}

func printActions(w io.Writer, actions []engine.ActionAvailability) {
	for _, row := range actions {
		if row.Available {
			fmt.Fprintf(w, "  %-16s %s\n", row.ActionType, row.Label)
			continue
		}
		fmt.Fprintf(w, "x %-16s %s (%s)\n", row.ActionType, row.Label, strings.Join(row.BlockedReasons, "; "))
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return errors.Wrap(err, "failed to encode output")
	}
	return nil
}
