package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mitchelldurbincs/bgcore/internal/game"
	"github.com/mitchelldurbincs/bgcore/internal/game/core"
	"github.com/mitchelldurbincs/bgcore/internal/game/players"
)

// play: a human on the terminal against a computer opponent.
func playCmd() *cobra.Command {
	var (
		opponent string
		sideName string
		name     string
		color    bool
		seed     int64
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a game against a computer opponent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := core.ParsePlayer(sideName)
			if err != nil {
				return err
			}
			if !side.Valid() {
				return fmt.Errorf("--side must be white or black")
			}
			bot, err := chooserByName(opponent, seed)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			store, err := openArchive(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			mgr := newManager(store)
			defer mgr.Close()

			var names [2]string
			names[side] = name
			names[side.Opponent()] = opponent
			id, snap, err := mgr.NewGame(ctx, names)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			human := players.NewHumanChooser(cmd.InOrStdin(), out)
			human.Render = func(st *core.State) string { return game.RenderBoard(st, color) }
			fmt.Fprintf(out, "Game %s: %s is %s, %s is %s\n", id, name, side, opponent, side.Opponent())

			for {
				chooser := bot
				if snap.Turn == side {
					chooser = human
				}
				res, err := mgr.PlayTurn(ctx, id, chooser)
				if errors.Is(err, io.EOF) || ctx.Err() != nil {
					fmt.Fprintln(out, "Game abandoned")
					return nil
				}
				if err != nil {
					return err
				}
				printTurn(out, snap.Variant, names, res)
				if res.GameOver {
					fmt.Fprintf(out, "%s wins a %s (%d points)\n", names[res.Outcome.Winner], res.Outcome.Kind, res.Outcome.Points)
					return nil
				}
				if snap, err = mgr.GetState(id); err != nil {
					return err
				}
				log.Debug().Str("game_id", id).Int("turn", snap.TurnNumber).Msg("Turn played")
			}
		},
	}
	cmd.Flags().StringVar(&opponent, "opponent", "greedy", "computer opponent: greedy or random")
	cmd.Flags().StringVar(&sideName, "side", "white", "side you play: white or black")
	cmd.Flags().StringVar(&name, "name", "you", "your name in the archive")
	cmd.Flags().BoolVar(&color, "color", true, "draw the board with ANSI colors")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed for the random opponent (0 for a clock seed)")
	return cmd
}

func printTurn(out io.Writer, v core.Variant, names [2]string, res game.TurnResult) {
	who := names[res.Player]
	switch {
	case res.Skipped:
		fmt.Fprintf(out, "%s rolled %v and cannot move\n", who, res.Dice)
	case res.Sequence != nil:
		fmt.Fprintf(out, "%s rolled %v and played %s\n", who, res.Dice, res.Sequence.Notation(v))
	}
}
