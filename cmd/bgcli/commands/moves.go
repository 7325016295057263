package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mitchelldurbincs/bgcore/internal/game"
	"github.com/mitchelldurbincs/bgcore/internal/game/core"
	"github.com/mitchelldurbincs/bgcore/internal/game/rules"
)

// moves <d1> <d2>: list the legal sequences for a roll.
func movesCmd() *cobra.Command {
	var (
		snapshotPath string
		sideName     string
		asJSON       bool
	)
	cmd := &cobra.Command{
		Use:   "moves <d1> <d2>",
		Short: "List the legal sequences for a roll",
		Long: "List every legal sequence for a roll, from the starting position or from\n" +
			"a game snapshot written by the archive.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := positionFor(snapshotPath)
			if err != nil {
				return err
			}
			if sideName != "" {
				side, err := core.ParsePlayer(sideName)
				if err != nil {
					return err
				}
				if !side.Valid() {
					return fmt.Errorf("--side must be white or black")
				}
				st.Turn = side
			}

			v := st.Variant()
			var dice [2]int
			for i, arg := range args {
				d, err := strconv.Atoi(arg)
				if err != nil || d < 1 || d > v.DieFaces {
					return fmt.Errorf("die %q must be between 1 and %d", arg, v.DieFaces)
				}
				dice[i] = d
			}

			legal := rules.NewMoveGenerator().ForRoll(st, dice[0], dice[1])
			notation := make([]string, len(legal))
			for i, seq := range legal {
				notation[i] = seq.Notation(v)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(notation)
			}
			fmt.Fprintf(out, "%s to play %v: %d legal sequences\n", st.Turn, core.ExpandRoll(v, dice[0], dice[1]), len(legal))
			if len(legal) == 0 {
				fmt.Fprintln(out, "no legal move, the turn passes")
			}
			for i, n := range notation {
				fmt.Fprintf(out, "%3d) %s\n", i+1, n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "game snapshot JSON file (default: starting position)")
	cmd.Flags().StringVar(&sideName, "side", "", "side to move (default: the side on turn)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the sequences as a JSON array")
	return cmd
}

// positionFor loads the board from a snapshot file, or the configured
// starting position when path is empty. Pending dice are dropped.
func positionFor(path string) (*core.State, error) {
	if path == "" {
		return core.NewGameState(game.DefaultVariant())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	snap, err := game.UnmarshalSnapshot(data)
	if err != nil {
		return nil, err
	}
	snap.Dice = nil
	return core.FromSnapshot(snap.Snapshot)
}
