package commands

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mitchelldurbincs/bgcore/internal/config"
	"github.com/mitchelldurbincs/bgcore/internal/game"
	"github.com/mitchelldurbincs/bgcore/internal/game/core"
	"github.com/mitchelldurbincs/bgcore/internal/gameserver"
)

const selfplayMaxTurns = 5000

// selfplayTally accumulates results across games, indexed by side.
type selfplayTally struct {
	wins   [2]int
	points [2]int
	kinds  map[string]int
	turns  int
}

// selfplay: computer-vs-computer games, optionally seeded for replay.
func selfplayCmd() *cobra.Command {
	var (
		games int
		seed  int64
		white string
		black string
	)
	cmd := &cobra.Command{
		Use:   "selfplay",
		Short: "Run computer-vs-computer games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if games < 1 {
				return fmt.Errorf("--games must be at least 1")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			store, err := openArchive(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			// Game n gets dice seeded with seed+n so any single game can be replayed.
			next := int64(0)
			mcfg := gameserver.DefaultManagerConfig()
			if store != nil {
				mcfg.Archive = store
			}
			mcfg.NewGameConfig = func() game.GameConfig {
				cfg := game.DefaultGameConfig()
				if seed != 0 {
					cfg.Dice = core.NewSeededSource(seed + next)
				}
				next++
				return cfg
			}
			mgr := gameserver.NewGameManager(mcfg)
			defer mgr.Close()

			tally := selfplayTally{kinds: make(map[string]int)}
			start := time.Now()
			for n := 0; n < games; n++ {
				var whiteSeed, blackSeed int64
				if seed != 0 {
					whiteSeed, blackSeed = seed+int64(2*n), seed+int64(2*n+1)
				}
				whiteChooser, err := chooserByName(white, whiteSeed)
				if err != nil {
					return err
				}
				blackChooser, err := chooserByName(black, blackSeed)
				if err != nil {
					return err
				}

				id, _, err := mgr.NewGame(ctx, [2]string{white, black})
				if err != nil {
					return err
				}
				var res game.TurnResult
				for turn := 0; turn < selfplayMaxTurns && !res.GameOver; turn++ {
					snap, err := mgr.GetState(id)
					if err != nil {
						return err
					}
					chooser := whiteChooser
					if snap.Turn == core.Black {
						chooser = blackChooser
					}
					if res, err = mgr.PlayTurn(ctx, id, chooser); err != nil {
						return fmt.Errorf("game %s: %w", id, err)
					}
				}
				if !res.GameOver {
					return fmt.Errorf("game %s did not finish within %d turns", id, selfplayMaxTurns)
				}
				snap, err := mgr.GetState(id)
				if err != nil {
					return err
				}
				if err := mgr.RemoveGame(ctx, id); err != nil {
					return err
				}

				o := res.Outcome
				tally.wins[o.Winner]++
				tally.points[o.Winner] += o.Points
				tally.kinds[o.Kind.String()]++
				tally.turns += snap.TurnNumber
				log.Info().
					Str("game_id", id).
					Int("game", n+1).
					Str("winner", o.Winner.String()).
					Str("kind", o.Kind.String()).
					Int("turns", snap.TurnNumber).
					Msg("Self-play game finished")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d games in %s, %.1f turns per game\n", games, time.Since(start).Round(time.Millisecond), float64(tally.turns)/float64(games))
			for _, p := range core.Players {
				fmt.Fprintf(out, "%-6s %-7s wins %d, points %d\n", p, []string{white, black}[p], tally.wins[p], tally.points[p])
			}
			for _, kind := range []string{"single", "gammon", "backgammon"} {
				fmt.Fprintf(out, "%-10s %d\n", kind, tally.kinds[kind])
			}
			if store != nil {
				fmt.Fprintf(out, "archived to %s\n", config.Get().Store.Path)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&games, "games", 10, "number of games to play")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed for dice and random players (0 for a clock seed)")
	cmd.Flags().StringVar(&white, "white", "greedy", "white player: greedy or random")
	cmd.Flags().StringVar(&black, "black", "random", "black player: greedy or random")
	return cmd
}
