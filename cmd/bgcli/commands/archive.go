package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mitchelldurbincs/bgcore/internal/config"
	"github.com/mitchelldurbincs/bgcore/internal/game"
	"github.com/mitchelldurbincs/bgcore/internal/game/core"
	"github.com/mitchelldurbincs/bgcore/internal/store/sqlite"
)

// archive list|show|summary|export: read the finished-game archive.
func archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect archived games",
	}
	cmd.AddCommand(archiveListCmd(), archiveShowCmd(), archiveSummaryCmd(), archiveExportCmd())
	return cmd
}

// withStore opens the archive even when archiving of new games is off.
func withStore(cmd *cobra.Command, fn func(*sqlite.Store) error) error {
	store, err := sqlite.Open(cmd.Context(), config.Get().Store.Path, log.Logger)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func archiveListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived games, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store *sqlite.Store) error {
				recs, err := store.ListGames(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(recs) == 0 {
					fmt.Fprintln(out, "no archived games")
					return nil
				}
				for _, rec := range recs {
					fmt.Fprintf(out, "%s  %s  %s vs %s  %s won a %s (%d)  %d turns\n",
						rec.GameID,
						rec.FinishedAt.Local().Format(time.DateTime),
						rec.Players[0], rec.Players[1],
						rec.Players[rec.Winner], rec.Kind, rec.Points,
						rec.Turns,
					)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum games to list (0 for all)")
	return cmd
}

func archiveShowCmd() *cobra.Command {
	var color bool
	cmd := &cobra.Command{
		Use:   "show <game-id>",
		Short: "Show the moves and final position of an archived game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store *sqlite.Store) error {
				rec, err := store.GetGame(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printRecord(cmd.OutOrStdout(), rec, color)
			})
		},
	}
	cmd.Flags().BoolVar(&color, "color", false, "draw the board with ANSI colors")
	return cmd
}

func printRecord(out io.Writer, rec sqlite.GameRecord, color bool) error {
	fmt.Fprintf(out, "Game %s: %s (white) vs %s (black)\n", rec.GameID, rec.Players[0], rec.Players[1])
	if rec.HistoryOffset > 0 {
		fmt.Fprintf(out, "      (%d earlier sequences played before the game was resumed)\n", rec.HistoryOffset)
	}
	for i, notation := range rec.History {
		fmt.Fprintf(out, "%4d. %s\n", rec.HistoryOffset+i+1, notation)
	}
	st, err := core.FromSnapshot(rec.Snapshot.Snapshot)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, game.RenderBoard(st, color))
	fmt.Fprintf(out, "%s won a %s worth %d\n", rec.Players[rec.Winner], rec.Kind, rec.Points)
	return nil
}

func archiveSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <player>",
		Short: "Summarize the archived results of a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store *sqlite.Store) error {
				sum, err := store.PlayerSummary(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d games, %d wins, %d points won, %d points lost\n",
					sum.Name, sum.Games, sum.Wins, sum.PointsWon, sum.PointsLost)
				return nil
			})
		},
	}
}

// export prints the final snapshot of a game as JSON.
func archiveExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <game-id>",
		Short: "Print the final snapshot of an archived game as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store *sqlite.Store) error {
				rec, err := store.GetGame(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				data, err := game.MarshalSnapshot(rec.Snapshot)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			})
		},
	}
}
