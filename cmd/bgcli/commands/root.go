package commands

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mitchelldurbincs/bgcore/internal/config"
	"github.com/mitchelldurbincs/bgcore/internal/game/players"
	"github.com/mitchelldurbincs/bgcore/internal/gameserver"
	"github.com/mitchelldurbincs/bgcore/internal/store/sqlite"
)

var (
	configPath string
	envName    string
	logLevel   string
	watch      bool
	noArchive  bool
)

func Execute() error {
	root := newRootCmd()
	return root.Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "bgcli",
		Short:        "Backgammon rules engine command line",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(configPath); err != nil {
				return err
			}
			if err := config.LoadEnvironmentConfig(envName); err != nil {
				return err
			}
			c := config.Get()
			if err := setupLogging(cmd.ErrOrStderr(), effectiveLevel(c), c.Logging.Format); err != nil {
				return err
			}
			if watch {
				config.WatchConfig(func() {
					c := config.Get()
					_ = setupLogging(cmd.ErrOrStderr(), effectiveLevel(c), c.Logging.Format)
					log.Info().Str("file", config.ConfigFilePath()).Msg("Configuration reloaded")
				}, func(err error) {
					log.Warn().Err(err).Msg("Ignoring invalid configuration change")
				})
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.yaml)")
	root.PersistentFlags().StringVar(&envName, "env", "", "merge config.<env>.yaml over the base config")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (empty to use config default)")
	root.PersistentFlags().BoolVar(&watch, "watch", false, "reload the config file when it changes")
	root.PersistentFlags().BoolVar(&noArchive, "no-archive", false, "do not write finished games to the archive")

	root.AddCommand(playCmd(), selfplayCmd(), movesCmd(), archiveCmd())
	return root
}

// effectiveLevel applies --log-level, then development.verbose_logging, over
// logging.level.
func effectiveLevel(c *config.Config) string {
	switch {
	case logLevel != "":
		return logLevel
	case c.Development.VerboseLogging:
		return "debug"
	default:
		return c.Logging.Level
	}
}

func setupLogging(out io.Writer, level, format string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "json" {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
		return nil
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	})
	return nil
}

// openArchive opens the configured archive, or returns nil when archiving
// is switched off.
func openArchive(ctx context.Context) (*sqlite.Store, error) {
	c := config.Get()
	if noArchive || !c.Store.ArchiveFinished {
		return nil, nil
	}
	return sqlite.Open(ctx, c.Store.Path, log.Logger)
}

// newManager builds a game manager that archives into store when it is set.
func newManager(store *sqlite.Store) *gameserver.GameManager {
	cfg := gameserver.DefaultManagerConfig()
	if store != nil {
		cfg.Archive = store
	}
	return gameserver.NewGameManager(cfg)
}

func chooserByName(name string, seed int64) (players.Chooser, error) {
	switch strings.ToLower(name) {
	case "greedy":
		return players.NewGreedyChooser(), nil
	case "random":
		if seed != 0 {
			return players.NewRandomChooser(rand.New(rand.NewSource(seed))), nil
		}
		return players.NewRandomChooser(nil), nil
	default:
		return nil, fmt.Errorf("unknown player %q, want greedy or random", name)
	}
}
