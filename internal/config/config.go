package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Game        GameConfig        `mapstructure:"game"`
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Store       StoreConfig       `mapstructure:"store"`
	Development DevelopmentConfig `mapstructure:"development"`
}

// GameConfig holds game rules and turn policy
type GameConfig struct {
	Variant          VariantConfig `mapstructure:"variant"`
	TurnTimeoutMs    int           `mapstructure:"turn_timeout_ms"`
	MaxChoiceRetries int           `mapstructure:"max_choice_retries"`
	Seed             int64         `mapstructure:"seed"`
}

// VariantConfig describes the board topology. An empty layout means the
// standard starting layout.
type VariantConfig struct {
	Points         int            `mapstructure:"points"`
	HomeSize       int            `mapstructure:"home_size"`
	Checkers       int            `mapstructure:"checkers"`
	DieFaces       int            `mapstructure:"die_faces"`
	DoublesUses    int            `mapstructure:"doubles_uses"`
	ForceHigherDie bool           `mapstructure:"force_higher_die"`
	Layout         []LayoutConfig `mapstructure:"layout"`
}

// LayoutConfig places checkers on a point, in White's indexing
type LayoutConfig struct {
	Point int `mapstructure:"point"`
	Count int `mapstructure:"count"`
}

// ServerConfig holds game registry settings
type ServerConfig struct {
	MaxGames           int `mapstructure:"max_games"`
	IdleTimeoutSec     int `mapstructure:"idle_timeout_sec"`
	CleanupIntervalSec int `mapstructure:"cleanup_interval_sec"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig holds snapshot archive settings
type StoreConfig struct {
	Path            string `mapstructure:"path"`
	ArchiveFinished bool   `mapstructure:"archive_finished"`
}

// DevelopmentConfig holds development/debug settings
type DevelopmentConfig struct {
	DevModeEvents  bool `mapstructure:"dev_mode_events"`
	VerboseLogging bool `mapstructure:"verbose_logging"`
}

// TurnTimeout converts the millisecond setting; zero means no limit.
func (g GameConfig) TurnTimeout() time.Duration {
	return time.Duration(g.TurnTimeoutMs) * time.Millisecond
}

func (s ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutSec) * time.Second
}

func (s ServerConfig) CleanupInterval() time.Duration {
	return time.Duration(s.CleanupIntervalSec) * time.Second
}

var (
	// Global config instance
	cfg *Config
	v   *viper.Viper
)

// setViperDefaults sets all default values using Viper's SetDefault
func setViperDefaults(v *viper.Viper) {
	// Variant defaults: regular backgammon
	v.SetDefault("game.variant.points", 24)
	v.SetDefault("game.variant.home_size", 6)
	v.SetDefault("game.variant.checkers", 15)
	v.SetDefault("game.variant.die_faces", 6)
	v.SetDefault("game.variant.doubles_uses", 4)
	v.SetDefault("game.variant.force_higher_die", true)

	// Turn policy
	v.SetDefault("game.turn_timeout_ms", 0)
	v.SetDefault("game.max_choice_retries", 3)
	v.SetDefault("game.seed", 0)

	// Server defaults
	v.SetDefault("server.max_games", 100)
	v.SetDefault("server.idle_timeout_sec", 1800)
	v.SetDefault("server.cleanup_interval_sec", 60)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Store defaults
	v.SetDefault("store.path", "bgcore.db")
	v.SetDefault("store.archive_finished", true)

	// Development defaults
	v.SetDefault("development.dev_mode_events", false)
	v.SetDefault("development.verbose_logging", false)
}

// Init initializes the configuration
func Init(configPath string) error {
	v = viper.New()

	// Set defaults before loading any config
	setViperDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/bgcore")
	}

	v.SetEnvPrefix("BG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing explicit file falls back to defaults; for the search path
		// only "not found" is tolerated.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath == "" {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

// Get returns the global config instance
func Get() *Config {
	if cfg == nil {
		if err := Init(""); err != nil {
			panic("failed to initialize config with defaults: " + err.Error())
		}
	}
	return cfg
}

// GetViper returns the viper instance for advanced usage
func GetViper() *viper.Viper {
	if v == nil {
		panic("config not initialized - call Init() first")
	}
	return v
}

// LoadEnvironmentConfig merges config.<env>.yaml over the loaded config
func LoadEnvironmentConfig(env string) error {
	if env == "" {
		return nil
	}

	envFile := fmt.Sprintf("config.%s.yaml", env)

	v.SetConfigFile(envFile)
	if err := v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error merging environment config %s: %w", envFile, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to decode merged config into struct: %w", err)
	}

	return Validate(cfg)
}

// Set allows runtime config updates
func Set(key string, value interface{}) {
	v.Set(key, value)
	_ = v.Unmarshal(cfg)
}

// GetString gets a string value from config
func GetString(key string) string {
	return v.GetString(key)
}

// GetInt gets an int value from config
func GetInt(key string) int {
	return v.GetInt(key)
}

// GetBool gets a bool value from config
func GetBool(key string) bool {
	return v.GetBool(key)
}

// GetFloat64 gets a float64 value from config
func GetFloat64(key string) float64 {
	return v.GetFloat64(key)
}

// ConfigFilePath returns the path of the loaded config file
func ConfigFilePath() string {
	return v.ConfigFileUsed()
}

// WatchConfig enables hot-reloading of the config file. Changes that fail
// validation are reported through onError and the previous config is kept.
func WatchConfig(onChange func(), onError func(error)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		next := &Config{}
		if err := v.Unmarshal(next); err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		if err := Validate(next); err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		*cfg = *next
		if onChange != nil {
			onChange()
		}
	})
	v.WatchConfig()
}

var validLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "disabled": true,
}

// Validate validates the configuration values
func Validate(c *Config) error {
	gv := c.Game.Variant
	if gv.Points < 2 {
		return fmt.Errorf("game.variant.points must be at least 2")
	}
	if gv.HomeSize < 1 || gv.HomeSize > gv.Points {
		return fmt.Errorf("game.variant.home_size must be between 1 and game.variant.points")
	}
	if gv.Checkers < 1 || gv.Checkers > 127 {
		return fmt.Errorf("game.variant.checkers must be between 1 and 127")
	}
	if gv.DieFaces < 1 || gv.DieFaces > gv.Points {
		return fmt.Errorf("game.variant.die_faces must be between 1 and game.variant.points")
	}
	if gv.DoublesUses < 2 {
		return fmt.Errorf("game.variant.doubles_uses must be at least 2")
	}
	if len(gv.Layout) > 0 {
		total := 0
		for _, l := range gv.Layout {
			if l.Point < 0 || l.Point >= gv.Points {
				return fmt.Errorf("game.variant.layout point %d out of range", l.Point)
			}
			total += l.Count
		}
		if total != gv.Checkers {
			return fmt.Errorf("game.variant.layout places %d checkers, want %d", total, gv.Checkers)
		}
	}

	if c.Game.TurnTimeoutMs < 0 {
		return fmt.Errorf("game.turn_timeout_ms must be non-negative")
	}
	if c.Game.MaxChoiceRetries < 0 {
		return fmt.Errorf("game.max_choice_retries must be non-negative")
	}

	if c.Server.MaxGames <= 0 {
		return fmt.Errorf("server.max_games must be positive")
	}
	if c.Server.IdleTimeoutSec < 0 {
		return fmt.Errorf("server.idle_timeout_sec must be non-negative")
	}
	if c.Server.CleanupIntervalSec <= 0 {
		return fmt.Errorf("server.cleanup_interval_sec must be positive")
	}

	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be console or json")
	}

	return nil
}
