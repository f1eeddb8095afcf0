package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"lessonplay/internal/catalog"
	"lessonplay/internal/state"
)

const EnvPrefix = "LESSONPLAY_"

// Config controls runtime behavior for the player.
type Config struct {
	CourseDir  string           `koanf:"course_dir"`
	DataDir    string           `koanf:"data_dir"`
	LogPath    string           `koanf:"log_path"`
	Debug      bool             `koanf:"debug"`
	Store      StoreConfig      `koanf:"store"`
	Playback   PlaybackConfig   `koanf:"playback"`
	Activation ActivationConfig `koanf:"activation"`
	UI         UIConfig         `koanf:"ui"`
}

type StoreConfig struct {
	Backend string `koanf:"backend"`
}

type PlaybackConfig struct {
	// Backend is auto, beep or silent.
	Backend     string  `koanf:"backend"`
	Fallback    string  `koanf:"fallback"`
	TickMS      int     `koanf:"tick_ms"`
	SkipSeconds float64 `koanf:"skip_seconds"`
}

type ActivationConfig struct {
	DefaultWindowSeconds float64 `koanf:"default_window_seconds"`
	RetainConsumed       bool    `koanf:"retain_consumed"`
}

type UIConfig struct {
	Theme  string `koanf:"theme"`
	ASCII  bool   `koanf:"ascii"`
	Motion string `koanf:"motion"`
}

func DefaultConfig() Config {
	return Config{
		CourseDir: filepath.Join("courses", "postpartum"),
		Store:     StoreConfig{Backend: state.BackendSQLite},
		Playback: PlaybackConfig{
			Backend:     "auto",
			Fallback:    "silent",
			TickMS:      250,
			SkipSeconds: 10,
		},
		Activation: ActivationConfig{
			DefaultWindowSeconds: catalog.DefaultWindowSeconds,
			RetainConsumed:       true,
		},
		UI: UIConfig{Motion: "full"},
	}
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"course":   "course_dir",
	"data-dir": "data_dir",
	"log":      "log_path",
	"debug":    "debug",
	"store":    "store.backend",
	"playback": "playback.backend",
	"theme":    "ui.theme",
	"ascii":    "ui.ascii",
	"window":   "activation.default_window_seconds",
}

// Load layers the config file, LESSONPLAY_* environment variables and
// explicitly set flags over DefaultConfig, then validates the result.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}
	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey turns LESSONPLAY_PLAYBACK__TICK_MS into playback.tick_ms.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func (c *Config) Validate() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	switch c.Store.Backend {
	case "":
		c.Store.Backend = state.BackendSQLite
	case state.BackendSQLite, state.BackendFile, state.BackendMemory:
	default:
		return fmt.Errorf("invalid store backend %q", c.Store.Backend)
	}

	c.Playback.Backend = strings.ToLower(strings.TrimSpace(c.Playback.Backend))
	switch c.Playback.Backend {
	case "":
		c.Playback.Backend = "auto"
	case "auto", "beep", "silent":
	default:
		return fmt.Errorf("invalid playback backend %q", c.Playback.Backend)
	}
	switch c.Playback.Fallback {
	case "", "none", "silent":
	default:
		return fmt.Errorf("invalid playback fallback %q", c.Playback.Fallback)
	}
	if c.Playback.TickMS <= 0 {
		c.Playback.TickMS = 250
	}
	if c.Playback.SkipSeconds <= 0 {
		c.Playback.SkipSeconds = 10
	}
	if c.Activation.DefaultWindowSeconds < 0 {
		return fmt.Errorf("invalid default window %v", c.Activation.DefaultWindowSeconds)
	}
	if c.Activation.DefaultWindowSeconds == 0 {
		c.Activation.DefaultWindowSeconds = catalog.DefaultWindowSeconds
	}

	switch c.UI.Theme {
	case "", state.ThemeLight, state.ThemeDark:
	default:
		return fmt.Errorf("invalid ui theme %q", c.UI.Theme)
	}
	switch c.UI.Motion {
	case "":
		c.UI.Motion = "full"
	case "off", "full":
	default:
		return fmt.Errorf("invalid ui motion %q", c.UI.Motion)
	}

	if strings.TrimSpace(c.CourseDir) == "" {
		return errors.New("course directory is required")
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.New("cannot resolve user home directory")
		}
		c.DataDir = filepath.Join(home, ".local", "share", "lessonplay")
	}
	return nil
}
