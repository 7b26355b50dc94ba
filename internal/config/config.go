// Package config loads process configuration from the environment and the
// region-of-interest settings file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/andresmejia3/vigil/internal/types"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ErrInvalidRegion is returned when the settings file describes an empty rectangle.
var ErrInvalidRegion = errors.New("invalid region of interest")

// ErrDwellTooShort is returned for a dwell below one second. Snapshot files
// are named to the second, so faster fires would overwrite each other.
var ErrDwellTooShort = errors.New("dwell must be at least 1s")

// Config holds everything the subcommands need. Values come from VIGIL_* variables.
type Config struct {
	Addr      string `env:"ADDR" envDefault:":8000"`
	DBURL     string `env:"DB"`
	StaticDir string `env:"STATIC_DIR" envDefault:"static"`
	Settings  string `env:"SETTINGS" envDefault:"settings.yaml"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	CameraDevice string `env:"CAMERA_DEVICE" envDefault:"/dev/video0"`
	CameraFormat string `env:"CAMERA_FORMAT" envDefault:"v4l2"`
	FrameRate    int    `env:"FRAME_RATE" envDefault:"10"`

	Python        string `env:"PYTHON" envDefault:"python3"`
	LocatorScript string `env:"LOCATOR_SCRIPT" envDefault:"python/locator.py"`

	Dwell         time.Duration `env:"DWELL" envDefault:"5s"`
	FrameInterval time.Duration `env:"FRAME_INTERVAL" envDefault:"100ms"`
	PollInterval  time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`
	RetryHint     time.Duration `env:"RETRY_HINT" envDefault:"15s"`
}

// Load parses the environment. When VIGIL_DB is unset it falls back to the
// POSTGRES_* variables, then to a local SQLite file.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "VIGIL_"}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Dwell < time.Second {
		return Config{}, fmt.Errorf("VIGIL_DWELL=%s: %w", cfg.Dwell, ErrDwellTooShort)
	}
	if cfg.DBURL == "" {
		cfg.DBURL = defaultDBURL()
	}
	return cfg, nil
}

func defaultDBURL() string {
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return "sqlite://database.db"
	}
	port := os.Getenv("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"), os.Getenv("POSTGRES_PASSWORD"), host, port, os.Getenv("POSTGRES_DB"))
}

// Level maps LogLevel onto a slog level, defaulting to info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type settingsFile struct {
	Frame types.Region `yaml:"frame"`
}

// LoadRegion reads the region of interest from a YAML (or JSON) settings file
// of the form `frame: {x, y, width, height}`.
func LoadRegion(path string) (types.Region, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.Region{}, fmt.Errorf("read settings: %w", err)
	}
	var s settingsFile
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return types.Region{}, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if s.Frame.Width <= 0 || s.Frame.Height <= 0 {
		return types.Region{}, fmt.Errorf("%w: width and height must be positive, got %dx%d",
			ErrInvalidRegion, s.Frame.Width, s.Frame.Height)
	}
	return s.Frame, nil
}
