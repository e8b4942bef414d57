// Package config loads navaz settings from navaz.yaml, NAVAZ_* environment
// variables and .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/v0xg/navaz/internal/focus"
	"github.com/v0xg/navaz/internal/keymap"
	"github.com/v0xg/navaz/internal/scanner"
)

// EnvPrefix is the prefix of environment overrides, e.g. NAVAZ_BROWSER_WIDTH
const EnvPrefix = "NAVAZ"

// Config is the complete navaz configuration
type Config struct {
	Navigation NavigationConfig `mapstructure:"navigation"`
	Keys       keymap.Bindings  `mapstructure:"keys"`
	Browser    BrowserConfig    `mapstructure:"browser"`
	Record     RecordConfig     `mapstructure:"record"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// NavigationConfig tunes scanning and highlighting
type NavigationConfig struct {
	DebounceMs     int     `mapstructure:"debounceMs"`
	RowTolerance   float64 `mapstructure:"rowTolerance"`
	HighlightClass string  `mapstructure:"highlightClass"`
}

// BrowserConfig controls the Chromium instance
type BrowserConfig struct {
	Width          int    `mapstructure:"width"`
	Height         int    `mapstructure:"height"`
	Headless       bool   `mapstructure:"headless"`
	ProfileDir     string `mapstructure:"profileDir"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
}

// RecordConfig controls tour recordings
type RecordConfig struct {
	FPS      int `mapstructure:"fps"`
	HoldMs   int `mapstructure:"holdMs"`
	MaxWidth int `mapstructure:"maxWidth"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Navigation: NavigationConfig{
			DebounceMs:     100,
			RowTolerance:   scanner.DefaultRowTolerance,
			HighlightClass: focus.DefaultClass,
		},
		Keys: keymap.DefaultBindings(),
		Browser: BrowserConfig{
			Width:          1280,
			Height:         800,
			Headless:       false,
			TimeoutSeconds: 30,
		},
		Record: RecordConfig{
			FPS:      2,
			HoldMs:   800,
			MaxWidth: 800,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// LoadEnv loads .env files into the process environment. Missing files are
// ignored; variables already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the configuration. An empty path searches ./navaz.yaml and
// $HOME/.config/navaz/navaz.yaml; no file at all means defaults. An explicit
// path must exist. Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("navaz")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "navaz"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("navigation.debounceMs", d.Navigation.DebounceMs)
	v.SetDefault("navigation.rowTolerance", d.Navigation.RowTolerance)
	v.SetDefault("navigation.highlightClass", d.Navigation.HighlightClass)

	v.SetDefault("keys.forward", d.Keys.Forward)
	v.SetDefault("keys.backward", d.Keys.Backward)
	v.SetDefault("keys.headers", d.Keys.Headers)
	v.SetDefault("keys.links", d.Keys.Links)
	v.SetDefault("keys.landmarks", d.Keys.Landmarks)

	v.SetDefault("browser.width", d.Browser.Width)
	v.SetDefault("browser.height", d.Browser.Height)
	v.SetDefault("browser.headless", d.Browser.Headless)
	v.SetDefault("browser.profileDir", d.Browser.ProfileDir)
	v.SetDefault("browser.timeoutSeconds", d.Browser.TimeoutSeconds)

	v.SetDefault("record.fps", d.Record.FPS)
	v.SetDefault("record.holdMs", d.Record.HoldMs)
	v.SetDefault("record.maxWidth", d.Record.MaxWidth)

	v.SetDefault("logging.level", d.Logging.Level)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch {
	case c.Navigation.DebounceMs <= 0:
		return &Error{Field: "navigation.debounceMs", Message: "must be positive"}
	case c.Navigation.RowTolerance <= 0:
		return &Error{Field: "navigation.rowTolerance", Message: "must be positive"}
	case strings.TrimSpace(c.Navigation.HighlightClass) == "" || strings.ContainsAny(c.Navigation.HighlightClass, " \t\n"):
		return &Error{Field: "navigation.highlightClass", Message: "must be a single class name"}
	case c.Browser.Width <= 0 || c.Browser.Height <= 0:
		return &Error{Field: "browser", Message: "viewport width and height must be positive"}
	case c.Record.FPS <= 0:
		return &Error{Field: "record.fps", Message: "must be positive"}
	}
	if _, err := keymap.New(c.Keys); err != nil {
		return &Error{Field: "keys", Message: err.Error()}
	}
	return nil
}

// DebounceWindow returns navigation.debounceMs as a duration
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.Navigation.DebounceMs) * time.Millisecond
}

// BrowserTimeout returns browser.timeoutSeconds as a duration
func (c *Config) BrowserTimeout() time.Duration {
	return time.Duration(c.Browser.TimeoutSeconds) * time.Second
}

// Hold returns record.holdMs as a duration
func (c *Config) Hold() time.Duration {
	return time.Duration(c.Record.HoldMs) * time.Millisecond
}

// Keymap builds the key map from the bindings
func (c *Config) Keymap() (*keymap.Map, error) {
	return keymap.New(c.Keys)
}

// Error is a configuration error tied to a field
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
