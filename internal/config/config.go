package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Window  WindowConfig  `toml:"window"`
	Engine  EngineConfig  `toml:"engine"`
	Logging LoggingConfig `toml:"logging"`
}

// WindowConfig holds the window defaults. A game's exported config object
// overrides these field by field.
type WindowConfig struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	FPS    int    `toml:"fps"`
	Title  string `toml:"title"`
}

type EngineConfig struct {
	Entry     []string `toml:"entry"`      // entry module names, tried in order
	ReloadKey string   `toml:"reload_key"` // key name polled once per frame
	ShowFPS   bool     `toml:"show_fps"`
	Transpile bool     `toml:"transpile"` // run ES module / TypeScript sources through esbuild
	Assets    string   `toml:"assets"`    // preload manifest inside the game root
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional is Load, but a missing file falls back to the defaults.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Defaults(), nil
	}
	return cfg, err
}

func (c *Config) validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if c.Window.FPS <= 0 {
		return fmt.Errorf("window fps %d must be positive", c.Window.FPS)
	}
	if len(c.Engine.Entry) == 0 {
		return errors.New("engine entry list is empty")
	}
	return nil
}

// Defaults returns the built-in configuration: 800x600 at 60 fps.
func Defaults() *Config {
	return &Config{
		Window: WindowConfig{
			Width:  800,
			Height: 600,
			FPS:    60,
			Title:  "glint",
		},
		Engine: EngineConfig{
			Entry:     []string{"game", "Game"},
			ReloadKey: "F5",
			ShowFPS:   true,
			Transpile: true,
			Assets:    "assets.yaml",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
