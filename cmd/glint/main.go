package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/glint-engine/glint/internal/config"
	"github.com/glint-engine/glint/internal/engine"
	"github.com/glint-engine/glint/internal/filestore"
	"github.com/glint-engine/glint/internal/gfx"
	"github.com/glint-engine/glint/internal/gfx/headless"
	"github.com/glint-engine/glint/internal/gfx/raylib"
	"github.com/glint-engine/glint/internal/plugin"
	"github.com/glint-engine/glint/internal/plugins/audio"
	"github.com/glint-engine/glint/internal/plugins/core"
)

const (
	version       = "0.1.0"
	defaultConfig = "glint.toml"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

type runParams struct {
	stdout     io.Writer
	game       string
	configPath string
	headless   bool
	frames     int
}

func newRootCommand() *cobra.Command {
	p := runParams{}
	cmd := &cobra.Command{
		Use:   "glint <game>",
		Short: "Run a glint game from a folder or a zip archive",
		Long: `Run a glint game from a folder or a zip archive.

The game's entry module (game.js or Game.js by default) is evaluated, a window
is opened with its config, and its update and draw callbacks run every frame.
Press the reload key (F5 by default) to hot-reload the game's modules.`,
		Example: `  glint ./examples/balls
  glint game.zip --config glint.toml
  glint ./examples/balls --headless --frames 120`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			p.stdout = cmd.OutOrStdout()
			p.game = args[0]
			if p.configPath == "" {
				p.configPath = os.Getenv("GLINT_CONFIG")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, p)
		},
	}
	cmd.Flags().StringVarP(&p.configPath, "config", "c", "", "engine config file (TOML); defaults to $GLINT_CONFIG, then ./glint.toml")
	cmd.Flags().BoolVar(&p.headless, "headless", false, "run without a window or audio device")
	cmd.Flags().IntVar(&p.frames, "frames", 0, "stop after this many frames (headless only)")
	return cmd
}

func run(ctx context.Context, p runParams) error {
	if p.frames < 0 {
		return fmt.Errorf("--frames %d must not be negative", p.frames)
	}
	if p.frames > 0 && !p.headless {
		return errors.New("--frames requires --headless")
	}

	// Without an explicit path, glint.toml in the working directory is used
	// when present.
	load, path := config.Load, p.configPath
	if path == "" {
		load, path = config.LoadOptional, defaultConfig
	}
	cfg, err := load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	files, err := filestore.Open(p.game)
	if err != nil {
		return fmt.Errorf("open game: %w", err)
	}
	defer files.Close()

	printBanner(p.stdout, files.Root())

	var backend gfx.Backend
	if p.headless {
		hb := headless.New()
		hb.MaxFrames = p.frames
		backend = hb
	} else {
		backend = raylib.New(log.Named("raylib"))
	}

	e, err := engine.New(engine.Options{
		Config:  cfg,
		Files:   files,
		Backend: backend,
		Plugins: []plugin.Factory{
			core.Factory(core.Options{Manifest: cfg.Engine.Assets, Background: gfx.Black}),
			audio.Factory(),
		},
		Log: log,
	})
	if err != nil {
		logFailure(log, "could not start game", err)
		return err
	}
	defer e.Close()

	printSection(p.stdout, "Modules")
	printStat(p.stdout, "plugins", len(e.Registry().Plugins()))
	printStat(p.stdout, "engine modules", len(e.Registry().Modules()))
	printReady(p.stdout, fmt.Sprintf("%s (%dx%d @ %d fps)", e.Game().Module(), e.Game().Config().Width, e.Game().Config().Height, e.Game().Config().FPS))
	fmt.Fprintln(p.stdout)

	if err := e.Run(ctx); err != nil {
		logFailure(log, "game stopped", err)
		return err
	}
	return nil
}

// logFailure logs err with the module and script stack when it came from a
// script.
func logFailure(log *zap.Logger, msg string, err error) {
	fields := []zap.Field{zap.Error(err)}
	var se *engine.ScriptError
	if errors.As(err, &se) {
		fields = append(fields, zap.String("module", se.Module))
		if se.Stack != "" {
			fields = append(fields, zap.String("stack", se.Stack))
		}
	}
	log.Error(msg, fields...)
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(w io.Writer, root string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Fprintf(w, "\033[36;1m  │\033[0m               glint  v%s               \033[36;1m│\033[0m\n", version)
	fmt.Fprintln(w, "\033[36;1m  │\033[0m       2D games in JavaScript, on Go       \033[36;1m│\033[0m")
	fmt.Fprintln(w, "\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  \033[1mgame:\033[0m %s\n\n", root)
}

func printSection(w io.Writer, title string) {
	lineLen := max(46-utf8.RuneCountInString(title)-1, 3)
	fmt.Fprintf(w, "  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(w io.Writer, label string, count int) {
	num := fmt.Sprintf("%d", count)
	dots := max(42-utf8.RuneCountInString(label)-len(num), 3)
	fmt.Fprintf(w, "  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dots), num)
}

func printReady(w io.Writer, msg string) {
	fmt.Fprintf(w, "  \033[32m▶\033[0m %s\n", msg)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
