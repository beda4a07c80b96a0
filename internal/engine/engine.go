// Package engine runs a game: it owns the script runtime and the plugin
// registry, resolves modules, drives the frame loop and hot-reloads the game
// module on demand.
//
// Everything here runs on the goroutine that calls New, Frame and Close.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/glint-engine/glint/internal/bridge"
	"github.com/glint-engine/glint/internal/config"
	"github.com/glint-engine/glint/internal/filestore"
	"github.com/glint-engine/glint/internal/gfx"
	"github.com/glint-engine/glint/internal/plugin"
)

// ErrClosed is returned by Frame and Reload once Close has run.
var ErrClosed = errors.New("engine closed")

// Options are the collaborators of one engine.
type Options struct {
	Config  *config.Config
	Files   filestore.Store
	Backend gfx.Backend
	// Plugins are created and registered in order.
	Plugins []plugin.Factory
	Log     *zap.Logger
}

type Engine struct {
	cfg     *config.Config
	log     *zap.Logger
	backend gfx.Backend

	vm       *goja.Runtime
	fin      *bridge.Finalizers
	registry *plugin.Registry
	compiler *compiler
	modules  *loader

	game       *Game
	reloadKey  gfx.Key
	windowOpen bool
	closed     bool
}

// New builds the runtime, registers the plugins, evaluates the game module,
// opens the window with the game's configuration and runs every load
// callback, plugins first. Resources belong in the game's load callback:
// module evaluation happens before the window exists.
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Defaults()
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	e := &Engine{
		cfg:      cfg,
		log:      log,
		backend:  opts.Backend,
		vm:       goja.New(),
		fin:      bridge.NewFinalizers(),
		registry: plugin.NewRegistry(log),
		compiler: newCompiler(cfg.Engine.Transpile, log.Named("modules")),
	}
	if name := cfg.Engine.ReloadKey; name != "" {
		k, ok := gfx.KeyByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown reload key %q", name)
		}
		e.reloadKey = k
	}

	env := &plugin.Env{
		Runtime:    e.vm,
		Files:      opts.Files,
		Backend:    opts.Backend,
		Finalizers: e.fin,
		Log:        log,
	}
	for _, factory := range opts.Plugins {
		d, err := factory(env)
		if err != nil {
			return nil, fmt.Errorf("create plugin: %w", err)
		}
		if err := e.registry.Register(d); err != nil {
			return nil, err
		}
	}
	e.modules = newLoader(e.vm, e.registry, opts.Files, e.compiler, log.Named("modules"))

	game, err := e.newGame()
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	e.game = game

	if err := e.backend.OpenWindow(game.Config()); err != nil {
		return nil, fmt.Errorf("open window: %w", err)
	}
	e.windowOpen = true

	if err := e.registry.Load(); err != nil {
		e.Close()
		return nil, err
	}
	if err := game.Load(); err != nil {
		e.Close()
		return nil, err
	}

	wc := game.Config()
	log.Info("game ready",
		zap.String("module", game.Module()),
		zap.String("root", opts.Files.Root()),
		zap.Int("width", wc.Width),
		zap.Int("height", wc.Height),
		zap.Int("fps", wc.FPS),
		zap.Strings("plugins", e.registry.Plugins()),
	)
	return e, nil
}

func (e *Engine) newGame() (*Game, error) {
	w := e.cfg.Window
	defaults := gfx.WindowConfig{Width: w.Width, Height: w.Height, FPS: w.FPS, Title: w.Title}
	return newGame(e.vm, e.modules, e.cfg.Engine.Entry, defaults)
}

func (e *Engine) Game() *Game                { return e.game }
func (e *Engine) Registry() *plugin.Registry { return e.registry }

// Run calls Frame until the window should close, ctx is done, or a frame
// fails. Cancellation is checked between frames only.
func (e *Engine) Run(ctx context.Context) error {
	for !e.backend.ShouldClose() {
		if ctx.Err() != nil {
			e.log.Info("frame loop stopped", zap.Error(context.Cause(ctx)))
			return nil
		}
		if err := e.Frame(); err != nil {
			return err
		}
	}
	return nil
}

// Frame runs one iteration of the loop. Update and draw failures end the
// frame early; the drawing scope is closed either way.
func (e *Engine) Frame() error {
	if e.closed {
		return ErrClosed
	}
	e.fin.Drain()

	if e.reloadKey != gfx.KeyNull && e.backend.IsKeyPressed(e.reloadKey) {
		if err := e.Reload(); err != nil {
			e.log.Warn("hot reload failed, keeping the previous game", zap.Error(err))
			logScriptError(e.log, err)
		}
	}

	if err := e.registry.Update(); err != nil {
		return err
	}
	if err := e.game.Update(); err != nil {
		return err
	}

	e.backend.BeginDrawing()
	defer e.backend.EndDrawing()

	if err := e.registry.Draw(); err != nil {
		return err
	}
	if err := e.game.Draw(); err != nil {
		return err
	}
	if e.cfg.Engine.ShowFPS {
		e.backend.DrawFPS(10, 10)
	}
	return nil
}

// Reload replaces the game with a fresh evaluation of its modules. preReload
// of the current game hands its result to postReload of the new one. On any
// failure the current game and its module cache stay as they were.
func (e *Engine) Reload() error {
	if e.closed {
		return ErrClosed
	}
	var state []goja.Value
	if e.game.preReload != nil {
		v, err := e.game.call("preReload", e.game.preReload)
		if err != nil {
			return err
		}
		state = append(state, v)
	}

	old := e.modules.swapFiles()
	next, err := e.newGame()
	if err == nil {
		_, err = next.call("postReload", next.postReload, state...)
	}
	if err != nil {
		e.modules.restoreFiles(old)
		return err
	}

	e.applyWindow(e.game.Config(), next.Config())
	e.game = next
	e.log.Info("game reloaded", zap.String("module", next.Module()), zap.Strings("modules", e.modules.fileModules()))
	return nil
}

func (e *Engine) applyWindow(prev, next gfx.WindowConfig) {
	if next.Title != prev.Title {
		e.backend.SetWindowTitle(next.Title)
	}
	if next.Width != prev.Width || next.Height != prev.Height {
		e.backend.SetWindowSize(next.Width, next.Height)
	}
	if next.FPS != prev.FPS {
		e.backend.SetTargetFPS(next.FPS)
	}
}

// Close drops the game, lets the collector finalize what it can, then
// unloads the plugins and closes the window. It is safe to call twice.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true

	e.game = nil
	e.modules.reset()
	runtime.GC()
	if n := e.fin.Drain(); n > 0 {
		e.log.Debug("finalized at shutdown", zap.Int("objects", n))
	}
	if failed := e.registry.Unload(); failed > 0 {
		e.log.Warn("plugins failed to unload", zap.Int("count", failed))
	}
	if e.windowOpen {
		e.backend.CloseWindow()
		e.windowOpen = false
	}
}

// logScriptError adds the script context of err, when it has one.
func logScriptError(log *zap.Logger, err error) {
	var se *ScriptError
	if !errors.As(err, &se) || se.Stack == "" {
		return
	}
	log.Debug("script stack", zap.String("module", se.Module), zap.String("stack", se.Stack))
}
