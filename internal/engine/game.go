package engine

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/glint-engine/glint/internal/bridge"
	"github.com/glint-engine/glint/internal/gfx"
)

var errNoEntry = errors.New("no game module found")

// Game is one evaluation of the entry module. Every lifecycle export is
// optional; a missing one is skipped.
type Game struct {
	module string
	self   *goja.Object
	config gfx.WindowConfig

	load       goja.Callable
	update     goja.Callable
	draw       goja.Callable
	preReload  goja.Callable
	postReload goja.Callable
}

var lifecycle = []string{"config", "load", "update", "draw", "preReload", "postReload"}

// newGame evaluates the first entry module that exists. defaults are the
// window settings the game's config export overrides.
func newGame(vm *goja.Runtime, l *loader, entries []string, defaults gfx.WindowConfig) (*Game, error) {
	var (
		file string
		err  error
	)
	for _, name := range entries {
		if file, err = l.resolve(name, "."); err == nil {
			break
		}
	}
	if file == "" {
		return nil, fmt.Errorf("%w: tried %v", errNoEntry, entries)
	}

	exports, err := l.loadFile(file)
	if err != nil {
		return nil, err
	}
	self, err := instantiate(vm, file, exports)
	if err != nil {
		return nil, err
	}
	cfg, err := readConfig(self.Get("config"), defaults)
	if err != nil {
		return nil, &ScriptError{Module: file, Message: err.Error(), Err: err}
	}

	hook := func(name string) goja.Callable {
		fn, _ := goja.AssertFunction(self.Get(name))
		return fn
	}
	return &Game{
		module:     file,
		self:       self,
		config:     cfg,
		load:       hook("load"),
		update:     hook("update"),
		draw:       hook("draw"),
		preReload:  hook("preReload"),
		postReload: hook("postReload"),
	}, nil
}

// instantiate picks the object that carries the lifecycle exports. A
// transformed ES module exporting only a default uses the default; a
// constructor is called with new.
func instantiate(vm *goja.Runtime, module string, exports goja.Value) (*goja.Object, error) {
	obj, ok := exports.(*goja.Object)
	if !ok || bridge.Missing(exports) {
		return nil, &ScriptError{Module: module, Message: fmt.Sprintf("module exports %s, want an object or a class", bridge.TypeOf(exports))}
	}
	if esModule(obj) && !hasLifecycle(obj) {
		if def, ok := obj.Get("default").(*goja.Object); ok {
			obj = def
		}
	}
	if _, ok := goja.AssertConstructor(obj); !ok {
		return obj, nil
	}
	inst, err := vm.New(obj)
	if err != nil {
		return nil, scriptError(module, err)
	}
	return inst, nil
}

func esModule(obj *goja.Object) bool {
	v := obj.Get("__esModule")
	return v != nil && v.ToBoolean()
}

func hasLifecycle(obj *goja.Object) bool {
	for _, name := range lifecycle {
		if !bridge.Missing(obj.Get(name)) {
			return true
		}
	}
	return false
}

// readConfig overlays a config export on defaults. The fields may sit on the
// object itself or under a window key.
func readConfig(v goja.Value, defaults gfx.WindowConfig) (gfx.WindowConfig, error) {
	cfg := defaults
	if bridge.Missing(v) {
		return cfg, nil
	}
	obj, err := bridge.ToObject(v, "object")
	if err != nil {
		return cfg, bridge.Nest("config", err)
	}
	field := "config"
	if w := obj.Get("window"); !bridge.Missing(w) {
		if obj, err = bridge.ToObject(w, "object"); err != nil {
			return cfg, bridge.Nest("config.window", err)
		}
		field = "config.window"
	}

	width, err := bridge.OptionalField(obj, "width", int32(cfg.Width), bridge.ToInt)
	if err != nil {
		return cfg, bridge.Nest(field, err)
	}
	height, err := bridge.OptionalField(obj, "height", int32(cfg.Height), bridge.ToInt)
	if err != nil {
		return cfg, bridge.Nest(field, err)
	}
	fps, err := bridge.OptionalField(obj, "fps", int32(cfg.FPS), bridge.ToInt)
	if err != nil {
		return cfg, bridge.Nest(field, err)
	}
	title, err := bridge.OptionalField(obj, "title", cfg.Title, bridge.ToString)
	if err != nil {
		return cfg, bridge.Nest(field, err)
	}
	if width <= 0 || height <= 0 || fps <= 0 {
		return cfg, fmt.Errorf("%s: window %dx%d at %d fps must be positive", field, width, height, fps)
	}
	cfg.Width, cfg.Height, cfg.FPS, cfg.Title = int(width), int(height), int(fps), title
	return cfg, nil
}

func (g *Game) Module() string { return g.module }

// Config is the window configuration after the game's overrides.
func (g *Game) Config() gfx.WindowConfig { return g.config }

func (g *Game) call(name string, fn goja.Callable, args ...goja.Value) (goja.Value, error) {
	if fn == nil {
		return goja.Undefined(), nil
	}
	v, err := fn(g.self, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, scriptError(g.module, err))
	}
	return v, nil
}

func (g *Game) Load() error {
	_, err := g.call("load", g.load)
	return err
}

func (g *Game) Update() error {
	_, err := g.call("update", g.update)
	return err
}

func (g *Game) Draw() error {
	_, err := g.call("draw", g.draw)
	return err
}
