// Package core is the built-in plugin with the value types, shared textures
// and fonts, drawing, input and console modules.
package core

import (
	_ "embed"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
	"go.uber.org/zap"

	"github.com/glint-engine/glint/internal/bridge"
	"github.com/glint-engine/glint/internal/gfx"
	"github.com/glint-engine/glint/internal/plugin"
	"github.com/glint-engine/glint/internal/resource"
)

const Name = "core"

// Module names contributed by the plugin.
const (
	ModuleIndex         = "@glint/core"
	ModuleColor         = "@glint/core/Color"
	ModuleVector2       = "@glint/core/Vector2"
	ModuleRectangle     = "@glint/core/Rectangle"
	ModuleCamera        = "@glint/core/Camera"
	ModuleTexture       = "@glint/core/Texture"
	ModuleFont          = "@glint/core/Font"
	ModuleRenderTexture = "@glint/core/RenderTexture"
	ModuleNPatch        = "@glint/core/NPatch"
	ModuleGraphics      = "@glint/core/graphics"
	ModuleScreen        = "@glint/core/screen"
	ModuleKeyboard      = "@glint/core/keyboard"
	ModuleMouse         = "@glint/core/mouse"
	ModuleConsole       = "@glint/core/console"
)

//go:embed index.js
var indexSource string

// Options configures the core plugin.
type Options struct {
	// Manifest is the asset manifest path inside the game's file store.
	// Empty disables preloading.
	Manifest string
	// Background clears the screen at the start of every draw.
	Background gfx.Color
}

// DefaultOptions clears to black and preloads assets.yaml.
func DefaultOptions() Options {
	return Options{Manifest: "assets.yaml", Background: gfx.Black}
}

type classes struct {
	color   *bridge.Binding[gfx.Color]
	vector  *bridge.Binding[gfx.Vector2]
	rect    *bridge.Binding[gfx.Rectangle]
	camera  *bridge.Binding[gfx.Camera2D]
	texture *bridge.Binding[textureRef]
	font    *bridge.Binding[fontRef]
	target  *bridge.Binding[renderTextureRef]
	npatch  *bridge.Binding[gfx.NPatch]
}

// Plugin owns the texture and font stores of one engine.
type Plugin struct {
	env  *plugin.Env
	opts Options
	log  *zap.Logger

	textures *resource.Store[gfx.Texture]
	fonts    *resource.Store[gfx.Font]
	targets  map[*renderTextureRef]struct{}
	classes  classes

	preloaded   []preloaded
	cameraOpen  bool
	textureOpen bool
}

// Factory returns a plugin.Factory building the core plugin with opts.
func Factory(opts Options) plugin.Factory {
	return func(env *plugin.Env) (*plugin.Descriptor, error) {
		return New(env, opts).Descriptor(), nil
	}
}

// New binds the core classes into env.Runtime and installs the console
// global.
func New(env *plugin.Env, opts Options) *Plugin {
	log := env.Log.Named(Name)
	p := &Plugin{env: env, opts: opts, log: log, targets: make(map[*renderTextureRef]struct{})}
	p.textures = resource.NewStore("texture", func(_ string, t gfx.Texture) {
		env.Backend.UnloadTexture(t)
	}, log)
	p.fonts = resource.NewStore("font", func(_ string, f gfx.Font) {
		env.Backend.UnloadFont(f)
	}, log)

	vm, fin := env.Runtime, env.Finalizers
	p.classes.vector = vectorClass().Bind(vm, fin, log)
	p.classes.color = colorClass().Bind(vm, fin, log)
	p.classes.rect = rectangleClass(p.classes.vector).Bind(vm, fin, log)
	p.classes.camera = cameraClass(p.classes.vector).Bind(vm, fin, log)
	p.classes.texture = p.textureClass().Bind(vm, fin, log)
	p.classes.font = p.fontClass().Bind(vm, fin, log)
	p.classes.target = p.renderTextureClass().Bind(vm, fin, log)
	p.classes.npatch = nPatchClass(p.classes.rect).Bind(vm, fin, log)

	vm.Set("console", p.consoleModule(vm))
	return p
}

// Textures is the shared texture store.
func (p *Plugin) Textures() *resource.Store[gfx.Texture] { return p.textures }

// Fonts is the shared font store.
func (p *Plugin) Fonts() *resource.Store[gfx.Font] { return p.fonts }

func exportObject(name string, build func(vm *goja.Runtime) *goja.Object) require.ModuleLoader {
	return func(vm *goja.Runtime, module *goja.Object) {
		bridge.ExportDefault(module, name, build(vm))
	}
}

func exportClass(name string, ctor *goja.Object) require.ModuleLoader {
	return func(_ *goja.Runtime, module *goja.Object) {
		bridge.ExportDefault(module, name, ctor)
	}
}

// Descriptor describes the plugin to the registry.
func (p *Plugin) Descriptor() *plugin.Descriptor {
	return &plugin.Descriptor{
		Name: Name,
		Native: map[string]require.ModuleLoader{
			ModuleColor:         exportClass("Color", p.classes.color.Constructor()),
			ModuleVector2:       exportClass("Vector2", p.classes.vector.Constructor()),
			ModuleRectangle:     exportClass("Rectangle", p.classes.rect.Constructor()),
			ModuleCamera:        exportClass("Camera", p.classes.camera.Constructor()),
			ModuleTexture:       exportClass("Texture", p.classes.texture.Constructor()),
			ModuleFont:          exportClass("Font", p.classes.font.Constructor()),
			ModuleRenderTexture: exportClass("RenderTexture", p.classes.target.Constructor()),
			ModuleNPatch:        exportClass("NPatch", p.classes.npatch.Constructor()),
			ModuleGraphics:      exportObject("graphics", p.graphicsModule),
			ModuleScreen:        exportObject("screen", p.screenModule),
			ModuleKeyboard:      exportObject("keyboard", p.keyboardModule),
			ModuleMouse:         exportObject("mouse", p.mouseModule),
			ModuleConsole:       exportObject("console", p.consoleModule),
		},
		Scripts: map[string]string{
			ModuleIndex: indexSource,
		},
		Load:   p.load,
		Unload: p.unload,
		Draw:   p.draw,
	}
}

func (p *Plugin) load() error {
	if p.opts.Manifest == "" {
		return nil
	}
	m, err := LoadManifest(p.env.Files, p.opts.Manifest)
	if err != nil {
		return err
	}
	return p.preload(m)
}

func (p *Plugin) draw() error {
	p.cameraOpen = false
	if p.textureOpen {
		p.env.Backend.EndTextureMode()
		p.textureOpen = false
	}
	p.env.Backend.Clear(p.opts.Background)
	return nil
}

// unload drops the preloaded handles, closes both stores and frees render
// targets; anything still resident after that was leaked by a script object.
func (p *Plugin) unload() error {
	p.releasePreloaded()
	leaked := p.textures.Close() + p.fonts.Close() + p.releaseRenderTextures()
	if leaked > 0 {
		p.log.Warn("resources still referenced at shutdown", zap.Int("count", leaked))
	}
	return nil
}
