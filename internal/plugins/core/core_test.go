package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/glint-engine/glint/internal/bridge"
	"github.com/glint-engine/glint/internal/filestore"
	"github.com/glint-engine/glint/internal/gfx"
	"github.com/glint-engine/glint/internal/gfx/headless"
	"github.com/glint-engine/glint/internal/plugin"
)

type fixture struct {
	vm      *goja.Runtime
	backend *headless.Backend
	plugin  *Plugin
	desc    *plugin.Descriptor
	logs    *observer.ObservedLogs
}

func writeFiles(t *testing.T, files map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	for name, data := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, data, 0o644))
	}
	return dir
}

func newFixture(t *testing.T, files map[string][]byte) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	f := &fixture{vm: goja.New(), backend: headless.New(), logs: logs}
	env := &plugin.Env{
		Runtime:    f.vm,
		Files:      filestore.NewDirStore(writeFiles(t, files)),
		Backend:    f.backend,
		Finalizers: bridge.NewFinalizers(),
		Log:        zap.New(core),
	}
	f.plugin = New(env, DefaultOptions())
	f.desc = f.plugin.Descriptor()
	for name, global := range map[string]string{
		ModuleColor:         "Color",
		ModuleVector2:       "Vector2",
		ModuleRectangle:     "Rectangle",
		ModuleCamera:        "Camera",
		ModuleTexture:       "Texture",
		ModuleFont:          "Font",
		ModuleRenderTexture: "RenderTexture",
		ModuleNPatch:        "NPatch",
		ModuleGraphics:      "graphics",
		ModuleKeyboard:      "keyboard",
		ModuleMouse:         "mouse",
		ModuleScreen:        "screen",
	} {
		module := f.vm.NewObject()
		module.Set("exports", f.vm.NewObject())
		f.desc.Native[name](f.vm, module)
		require.NoError(t, f.vm.Set(global, module.Get("exports")))
	}
	return f
}

func (f *fixture) run(t *testing.T, src string) goja.Value {
	t.Helper()
	v, err := f.vm.RunString(src)
	require.NoError(t, err)
	return v
}

func (f *fixture) fails(t *testing.T, src string) string {
	t.Helper()
	_, err := f.vm.RunString(src)
	require.Error(t, err)
	return err.Error()
}

func TestTextureSharesPayloadByName(t *testing.T) {
	f := newFixture(t, map[string][]byte{"cat.png": headless.PNG(8, 4)})
	f.run(t, `
		var a = new Texture("cat.png");
		var b = Texture.load("cat.png");
	`)
	assert.Len(t, f.backend.CallsOf("LoadTexture"), 1)
	assert.Equal(t, 2, f.plugin.Textures().Refs("cat.png"))
	assert.Equal(t, "8,4,cat.png,true", f.run(t, `[a.width, a.height, b.name, a.id === b.id].join(",")`).String())

	f.run(t, `a.unload()`)
	assert.Equal(t, 1, f.plugin.Textures().Refs("cat.png"))
	f.run(t, `b.unload()`)
	assert.Equal(t, 0, f.plugin.Textures().Len())
	assert.Len(t, f.backend.CallsOf("UnloadTexture"), 1)

	f.run(t, `var c = new Texture("cat.png")`)
	assert.Len(t, f.backend.CallsOf("LoadTexture"), 2, "disposed payloads are not resurrected")
}

func TestTextureLoadByName(t *testing.T) {
	f := newFixture(t, map[string][]byte{"sprites/hero.png": headless.PNG(2, 2)})
	msg := f.fails(t, `new Texture({name: "hero"})`)
	assert.Contains(t, msg, "resource not found")

	f.run(t, `
		var first = new Texture({path: "sprites/hero.png", name: "hero"});
		var second = new Texture({name: "hero"});
	`)
	assert.Len(t, f.backend.CallsOf("LoadTexture"), 1)
	assert.Equal(t, 2, f.plugin.Textures().Refs("hero"))
	assert.Equal(t, "Rectangle(0, 0, 2, 2)", f.run(t, `String(second.source)`).String())
}

func TestTextureArgumentErrorsAcquireNothing(t *testing.T) {
	f := newFixture(t, nil)
	v := f.run(t, `
		var out = [];
		try { new Texture(42) } catch (e) { out.push(e instanceof TypeError, e.message) }
		try { new Texture({}) } catch (e) { out.push(e instanceof TypeError, e.message) }
		try { new Texture({path: 7}) } catch (e) { out.push(e.message) }
		out.join("|")
	`)
	assert.Equal(t,
		"true|Texture: expected path string or options object, got number"+
			"|true|Texture: invalid argument: either name or path must be present in options"+
			"|Texture: field 'path': expected string, got number",
		v.String())
	assert.Empty(t, f.backend.CallsOf("LoadTexture"))

	msg := f.fails(t, `new Texture("missing.png")`)
	assert.Contains(t, msg, "file not found")
	assert.Equal(t, 0, f.plugin.Textures().Len())
}

func TestTextureFinalizedOnce(t *testing.T) {
	f := newFixture(t, map[string][]byte{"cat.png": headless.PNG(1, 1)})
	obj := f.run(t, `new Texture("cat.png")`)

	f.plugin.classes.texture.Finalize(obj)
	f.plugin.classes.texture.Finalize(obj)
	assert.Len(t, f.backend.CallsOf("UnloadTexture"), 1)
	assert.Equal(t, 1, f.logs.FilterMessage("could not finalize instance: opaque pointer is null").Len())
}

func TestFontOptions(t *testing.T) {
	f := newFixture(t, map[string][]byte{"fonts/go.ttf": goregular.TTF})
	v := f.run(t, `
		var big = new Font({path: "fonts/go.ttf", name: "title", fontSize: 48, codepoints: [65, 66, 67]});
		[big.valid, big.baseSize, big.glyphCount, String(big)].join(",")
	`)
	assert.Equal(t, "true,48,3,Font(title, 48px)", v.String())

	f.run(t, `var dflt = new Font("fonts/go.ttf")`)
	assert.Equal(t, "32", f.run(t, `String(dflt.baseSize)`).String())

	msg := f.fails(t, `new Font({path: "fonts/go.ttf", codepoints: [1, "x"]})`)
	assert.Contains(t, msg, "field 'codepoints.[1]': expected number, got string")
}

func TestFontRejectsOversizedCodepointList(t *testing.T) {
	f := newFixture(t, map[string][]byte{"go.ttf": goregular.TTF})
	v := f.run(t, `
		var huge = [];
		huge.length = 4294967295;
		var msg;
		try { new Font({path: "go.ttf", codepoints: huge}) } catch (e) { msg = (e instanceof TypeError) + ":" + e.message }
		msg
	`)
	assert.Equal(t, "true:Font: invalid argument: at most 1114112 codepoints, got 4294967295", v.String())
	assert.Empty(t, f.backend.CallsOf("LoadFont"))
}

func TestValidAfterUnload(t *testing.T) {
	f := newFixture(t, map[string][]byte{"cat.png": headless.PNG(1, 1), "go.ttf": goregular.TTF})
	v := f.run(t, `
		var tex = new Texture("cat.png");
		var font = new Font("go.ttf");
		var before = [tex.valid, font.valid];
		tex.unload();
		font.unload();
		before.concat([tex.valid, font.valid]).join(",")
	`)
	assert.Equal(t, "true,true,false,false", v.String())
	assert.Contains(t, f.fails(t, `tex.width`), "released receiver")
}

func TestManifestPreload(t *testing.T) {
	manifest := []byte(`
textures:
  - name: hero
    path: hero.png
fonts:
  - name: ui
    path: go.ttf
    size: 20
`)
	f := newFixture(t, map[string][]byte{
		"assets.yaml": manifest,
		"hero.png":    headless.PNG(3, 3),
		"go.ttf":      goregular.TTF,
	})
	require.NoError(t, f.desc.Load())
	assert.Equal(t, 1, f.plugin.Textures().Refs("hero"))
	assert.Equal(t, 1, f.plugin.Fonts().Refs("ui"))

	f.run(t, `var t = new Texture({name: "hero"}); var u = new Font({name: "ui"})`)
	assert.Equal(t, "20", f.run(t, `String(u.baseSize)`).String())
	f.run(t, `t.unload(); u.unload()`)

	require.NoError(t, f.desc.Unload())
	textures, fonts, _, _ := f.backend.Live()
	assert.Zero(t, textures)
	assert.Zero(t, fonts)
	assert.Zero(t, f.logs.FilterMessage("resource leaked").Len())
}

func TestUnloadReportsLeaks(t *testing.T) {
	f := newFixture(t, map[string][]byte{"cat.png": headless.PNG(1, 1)})
	require.NoError(t, f.desc.Load())
	f.run(t, `var kept = new Texture("cat.png")`)
	require.NoError(t, f.desc.Unload())

	leaks := f.logs.FilterMessage("resource leaked").All()
	require.Len(t, leaks, 1)
	assert.Equal(t, "cat.png", leaks[0].ContextMap()["name"])
	textures, _, _, _ := f.backend.Live()
	assert.Zero(t, textures)
}

func TestLoadManifestErrors(t *testing.T) {
	store := filestore.NewDirStore(writeFiles(t, map[string][]byte{
		"bad.yaml":  []byte("textures: [{name: x}]"),
		"dup.yaml":  []byte("textures: [{path: a.png}, {path: a.png}]"),
		"junk.yaml": []byte("textures: {"),
	}))
	m, err := LoadManifest(store, "absent.yaml")
	require.NoError(t, err)
	assert.Zero(t, m.Count())

	_, err = LoadManifest(store, "bad.yaml")
	assert.ErrorContains(t, err, "textures[0]: missing path")
	_, err = LoadManifest(store, "dup.yaml")
	assert.ErrorContains(t, err, `duplicate name "a.png"`)
	_, err = LoadManifest(store, "junk.yaml")
	assert.ErrorContains(t, err, "parse asset manifest")
}

func TestValueClasses(t *testing.T) {
	f := newFixture(t, nil)
	cases := []struct{ src, want string }{
		{`Color.fromHex("#181818").r`, "24"},
		{`new Color("#ff000080").a`, "128"},
		{`new Color(1, 2, 3).a`, "255"},
		{`String(new Color(1, 2, 3, 4))`, "Color(1, 2, 3, 4)"},
		{`new Color(255, 0, 0).equals({r: 255, g: 0, b: 0, a: 255})`, "true"},
		{`String(new Vector2(1, 2).add({x: 1, y: 1}))`, "Vector2(2, 3)"},
		{`new Vector2(3, 4).length()`, "5"},
		{`Vector2.one().scale(2) instanceof Vector2`, "true"},
		{`new Rectangle(0, 0, 10, 10).contains(new Vector2(5, 5))`, "true"},
		{`new Rectangle(0, 0, 10, 10).intersects({x: 20, y: 0, width: 1, height: 1})`, "false"},
		{`Camera.default().zoom`, "1"},
		{`new Camera({zoom: 2, target: {x: 5, y: 6}}).target.y`, "6"},
		{`new Camera(Vector2.zero(), Vector2.one(), 45, 3).rotation`, "45"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, f.run(t, c.src).String(), c.src)
	}

	assert.Contains(t, f.fails(t, `Color.fromHex("181818")`), "hex color starting with '#'")
	assert.Contains(t, f.fails(t, `new Color(1, 2)`), "field 'b': expected number, got undefined")
	assert.Contains(t, f.fails(t, `new Vector2(1)`), "field 'y'")
	assert.Contains(t, f.fails(t, `new Camera({zoom: "far"})`), "field 'zoom': expected number, got string")
	assert.Contains(t, f.fails(t, `Vector2.zero().add(3)`), "Vector2.add: argument 1: expected Vector2, got number")
}

func TestGraphicsPassThrough(t *testing.T) {
	f := newFixture(t, map[string][]byte{"cat.png": headless.PNG(4, 2)})
	f.run(t, `
		var red = {r: 255, g: 0, b: 0, a: 255};
		graphics
			.rectangle(1, 2, 3, 4, red)
			.rectangle(new Rectangle(5, 6, 7, 8), red)
			.circle(10, 10, 2, red)
			.beginCamera(Camera.default())
			.textureEx(new Texture("cat.png"), {x: 1, y: 1}, 0, 2)
			.endCamera();
	`)
	rects := f.backend.CallsOf("DrawRectangle")
	require.Len(t, rects, 2)
	assert.Equal(t, gfx.Rectangle{X: 1, Y: 2, Width: 3, Height: 4}, rects[0].Args[0])
	assert.Equal(t, gfx.Rectangle{X: 5, Y: 6, Width: 7, Height: 8}, rects[1].Args[0])

	tex := f.backend.CallsOf("DrawTexture")
	require.Len(t, tex, 1)
	assert.Equal(t, gfx.Rectangle{X: 1, Y: 1, Width: 8, Height: 4}, tex[0].Args[2])
	assert.Equal(t, gfx.White, tex[0].Args[5])
	assert.Len(t, f.backend.CallsOf("EndCamera"), 1)

	msg := f.fails(t, `graphics.rectangle(0, 0, 1, 1, {r: 1, g: 2, b: 3})`)
	assert.Contains(t, msg, "graphics.rectangle: argument 5: field 'a': expected number, got undefined")
	assert.Contains(t, f.fails(t, `graphics.texture({}, 0, 0)`), "expected Texture, got object")
}

func TestDrawClearsBackground(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.desc.Draw())
	clears := f.backend.CallsOf("Clear")
	require.Len(t, clears, 1)
	assert.Equal(t, gfx.Black, clears[0].Args[0])
}

func TestInputModules(t *testing.T) {
	f := newFixture(t, nil)
	f.backend.Press(gfx.KeySpace)
	f.backend.MoveMouse(gfx.Vector2{X: 12, Y: 34})
	f.backend.SetMouseButton(gfx.MouseLeft, true)

	v := f.run(t, `[keyboard.isDown("space"), keyboard.isPressed("SPACE"), keyboard.isDown("a"),
		mouse.x, mouse.position.y, mouse.isDown("left"), mouse.isButtonUp("right")].join(",")`)
	assert.Equal(t, "true,true,false,12,34,true,true", v.String())
	assert.Contains(t, f.fails(t, `keyboard.isDown("hyper")`), `unknown key "hyper"`)

	require.NoError(t, f.backend.OpenWindow(gfx.WindowConfig{Width: 640, Height: 480, FPS: 50}))
	assert.Equal(t, "640x480@50 0.02", f.run(t, `screen.width + "x" + screen.height + "@" + screen.fps + " " + screen.dt.toFixed(2)`).String())
}

func TestConsoleWritesThroughLogger(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t, `console.log("hello", {a: 1}, [1, 2], new Vector2(1, 2)); console.warn("careful")`)

	logs := f.logs.Filter(func(e observer.LoggedEntry) bool { return e.LoggerName == "script" }).All()
	require.Len(t, logs, 2)
	assert.Equal(t, `hello {"a":1} [1,2] Vector2(1, 2)`, logs[0].Message)
	assert.Equal(t, zapcore.InfoLevel, logs[0].Level)
	assert.Equal(t, zapcore.WarnLevel, logs[1].Level)
}

func TestRenderTextureResizeReloads(t *testing.T) {
	f := newFixture(t, nil)
	v := f.run(t, `
		var rt = new RenderTexture(64, 32);
		var before = rt.id;
		rt.width = 128;
		[rt.width, rt.height, rt.id !== before, rt.valid, String(rt), String(rt.source)].join(",")
	`)
	assert.Equal(t, "128,32,true,true,RenderTexture(128x32),Rectangle(0, 0, 128, -32)", v.String())
	assert.Len(t, f.backend.CallsOf("LoadRenderTexture"), 2)
	assert.Len(t, f.backend.CallsOf("UnloadRenderTexture"), 1)
	assert.Equal(t, 1, f.backend.RenderTargets())

	assert.Contains(t, f.fails(t, `rt.height = 0`), "RenderTexture.height: invalid argument: size must be positive, got 0")
	assert.Len(t, f.backend.CallsOf("LoadRenderTexture"), 2)

	obj := f.vm.Get("rt")
	f.plugin.classes.target.Finalize(obj)
	f.plugin.classes.target.Finalize(obj)
	assert.Len(t, f.backend.CallsOf("UnloadRenderTexture"), 2)
	assert.Zero(t, f.backend.RenderTargets())
}

func TestRenderTextureArgumentErrors(t *testing.T) {
	f := newFixture(t, nil)
	v := f.run(t, `
		var out = [];
		try { new RenderTexture(0, 8) } catch (e) { out.push(e instanceof TypeError, e.message) }
		try { new RenderTexture(8) } catch (e) { out.push(e.message) }
		var rt = new RenderTexture(8, 8);
		rt.unload();
		out.push(rt.valid);
		out.join("|")
	`)
	assert.Equal(t,
		"true|RenderTexture: invalid argument: size must be positive, got 0"+
			"|RenderTexture: field 'height': expected number, got undefined|false",
		v.String())
	assert.Len(t, f.backend.CallsOf("LoadRenderTexture"), 1)
	assert.Zero(t, f.backend.RenderTargets())
}

func TestUnloadReleasesRenderTextures(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t, `var kept = new RenderTexture(8, 8)`)
	require.NoError(t, f.desc.Unload())

	assert.Zero(t, f.backend.RenderTargets())
	textures, _, _, _ := f.backend.Live()
	assert.Zero(t, textures)
	assert.Equal(t, 1, f.logs.FilterMessage("resources still referenced at shutdown").Len())

	assert.Equal(t, "false", f.run(t, `String(kept.valid)`).String())
	assert.Contains(t, f.fails(t, `kept.width = 4`), "render texture released")
	assert.Contains(t, f.fails(t, `graphics.beginTextureMode(kept)`), "render texture released")

	f.plugin.classes.target.Finalize(f.vm.Get("kept"))
	assert.Len(t, f.backend.CallsOf("UnloadRenderTexture"), 1)
}

func TestNPatchClass(t *testing.T) {
	f := newFixture(t, nil)
	cases := []struct{ src, want string }{
		{`String(new NPatch(new Rectangle(0, 0, 16, 16), 4, 4, 4, 4))`, "NPatch(Rectangle(0, 0, 16, 16), 4, 4, 4, 4, 0)"},
		{`new NPatch({source: {x: 0, y: 0, width: 8, height: 24}, left: 0, top: 8, right: 0, bottom: 8, layout: 1}).layout`, "1"},
		{`new NPatch(new Rectangle(0, 0, 16, 16), 1, 2, 3, 4, 2).source instanceof Rectangle`, "true"},
		{`var p = new NPatch(new Rectangle(0, 0, 1, 1), 0, 0, 0, 0); p.left = 6; p.source = {x: 1, y: 1, width: 2, height: 2}; String(p)`,
			"NPatch(Rectangle(1, 1, 2, 2), 6, 0, 0, 0, 0)"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, f.run(t, c.src).String(), c.src)
	}

	assert.Contains(t, f.fails(t, `new NPatch(new Rectangle(0, 0, 1, 1), 0, 0, 0)`), "field 'bottom': expected number, got undefined")
	assert.Contains(t, f.fails(t, `new NPatch(new Rectangle(0, 0, 1, 1), 0, 0, 0, 0, 3)`), "unknown n-patch layout 3")
	assert.Contains(t, f.fails(t, `p.layout = -1`), "NPatch.layout: invalid argument: unknown n-patch layout -1")
}

func TestTextureNPatchAndTextureMode(t *testing.T) {
	f := newFixture(t, map[string][]byte{"panel.png": headless.PNG(16, 16)})
	f.run(t, `
		var panel = new Texture("panel.png");
		var patch = new NPatch(new Rectangle(0, 0, 16, 16), 4, 4, 4, 4);
		var target = new RenderTexture(32, 32);
		graphics.withTexture(target, function () {
			graphics.textureNPatch(panel, patch, new Rectangle(0, 0, 32, 32));
		});
		graphics
			.textureNPatch(panel, {source: panel.source, left: 2, top: 0, right: 2, bottom: 0, layout: 2},
				{x: 0, y: 0, width: 64, height: 16}, {x: 1, y: 1}, 90)
			.texturePro(target, target.source, new Rectangle(0, 0, 32, 32), Vector2.zero(), 0);
	`)
	var ops []string
	for _, c := range f.backend.Calls() {
		ops = append(ops, c.Op)
	}
	assert.Equal(t, []string{
		"LoadTexture", "LoadRenderTexture",
		"BeginTextureMode", "DrawTextureNPatch", "EndTextureMode",
		"DrawTextureNPatch", "DrawTexture",
	}, ops)

	patches := f.backend.CallsOf("DrawTextureNPatch")
	require.Len(t, patches, 2)
	assert.Equal(t, gfx.NPatch{Source: gfx.Rectangle{Width: 16, Height: 16}, Left: 4, Top: 4, Right: 4, Bottom: 4}, patches[0].Args[1])
	assert.Equal(t, gfx.Rectangle{Width: 32, Height: 32}, patches[0].Args[2])
	assert.Equal(t, gfx.White, patches[0].Args[5])
	assert.Equal(t, gfx.ThreePatchHorizontal, patches[1].Args[1].(gfx.NPatch).Layout)
	assert.Equal(t, gfx.Vector2{X: 1, Y: 1}, patches[1].Args[3])
	assert.Equal(t, float32(90), patches[1].Args[4])

	blit := f.backend.CallsOf("DrawTexture")
	require.Len(t, blit, 1)
	assert.Equal(t, gfx.Rectangle{Width: 32, Height: -32}, blit[0].Args[1])

	msg := f.fails(t, `graphics.withTexture(target, function () { throw new Error("boom") })`)
	assert.Contains(t, msg, "boom")
	assert.Len(t, f.backend.CallsOf("EndTextureMode"), 2)

	f.run(t, `graphics.beginTextureMode(target)`)
	require.NoError(t, f.desc.Draw())
	assert.Len(t, f.backend.CallsOf("EndTextureMode"), 3)
	f.run(t, `graphics.beginTextureMode(target).endTextureMode().endTextureMode()`)
	assert.Len(t, f.backend.CallsOf("EndTextureMode"), 4)

	assert.Contains(t, f.fails(t, `graphics.withTexture(target, 1)`), "graphics.withTexture: argument 2: expected function, got number")
	assert.Contains(t, f.fails(t, `graphics.textureNPatch(panel, {}, new Rectangle(0, 0, 1, 1))`), "graphics.textureNPatch: argument 2: field 'source'")
}
