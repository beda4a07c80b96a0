package engine

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/glint-engine/glint/internal/bridge"
	"github.com/glint-engine/glint/internal/filestore"
	"github.com/glint-engine/glint/internal/gfx/headless"
	"github.com/glint-engine/glint/internal/plugin"
	"github.com/glint-engine/glint/internal/plugins/core"
)

func newTestLoader(t *testing.T, files map[string]string, transpile bool) (*loader, *spyStore) {
	t.Helper()
	f := newFixture(t, files)
	vm := goja.New()
	log := zap.NewNop()
	reg := plugin.NewRegistry(log)
	d, err := core.Factory(core.DefaultOptions())(&plugin.Env{
		Runtime:    vm,
		Files:      f.store,
		Backend:    headless.New(),
		Finalizers: bridge.NewFinalizers(),
		Log:        log,
	})
	require.NoError(t, err)
	require.NoError(t, reg.Register(d))
	return newLoader(vm, reg, f.store, newCompiler(transpile, log), log), f.store
}

func exportsOf(t *testing.T, l *loader, name string) *goja.Object {
	t.Helper()
	v, err := l.require(name, ".")
	require.NoError(t, err)
	return v.ToObject(l.vm)
}

func TestRelativeRequire(t *testing.T) {
	l, _ := newTestLoader(t, map[string]string{
		"main.js":         `module.exports = require("./scenes/title").name;`,
		"scenes/title.js": `exports.name = require("../lib/util").prefix + "title"; exports.dir = __dirname;`,
		"lib/util.js":     `exports.prefix = "scene:";`,
	}, false)

	v, err := l.require("main", ".")
	require.NoError(t, err)
	assert.Equal(t, "scene:title", v.String())
	assert.Equal(t, "scenes", exportsOf(t, l, "scenes/title").Get("dir").String())
	assert.Equal(t, []string{"lib/util.js", "main.js", "scenes/title.js"}, l.fileModules())
}

func TestModulesEvaluateOnce(t *testing.T) {
	l, store := newTestLoader(t, map[string]string{
		"counter.js": `globalThis.evaluated = (globalThis.evaluated || 0) + 1; module.exports = {};`,
		"a.js":       `module.exports = require("./counter");`,
		"b.js":       `module.exports = require("./counter");`,
	}, false)

	a := exportsOf(t, l, "a")
	b := exportsOf(t, l, "b")
	assert.Same(t, a, b)
	assert.Equal(t, int64(1), l.vm.Get("evaluated").ToInteger())

	n := 0
	for _, r := range store.reads {
		if r == "counter.js" {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestRequireCycleSeesPartialExports(t *testing.T) {
	l, _ := newTestLoader(t, map[string]string{
		"a.js": `exports.early = 1; var b = require("./b"); exports.seen = b.sawEarly;`,
		"b.js": `exports.sawEarly = require("./a").early;`,
	}, false)

	assert.Equal(t, int64(1), exportsOf(t, l, "a").Get("seen").ToInteger())
}

func TestFailedModuleIsNotCached(t *testing.T) {
	l, _ := newTestLoader(t, map[string]string{
		"flaky.js": `
			globalThis.attempts = (globalThis.attempts || 0) + 1;
			if (globalThis.attempts === 1) { throw new Error("first try"); }
			exports.ok = true;
		`,
	}, false)

	_, err := l.require("flaky", ".")
	var se *ScriptError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "flaky.js", se.Module)
	assert.Equal(t, "Error: first try", se.Message)
	assert.Empty(t, l.fileModules())

	assert.True(t, exportsOf(t, l, "flaky").Get("ok").ToBoolean())
}

func TestRequireErrorsReachScripts(t *testing.T) {
	l, _ := newTestLoader(t, map[string]string{
		"main.js": `
			var out = {};
			try { require("./missing"); } catch (e) { out.missing = String(e); }
			try { require(42); } catch (e) { out.type = e instanceof TypeError; }
			try { require("./thrower"); } catch (e) { out.thrown = e.message; }
			module.exports = out;
		`,
		"thrower.js": `throw new RangeError("from thrower");`,
	}, false)

	out := exportsOf(t, l, "main")
	assert.Contains(t, out.Get("missing").String(), "missing")
	assert.Contains(t, out.Get("missing").String(), "file not found")
	assert.True(t, out.Get("type").ToBoolean())
	assert.Equal(t, "from thrower", out.Get("thrown").String())
}

func TestNotFound(t *testing.T) {
	l, _ := newTestLoader(t, nil, false)
	_, err := l.require("nowhere", ".")
	require.ErrorIs(t, err, filestore.ErrNotFound)
	assert.Contains(t, err.Error(), "nowhere")
}

func TestExplicitExtension(t *testing.T) {
	l, _ := newTestLoader(t, map[string]string{
		"data.json.js": `module.exports = "js";`,
		"plain.js":     `module.exports = "plain";`,
	}, false)

	v, err := l.require("./plain.js", ".")
	require.NoError(t, err)
	assert.Equal(t, "plain", v.String())

	v, err = l.require("data.json", ".")
	require.NoError(t, err)
	assert.Equal(t, "js", v.String())
}

func TestNativeModulesAreShared(t *testing.T) {
	l, _ := newTestLoader(t, nil, false)
	a, err := l.require(core.ModuleColor, ".")
	require.NoError(t, err)
	b, err := l.require(core.ModuleColor, "scenes")
	require.NoError(t, err)
	assert.Same(t, a.ToObject(l.vm), b.ToObject(l.vm))
	assert.Equal(t, "Color", a.ToObject(l.vm).Get("name").String())
}

func TestBuiltinScriptModule(t *testing.T) {
	l, _ := newTestLoader(t, map[string]string{
		"main.js": `
			var core = require("@glint/core");
			module.exports = {
				same: core.Color === require("@glint/core/Color"),
				hex: core.Color.fromHex("#102030").toHex(),
				gfx: typeof core.graphics.rectangle,
			};
		`,
	}, false)

	out := exportsOf(t, l, "main")
	assert.True(t, out.Get("same").ToBoolean())
	assert.Equal(t, "#102030ff", out.Get("hex").String())
	assert.Equal(t, "function", out.Get("gfx").String())
	assert.Equal(t, []string{"main.js"}, l.fileModules())
}

func TestSwapAndRestoreFiles(t *testing.T) {
	l, _ := newTestLoader(t, map[string]string{"a.js": `module.exports = {};`}, false)
	before := exportsOf(t, l, "a")

	old := l.swapFiles()
	assert.Empty(t, l.fileModules())
	assert.NotSame(t, before, exportsOf(t, l, "a"))

	l.restoreFiles(old)
	assert.Same(t, before, exportsOf(t, l, "a"))
}
