package engine

import (
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/glint-engine/glint/internal/bridge"
	"github.com/glint-engine/glint/internal/filestore"
	"github.com/glint-engine/glint/internal/plugin"
)

// Extensions tried, in order, for a module name without one.
var scriptExts = []string{".js", ".ts"}

// loader resolves and caches modules for one runtime. Resolution tries a
// plugin's native module, then a plugin's script module, then a file from the
// store. Native and builtin modules live for the whole engine; file modules
// are dropped on hot reload.
type loader struct {
	vm       *goja.Runtime
	registry *plugin.Registry
	store    filestore.Store
	compiler *compiler
	log      *zap.Logger

	native   map[string]goja.Value
	builtins map[string]*goja.Object
	files    map[string]*goja.Object
}

func newLoader(vm *goja.Runtime, registry *plugin.Registry, store filestore.Store, c *compiler, log *zap.Logger) *loader {
	return &loader{
		vm:       vm,
		registry: registry,
		store:    store,
		compiler: c,
		log:      log,
		native:   make(map[string]goja.Value),
		builtins: make(map[string]*goja.Object),
		files:    make(map[string]*goja.Object),
	}
}

// require resolves name as seen from a module in dir.
func (l *loader) require(name, dir string) (goja.Value, error) {
	if fn, ok := l.registry.Native(name); ok {
		if v, ok := l.native[name]; ok {
			return v, nil
		}
		module := l.newModule(name)
		fn(l.vm, module)
		v := module.Get("exports")
		l.native[name] = v
		return v, nil
	}
	if src, ok := l.registry.Script(name); ok {
		return l.evaluate(name, src, l.builtins, true)
	}
	file, err := l.resolve(name, dir)
	if err != nil {
		return nil, err
	}
	return l.loadFile(file)
}

// resolve maps a module name to a path in the store. Relative names start
// from dir; an extensionless name tries each script extension.
func (l *loader) resolve(name, dir string) (string, error) {
	p := strings.TrimPrefix(name, "/")
	if strings.HasPrefix(name, "./") || strings.HasPrefix(name, "../") {
		p = path.Join(dir, name)
	}
	p = path.Clean(p)

	candidates := make([]string, 0, len(scriptExts)+1)
	if path.Ext(p) != "" {
		candidates = append(candidates, p)
	}
	for _, ext := range scriptExts {
		candidates = append(candidates, p+ext)
	}
	for _, c := range candidates {
		if l.store.Exists(c) {
			return c, nil
		}
	}
	return "", &filestore.Error{Op: "resolve module", Path: name, Err: filestore.ErrNotFound}
}

func (l *loader) loadFile(file string) (goja.Value, error) {
	if m, ok := l.files[file]; ok {
		return m.Get("exports"), nil
	}
	src, err := l.store.ReadString(file)
	if err != nil {
		return nil, err
	}
	return l.evaluate(file, src, l.files, false)
}

func (l *loader) newModule(id string) *goja.Object {
	module := l.vm.NewObject()
	module.Set("id", id)
	module.Set("exports", l.vm.NewObject())
	return module
}

// evaluate runs a module once and caches it in cache. The module is cached
// before it runs so a require cycle sees the partial exports; a module that
// throws is removed again.
func (l *loader) evaluate(id, src string, cache map[string]*goja.Object, force bool) (goja.Value, error) {
	if m, ok := cache[id]; ok {
		return m.Get("exports"), nil
	}
	prog, err := l.compiler.compile(id, src, force)
	if err != nil {
		return nil, err
	}
	wrapper, err := l.vm.RunProgram(prog)
	if err != nil {
		return nil, scriptError(id, err)
	}
	fn, ok := goja.AssertFunction(wrapper)
	if !ok {
		return nil, &ScriptError{Module: id, Message: "module wrapper is not a function"}
	}

	module := l.newModule(id)
	exports := module.Get("exports")
	dir := path.Dir(id)
	cache[id] = module
	_, err = fn(exports, exports, l.vm.ToValue(l.requireFunc(dir)), module, l.vm.ToValue(id), l.vm.ToValue(dir))
	if err != nil {
		delete(cache, id)
		return nil, scriptError(id, err)
	}
	l.log.Debug("loaded module", zap.String("module", id))
	return module.Get("exports"), nil
}

// requireFunc is the require function handed to modules in dir.
func (l *loader) requireFunc(dir string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		name, err := bridge.ToString(call.Argument(0))
		if err != nil {
			bridge.Throw(l.vm, fmt.Errorf("require: %w", err))
		}
		v, err := l.require(name, dir)
		if err != nil {
			rethrow(l.vm, err)
		}
		return v
	}
}

// swapFiles empties the file module cache and returns the old one, for
// restoring when a reload fails.
func (l *loader) swapFiles() map[string]*goja.Object {
	old := l.files
	l.files = make(map[string]*goja.Object)
	return old
}

func (l *loader) restoreFiles(files map[string]*goja.Object) {
	l.files = files
}

// fileModules lists the cached file modules in name order.
func (l *loader) fileModules() []string {
	return slices.Sorted(maps.Keys(l.files))
}

// reset drops every cached module.
func (l *loader) reset() {
	clear(l.native)
	clear(l.builtins)
	clear(l.files)
}
