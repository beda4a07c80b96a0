// Package plugin composes independently written native and script modules,
// plus their lifecycle callbacks, into one engine.
package plugin

import (
	"fmt"
	"sort"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
	"go.uber.org/zap"

	"github.com/glint-engine/glint/internal/bridge"
	"github.com/glint-engine/glint/internal/filestore"
	"github.com/glint-engine/glint/internal/gfx"
)

// Descriptor is what a plugin contributes. Every field but Name is optional.
type Descriptor struct {
	Name string
	// Native maps module names to host-implemented modules.
	Native map[string]require.ModuleLoader
	// Scripts maps module names to script source (CommonJS, ESM or TypeScript).
	Scripts map[string]string

	Load   func() error
	Unload func() error
	Update func() error
	Draw   func() error
}

// Env is handed to plugin factories. Plugins keep what they need.
type Env struct {
	Runtime    *goja.Runtime
	Files      filestore.Store
	Backend    gfx.Backend
	Finalizers *bridge.Finalizers
	Log        *zap.Logger
}

// Factory builds a plugin for one engine.
type Factory func(env *Env) (*Descriptor, error)

// RegistrationError reports a module name contributed by two plugins.
type RegistrationError struct {
	Plugin string
	Module string
	Other  string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("plugin %s: module %q already registered by plugin %s", e.Plugin, e.Module, e.Other)
}

// Registry holds the registered plugins in registration order and the union
// of their modules. It is owned by one engine and used from its frame loop
// goroutine only.
type Registry struct {
	log     *zap.Logger
	plugins []*Descriptor
	native  map[string]require.ModuleLoader
	scripts map[string]string
	owners  map[string]string
	// loaded counts the plugins, in order, whose Load has succeeded.
	loaded int
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		log:     log,
		plugins: make([]*Descriptor, 0, 4),
		native:  make(map[string]require.ModuleLoader),
		scripts: make(map[string]string),
		owners:  make(map[string]string),
	}
}

// Register merges d into the registry. A module name already contributed by
// any plugin, native or script, fails the whole registration and leaves the
// registry unchanged.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil || d.Name == "" {
		return fmt.Errorf("register plugin: missing name")
	}
	for _, p := range r.plugins {
		if p.Name == d.Name {
			return fmt.Errorf("register plugin %s: already registered", d.Name)
		}
	}

	seen := make(map[string]bool, len(d.Native)+len(d.Scripts))
	for _, name := range moduleNames(d) {
		if owner, ok := r.owners[name]; ok {
			return &RegistrationError{Plugin: d.Name, Module: name, Other: owner}
		}
		if seen[name] {
			return &RegistrationError{Plugin: d.Name, Module: name, Other: d.Name}
		}
		seen[name] = true
	}

	for name, loader := range d.Native {
		r.native[name] = loader
		r.owners[name] = d.Name
	}
	for name, src := range d.Scripts {
		r.scripts[name] = src
		r.owners[name] = d.Name
	}
	r.plugins = append(r.plugins, d)
	r.log.Debug("plugin registered",
		zap.String("plugin", d.Name),
		zap.Int("native", len(d.Native)),
		zap.Int("scripts", len(d.Scripts)),
	)
	return nil
}

func moduleNames(d *Descriptor) []string {
	names := make([]string, 0, len(d.Native)+len(d.Scripts))
	for name := range d.Native {
		names = append(names, name)
	}
	for name := range d.Scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Native returns the native module registered under name.
func (r *Registry) Native(name string) (require.ModuleLoader, bool) {
	l, ok := r.native[name]
	return l, ok
}

// Script returns the builtin script source registered under name.
func (r *Registry) Script(name string) (string, bool) {
	s, ok := r.scripts[name]
	return s, ok
}

// Owner returns the plugin that contributed module name.
func (r *Registry) Owner(name string) (string, bool) {
	p, ok := r.owners[name]
	return p, ok
}

// Modules lists every registered module name, sorted.
func (r *Registry) Modules() []string {
	out := make([]string, 0, len(r.owners))
	for name := range r.owners {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Plugins lists plugin names in registration order.
func (r *Registry) Plugins() []string {
	out := make([]string, len(r.plugins))
	for i, p := range r.plugins {
		out[i] = p.Name
	}
	return out
}

// Load runs every load callback in registration order and returns the first
// failure. Plugins after the failing one are not loaded.
func (r *Registry) Load() error {
	for _, p := range r.plugins[r.loaded:] {
		if p.Load != nil {
			if err := p.Load(); err != nil {
				return fmt.Errorf("plugin %s: load: %w", p.Name, err)
			}
		}
		r.loaded++
		r.log.Debug("plugin loaded", zap.String("plugin", p.Name))
	}
	return nil
}

// Update runs every update callback in order. The first failure skips the
// rest for this frame and is returned.
func (r *Registry) Update() error {
	for _, p := range r.plugins[:r.loaded] {
		if p.Update == nil {
			continue
		}
		if err := p.Update(); err != nil {
			return fmt.Errorf("plugin %s: update: %w", p.Name, err)
		}
	}
	return nil
}

// Draw runs every draw callback in order, with the same failure rule as
// Update.
func (r *Registry) Draw() error {
	for _, p := range r.plugins[:r.loaded] {
		if p.Draw == nil {
			continue
		}
		if err := p.Draw(); err != nil {
			return fmt.Errorf("plugin %s: draw: %w", p.Name, err)
		}
	}
	return nil
}

// Unload runs the unload callback of every loaded plugin in registration
// order. Failures are logged and do not stop the remaining plugins. It
// returns how many callbacks failed.
func (r *Registry) Unload() int {
	failed := 0
	for _, p := range r.plugins[:r.loaded] {
		if p.Unload == nil {
			continue
		}
		if err := p.Unload(); err != nil {
			failed++
			r.log.Error("plugin unload failed", zap.String("plugin", p.Name), zap.Error(err))
		}
	}
	r.loaded = 0
	return failed
}
