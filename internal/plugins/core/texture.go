package core

import (
	"fmt"
	"path"
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/glint-engine/glint/internal/bridge"
	"github.com/glint-engine/glint/internal/gfx"
	"github.com/glint-engine/glint/internal/resource"
)

type loadMode int

const (
	loadByParams loadMode = iota + 1
	loadByName
)

// loadRequest is the classified argument list of a resource-backed
// constructor: a bare path, {path, name?} or {name}.
type loadRequest struct {
	mode loadMode
	name string
	path string
	opts *goja.Object
}

func classifyLoadArgs(args []goja.Value) (loadRequest, error) {
	first := bridge.Arg(args, 0)
	if goja.IsString(first) {
		p := first.String()
		return loadRequest{mode: loadByParams, name: p, path: p}, nil
	}
	obj, ok := first.(*goja.Object)
	if !ok || bridge.Missing(first) {
		return loadRequest{}, &bridge.TypeError{Expected: "path string or options object", Got: bridge.TypeOf(first)}
	}
	name, err := bridge.OptionalField(obj, "name", "", bridge.ToString)
	if err != nil {
		return loadRequest{}, err
	}
	p, err := bridge.OptionalField(obj, "path", "", bridge.ToString)
	if err != nil {
		return loadRequest{}, err
	}
	switch {
	case p != "":
		if name == "" {
			name = p
		}
		return loadRequest{mode: loadByParams, name: name, path: p, opts: obj}, nil
	case name != "":
		return loadRequest{mode: loadByName, name: name, opts: obj}, nil
	}
	return loadRequest{}, fmt.Errorf("%w: either name or path must be present in options", bridge.ErrInvalidArgument)
}

// extOf returns the lower-case extension of p with its dot.
func extOf(p string) string {
	return strings.ToLower(path.Ext(p))
}

// textureRef is the native side of a script Texture: one handle into the
// texture store.
type textureRef struct {
	handle resource.Handle
}

func (p *Plugin) textureLoader(file string) resource.Loader[gfx.Texture] {
	return func() (gfx.Texture, error) {
		data, err := p.env.Files.ReadBytes(file)
		if err != nil {
			return gfx.Texture{}, err
		}
		return p.env.Backend.LoadTexture(extOf(file), data)
	}
}

// acquireTexture takes a handle for req.
func (p *Plugin) acquireTexture(req loadRequest) (resource.Handle, error) {
	if req.mode == loadByName {
		return p.textures.LoadByName(req.name)
	}
	return p.textures.Load(req.name, p.textureLoader(req.path))
}

func (p *Plugin) texture(ref *textureRef) gfx.Texture {
	t, err := p.textures.Borrow(ref.handle)
	if err != nil {
		bridge.Throw(p.env.Runtime, err)
	}
	return t
}

func (p *Plugin) textureClass() *bridge.Class[textureRef] {
	intProp := func(name string, get func(gfx.Texture) any) bridge.Property[textureRef] {
		return bridge.Property[textureRef]{
			Name: name,
			Get: func(vm *goja.Runtime, ref *textureRef) goja.Value {
				return vm.ToValue(get(p.texture(ref)))
			},
		}
	}
	return &bridge.Class[textureRef]{
		Name: "Texture",
		Construct: func(_ *goja.Runtime, args []goja.Value) (bridge.Acquire[textureRef], error) {
			req, err := classifyLoadArgs(args)
			if err != nil {
				return nil, err
			}
			return func() (*textureRef, error) {
				h, err := p.acquireTexture(req)
				if err != nil {
					return nil, err
				}
				return &textureRef{handle: h}, nil
			}, nil
		},
		Finalize: func(ref *textureRef) {
			if err := p.textures.Release(ref.handle); err != nil {
				p.log.Warn("release texture", zap.Stringer("handle", ref.handle), zap.Error(err))
			}
		},
		Properties: []bridge.Property[textureRef]{
			intProp("id", func(t gfx.Texture) any { return t.ID }),
			intProp("width", func(t gfx.Texture) any { return t.Width }),
			intProp("height", func(t gfx.Texture) any { return t.Height }),
			{
				Name:     "valid",
				Released: true,
				Get: func(vm *goja.Runtime, ref *textureRef) goja.Value {
					if ref == nil {
						return vm.ToValue(false)
					}
					_, err := p.textures.Borrow(ref.handle)
					return vm.ToValue(err == nil)
				},
			},
			{
				Name: "name",
				Get: func(vm *goja.Runtime, ref *textureRef) goja.Value {
					return vm.ToValue(ref.handle.Name())
				},
			},
			{
				Name: "source",
				Get: func(_ *goja.Runtime, ref *textureRef) goja.Value {
					return p.classes.rect.NewValue(p.texture(ref).Source())
				},
			},
		},
		Methods: []bridge.Method[textureRef]{
			{Name: "unload", Fn: func(b *bridge.Binding[textureRef], _ *textureRef, call goja.FunctionCall) goja.Value {
				b.Release(call.This)
				return goja.Undefined()
			}},
			{Name: "toString", Fn: func(b *bridge.Binding[textureRef], ref *textureRef, _ goja.FunctionCall) goja.Value {
				t := p.texture(ref)
				return b.Runtime().ToValue(fmt.Sprintf("Texture(%s, %dx%d)", ref.handle.Name(), t.Width, t.Height))
			}},
		},
		Statics: []bridge.Static[textureRef]{
			{Name: "load", Fn: func(b *bridge.Binding[textureRef], call goja.FunctionCall) goja.Value {
				return b.Construct(call.Arguments...)
			}},
		},
	}
}
