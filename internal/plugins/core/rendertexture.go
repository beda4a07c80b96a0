package core

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/glint-engine/glint/internal/bridge"
	"github.com/glint-engine/glint/internal/gfx"
)

var errRenderTextureReleased = errors.New("render texture released")

// renderTextureRef owns one render target. Render textures are never shared,
// so they bypass the resource stores and the plugin tracks them directly.
type renderTextureRef struct {
	rt gfx.RenderTexture
}

func (p *Plugin) loadRenderTexture(width, height int32) (*renderTextureRef, error) {
	rt, err := p.env.Backend.LoadRenderTexture(width, height)
	if err != nil {
		return nil, err
	}
	ref := &renderTextureRef{rt: rt}
	p.targets[ref] = struct{}{}
	return ref, nil
}

func (p *Plugin) unloadRenderTexture(ref *renderTextureRef) {
	if _, ok := p.targets[ref]; !ok {
		return
	}
	delete(p.targets, ref)
	p.env.Backend.UnloadRenderTexture(ref.rt)
}

// resize swaps in a target of the new size. The old one is dropped only once
// the new one exists.
func (p *Plugin) resize(ref *renderTextureRef, width, height int32) error {
	if _, err := p.renderTarget(ref); err != nil {
		return err
	}
	rt, err := p.env.Backend.LoadRenderTexture(width, height)
	if err != nil {
		return err
	}
	p.env.Backend.UnloadRenderTexture(ref.rt)
	ref.rt = rt
	return nil
}

// renderTarget fails once the plugin has released ref at shutdown.
func (p *Plugin) renderTarget(ref *renderTextureRef) (gfx.RenderTexture, error) {
	if _, ok := p.targets[ref]; !ok {
		return gfx.RenderTexture{}, errRenderTextureReleased
	}
	return ref.rt, nil
}

// releaseRenderTextures unloads every target a script never released.
func (p *Plugin) releaseRenderTextures() int {
	n := len(p.targets)
	for ref := range p.targets {
		p.unloadRenderTexture(ref)
	}
	return n
}

func toSize(v goja.Value) (int32, error) {
	n, err := bridge.ToInt(v)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: size must be positive, got %d", bridge.ErrInvalidArgument, n)
	}
	return n, nil
}

func (p *Plugin) renderTextureClass() *bridge.Class[renderTextureRef] {
	sizeProp := func(name string, get func(gfx.Texture) int32, resize func(ref *renderTextureRef, n int32) error) bridge.Property[renderTextureRef] {
		return bridge.Property[renderTextureRef]{
			Name: name,
			Get: func(vm *goja.Runtime, ref *renderTextureRef) goja.Value {
				return vm.ToValue(get(ref.rt.Texture))
			},
			Set: func(_ *goja.Runtime, ref *renderTextureRef, v goja.Value) error {
				n, err := toSize(v)
				if err != nil {
					return err
				}
				return resize(ref, n)
			},
		}
	}
	return &bridge.Class[renderTextureRef]{
		Name: "RenderTexture",
		Construct: func(_ *goja.Runtime, args []goja.Value) (bridge.Acquire[renderTextureRef], error) {
			width, err := toSize(bridge.Arg(args, 0))
			if err != nil {
				return nil, bridge.Nest("width", err)
			}
			height, err := toSize(bridge.Arg(args, 1))
			if err != nil {
				return nil, bridge.Nest("height", err)
			}
			return func() (*renderTextureRef, error) {
				return p.loadRenderTexture(width, height)
			}, nil
		},
		Finalize: p.unloadRenderTexture,
		Properties: []bridge.Property[renderTextureRef]{
			sizeProp("width", func(t gfx.Texture) int32 { return t.Width }, func(ref *renderTextureRef, n int32) error {
				return p.resize(ref, n, ref.rt.Texture.Height)
			}),
			sizeProp("height", func(t gfx.Texture) int32 { return t.Height }, func(ref *renderTextureRef, n int32) error {
				return p.resize(ref, ref.rt.Texture.Width, n)
			}),
			{
				Name: "id",
				Get: func(vm *goja.Runtime, ref *renderTextureRef) goja.Value {
					return vm.ToValue(ref.rt.ID)
				},
			},
			{
				Name:     "valid",
				Released: true,
				Get: func(vm *goja.Runtime, ref *renderTextureRef) goja.Value {
					_, live := p.targets[ref]
					return vm.ToValue(ref != nil && live)
				},
			},
			{
				// source flips the color buffer, which is stored bottom-up.
				Name: "source",
				Get: func(_ *goja.Runtime, ref *renderTextureRef) goja.Value {
					src := ref.rt.Texture.Source()
					src.Height = -src.Height
					return p.classes.rect.NewValue(src)
				},
			},
		},
		Methods: []bridge.Method[renderTextureRef]{
			{Name: "unload", Fn: func(b *bridge.Binding[renderTextureRef], _ *renderTextureRef, call goja.FunctionCall) goja.Value {
				b.Release(call.This)
				return goja.Undefined()
			}},
			{Name: "toString", Fn: func(b *bridge.Binding[renderTextureRef], ref *renderTextureRef, _ goja.FunctionCall) goja.Value {
				t := ref.rt.Texture
				return b.Runtime().ToValue(fmt.Sprintf("RenderTexture(%dx%d)", t.Width, t.Height))
			}},
		},
	}
}
