package core

import (
	"fmt"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/glint-engine/glint/internal/bridge"
	"github.com/glint-engine/glint/internal/gfx"
	"github.com/glint-engine/glint/internal/resource"
)

const defaultFontSize = 32

// maxCodepoints is the size of the Unicode codespace; no glyph list is longer.
const maxCodepoints = 0x110000

type fontRef struct {
	handle resource.Handle
}

type fontParams struct {
	size       int32
	codepoints []rune
}

func toCodepoints(v goja.Value) ([]rune, error) {
	obj, err := bridge.ToObject(v, "array of codepoints")
	if err != nil {
		return nil, err
	}
	if obj.ClassName() != "Array" {
		return nil, &bridge.TypeError{Expected: "array of codepoints", Got: bridge.TypeOf(v)}
	}
	n := obj.Get("length").ToInteger()
	if n > maxCodepoints {
		return nil, fmt.Errorf("%w: at most %d codepoints, got %d", bridge.ErrInvalidArgument, maxCodepoints, n)
	}
	out := make([]rune, 0, n)
	for i := int64(0); i < n; i++ {
		c, err := bridge.ToInt(obj.Get(fmt.Sprint(i)))
		if err != nil {
			return nil, bridge.Nest(fmt.Sprintf("[%d]", i), err)
		}
		out = append(out, rune(c))
	}
	return out, nil
}

func parseFontParams(req loadRequest) (fontParams, error) {
	params := fontParams{size: defaultFontSize}
	if req.opts == nil {
		return params, nil
	}
	var err error
	if params.size, err = bridge.OptionalField(req.opts, "fontSize", params.size, bridge.ToInt); err != nil {
		return params, err
	}
	if params.size <= 0 {
		return params, fmt.Errorf("%w: fontSize must be positive, got %d", bridge.ErrInvalidArgument, params.size)
	}
	if params.codepoints, err = bridge.OptionalField(req.opts, "codepoints", nil, toCodepoints); err != nil {
		return params, err
	}
	return params, nil
}

func (p *Plugin) fontLoader(file string, params fontParams) resource.Loader[gfx.Font] {
	return func() (gfx.Font, error) {
		data, err := p.env.Files.ReadBytes(file)
		if err != nil {
			return gfx.Font{}, err
		}
		return p.env.Backend.LoadFont(extOf(file), data, params.size, params.codepoints)
	}
}

func (p *Plugin) acquireFont(req loadRequest, params fontParams) (resource.Handle, error) {
	if req.mode == loadByName {
		return p.fonts.LoadByName(req.name)
	}
	return p.fonts.Load(req.name, p.fontLoader(req.path, params))
}

func (p *Plugin) font(ref *fontRef) gfx.Font {
	f, err := p.fonts.Borrow(ref.handle)
	if err != nil {
		bridge.Throw(p.env.Runtime, err)
	}
	return f
}

func (p *Plugin) fontClass() *bridge.Class[fontRef] {
	return &bridge.Class[fontRef]{
		Name: "Font",
		Construct: func(_ *goja.Runtime, args []goja.Value) (bridge.Acquire[fontRef], error) {
			req, err := classifyLoadArgs(args)
			if err != nil {
				return nil, err
			}
			params, err := parseFontParams(req)
			if err != nil {
				return nil, err
			}
			return func() (*fontRef, error) {
				h, err := p.acquireFont(req, params)
				if err != nil {
					return nil, err
				}
				return &fontRef{handle: h}, nil
			}, nil
		},
		Finalize: func(ref *fontRef) {
			if err := p.fonts.Release(ref.handle); err != nil {
				p.log.Warn("release font", zap.Stringer("handle", ref.handle), zap.Error(err))
			}
		},
		Properties: []bridge.Property[fontRef]{
			{
				Name:     "valid",
				Released: true,
				Get: func(vm *goja.Runtime, ref *fontRef) goja.Value {
					if ref == nil {
						return vm.ToValue(false)
					}
					_, err := p.fonts.Borrow(ref.handle)
					return vm.ToValue(err == nil)
				},
			},
			{
				Name: "name",
				Get: func(vm *goja.Runtime, ref *fontRef) goja.Value {
					return vm.ToValue(ref.handle.Name())
				},
			},
			{
				Name: "baseSize",
				Get: func(vm *goja.Runtime, ref *fontRef) goja.Value {
					return vm.ToValue(p.font(ref).BaseSize)
				},
			},
			{
				Name: "glyphCount",
				Get: func(vm *goja.Runtime, ref *fontRef) goja.Value {
					return vm.ToValue(p.font(ref).GlyphCount)
				},
			},
		},
		Methods: []bridge.Method[fontRef]{
			{Name: "unload", Fn: func(b *bridge.Binding[fontRef], _ *fontRef, call goja.FunctionCall) goja.Value {
				b.Release(call.This)
				return goja.Undefined()
			}},
			{Name: "toString", Fn: func(b *bridge.Binding[fontRef], ref *fontRef, _ goja.FunctionCall) goja.Value {
				f := p.font(ref)
				return b.Runtime().ToValue(fmt.Sprintf("Font(%s, %dpx)", ref.handle.Name(), f.BaseSize))
			}},
		},
		Statics: []bridge.Static[fontRef]{
			{Name: "load", Fn: func(b *bridge.Binding[fontRef], call goja.FunctionCall) goja.Value {
				return b.Construct(call.Arguments...)
			}},
		},
	}
}
