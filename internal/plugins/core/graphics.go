package core

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/glint-engine/glint/internal/bridge"
	"github.com/glint-engine/glint/internal/gfx"
)

// toTexture accepts a Texture or the color buffer of a RenderTexture.
func (p *Plugin) toTexture(v goja.Value) (gfx.Texture, error) {
	if ref, ok := p.classes.texture.Unwrap(v); ok {
		return p.textures.Borrow(ref.handle)
	}
	if _, ok := p.classes.target.Unwrap(v); ok {
		rt, err := p.toRenderTexture(v)
		return rt.Texture, err
	}
	return gfx.Texture{}, &bridge.TypeError{Expected: "Texture", Got: bridge.TypeOf(v)}
}

func (p *Plugin) toRenderTexture(v goja.Value) (gfx.RenderTexture, error) {
	ref, ok := p.classes.target.Unwrap(v)
	if !ok {
		return gfx.RenderTexture{}, &bridge.TypeError{Expected: "RenderTexture", Got: bridge.TypeOf(v)}
	}
	return p.renderTarget(ref)
}

func (p *Plugin) toFont(v goja.Value) (*gfx.Font, error) {
	ref, ok := p.classes.font.Unwrap(v)
	if !ok {
		return nil, &bridge.TypeError{Expected: "Font", Got: bridge.TypeOf(v)}
	}
	f, err := p.fonts.Borrow(ref.handle)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// graphicsModule builds the drawing function table. Every function returns
// the table so calls can be chained.
func (p *Plugin) graphicsModule(vm *goja.Runtime) *goja.Object {
	g := vm.NewObject()
	r := p.env.Backend
	ret := func(fn func(call goja.FunctionCall)) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			fn(call)
			return g
		}
	}
	num := func(call goja.FunctionCall, i int, fn string) float32 {
		return argAt(vm, call, i, "graphics."+fn, bridge.ToFloat)
	}
	vec := func(call goja.FunctionCall, i int, fn string) gfx.Vector2 {
		return argAt(vm, call, i, "graphics."+fn, bridge.ToVector2)
	}
	col := func(call goja.FunctionCall, i int, fn string) gfx.Color {
		return argAt(vm, call, i, "graphics."+fn, bridge.ToColor)
	}
	rec := func(call goja.FunctionCall, i int, fn string) gfx.Rectangle {
		return argAt(vm, call, i, "graphics."+fn, bridge.ToRectangle)
	}
	tex := func(call goja.FunctionCall, fn string) gfx.Texture {
		return argAt(vm, call, 0, "graphics."+fn, p.toTexture)
	}
	tint := func(call goja.FunctionCall, i int, fn string) gfx.Color {
		return optArgAt(vm, call, i, "graphics."+fn, gfx.White, bridge.ToColor)
	}

	beginCamera := ret(func(call goja.FunctionCall) {
		cam := argAt(vm, call, 0, "graphics.beginCamera", bridge.ToCamera)
		if p.cameraOpen {
			r.EndCamera()
		}
		r.BeginCamera(cam)
		p.cameraOpen = true
	})
	endCamera := ret(func(goja.FunctionCall) {
		if p.cameraOpen {
			r.EndCamera()
			p.cameraOpen = false
		}
	})

	beginTexture := func(call goja.FunctionCall, fn string) {
		rt := argAt(vm, call, 0, "graphics."+fn, p.toRenderTexture)
		if p.textureOpen {
			r.EndTextureMode()
		}
		r.BeginTextureMode(rt)
		p.textureOpen = true
	}
	endTexture := func() {
		if p.textureOpen {
			r.EndTextureMode()
			p.textureOpen = false
		}
	}

	fns := []bridge.NamedFunc{
		{Name: "clear", Fn: ret(func(call goja.FunctionCall) {
			r.Clear(col(call, 0, "clear"))
		})},
		{Name: "rectangle", Fn: ret(func(call goja.FunctionCall) {
			if _, ok := call.Argument(0).(*goja.Object); ok {
				r.DrawRectangle(rec(call, 0, "rectangle"), col(call, 1, "rectangle"))
				return
			}
			r.DrawRectangle(gfx.Rectangle{
				X:      num(call, 0, "rectangle"),
				Y:      num(call, 1, "rectangle"),
				Width:  num(call, 2, "rectangle"),
				Height: num(call, 3, "rectangle"),
			}, col(call, 4, "rectangle"))
		})},
		{Name: "rectangleV", Fn: ret(func(call goja.FunctionCall) {
			pos, size := vec(call, 0, "rectangleV"), vec(call, 1, "rectangleV")
			r.DrawRectangle(gfx.Rectangle{X: pos.X, Y: pos.Y, Width: size.X, Height: size.Y}, col(call, 2, "rectangleV"))
		})},
		{Name: "rectangleRec", Fn: ret(func(call goja.FunctionCall) {
			r.DrawRectangle(rec(call, 0, "rectangleRec"), col(call, 1, "rectangleRec"))
		})},
		{Name: "rectangleLines", Fn: ret(func(call goja.FunctionCall) {
			r.DrawRectangleLines(rec(call, 0, "rectangleLines"), num(call, 1, "rectangleLines"), col(call, 2, "rectangleLines"))
		})},
		{Name: "circle", Fn: ret(func(call goja.FunctionCall) {
			center := gfx.Vector2{X: num(call, 0, "circle"), Y: num(call, 1, "circle")}
			r.DrawCircle(center, num(call, 2, "circle"), col(call, 3, "circle"))
		})},
		{Name: "circleV", Fn: ret(func(call goja.FunctionCall) {
			r.DrawCircle(vec(call, 0, "circleV"), num(call, 1, "circleV"), col(call, 2, "circleV"))
		})},
		{Name: "line", Fn: ret(func(call goja.FunctionCall) {
			r.DrawLine(vec(call, 0, "line"), vec(call, 1, "line"), num(call, 2, "line"), col(call, 3, "line"))
		})},
		{Name: "text", Fn: ret(func(call goja.FunctionCall) {
			text := argAt(vm, call, 0, "graphics.text", bridge.ToString)
			pos := gfx.Vector2{X: num(call, 1, "text"), Y: num(call, 2, "text")}
			size := num(call, 3, "text")
			r.DrawText(nil, text, pos, size, size/10, col(call, 4, "text"))
		})},
		{Name: "textEx", Fn: ret(func(call goja.FunctionCall) {
			font := argAt(vm, call, 0, "graphics.textEx", p.toFont)
			text := argAt(vm, call, 1, "graphics.textEx", bridge.ToString)
			r.DrawText(font, text, vec(call, 2, "textEx"), num(call, 3, "textEx"), num(call, 4, "textEx"), col(call, 5, "textEx"))
		})},
		{Name: "texture", Fn: ret(func(call goja.FunctionCall) {
			t := tex(call, "texture")
			pos := gfx.Vector2{X: num(call, 1, "texture"), Y: num(call, 2, "texture")}
			p.blit(t, t.Source(), pos, 0, 1, tint(call, 3, "texture"))
		})},
		{Name: "textureV", Fn: ret(func(call goja.FunctionCall) {
			t := tex(call, "textureV")
			p.blit(t, t.Source(), vec(call, 1, "textureV"), 0, 1, tint(call, 2, "textureV"))
		})},
		{Name: "textureEx", Fn: ret(func(call goja.FunctionCall) {
			t := tex(call, "textureEx")
			p.blit(t, t.Source(), vec(call, 1, "textureEx"), num(call, 2, "textureEx"), num(call, 3, "textureEx"), tint(call, 4, "textureEx"))
		})},
		{Name: "textureRec", Fn: ret(func(call goja.FunctionCall) {
			t := tex(call, "textureRec")
			p.blit(t, rec(call, 1, "textureRec"), vec(call, 2, "textureRec"), 0, 1, tint(call, 3, "textureRec"))
		})},
		{Name: "texturePro", Fn: ret(func(call goja.FunctionCall) {
			t := tex(call, "texturePro")
			r.DrawTexture(t, rec(call, 1, "texturePro"), rec(call, 2, "texturePro"),
				vec(call, 3, "texturePro"), num(call, 4, "texturePro"), tint(call, 5, "texturePro"))
		})},
		{Name: "textureNPatch", Fn: ret(func(call goja.FunctionCall) {
			t := tex(call, "textureNPatch")
			n := argAt(vm, call, 1, "graphics.textureNPatch", bridge.ToNPatch)
			origin := optArgAt(vm, call, 3, "graphics.textureNPatch", gfx.Vector2{}, bridge.ToVector2)
			rotation := optArgAt(vm, call, 4, "graphics.textureNPatch", float32(0), bridge.ToFloat)
			r.DrawTextureNPatch(t, n, rec(call, 2, "textureNPatch"), origin, rotation, tint(call, 5, "textureNPatch"))
		})},
		{Name: "beginTextureMode", Fn: ret(func(call goja.FunctionCall) {
			beginTexture(call, "beginTextureMode")
		})},
		{Name: "endTextureMode", Fn: ret(func(goja.FunctionCall) {
			endTexture()
		})},
		// withTexture draws fn into the target and always leaves texture mode,
		// even when fn throws.
		{Name: "withTexture", Fn: ret(func(call goja.FunctionCall) {
			fn, ok := goja.AssertFunction(call.Argument(1))
			if !ok {
				bridge.Throw(vm, fmt.Errorf("graphics.withTexture: argument 2: %w",
					&bridge.TypeError{Expected: "function", Got: bridge.TypeOf(call.Argument(1))}))
			}
			beginTexture(call, "withTexture")
			defer endTexture()
			if _, err := fn(goja.Undefined()); err != nil {
				panic(err)
			}
		})},
		{Name: "beginCamera", Fn: beginCamera},
		{Name: "endCamera", Fn: endCamera},
		{Name: "beginCameraMode", Fn: beginCamera},
		{Name: "endCameraMode", Fn: endCamera},
	}
	for _, f := range fns {
		g.Set(f.Name, f.Fn)
	}
	return g
}

// blit draws src of t at pos, scaled and rotated about its top-left corner.
func (p *Plugin) blit(t gfx.Texture, src gfx.Rectangle, pos gfx.Vector2, rotation, scale float32, tint gfx.Color) {
	w, h := src.Width, src.Height
	if w < 0 {
		w = -w
	}
	if h < 0 {
		h = -h
	}
	dst := gfx.Rectangle{X: pos.X, Y: pos.Y, Width: w * scale, Height: h * scale}
	p.env.Backend.DrawTexture(t, src, dst, gfx.Vector2{}, rotation, tint)
}
