package core

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/glint-engine/glint/internal/bridge"
	"github.com/glint-engine/glint/internal/gfx"
)

// ── Color ──

func value[T any](v T) bridge.Acquire[T] {
	return func() (*T, error) { return &v, nil }
}

func byteProp(name string, field func(*gfx.Color) *uint8) bridge.Property[gfx.Color] {
	return bridge.Property[gfx.Color]{
		Name: name,
		Get: func(vm *goja.Runtime, c *gfx.Color) goja.Value {
			return vm.ToValue(*field(c))
		},
		Set: func(vm *goja.Runtime, c *gfx.Color, v goja.Value) error {
			b, err := bridge.ToByte(v)
			if err != nil {
				return err
			}
			*field(c) = b
			return nil
		},
	}
}

// parseColorArgs accepts (hex) or (r, g, b, a?).
func parseColorArgs(args []goja.Value) (gfx.Color, error) {
	first := bridge.Arg(args, 0)
	if goja.IsString(first) {
		c, err := gfx.ParseHex(first.String())
		if err != nil {
			return c, &bridge.TypeError{Expected: "hex color", Got: fmt.Sprintf("%q", first.String())}
		}
		return c, nil
	}
	var c gfx.Color
	for i, dst := range []*uint8{&c.R, &c.G, &c.B} {
		b, err := bridge.ToByte(bridge.Arg(args, i))
		if err != nil {
			return gfx.Color{}, bridge.Nest(string("rgb"[i]), err)
		}
		*dst = b
	}
	c.A = 255
	if a := bridge.Arg(args, 3); !bridge.Missing(a) {
		b, err := bridge.ToByte(a)
		if err != nil {
			return gfx.Color{}, bridge.Nest("a", err)
		}
		c.A = b
	}
	return c, nil
}

func colorClass() *bridge.Class[gfx.Color] {
	return &bridge.Class[gfx.Color]{
		Name: "Color",
		Construct: func(_ *goja.Runtime, args []goja.Value) (bridge.Acquire[gfx.Color], error) {
			c, err := parseColorArgs(args)
			if err != nil {
				return nil, err
			}
			return value(c), nil
		},
		Properties: []bridge.Property[gfx.Color]{
			byteProp("r", func(c *gfx.Color) *uint8 { return &c.R }),
			byteProp("g", func(c *gfx.Color) *uint8 { return &c.G }),
			byteProp("b", func(c *gfx.Color) *uint8 { return &c.B }),
			byteProp("a", func(c *gfx.Color) *uint8 { return &c.A }),
		},
		Methods: []bridge.Method[gfx.Color]{
			{Name: "toHex", Fn: func(b *bridge.Binding[gfx.Color], c *gfx.Color, _ goja.FunctionCall) goja.Value {
				return b.Runtime().ToValue(c.Hex())
			}},
			{Name: "toString", Fn: func(b *bridge.Binding[gfx.Color], c *gfx.Color, _ goja.FunctionCall) goja.Value {
				return b.Runtime().ToValue(fmt.Sprintf("Color(%d, %d, %d, %d)", c.R, c.G, c.B, c.A))
			}},
			{Name: "equals", Fn: func(b *bridge.Binding[gfx.Color], c *gfx.Color, call goja.FunctionCall) goja.Value {
				o := argAt(b.Runtime(), call, 0, "Color.equals", bridge.ToColor)
				return b.Runtime().ToValue(*c == o)
			}},
		},
		Statics: []bridge.Static[gfx.Color]{
			{Name: "fromHex", Fn: func(b *bridge.Binding[gfx.Color], call goja.FunctionCall) goja.Value {
				vm := b.Runtime()
				code := argAt(vm, call, 0, "Color.fromHex", bridge.ToString)
				if !strings.HasPrefix(code, "#") {
					bridge.Throw(vm, &bridge.TypeError{Expected: "hex color starting with '#'", Got: fmt.Sprintf("%q", code)})
				}
				c, err := gfx.ParseHex(code)
				if err != nil {
					bridge.Throw(vm, &bridge.TypeError{Expected: "hex color", Got: fmt.Sprintf("%q", code)})
				}
				return b.NewValue(c)
			}},
		},
	}
}

// ── Vector2 ──

type vecMethod struct {
	name string
	fn   func(v gfx.Vector2, call goja.FunctionCall, vm *goja.Runtime) any
}

func vectorClass() *bridge.Class[gfx.Vector2] {
	vecArg := func(vm *goja.Runtime, call goja.FunctionCall, fn string) gfx.Vector2 {
		return argAt(vm, call, 0, "Vector2."+fn, bridge.ToVector2)
	}
	numArg := func(vm *goja.Runtime, call goja.FunctionCall, i int, fn string) float32 {
		return argAt(vm, call, i, "Vector2."+fn, bridge.ToFloat)
	}
	table := []vecMethod{
		{"add", func(v gfx.Vector2, c goja.FunctionCall, vm *goja.Runtime) any { return v.Add(vecArg(vm, c, "add")) }},
		{"sub", func(v gfx.Vector2, c goja.FunctionCall, vm *goja.Runtime) any { return v.Sub(vecArg(vm, c, "sub")) }},
		{"mul", func(v gfx.Vector2, c goja.FunctionCall, vm *goja.Runtime) any { return v.Mul(vecArg(vm, c, "mul")) }},
		{"div", func(v gfx.Vector2, c goja.FunctionCall, vm *goja.Runtime) any { return v.Div(vecArg(vm, c, "div")) }},
		{"scale", func(v gfx.Vector2, c goja.FunctionCall, vm *goja.Runtime) any {
			return v.Scale(numArg(vm, c, 0, "scale"))
		}},
		{"negate", func(v gfx.Vector2, _ goja.FunctionCall, _ *goja.Runtime) any { return v.Negate() }},
		{"normalize", func(v gfx.Vector2, _ goja.FunctionCall, _ *goja.Runtime) any { return v.Normalize() }},
		{"clone", func(v gfx.Vector2, _ goja.FunctionCall, _ *goja.Runtime) any { return v }},
		{"length", func(v gfx.Vector2, _ goja.FunctionCall, _ *goja.Runtime) any { return v.Length() }},
		{"lengthSqr", func(v gfx.Vector2, _ goja.FunctionCall, _ *goja.Runtime) any { return v.LengthSqr() }},
		{"distance", func(v gfx.Vector2, c goja.FunctionCall, vm *goja.Runtime) any {
			return v.Distance(vecArg(vm, c, "distance"))
		}},
		{"rotate", func(v gfx.Vector2, c goja.FunctionCall, vm *goja.Runtime) any {
			return v.Rotate(numArg(vm, c, 0, "rotate"))
		}},
		{"lerp", func(v gfx.Vector2, c goja.FunctionCall, vm *goja.Runtime) any {
			return v.Lerp(vecArg(vm, c, "lerp"), numArg(vm, c, 1, "lerp"))
		}},
		{"equals", func(v gfx.Vector2, c goja.FunctionCall, vm *goja.Runtime) any { return v == vecArg(vm, c, "equals") }},
		{"toString", func(v gfx.Vector2, _ goja.FunctionCall, _ *goja.Runtime) any {
			return fmt.Sprintf("Vector2(%g, %g)", v.X, v.Y)
		}},
	}

	methods := make([]bridge.Method[gfx.Vector2], 0, len(table))
	for _, m := range table {
		methods = append(methods, bridge.Method[gfx.Vector2]{
			Name: m.name,
			Fn: func(b *bridge.Binding[gfx.Vector2], self *gfx.Vector2, call goja.FunctionCall) goja.Value {
				out := m.fn(*self, call, b.Runtime())
				if v, ok := out.(gfx.Vector2); ok {
					return b.NewValue(v)
				}
				return b.Runtime().ToValue(out)
			},
		})
	}

	return &bridge.Class[gfx.Vector2]{
		Name: "Vector2",
		Construct: func(_ *goja.Runtime, args []goja.Value) (bridge.Acquire[gfx.Vector2], error) {
			x, err := bridge.ToFloat(bridge.Arg(args, 0))
			if err != nil {
				return nil, bridge.Nest("x", err)
			}
			y, err := bridge.ToFloat(bridge.Arg(args, 1))
			if err != nil {
				return nil, bridge.Nest("y", err)
			}
			return value(gfx.Vector2{X: x, Y: y}), nil
		},
		Properties: []bridge.Property[gfx.Vector2]{
			floatProp("x", func(v *gfx.Vector2) *float32 { return &v.X }),
			floatProp("y", func(v *gfx.Vector2) *float32 { return &v.Y }),
		},
		Methods: methods,
		Statics: []bridge.Static[gfx.Vector2]{
			{Name: "zero", Fn: func(b *bridge.Binding[gfx.Vector2], _ goja.FunctionCall) goja.Value {
				return b.NewValue(gfx.Vector2{})
			}},
			{Name: "one", Fn: func(b *bridge.Binding[gfx.Vector2], _ goja.FunctionCall) goja.Value {
				return b.NewValue(gfx.Vector2{X: 1, Y: 1})
			}},
		},
	}
}

// ── Rectangle ──

func rectangleClass(vectors *bridge.Binding[gfx.Vector2]) *bridge.Class[gfx.Rectangle] {
	return &bridge.Class[gfx.Rectangle]{
		Name: "Rectangle",
		Construct: func(_ *goja.Runtime, args []goja.Value) (bridge.Acquire[gfx.Rectangle], error) {
			var r gfx.Rectangle
			for i, f := range []struct {
				name string
				dst  *float32
			}{{"x", &r.X}, {"y", &r.Y}, {"width", &r.Width}, {"height", &r.Height}} {
				n, err := bridge.ToFloat(bridge.Arg(args, i))
				if err != nil {
					return nil, bridge.Nest(f.name, err)
				}
				*f.dst = n
			}
			return value(r), nil
		},
		Properties: []bridge.Property[gfx.Rectangle]{
			floatProp("x", func(r *gfx.Rectangle) *float32 { return &r.X }),
			floatProp("y", func(r *gfx.Rectangle) *float32 { return &r.Y }),
			floatProp("width", func(r *gfx.Rectangle) *float32 { return &r.Width }),
			floatProp("height", func(r *gfx.Rectangle) *float32 { return &r.Height }),
			{
				Name: "position",
				Get: func(_ *goja.Runtime, r *gfx.Rectangle) goja.Value {
					return vectors.NewValue(gfx.Vector2{X: r.X, Y: r.Y})
				},
			},
			{
				Name: "size",
				Get: func(_ *goja.Runtime, r *gfx.Rectangle) goja.Value {
					return vectors.NewValue(gfx.Vector2{X: r.Width, Y: r.Height})
				},
			},
		},
		Methods: []bridge.Method[gfx.Rectangle]{
			{Name: "contains", Fn: func(b *bridge.Binding[gfx.Rectangle], r *gfx.Rectangle, call goja.FunctionCall) goja.Value {
				p := argAt(b.Runtime(), call, 0, "Rectangle.contains", bridge.ToVector2)
				return b.Runtime().ToValue(r.Contains(p))
			}},
			{Name: "intersects", Fn: func(b *bridge.Binding[gfx.Rectangle], r *gfx.Rectangle, call goja.FunctionCall) goja.Value {
				o := argAt(b.Runtime(), call, 0, "Rectangle.intersects", bridge.ToRectangle)
				return b.Runtime().ToValue(r.Intersects(o))
			}},
			{Name: "toString", Fn: func(b *bridge.Binding[gfx.Rectangle], r *gfx.Rectangle, _ goja.FunctionCall) goja.Value {
				return b.Runtime().ToValue(fmt.Sprintf("Rectangle(%g, %g, %g, %g)", r.X, r.Y, r.Width, r.Height))
			}},
		},
	}
}

// ── Camera ──

// parseCameraArgs accepts (), ({offset?, target?, rotation?, zoom?}) or
// (offset, target, rotation, zoom). Omitted fields keep DefaultCamera values.
func parseCameraArgs(args []goja.Value) (gfx.Camera2D, error) {
	cam := gfx.DefaultCamera()
	first := bridge.Arg(args, 0)
	switch {
	case bridge.Missing(first):
		return cam, nil
	case len(args) == 1:
		obj, err := bridge.ToObject(first, "camera options")
		if err != nil {
			return cam, err
		}
		if cam.Offset, err = bridge.OptionalField(obj, "offset", cam.Offset, bridge.ToVector2); err != nil {
			return cam, err
		}
		if cam.Target, err = bridge.OptionalField(obj, "target", cam.Target, bridge.ToVector2); err != nil {
			return cam, err
		}
		if cam.Rotation, err = bridge.OptionalField(obj, "rotation", cam.Rotation, bridge.ToFloat); err != nil {
			return cam, err
		}
		if cam.Zoom, err = bridge.OptionalField(obj, "zoom", cam.Zoom, bridge.ToFloat); err != nil {
			return cam, err
		}
		return cam, nil
	}
	var err error
	if cam.Offset, err = bridge.ToVector2(first); err != nil {
		return cam, bridge.Nest("offset", err)
	}
	if cam.Target, err = bridge.ToVector2(bridge.Arg(args, 1)); err != nil {
		return cam, bridge.Nest("target", err)
	}
	if cam.Rotation, err = bridge.ToFloat(bridge.Arg(args, 2)); err != nil {
		return cam, bridge.Nest("rotation", err)
	}
	if cam.Zoom, err = bridge.ToFloat(bridge.Arg(args, 3)); err != nil {
		return cam, bridge.Nest("zoom", err)
	}
	return cam, nil
}

func vectorProp(vectors *bridge.Binding[gfx.Vector2], name string, field func(*gfx.Camera2D) *gfx.Vector2) bridge.Property[gfx.Camera2D] {
	return bridge.Property[gfx.Camera2D]{
		Name: name,
		Get: func(_ *goja.Runtime, c *gfx.Camera2D) goja.Value {
			return vectors.NewValue(*field(c))
		},
		Set: func(_ *goja.Runtime, c *gfx.Camera2D, v goja.Value) error {
			vec, err := bridge.ToVector2(v)
			if err != nil {
				return err
			}
			*field(c) = vec
			return nil
		},
	}
}

func cameraClass(vectors *bridge.Binding[gfx.Vector2]) *bridge.Class[gfx.Camera2D] {
	return &bridge.Class[gfx.Camera2D]{
		Name: "Camera",
		Construct: func(_ *goja.Runtime, args []goja.Value) (bridge.Acquire[gfx.Camera2D], error) {
			cam, err := parseCameraArgs(args)
			if err != nil {
				return nil, err
			}
			return value(cam), nil
		},
		Properties: []bridge.Property[gfx.Camera2D]{
			vectorProp(vectors, "offset", func(c *gfx.Camera2D) *gfx.Vector2 { return &c.Offset }),
			vectorProp(vectors, "target", func(c *gfx.Camera2D) *gfx.Vector2 { return &c.Target }),
			floatProp("rotation", func(c *gfx.Camera2D) *float32 { return &c.Rotation }),
			floatProp("zoom", func(c *gfx.Camera2D) *float32 { return &c.Zoom }),
		},
		Methods: []bridge.Method[gfx.Camera2D]{
			{Name: "toString", Fn: func(b *bridge.Binding[gfx.Camera2D], c *gfx.Camera2D, _ goja.FunctionCall) goja.Value {
				return b.Runtime().ToValue(fmt.Sprintf("Camera(offset=(%g, %g), target=(%g, %g), rotation=%g, zoom=%g)",
					c.Offset.X, c.Offset.Y, c.Target.X, c.Target.Y, c.Rotation, c.Zoom))
			}},
		},
		Statics: []bridge.Static[gfx.Camera2D]{
			{Name: "default", Fn: func(b *bridge.Binding[gfx.Camera2D], _ goja.FunctionCall) goja.Value {
				return b.NewValue(gfx.DefaultCamera())
			}},
		},
	}
}
