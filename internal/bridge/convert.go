package bridge

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/glint-engine/glint/internal/gfx"
)

// Native returns the value behind an instance of any class whose native type
// is T.
func Native[T any](v goja.Value) (*T, bool) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, false
	}
	raw := obj.GetSymbol(slotKey)
	if raw == nil {
		return nil, false
	}
	s, ok := raw.Export().(*slot[T])
	if !ok || s.ptr == nil {
		return nil, false
	}
	return s.ptr, true
}

// Missing reports whether v is absent: nil, undefined or null.
func Missing(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}

// TypeOf describes v for error messages. Class instances report their class.
func TypeOf(v goja.Value) string {
	switch {
	case v == nil || goja.IsUndefined(v):
		return "undefined"
	case goja.IsNull(v):
		return "null"
	case goja.IsNumber(v):
		return "number"
	case goja.IsString(v):
		return "string"
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		if _, ok := v.Export().(bool); ok {
			return "boolean"
		}
		return v.String()
	}
	if _, ok := goja.AssertFunction(obj); ok {
		return "function"
	}
	if raw := obj.GetSymbol(slotKey); raw != nil {
		if s, ok := raw.Export().(interface{ className() string }); ok {
			return s.className()
		}
	}
	if obj.ClassName() == "Array" {
		return "array"
	}
	return "object"
}

func (s *slot[T]) className() string { return s.class }

func ToFloat(v goja.Value) (float32, error) {
	if !goja.IsNumber(v) {
		return 0, &TypeError{Expected: "number", Got: TypeOf(v)}
	}
	return float32(v.ToFloat()), nil
}

// ToInt truncates toward zero.
func ToInt(v goja.Value) (int32, error) {
	if !goja.IsNumber(v) {
		return 0, &TypeError{Expected: "number", Got: TypeOf(v)}
	}
	return int32(v.ToInteger()), nil
}

// ToByte truncates toward zero and keeps the low eight bits.
func ToByte(v goja.Value) (uint8, error) {
	i, err := ToInt(v)
	return uint8(i), err
}

func ToString(v goja.Value) (string, error) {
	if !goja.IsString(v) {
		return "", &TypeError{Expected: "string", Got: TypeOf(v)}
	}
	return v.String(), nil
}

func ToBool(v goja.Value) (bool, error) {
	if v != nil {
		if b, ok := v.Export().(bool); ok {
			return b, nil
		}
	}
	return false, &TypeError{Expected: "boolean", Got: TypeOf(v)}
}

// ToObject requires an object.
func ToObject(v goja.Value, expected string) (*goja.Object, error) {
	obj, ok := v.(*goja.Object)
	if !ok || Missing(v) {
		return nil, &TypeError{Expected: expected, Got: TypeOf(v)}
	}
	return obj, nil
}

// Field converts a required property of obj, naming it in any error.
func Field[T any](obj *goja.Object, name string, conv func(goja.Value) (T, error)) (T, error) {
	v, err := conv(obj.Get(name))
	if err != nil {
		return v, Nest(name, err)
	}
	return v, nil
}

// OptionalField converts a property of obj when present and returns def
// otherwise.
func OptionalField[T any](obj *goja.Object, name string, def T, conv func(goja.Value) (T, error)) (T, error) {
	v := obj.Get(name)
	if Missing(v) {
		return def, nil
	}
	out, err := conv(v)
	if err != nil {
		return def, Nest(name, err)
	}
	return out, nil
}

// ToVector2 accepts a Vector2 instance or any object with numeric x and y.
func ToVector2(v goja.Value) (gfx.Vector2, error) {
	if p, ok := Native[gfx.Vector2](v); ok {
		return *p, nil
	}
	obj, err := ToObject(v, "Vector2")
	if err != nil {
		return gfx.Vector2{}, err
	}
	x, err := Field(obj, "x", ToFloat)
	if err != nil {
		return gfx.Vector2{}, err
	}
	y, err := Field(obj, "y", ToFloat)
	if err != nil {
		return gfx.Vector2{}, err
	}
	return gfx.Vector2{X: x, Y: y}, nil
}

// ToColor accepts a Color instance or any object with numeric r, g, b and a.
func ToColor(v goja.Value) (gfx.Color, error) {
	if p, ok := Native[gfx.Color](v); ok {
		return *p, nil
	}
	obj, err := ToObject(v, "Color")
	if err != nil {
		return gfx.Color{}, err
	}
	var c gfx.Color
	for _, ch := range []struct {
		name string
		dst  *uint8
	}{{"r", &c.R}, {"g", &c.G}, {"b", &c.B}, {"a", &c.A}} {
		b, err := Field(obj, ch.name, ToByte)
		if err != nil {
			return gfx.Color{}, err
		}
		*ch.dst = b
	}
	return c, nil
}

// ToRectangle accepts a Rectangle instance or any object with numeric x, y,
// width and height.
func ToRectangle(v goja.Value) (gfx.Rectangle, error) {
	if p, ok := Native[gfx.Rectangle](v); ok {
		return *p, nil
	}
	obj, err := ToObject(v, "Rectangle")
	if err != nil {
		return gfx.Rectangle{}, err
	}
	var r gfx.Rectangle
	for _, f := range []struct {
		name string
		dst  *float32
	}{{"x", &r.X}, {"y", &r.Y}, {"width", &r.Width}, {"height", &r.Height}} {
		n, err := Field(obj, f.name, ToFloat)
		if err != nil {
			return gfx.Rectangle{}, err
		}
		*f.dst = n
	}
	return r, nil
}

// ToCamera accepts a Camera instance or any object with offset, target,
// rotation and zoom.
func ToCamera(v goja.Value) (gfx.Camera2D, error) {
	if p, ok := Native[gfx.Camera2D](v); ok {
		return *p, nil
	}
	obj, err := ToObject(v, "Camera")
	if err != nil {
		return gfx.Camera2D{}, err
	}
	var c gfx.Camera2D
	if c.Offset, err = Field(obj, "offset", ToVector2); err != nil {
		return gfx.Camera2D{}, err
	}
	if c.Target, err = Field(obj, "target", ToVector2); err != nil {
		return gfx.Camera2D{}, err
	}
	if c.Rotation, err = Field(obj, "rotation", ToFloat); err != nil {
		return gfx.Camera2D{}, err
	}
	if c.Zoom, err = Field(obj, "zoom", ToFloat); err != nil {
		return gfx.Camera2D{}, err
	}
	return c, nil
}

// ToNPatch accepts an NPatch instance or any object with source, left, top,
// right and bottom. layout defaults to a nine-patch.
func ToNPatch(v goja.Value) (gfx.NPatch, error) {
	if p, ok := Native[gfx.NPatch](v); ok {
		return *p, nil
	}
	obj, err := ToObject(v, "NPatch")
	if err != nil {
		return gfx.NPatch{}, err
	}
	var n gfx.NPatch
	if n.Source, err = Field(obj, "source", ToRectangle); err != nil {
		return gfx.NPatch{}, err
	}
	for _, f := range []struct {
		name string
		dst  *int32
	}{{"left", &n.Left}, {"top", &n.Top}, {"right", &n.Right}, {"bottom", &n.Bottom}} {
		if *f.dst, err = Field(obj, f.name, ToInt); err != nil {
			return gfx.NPatch{}, err
		}
	}
	if n.Layout, err = OptionalField(obj, "layout", gfx.NinePatch, ToNPatchLayout); err != nil {
		return gfx.NPatch{}, err
	}
	return n, nil
}

// ToNPatchLayout accepts 0, 1 or 2.
func ToNPatchLayout(v goja.Value) (gfx.NPatchLayout, error) {
	i, err := ToInt(v)
	if err != nil {
		return 0, err
	}
	if i < int32(gfx.NinePatch) || i > int32(gfx.ThreePatchHorizontal) {
		return 0, fmt.Errorf("%w: unknown n-patch layout %d", ErrInvalidArgument, i)
	}
	return gfx.NPatchLayout(i), nil
}

// Arg returns argument i or undefined.
func Arg(args []goja.Value, i int) goja.Value {
	if i < len(args) {
		return args[i]
	}
	return goja.Undefined()
}
