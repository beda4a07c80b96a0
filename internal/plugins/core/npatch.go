package core

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/glint-engine/glint/internal/bridge"
	"github.com/glint-engine/glint/internal/gfx"
)

// parseNPatchArgs accepts (source, left, top, right, bottom, layout?) or a
// single object with those fields.
func parseNPatchArgs(args []goja.Value) (gfx.NPatch, error) {
	if len(args) == 1 {
		return bridge.ToNPatch(args[0])
	}
	var n gfx.NPatch
	var err error
	if n.Source, err = bridge.ToRectangle(bridge.Arg(args, 0)); err != nil {
		return n, bridge.Nest("source", err)
	}
	for i, f := range []struct {
		name string
		dst  *int32
	}{{"left", &n.Left}, {"top", &n.Top}, {"right", &n.Right}, {"bottom", &n.Bottom}} {
		if *f.dst, err = bridge.ToInt(bridge.Arg(args, i+1)); err != nil {
			return n, bridge.Nest(f.name, err)
		}
	}
	if layout := bridge.Arg(args, 5); !bridge.Missing(layout) {
		if n.Layout, err = bridge.ToNPatchLayout(layout); err != nil {
			return n, bridge.Nest("layout", err)
		}
	}
	return n, nil
}

func int32Prop[T any](name string, field func(*T) *int32) bridge.Property[T] {
	return bridge.Property[T]{
		Name: name,
		Get: func(vm *goja.Runtime, self *T) goja.Value {
			return vm.ToValue(*field(self))
		},
		Set: func(_ *goja.Runtime, self *T, v goja.Value) error {
			n, err := bridge.ToInt(v)
			if err != nil {
				return err
			}
			*field(self) = n
			return nil
		},
	}
}

func nPatchClass(rects *bridge.Binding[gfx.Rectangle]) *bridge.Class[gfx.NPatch] {
	return &bridge.Class[gfx.NPatch]{
		Name: "NPatch",
		Construct: func(_ *goja.Runtime, args []goja.Value) (bridge.Acquire[gfx.NPatch], error) {
			n, err := parseNPatchArgs(args)
			if err != nil {
				return nil, err
			}
			return value(n), nil
		},
		Properties: []bridge.Property[gfx.NPatch]{
			{
				Name: "source",
				Get: func(_ *goja.Runtime, n *gfx.NPatch) goja.Value {
					return rects.NewValue(n.Source)
				},
				Set: func(_ *goja.Runtime, n *gfx.NPatch, v goja.Value) error {
					r, err := bridge.ToRectangle(v)
					if err != nil {
						return err
					}
					n.Source = r
					return nil
				},
			},
			int32Prop("left", func(n *gfx.NPatch) *int32 { return &n.Left }),
			int32Prop("top", func(n *gfx.NPatch) *int32 { return &n.Top }),
			int32Prop("right", func(n *gfx.NPatch) *int32 { return &n.Right }),
			int32Prop("bottom", func(n *gfx.NPatch) *int32 { return &n.Bottom }),
			{
				Name: "layout",
				Get: func(vm *goja.Runtime, n *gfx.NPatch) goja.Value {
					return vm.ToValue(int32(n.Layout))
				},
				Set: func(_ *goja.Runtime, n *gfx.NPatch, v goja.Value) error {
					l, err := bridge.ToNPatchLayout(v)
					if err != nil {
						return err
					}
					n.Layout = l
					return nil
				},
			},
		},
		Methods: []bridge.Method[gfx.NPatch]{
			{Name: "toString", Fn: func(b *bridge.Binding[gfx.NPatch], n *gfx.NPatch, _ goja.FunctionCall) goja.Value {
				s := n.Source
				return b.Runtime().ToValue(fmt.Sprintf("NPatch(Rectangle(%g, %g, %g, %g), %d, %d, %d, %d, %d)",
					s.X, s.Y, s.Width, s.Height, n.Left, n.Top, n.Right, n.Bottom, n.Layout))
			}},
		},
	}
}
