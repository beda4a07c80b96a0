package core

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/glint-engine/glint/internal/bridge"
	"github.com/glint-engine/glint/internal/gfx"
)

func toKey(v goja.Value) (gfx.Key, error) {
	name, err := bridge.ToString(v)
	if err != nil {
		return 0, err
	}
	k, ok := gfx.KeyByName(name)
	if !ok {
		return 0, fmt.Errorf("%w: unknown key %q", bridge.ErrInvalidArgument, name)
	}
	return k, nil
}

func toMouseButton(v goja.Value) (gfx.MouseButton, error) {
	name, err := bridge.ToString(v)
	if err != nil {
		return 0, err
	}
	b, ok := gfx.MouseButtonByName(name)
	if !ok {
		return 0, fmt.Errorf("%w: unknown mouse button %q", bridge.ErrInvalidArgument, name)
	}
	return b, nil
}

func (p *Plugin) screenModule(vm *goja.Runtime) *goja.Object {
	w := p.env.Backend
	s := vm.NewObject()
	bridge.Getter(vm, s, "dt", func() goja.Value { return vm.ToValue(w.FrameTime()) })
	bridge.Getter(vm, s, "time", func() goja.Value { return vm.ToValue(w.Time()) })
	bridge.Getter(vm, s, "width", func() goja.Value { return vm.ToValue(w.ScreenWidth()) })
	bridge.Getter(vm, s, "height", func() goja.Value { return vm.ToValue(w.ScreenHeight()) })
	bridge.Getter(vm, s, "fps", func() goja.Value { return vm.ToValue(w.FPS()) })
	return s
}

func (p *Plugin) keyboardModule(vm *goja.Runtime) *goja.Object {
	in := p.env.Backend
	check := func(fn string, test func(gfx.Key) bool) bridge.NamedFunc {
		return bridge.NamedFunc{Name: fn, Fn: func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(test(argAt(vm, call, 0, "keyboard."+fn, toKey)))
		}}
	}
	return bridge.Functions(vm,
		check("isDown", in.IsKeyDown),
		check("isPressed", in.IsKeyPressed),
		check("isReleased", in.IsKeyReleased),
		check("isUp", in.IsKeyUp),
	)
}

func (p *Plugin) mouseModule(vm *goja.Runtime) *goja.Object {
	in := p.env.Backend
	check := func(fn string, test func(gfx.MouseButton) bool) bridge.NamedFunc {
		return bridge.NamedFunc{Name: fn, Fn: func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(test(argAt(vm, call, 0, "mouse."+fn, toMouseButton)))
		}}
	}
	isUp := func(b gfx.MouseButton) bool { return !in.IsMouseDown(b) }
	m := bridge.Functions(vm,
		check("isDown", in.IsMouseDown),
		check("isPressed", in.IsMousePressed),
		check("isReleased", in.IsMouseReleased),
		check("isUp", isUp),
		check("isButtonDown", in.IsMouseDown),
		check("isButtonPressed", in.IsMousePressed),
		check("isButtonReleased", in.IsMouseReleased),
		check("isButtonUp", isUp),
	)
	bridge.Getter(vm, m, "x", func() goja.Value { return vm.ToValue(in.MousePosition().X) })
	bridge.Getter(vm, m, "y", func() goja.Value { return vm.ToValue(in.MousePosition().Y) })
	bridge.Getter(vm, m, "position", func() goja.Value {
		return p.classes.vector.NewValue(in.MousePosition())
	})
	bridge.Getter(vm, m, "wheel", func() goja.Value { return vm.ToValue(in.MouseWheel()) })
	return m
}
