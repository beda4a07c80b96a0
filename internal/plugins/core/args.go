package core

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/glint-engine/glint/internal/bridge"
)

// argAt converts argument i of a native call or throws a TypeError naming
// the function and argument position.
func argAt[T any](vm *goja.Runtime, call goja.FunctionCall, i int, fn string, conv func(goja.Value) (T, error)) T {
	v, err := conv(call.Argument(i))
	if err != nil {
		bridge.Throw(vm, fmt.Errorf("%s: argument %d: %w", fn, i+1, err))
	}
	return v
}

// optArgAt is argAt for an argument that may be omitted.
func optArgAt[T any](vm *goja.Runtime, call goja.FunctionCall, i int, fn string, def T, conv func(goja.Value) (T, error)) T {
	if bridge.Missing(call.Argument(i)) {
		return def
	}
	return argAt(vm, call, i, fn, conv)
}

// floatProp is a read-write number accessor over a field of T.
func floatProp[T any](name string, field func(*T) *float32) bridge.Property[T] {
	return bridge.Property[T]{
		Name: name,
		Get: func(vm *goja.Runtime, self *T) goja.Value {
			return vm.ToValue(*field(self))
		},
		Set: func(vm *goja.Runtime, self *T, v goja.Value) error {
			f, err := bridge.ToFloat(v)
			if err != nil {
				return err
			}
			*field(self) = f
			return nil
		},
	}
}
