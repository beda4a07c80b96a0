package engine

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

// ScriptError is a script exception, a compile error, or a transform error,
// tied to the module it came from.
type ScriptError struct {
	Module  string
	Message string
	// Stack is the script call stack when the runtime captured one.
	Stack string
	Err   error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s: %s", e.Module, e.Message)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// scriptError converts err raised while running module. An existing
// ScriptError passes through so the innermost module is reported.
func scriptError(module string, err error) error {
	var se *ScriptError
	if errors.As(err, &se) {
		return err
	}
	out := &ScriptError{Module: module, Message: err.Error(), Err: err}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		if v := exc.Value(); v != nil {
			out.Message = v.String()
		}
		out.Stack = exc.String()
	}
	return out
}

// rethrow raises err inside the running script. Exceptions keep their
// original value and stack.
func rethrow(vm *goja.Runtime, err error) {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		panic(exc)
	}
	panic(vm.NewGoError(err))
}
