package core

import (
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/glint-engine/glint/internal/bridge"
)

// consoleModule writes script output through the engine logger. Each entry
// carries the script position of the call when one is on the stack.
func (p *Plugin) consoleModule(vm *goja.Runtime) *goja.Object {
	log := p.env.Log.Named("script")
	stringify, _ := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("stringify"))

	format := func(args []goja.Value) string {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = formatValue(a, stringify)
		}
		return strings.Join(parts, " ")
	}
	emit := func(level zapcore.Level) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			if ce := log.Check(level, format(call.Arguments)); ce != nil {
				var fields []zap.Field
				if at := callerPosition(vm); at != "" {
					fields = append(fields, zap.String("at", at))
				}
				ce.Write(fields...)
			}
			return goja.Undefined()
		}
	}

	c := vm.NewObject()
	c.Set("trace", emit(zapcore.DebugLevel))
	c.Set("debug", emit(zapcore.DebugLevel))
	c.Set("log", emit(zapcore.InfoLevel))
	c.Set("info", emit(zapcore.InfoLevel))
	c.Set("warn", emit(zapcore.WarnLevel))
	c.Set("error", emit(zapcore.ErrorLevel))
	return c
}

// formatValue renders strings bare, plain objects and arrays as JSON, and
// everything else, native class instances included, through toString.
func formatValue(v goja.Value, stringify goja.Callable) string {
	if v == nil {
		return "undefined"
	}
	switch bridge.TypeOf(v) {
	case "object", "array":
		if stringify == nil {
			break
		}
		if out, err := stringify(goja.Undefined(), v); err == nil && !goja.IsUndefined(out) {
			return out.String()
		}
	}
	return v.String()
}

func callerPosition(vm *goja.Runtime) string {
	for _, f := range vm.CaptureCallStack(8, nil) {
		if f.SrcName() == "<native>" {
			continue
		}
		return f.Position().String()
	}
	return ""
}
