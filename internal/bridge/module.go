package bridge

import "github.com/dop251/goja"

// ExportDefault makes v the whole export of a native module, so
// require(m) returns v itself. v also carries itself under name for named
// imports. ES module default imports get v through the CommonJS interop of
// transformed modules, which is why no __esModule marker is set: a class with
// a static named default keeps it.
func ExportDefault(module *goja.Object, name string, v *goja.Object) {
	if v.Get(name) == nil {
		v.DefineDataProperty(name, v, goja.FLAG_FALSE, goja.FLAG_TRUE, goja.FLAG_FALSE)
	}
	module.Set("exports", v)
}

// Functions builds a plain object of native functions, in the order given.
func Functions(vm *goja.Runtime, fns ...NamedFunc) *goja.Object {
	obj := vm.NewObject()
	for _, f := range fns {
		obj.Set(f.Name, f.Fn)
	}
	return obj
}

// NamedFunc is one entry of a function table.
type NamedFunc struct {
	Name string
	Fn   func(call goja.FunctionCall) goja.Value
}

// Getter defines a read-only enumerable property on obj backed by get.
func Getter(vm *goja.Runtime, obj *goja.Object, name string, get func() goja.Value) {
	obj.DefineAccessorProperty(name, vm.ToValue(func(goja.FunctionCall) goja.Value {
		return get()
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
}
