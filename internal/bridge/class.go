// Package bridge exposes native Go values to scripts as class instances and
// converts script values back to native types.
//
// An instance moves through Uninitialized → Constructed → Finalized. The
// constructor parses its arguments before acquiring anything, so a failed
// parse leaves nothing to finalize. Finalization runs the class finalizer at
// most once: explicit release and the garbage collector race to the same slot
// and only the first one does any work.
package bridge

import (
	"fmt"
	"runtime"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// slotKey holds an instance's slot on the script object. Symbols are not tied
// to a runtime, so one key serves every runtime.
var slotKey = goja.NewSymbol("glint.native")

// classFactory builds script-side constructors. Native constructors cannot
// tell a call from a construction, so the new.target check lives here and the
// body forwards to the native initializer.
var classFactory = goja.MustCompile("glint:class", `(function (name, init) {
	return function () {
		if (new.target === undefined) {
			throw new TypeError("Class constructor " + name + " cannot be invoked without 'new'");
		}
		init.apply(this, arguments);
	};
})`, true)

// Acquire obtains the native value once arguments have been validated.
type Acquire[T any] func() (*T, error)

// Property is an accessor on instances. A nil Get makes it write-only, a nil
// Set read-only.
type Property[T any] struct {
	Name string
	Get  func(vm *goja.Runtime, self *T) goja.Value
	Set  func(vm *goja.Runtime, self *T, v goja.Value) error
	// Released lets Get run on a released instance, with a nil self.
	Released bool
}

// Method is a function on the prototype, called with the unwrapped receiver.
type Method[T any] struct {
	Name string
	Fn   func(b *Binding[T], self *T, call goja.FunctionCall) goja.Value
}

// Static is a function on the constructor.
type Static[T any] struct {
	Name string
	Fn   func(b *Binding[T], call goja.FunctionCall) goja.Value
}

// Class describes a native-backed script class.
type Class[T any] struct {
	Name string
	// Construct validates args and returns how to acquire the native value.
	// It must not acquire anything itself.
	Construct func(vm *goja.Runtime, args []goja.Value) (Acquire[T], error)
	// Finalize releases what Acquire obtained. Optional.
	Finalize   func(self *T)
	Properties []Property[T]
	Methods    []Method[T]
	Statics    []Static[T]
}

type slotState int

const (
	slotConstructed slotState = iota
	slotReleased
	slotFinalized
)

type slot[T any] struct {
	class string
	ptr   *T
	state slotState
}

// Binding is a Class installed into one runtime.
type Binding[T any] struct {
	class *Class[T]
	vm    *goja.Runtime
	fin   *Finalizers
	log   *zap.Logger
	ctor  *goja.Object
	proto *goja.Object
}

// Bind creates the constructor and prototype for c in vm. Instances collected
// by the garbage collector are finalized through fin.
func (c *Class[T]) Bind(vm *goja.Runtime, fin *Finalizers, log *zap.Logger) *Binding[T] {
	b := &Binding[T]{
		class: c,
		vm:    vm,
		fin:   fin,
		log:   log.With(zap.String("class", c.Name)),
	}
	b.ctor = b.newConstructor()
	b.proto = b.ctor.Get("prototype").(*goja.Object)
	b.ctor.DefineDataProperty("name", vm.ToValue(c.Name), goja.FLAG_FALSE, goja.FLAG_TRUE, goja.FLAG_FALSE)

	for _, p := range c.Properties {
		b.defineProperty(p)
	}
	for _, m := range c.Methods {
		b.defineMethod(m)
	}
	for _, s := range c.Statics {
		fn := vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return s.Fn(b, call)
		})
		b.ctor.DefineDataProperty(s.Name, fn, goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_FALSE)
	}
	b.proto.DefineDataPropertySymbol(goja.SymToStringTag, vm.ToValue(c.Name), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE)
	return b
}

func (b *Binding[T]) Name() string              { return b.class.Name }
func (b *Binding[T]) Constructor() *goja.Object { return b.ctor }
func (b *Binding[T]) Runtime() *goja.Runtime    { return b.vm }

func (b *Binding[T]) newConstructor() *goja.Object {
	factory, err := b.vm.RunProgram(classFactory)
	if err != nil {
		panic(err)
	}
	build, _ := goja.AssertFunction(factory)
	ctor, err := build(goja.Undefined(), b.vm.ToValue(b.class.Name), b.vm.ToValue(b.construct))
	if err != nil {
		panic(err)
	}
	return ctor.(*goja.Object)
}

// construct initializes the object a script created with new.
func (b *Binding[T]) construct(call goja.FunctionCall) goja.Value {
	this, ok := call.This.(*goja.Object)
	if !ok {
		panic(b.vm.NewTypeError("%s: bad receiver", b.class.Name))
	}
	if b.class.Construct == nil {
		panic(b.vm.NewTypeError("%s cannot be constructed from scripts", b.class.Name))
	}
	acquire, err := b.class.Construct(b.vm, call.Arguments)
	if err != nil {
		Throw(b.vm, fmt.Errorf("%s: %w", b.class.Name, err))
	}
	ptr, err := acquire()
	if err != nil {
		Throw(b.vm, fmt.Errorf("%s: %w", b.class.Name, err))
	}
	b.attach(this, ptr)
	return goja.Undefined()
}

// New wraps a native value created on the Go side in a new instance.
func (b *Binding[T]) New(v *T) *goja.Object {
	obj := b.vm.CreateObject(b.proto)
	b.attach(obj, v)
	return obj
}

// Construct runs the script constructor with args as `new` would. It is meant
// for native functions called from scripts: a failure is rethrown into the
// calling script.
func (b *Binding[T]) Construct(args ...goja.Value) *goja.Object {
	obj, err := b.vm.New(b.ctor, args...)
	if err != nil {
		panic(err)
	}
	return obj
}

// NewValue is New for value types.
func (b *Binding[T]) NewValue(v T) *goja.Object {
	return b.New(&v)
}

func (b *Binding[T]) attach(obj *goja.Object, ptr *T) {
	s := &slot[T]{class: b.class.Name, ptr: ptr}
	obj.DefineDataPropertySymbol(slotKey, b.vm.ToValue(s), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)
	if b.class.Finalize == nil {
		return
	}
	fin := b.fin
	finalize := b.finalize
	runtime.AddCleanup(obj, func(s *slot[T]) {
		fin.enqueue(func() { finalize(s) })
	}, s)
}

func (b *Binding[T]) slotOf(v goja.Value) (*slot[T], bool) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, false
	}
	raw := obj.GetSymbol(slotKey)
	if raw == nil {
		return nil, false
	}
	s, ok := raw.Export().(*slot[T])
	if !ok || s.class != b.class.Name {
		return nil, false
	}
	return s, true
}

// Unwrap returns the native value of an instance of this class. Released
// instances do not unwrap.
func (b *Binding[T]) Unwrap(v goja.Value) (*T, bool) {
	s, ok := b.slotOf(v)
	if !ok || s.ptr == nil {
		return nil, false
	}
	return s.ptr, true
}

// Release finalizes an instance now, as from an explicit unload() call.
// A later collection of the object is then a quiet no-op. It reports whether
// anything was released.
func (b *Binding[T]) Release(v goja.Value) bool {
	s, ok := b.slotOf(v)
	if !ok || s.state != slotConstructed {
		return false
	}
	ptr := s.ptr
	s.ptr = nil
	s.state = slotReleased
	if b.class.Finalize != nil && ptr != nil {
		b.class.Finalize(ptr)
	}
	return true
}

// Finalize runs the collector's finalizer path for v immediately.
func (b *Binding[T]) Finalize(v goja.Value) {
	s, ok := b.slotOf(v)
	if !ok {
		b.log.Warn("could not finalize: not an instance")
		return
	}
	b.finalize(s)
}

func (b *Binding[T]) finalize(s *slot[T]) {
	switch s.state {
	case slotReleased:
		s.state = slotFinalized
		return
	case slotFinalized:
		b.log.Warn("could not finalize instance: opaque pointer is null")
		return
	}
	ptr := s.ptr
	s.ptr = nil
	s.state = slotFinalized
	if ptr == nil {
		b.log.Warn("could not finalize instance: opaque pointer is null")
		return
	}
	if b.class.Finalize != nil {
		b.class.Finalize(ptr)
	}
}

func (b *Binding[T]) receiver(call goja.FunctionCall, member string) *T {
	self, ok := b.Unwrap(call.This)
	if !ok {
		panic(b.vm.NewTypeError("%s.%s called on an incompatible or released receiver", b.class.Name, member))
	}
	return self
}

func (b *Binding[T]) defineProperty(p Property[T]) {
	var getter, setter goja.Value
	if p.Get != nil {
		getter = b.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if p.Released {
				if s, ok := b.slotOf(call.This); ok {
					return p.Get(b.vm, s.ptr)
				}
			}
			return p.Get(b.vm, b.receiver(call, p.Name))
		})
	}
	if p.Set != nil {
		setter = b.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			self := b.receiver(call, p.Name)
			if err := p.Set(b.vm, self, call.Argument(0)); err != nil {
				Throw(b.vm, fmt.Errorf("%s.%s: %w", b.class.Name, p.Name, err))
			}
			return goja.Undefined()
		})
	}
	b.proto.DefineAccessorProperty(p.Name, getter, setter, goja.FLAG_TRUE, goja.FLAG_TRUE)
}

func (b *Binding[T]) defineMethod(m Method[T]) {
	fn := b.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		return m.Fn(b, b.receiver(call, m.Name), call)
	})
	b.proto.DefineDataProperty(m.Name, fn, goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_FALSE)
}
