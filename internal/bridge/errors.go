package bridge

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

// ErrInvalidArgument marks argument errors that do not fit TypeError's
// expected/got shape. Throw raises them as script TypeErrors too.
var ErrInvalidArgument = errors.New("invalid argument")

// TypeError reports a script value that does not have the shape a native
// binding expects. Field is empty when the value itself is wrong.
type TypeError struct {
	Field    string
	Expected string
	Got      string
}

func (e *TypeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("expected %s, got %s", e.Expected, e.Got)
	}
	return fmt.Sprintf("field '%s': expected %s, got %s", e.Field, e.Expected, e.Got)
}

// Nest prefixes the field path of a TypeError with parent.
func Nest(parent string, err error) error {
	var te *TypeError
	if !errors.As(err, &te) {
		return err
	}
	field := parent
	if te.Field != "" {
		field = parent + "." + te.Field
	}
	return &TypeError{Field: field, Expected: te.Expected, Got: te.Got}
}

// Throw raises err in the script as a catchable exception. Type errors become
// script TypeErrors; anything else becomes a GoError. It never returns.
func Throw(vm *goja.Runtime, err error) {
	var te *TypeError
	if errors.As(err, &te) || errors.Is(err, ErrInvalidArgument) {
		panic(vm.NewTypeError("%s", err.Error()))
	}
	panic(vm.NewGoError(err))
}
