package hser

import (
	"fmt"
	"reflect"
	"sync"
)

// Defaulter is implemented by types whose default instance is not their
// zero value. The deserializer and lazy materialization call SetDefaults on
// every instance they construct, before filling it in.
type Defaulter interface {
	SetDefaults()
}

var defaulterType = reflect.TypeOf((*Defaulter)(nil)).Elem()

var typeRegistry sync.Map // string -> reflect.Type

// TypeName returns the name stored in Record.ObjectType for typ: the package
// path and the type name, e.g. "example.com/game.Preset". Pointer types are
// named after their element.
func TypeName(typ reflect.Type) string {
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.PkgPath() == "" || typ.Name() == "" {
		return typ.String()
	}
	return typ.PkgPath() + "." + typ.Name()
}

// RegisterType makes T resolvable by name, so Deserialize can construct it
// from a record alone. Serialize registers root types automatically; explicit
// registration is only needed when decoding records produced elsewhere.
// Types declared inside functions can share a name; the latest registration
// wins.
func RegisterType[T any]() {
	RegisterTypeOf(reflect.TypeFor[T]())
}

func RegisterTypeOf(typ reflect.Type) {
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	typeRegistry.Store(TypeName(typ), typ)
}

// ResolveType looks up a type registered under name.
func ResolveType(name string) (reflect.Type, bool) {
	if v, ok := typeRegistry.Load(name); ok {
		return v.(reflect.Type), true
	}
	return nil, false
}

// New constructs a default instance of typ and returns a pointer to it.
func New(typ reflect.Type) (reflect.Value, error) {
	if typ.Kind() == reflect.Interface {
		return reflect.Value{}, fmt.Errorf("%w %v", ErrAbstractType, typ)
	}
	return newDefault(typ), nil
}

func newDefault(typ reflect.Type) reflect.Value {
	ptr := reflect.New(typ)
	if ptr.Type().Implements(defaulterType) {
		ptr.Interface().(Defaulter).SetDefaults()
	}
	return ptr
}
