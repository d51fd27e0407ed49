// FILE: lixenwraith/tunable/factory.go
package tunable

import (
	"net"
	"net/url"
	"reflect"
	"time"
)

// HandlerFactory builds a handler for one annotated member.
// Returning ok == false passes the member on to the next registered factory.
type HandlerFactory[H Handler] interface {
	NewHandler(m Member, t Tunable) (h H, ok bool, err error)
}

type funcFactory[H Handler] struct {
	fn func(m Member, t Tunable) (H, bool, error)
}

func (f *funcFactory[H]) NewHandler(m Member, t Tunable) (H, bool, error) {
	return f.fn(m, t)
}

// FactoryFunc adapts fn to a HandlerFactory. Each call returns a distinct,
// comparable factory suitable for RemoveFactory.
func FactoryFunc[H Handler](fn func(m Member, t Tunable) (H, bool, error)) HandlerFactory[H] {
	return &funcFactory[H]{fn: fn}
}

// BasicFactory produces BasicHandlers for every member type BasicHandler can convert into.
type BasicFactory struct {
	types map[reflect.Type]bool
}

// NewBasicFactory accepts all supported types.
func NewBasicFactory() *BasicFactory {
	return &BasicFactory{}
}

// TypeFactory accepts only the given types.
func TypeFactory(types ...reflect.Type) *BasicFactory {
	f := &BasicFactory{types: make(map[reflect.Type]bool, len(types))}
	for _, t := range types {
		f.types[t] = true
	}
	return f
}

func (f *BasicFactory) NewHandler(m Member, t Tunable) (Handler, bool, error) {
	if !f.Accepts(m.Type()) {
		return nil, false, nil
	}
	return NewBasicHandler(m, t), true, nil
}

// Accepts reports whether members of type t get a handler from f.
func (f *BasicFactory) Accepts(t reflect.Type) bool {
	if f.types != nil {
		return f.types[t]
	}
	return isSupportedType(t)
}

var specialTypes = map[reflect.Type]bool{
	reflect.TypeOf(time.Duration(0)): true,
	reflect.TypeOf(time.Time{}):      true,
	reflect.TypeOf(net.IP{}):         true,
	reflect.TypeOf(net.IPNet{}):      true,
	reflect.TypeOf(&net.IPNet{}):     true,
	reflect.TypeOf(url.URL{}):        true,
	reflect.TypeOf(&url.URL{}):       true,
}

func isSupportedType(t reflect.Type) bool {
	if specialTypes[t] {
		return true
	}

	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice, reflect.Array:
		return isSupportedType(t.Elem())
	case reflect.Map:
		return t.Key().Kind() == reflect.String && isSupportedType(t.Elem())
	}
	return false
}
