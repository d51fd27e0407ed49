// FILE: lixenwraith/tunable/member.go
package tunable

import (
	"fmt"
	"reflect"
	"strings"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Member is reflective read/write access to one tunable of one subject.
type Member interface {
	// Name is the Go field name or the getter root ("Threshold" for GetThreshold)
	Name() string

	Type() reflect.Type

	// Owner is the struct pointer declaring the member
	Owner() any

	Get() (any, error)

	// Set stores value, which must be assignable or convertible to Type
	Set(value any) error
}

// FieldMember accesses an exported struct field, possibly promoted from an embedded struct.
type FieldMember struct {
	owner reflect.Value
	field reflect.StructField
}

func (f *FieldMember) Name() string               { return f.field.Name }
func (f *FieldMember) Type() reflect.Type         { return f.field.Type }
func (f *FieldMember) Owner() any                 { return f.owner.Interface() }
func (f *FieldMember) Field() reflect.StructField { return f.field }
func (f *FieldMember) String() string             { return typeName(f.owner) + "." + f.field.Name }
func (f *FieldMember) value() (reflect.Value, error) {
	return f.owner.Elem().FieldByIndexErr(f.field.Index)
}

func (f *FieldMember) Get() (any, error) {
	v, err := f.value()
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.field.Name, err)
	}
	return v.Interface(), nil
}

func (f *FieldMember) Set(value any) error {
	v, err := f.value()
	if err != nil {
		return fmt.Errorf("field %s: %w", f.field.Name, err)
	}
	if !v.CanSet() {
		return fmt.Errorf("field %s: %w", f.field.Name, ErrReadOnly)
	}

	in, err := assignable(value, f.field.Type)
	if err != nil {
		return fmt.Errorf("field %s: %w", f.field.Name, err)
	}
	v.Set(in)
	return nil
}

// MethodMember accesses a Get<Root>/Set<Root> method pair.
type MethodMember struct {
	owner  reflect.Value
	root   string
	getter reflect.Method
	setter reflect.Method
}

func (m *MethodMember) Name() string           { return m.root }
func (m *MethodMember) Type() reflect.Type     { return m.getter.Type.Out(0) }
func (m *MethodMember) Owner() any             { return m.owner.Interface() }
func (m *MethodMember) Getter() reflect.Method { return m.getter }
func (m *MethodMember) Setter() reflect.Method { return m.setter }
func (m *MethodMember) String() string         { return typeName(m.owner) + "." + m.getter.Name + "()" }

func (m *MethodMember) Get() (any, error) {
	out := m.owner.Method(m.getter.Index).Call(nil)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, fmt.Errorf("%s(): %w", m.getter.Name, out[1].Interface().(error))
	}
	return out[0].Interface(), nil
}

func (m *MethodMember) Set(value any) error {
	in, err := assignable(value, m.Type())
	if err != nil {
		return fmt.Errorf("%s(): %w", m.setter.Name, err)
	}

	out := m.owner.Method(m.setter.Index).Call([]reflect.Value{in})
	if len(out) == 1 && !out[0].IsNil() {
		return fmt.Errorf("%s(): %w", m.setter.Name, out[0].Interface().(error))
	}
	return nil
}

// newMethodMember validates getter and finds its setter complement on owner.
func newMethodMember(owner reflect.Value, getter string) (*MethodMember, error) {
	subject := typeName(owner)

	if !strings.HasPrefix(getter, "Get") || len(getter) == len("Get") {
		return nil, structural("scan", subject, getter,
			"the name of the method has to start with \"Get\" but was %s()", getter)
	}

	gm, ok := owner.Type().MethodByName(getter)
	if !ok {
		return nil, structural("scan", subject, getter, "no exported method %s()", getter)
	}
	if !isValidGetter(gm.Type) {
		return nil, structural("scan", subject, getter,
			"invalid getter method %s(), maybe it takes arguments or returns nothing?", getter)
	}

	root := strings.TrimPrefix(getter, "Get")
	returnType := gm.Type.Out(0)

	sm, ok := owner.Type().MethodByName("Set" + root)
	if !ok || !isCompatibleSetter(sm.Type, returnType) {
		return nil, structural("scan", subject, getter,
			"can't find a setter compatible with the Get%s() getter", root)
	}

	return &MethodMember{owner: owner, root: root, getter: gm, setter: sm}, nil
}

// isValidGetter accepts func(recv) T and func(recv) (T, error).
func isValidGetter(t reflect.Type) bool {
	if t.NumIn() != 1 {
		return false
	}
	switch t.NumOut() {
	case 1:
		return true
	case 2:
		return t.Out(1) == errorType
	}
	return false
}

// isCompatibleSetter accepts func(recv, T) and func(recv, T) error.
func isCompatibleSetter(t reflect.Type, want reflect.Type) bool {
	if t.NumIn() != 2 || t.In(1) != want {
		return false
	}
	switch t.NumOut() {
	case 0:
		return true
	case 1:
		return t.Out(0) == errorType
	}
	return false
}

// titleMethod validates a title provider signature.
func titleMethod(owner reflect.Value, name string) (reflect.Method, error) {
	subject := typeName(owner)

	m, ok := owner.Type().MethodByName(name)
	if !ok {
		return reflect.Method{}, structural("title", subject, name, "no exported method %s()", name)
	}
	if m.Type.NumOut() != 1 || m.Type.Out(0).Kind() != reflect.String {
		return reflect.Method{}, structural("title", subject, name,
			"%s() provides the title and must return string", name)
	}
	if m.Type.NumIn() != 1 {
		return reflect.Method{}, structural("title", subject, name,
			"%s() provides the title and must take 0 arguments", name)
	}
	return m, nil
}

// assignable converts value to a reflect.Value settable into a slot of type t.
func assignable(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}

	v := reflect.ValueOf(value)
	switch {
	case v.Type().AssignableTo(t):
		return v, nil
	case v.Type().ConvertibleTo(t) && v.Kind() != reflect.String && t.Kind() != reflect.String:
		return v.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot assign %T to %s", value, t)
}
