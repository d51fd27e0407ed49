// FILE: lixenwraith/tunable/scan.go
package tunable

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"
)

// scan is one discovery pass over a subject and the containers it references.
type scan[H Handler] struct {
	factories []HandlerFactory[H]
	strict    bool
	logger    *slog.Logger
	visited   map[any]bool
	titles    map[any]reflect.Value
}

// pathSetter is implemented by handlers that accept a container-qualified path.
type pathSetter interface {
	SetPath(path string)
}

type fieldKind int

const (
	fieldIgnored fieldKind = iota
	fieldTunable
	fieldContainer
)

// run collects handlers for owner's tag-annotated fields, then for its annotated methods.
// Returned errors are fatal; lenient failures were already logged.
func (s *scan[H]) run(owner reflect.Value, prefix string) ([]H, error) {
	key := owner.Interface()
	s.visited[key] = true
	subject := typeName(owner)

	handlers := make([]H, 0)

	for _, field := range reflect.VisibleFields(owner.Type().Elem()) {
		kind, tag := classifyField(field)

		switch kind {
		case fieldIgnored:
			continue

		case fieldContainer:
			container, err := containerValue(owner, field)
			if err != nil {
				if ferr := s.fail(subject, field.Name, err); ferr != nil {
					return nil, ferr
				}
				continue
			}

			ckey := container.Interface()
			if s.visited[ckey] {
				continue
			}

			nested, err := s.run(container, joinPath(prefix, containerName(field, tag)))
			if err != nil {
				return nil, err
			}
			handlers = append(handlers, nested...)

		case fieldTunable:
			t, err := ParseTunable(tag)
			if err != nil {
				return nil, &MemberError{Op: "scan", Subject: subject, Member: field.Name,
					Err: fmt.Errorf("%w: %w", ErrInvalidArgument, err)}
			}

			h, err := s.handler(&FieldMember{owner: owner, field: field}, t)
			if err != nil {
				if ferr := s.fail(subject, field.Name, err); ferr != nil {
					return nil, ferr
				}
				continue
			}
			handlers = append(handlers, s.qualify(h, prefix))
		}
	}

	annotated, ok := key.(Annotated)
	if !ok {
		return handlers, nil
	}

	for _, ann := range annotated.Annotations() {
		if ann.ProvidesTitle {
			method, err := titleMethod(owner, ann.Method)
			if err != nil {
				return nil, err
			}
			if _, dup := s.titles[key]; dup {
				return nil, &MemberError{Op: "title", Subject: subject, Member: ann.Method,
					Err: fmt.Errorf("%w: %w: %s may have at most one title provider", ErrInvalidArgument, ErrDuplicateTitle, subject)}
			}
			s.titles[key] = owner.Method(method.Index)
			continue
		}

		t, err := ParseTunable(ann.Tag)
		if err != nil {
			return nil, &MemberError{Op: "scan", Subject: subject, Member: ann.Method,
				Err: fmt.Errorf("%w: %w", ErrInvalidArgument, err)}
		}

		member, err := newMethodMember(owner, ann.Method)
		if err != nil {
			return nil, err
		}

		h, err := s.handler(member, t)
		if err != nil {
			if ferr := s.fail(subject, ann.Method, err); ferr != nil {
				return nil, ferr
			}
			continue
		}
		handlers = append(handlers, s.qualify(h, prefix))
	}

	return handlers, nil
}

// handler dispatches m to the factories in order; the first one to accept it wins.
func (s *scan[H]) handler(m Member, t Tunable) (H, error) {
	var zero H
	for _, f := range s.factories {
		h, ok, err := tryFactory(f, m, t)
		if err != nil {
			return zero, fmt.Errorf("%w: %w", ErrFactoryFailed, err)
		}
		if ok && !isNil(any(h)) {
			return h, nil
		}
	}
	return zero, fmt.Errorf("%w: no handler for type %s", ErrNoHandler, m.Type())
}

func tryFactory[H Handler](f HandlerFactory[H], m Member, t Tunable) (h H, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero H
			h, ok, err = zero, false, fmt.Errorf("panic in %T: %v", f, r)
		}
	}()
	return f.NewHandler(m, t)
}

func (s *scan[H]) qualify(h H, prefix string) H {
	if prefix == "" {
		return h
	}
	if ps, ok := any(h).(pathSetter); ok {
		ps.SetPath(joinPath(prefix, h.Name()))
	}
	return h
}

// fail applies the discovery failure policy.
func (s *scan[H]) fail(subject, member string, err error) error {
	merr := &MemberError{Op: "scan", Subject: subject, Member: member, Err: err}
	if s.strict {
		return merr
	}
	s.logger.Debug("tunable intercept failed",
		"subject", subject,
		"member", member,
		"error", err)
	return nil
}

// hasTunables reports whether owner or a container it references declares a tunable.
func hasTunables(owner reflect.Value, visited map[any]bool, logger *slog.Logger) bool {
	key := owner.Interface()
	if visited[key] {
		return false
	}
	visited[key] = true

	for _, field := range reflect.VisibleFields(owner.Type().Elem()) {
		switch kind, _ := classifyField(field); kind {
		case fieldTunable:
			return true
		case fieldContainer:
			container, err := containerValue(owner, field)
			if err != nil {
				logger.Debug("tunable container intercept failed",
					"subject", typeName(owner),
					"member", field.Name,
					"error", err)
				continue
			}
			if hasTunables(container, visited, logger) {
				return true
			}
		}
	}

	if annotated, ok := key.(Annotated); ok {
		for _, ann := range annotated.Annotations() {
			if !ann.ProvidesTitle {
				return true
			}
		}
	}
	return false
}

func classifyField(field reflect.StructField) (fieldKind, string) {
	if !field.IsExported() || field.Anonymous {
		return fieldIgnored, ""
	}

	tag, ok := field.Tag.Lookup(TagName)
	if !ok || tag == tagSkip {
		return fieldIgnored, ""
	}

	if opts, err := tagOptions(tag); err == nil && opts[tagContains] == true {
		return fieldContainer, tag
	}
	return fieldTunable, tag
}

// containerName is the path segment of a container; inline containers add none.
func containerName(field reflect.StructField, tag string) string {
	if opts, err := tagOptions(tag); err == nil {
		if opts[tagInline] == true {
			return ""
		}
		if name, ok := opts["name"].(string); ok && name != "" {
			return name
		}
	}
	return field.Name
}

// containerValue resolves a container field to a struct pointer.
func containerValue(owner reflect.Value, field reflect.StructField) (reflect.Value, error) {
	v, err := owner.Elem().FieldByIndexErr(field.Index)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%w: %w", ErrBadContainer, err)
	}

	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, ErrBadContainer
		}
		v = v.Elem()
	}

	switch {
	case v.Kind() == reflect.Struct && v.CanAddr():
		return v.Addr(), nil
	case v.Kind() == reflect.Ptr && !v.IsNil() && v.Elem().Kind() == reflect.Struct:
		return v, nil
	}
	return reflect.Value{}, fmt.Errorf("%w: field %s of type %s", ErrBadContainer, field.Name, field.Type)
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	if name == "" {
		return prefix
	}
	return strings.TrimSuffix(prefix, ".") + "." + name
}
