// FILE: lixenwraith/tunable/interceptor.go
package tunable

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"
)

// Interceptor discovers the tunables of subjects and builds handlers for them
// through an ordered list of factories. Handler lists are cached per subject.
type Interceptor[H Handler] struct {
	mu        sync.RWMutex
	factories []HandlerFactory[H]
	entries   map[any]*entry[H]
	strict    bool
	logger    *slog.Logger
}

type entry[H Handler] struct {
	handlers []H
	title    reflect.Value // bound title provider, invalid when the subject has none
}

// New creates an Interceptor with no factories, lenient discovery and the default logger.
func New[H Handler]() *Interceptor[H] {
	return &Interceptor[H]{
		entries: make(map[any]*entry[H]),
		logger:  slog.Default(),
	}
}

// SetStrict selects the discovery failure policy: strict returns the failure,
// lenient logs it at debug level and skips the member.
func (i *Interceptor[H]) SetStrict(strict bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.strict = strict
}

func (i *Interceptor[H]) Strict() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.strict
}

func (i *Interceptor[H]) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.logger = logger
}

func (i *Interceptor[H]) currentLogger() *slog.Logger {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.logger
}

// AddFactory appends f to the factory list. props is service metadata and may be nil.
func (i *Interceptor[H]) AddFactory(f HandlerFactory[H], props map[string]any) {
	if f == nil {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.factories = append(i.factories, f)
}

// RemoveFactory removes the first factory identical to f. props may be nil.
func (i *Interceptor[H]) RemoveFactory(f HandlerFactory[H], props map[string]any) bool {
	if f == nil || !reflect.TypeOf(f).Comparable() {
		return false
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	for idx, existing := range i.factories {
		if existing == f {
			i.factories = slices.Delete(i.factories, idx, idx+1)
			return true
		}
	}
	return false
}

// Factories returns a snapshot of the registered factories in dispatch order.
func (i *Interceptor[H]) Factories() []HandlerFactory[H] {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return slices.Clone(i.factories)
}

// Handlers returns the handlers for subject's tunables, fields first, then
// annotated methods. The list is computed once per subject and the cached
// slice is returned on later calls; callers must not modify it.
// A nil subject yields an empty list.
func (i *Interceptor[H]) Handlers(subject any) ([]H, error) {
	if isNil(subject) {
		return []H{}, nil
	}
	e, err := i.lookup(subject)
	if err != nil {
		return nil, err
	}
	return e.handlers, nil
}

// lookup returns subject's cache entry, scanning it on a miss.
// Nothing is cached when the scan fails.
func (i *Interceptor[H]) lookup(subject any) (*entry[H], error) {
	owner, err := subjectValue(subject)
	if err != nil {
		return nil, err
	}

	i.mu.RLock()
	e, cached := i.entries[subject]
	factories := slices.Clone(i.factories)
	strict, logger := i.strict, i.logger
	i.mu.RUnlock()

	if cached {
		return e, nil
	}

	s := &scan[H]{
		factories: factories,
		strict:    strict,
		logger:    logger,
		visited:   make(map[any]bool),
		titles:    make(map[any]reflect.Value),
	}
	handlers, err := s.run(owner, "")
	if err != nil {
		return nil, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	// A concurrent scan of the same subject may have committed first.
	if e, cached := i.entries[subject]; cached {
		return e, nil
	}

	e = &entry[H]{handlers: handlers, title: s.titles[subject]}
	i.entries[subject] = e
	return e, nil
}

// HasTunables reports whether subject, or any container it references,
// declares at least one tunable. The handler cache is not populated.
func (i *Interceptor[H]) HasTunables(subject any) bool {
	if isNil(subject) {
		return false
	}
	owner, err := subjectValue(subject)
	if err != nil {
		return false
	}

	i.mu.RLock()
	logger := i.logger
	i.mu.RUnlock()

	return hasTunables(owner, make(map[any]bool), logger)
}

// Title invokes subject's title provider. ok is false when it has none.
func (i *Interceptor[H]) Title(subject any) (title string, ok bool, err error) {
	if isNil(subject) {
		return "", false, nil
	}
	e, err := i.lookup(subject)
	if err != nil {
		return "", false, err
	}
	if !e.title.IsValid() {
		return "", false, nil
	}
	return e.title.Call(nil)[0].String(), true, nil
}

// Release drops the handlers and title provider cached for subject.
func (i *Interceptor[H]) Release(subject any) {
	if _, err := subjectValue(subject); err != nil {
		return
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.entries, subject)
}

// Reset drops every cached handler list and title provider.
func (i *Interceptor[H]) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.entries = make(map[any]*entry[H])
}

// Cached reports whether subject has a cached handler list.
func (i *Interceptor[H]) Cached(subject any) bool {
	if _, err := subjectValue(subject); err != nil {
		return false
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.entries[subject]
	return ok
}

func isNil(subject any) bool {
	if subject == nil {
		return true
	}
	v := reflect.ValueOf(subject)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

func subjectValue(subject any) (reflect.Value, error) {
	v := reflect.ValueOf(subject)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%w: %w: got %T", ErrInvalidArgument, ErrInvalidSubject, subject)
	}
	return v, nil
}

func typeName(owner reflect.Value) string {
	t := owner.Type().Elem()
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
